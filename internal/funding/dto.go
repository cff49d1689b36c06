package funding

// DepositRequest captures a top-up of a deployment's custody account.
type DepositRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// DepositResponse represents the API response for a deposit.
type DepositResponse struct {
	TransactionID   string `json:"transaction_id"`
	Status          string `json:"status"`
	ContractBalance int64  `json:"contract_balance"`
	DeploymentID    string `json:"deployment_id"`
}
