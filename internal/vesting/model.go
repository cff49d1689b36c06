package vesting

import (
	"time"

	"github.com/congo-pay/congo_vesting/internal/identity"
)

// Deployment is one vesting schedule together with the custody account funding it.
type Deployment struct {
	Address     identity.ID
	AccountCode string
	Ledger      Ledger
	CreatedAt   time.Time
}

// ID is the hex form of the deployment address.
func (d Deployment) ID() string {
	return d.Address.String()
}

// Status is every query evaluated against a single reading of the clock.
type Status struct {
	ID                string      `json:"id"`
	Beneficiary       identity.ID `json:"beneficiary"`
	Controller        identity.ID `json:"controller"`
	TimeNow           Timestamp   `json:"time_now"`
	StartTime         Timestamp   `json:"start_time"`
	Duration          Timestamp   `json:"duration_time"`
	EndTime           Timestamp   `json:"end_time"`
	TimeRemaining     Timestamp   `json:"time_remaining"`
	ContractBalance   Amount      `json:"contract_balance"`
	ReleasedBalance   Amount      `json:"released_balance"`
	ReleasableBalance Amount      `json:"releasable_balance"`
	VestedAmount      Amount      `json:"vested_amount"`
	Phase             Phase       `json:"phase"`
}

// Released is the notification emitted after a payout has been committed.
type Released struct {
	DeploymentID  string      `json:"deployment_id"`
	Value         Amount      `json:"value"`
	To            identity.ID `json:"to"`
	TransactionID string      `json:"transaction_id"`
	ReleasedTotal Amount      `json:"released_balance"`
	At            Timestamp   `json:"at"`
}
