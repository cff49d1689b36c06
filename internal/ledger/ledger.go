package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound is returned when a posting references an unknown account code.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount rejects zero or negative postings.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrBalanceOverflow rejects postings that would push a balance past int64.
	ErrBalanceOverflow = errors.New("balance overflow")
)

const (
	// StatusCompleted represents a settled posting.
	StatusCompleted = "completed"

	// KindDeposit marks inbound funding credited to a custody account.
	KindDeposit = "deposit"
	// KindRelease marks vested funds moved from custody to a beneficiary wallet.
	KindRelease = "vesting_release"

	// ExternalDepositsAccountCode is the counter-account for funds entering the system.
	ExternalDepositsAccountCode = "external:deposits"
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// DepositResult captures the outcome of an inbound funding posting.
type DepositResult struct {
	TransactionID  string
	AccountBalance int64
	Status         string
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	Deposit(ctx context.Context, code, clientTxID string, amount int64) (DepositResult, error)
}

// depositKey scopes a deposit's client transaction id to the credited account,
// so the same id may fund two different accounts.
func depositKey(code, clientTxID string) string {
	return code + ":" + clientTxID
}
