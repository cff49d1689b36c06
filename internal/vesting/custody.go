package vesting

import (
	"context"
	"fmt"
	"math"

	"github.com/congo-pay/congo_vesting/internal/ledger"
)

// Custody holds the funds a deployment vests and executes payouts.
type Custody interface {
	EnsureAccount(ctx context.Context, code string) error
	HeldBalance(ctx context.Context, code string) (Amount, error)
	Deposit(ctx context.Context, code, clientTxID string, amount Amount) (ledger.DepositResult, error)
	Transfer(ctx context.Context, fromCode, toCode, clientTxID string, amount Amount) (ledger.TransactionResult, error)
}

type ledgerCustody struct {
	ledger ledger.Ledger
}

// NewCustody exposes a double-entry ledger as custody.
func NewCustody(l ledger.Ledger) Custody {
	return ledgerCustody{ledger: l}
}

func (c ledgerCustody) EnsureAccount(ctx context.Context, code string) error {
	return c.ledger.EnsureAccount(ctx, code)
}

func (c ledgerCustody) HeldBalance(ctx context.Context, code string) (Amount, error) {
	balance, err := c.ledger.Balance(ctx, code)
	if err != nil {
		return 0, err
	}
	if balance < 0 {
		return 0, fmt.Errorf("%w: custody account %s is overdrawn (%d)", ErrInvariantViolation, code, balance)
	}
	return Amount(balance), nil
}

func (c ledgerCustody) Deposit(ctx context.Context, code, clientTxID string, amount Amount) (ledger.DepositResult, error) {
	units, err := toLedgerUnits(amount)
	if err != nil {
		return ledger.DepositResult{}, err
	}
	return c.ledger.Deposit(ctx, code, clientTxID, units)
}

func (c ledgerCustody) Transfer(ctx context.Context, fromCode, toCode, clientTxID string, amount Amount) (ledger.TransactionResult, error) {
	units, err := toLedgerUnits(amount)
	if err != nil {
		return ledger.TransactionResult{}, err
	}
	return c.ledger.Transfer(ctx, fromCode, toCode, ledger.KindRelease, clientTxID, units)
}

func toLedgerUnits(amount Amount) (int64, error) {
	if uint64(amount) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: amount %d exceeds ledger range", ErrArithmeticOverflow, amount)
	}
	return int64(amount), nil
}
