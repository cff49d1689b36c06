package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_vesting/internal/ledger"
	"github.com/congo-pay/congo_vesting/internal/notification"
	"github.com/congo-pay/congo_vesting/internal/vesting"
)

// Service credits deployment custody accounts with inbound funds.
type Service struct {
	ledger   ledger.Ledger
	vestings *vesting.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService prepares a funding service ensuring the external deposits account exists.
func NewService(ctx context.Context, ledgerBackend ledger.Ledger, vestings *vesting.Service, notifier notification.Notifier, logger *slog.Logger) (*Service, error) {
	if vestings == nil {
		return nil, fmt.Errorf("vesting service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ledgerBackend.EnsureAccount(ctx, ledger.ExternalDepositsAccountCode); err != nil {
		return nil, err
	}
	return &Service{ledger: ledgerBackend, vestings: vestings, notifier: notifier, logger: logger}, nil
}

// DepositInput captures the required data for a deposit.
type DepositInput struct {
	DeploymentID string
	Amount       int64
	ClientTxID   string
}

// DepositResult represents the domain outcome of a deposit.
type DepositResult struct {
	TransactionID   string
	Status          string
	ContractBalance int64
	DeploymentID    string
	CompletedAt     time.Time
}

// Deposit adds funds to a deployment. Funds arriving after the schedule started join
// the allocation and vest as if present from the start.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (DepositResult, error) {
	if input.Amount <= 0 {
		return DepositResult{}, ledger.ErrInvalidAmount
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	d, err := s.vestings.Get(ctx, input.DeploymentID)
	if err != nil {
		return DepositResult{}, err
	}

	res, err := s.ledger.Deposit(ctx, d.AccountCode, input.ClientTxID, input.Amount)
	out := DepositResult{
		TransactionID:   res.TransactionID,
		Status:          res.Status,
		ContractBalance: res.AccountBalance,
		DeploymentID:    d.ID(),
		CompletedAt:     time.Now().UTC(),
	}
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return out, err
		}
		return DepositResult{}, err
	}

	s.logger.Info("vesting deposit recorded",
		slog.String("deployment_id", d.ID()),
		slog.Int64("amount", input.Amount),
		slog.Int64("contract_balance", res.AccountBalance),
	)
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:          notification.KindDeposited,
			DeploymentID:  d.ID(),
			Destination:   d.ID(),
			Value:         uint64(input.Amount),
			TransactionID: res.TransactionID,
			OccurredAt:    out.CompletedAt.UnixMilli(),
		}); err != nil {
			s.logger.Warn("notification delivery failed", slog.String("deployment_id", d.ID()), slog.Any("error", err))
		}
	}
	return out, nil
}
