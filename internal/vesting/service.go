package vesting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/notification"
	"github.com/congo-pay/congo_vesting/internal/wallet"
)

// Query names accepted by Service.Query.
const (
	QueryTimeNow           = "time_now"
	QueryContractBalance   = "contract_balance"
	QueryBeneficiary       = "beneficiary"
	QueryStartTime         = "start_time"
	QueryDurationTime      = "duration_time"
	QueryEndTime           = "end_time"
	QueryTimeRemaining     = "time_remaining"
	QueryReleasedBalance   = "released_balance"
	QueryReleasableBalance = "releasable_balance"
	QueryVestedAmount      = "vested_amount"
)

// Service hosts vesting deployments.
type Service struct {
	repo     Repository
	wallets  *wallet.Service
	clock    Clock
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService wires a vesting service. A nil clock selects the wall clock.
func NewService(repo Repository, wallets *wallet.Service, clock Clock, notifier notification.Notifier, logger *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, wallets: wallets, clock: clock, notifier: notifier, logger: logger}
}

// DeployInput captures the constructor arguments of a deployment.
type DeployInput struct {
	Beneficiary     identity.ID
	DurationSeconds uint64
	// Funding is deposited into custody as part of creation. Zero is allowed.
	Funding    Amount
	Caller     identity.ID
	ClientTxID string
}

// Deploy creates a deployment starting now. The deployment and its initial funding
// commit together or not at all. The beneficiary wallet is opened beforehand and
// survives a failed deploy; opening it again is a no-op.
func (s *Service) Deploy(ctx context.Context, input DeployInput) (Deployment, error) {
	now := s.clock.Now()
	led, err := New(input.Beneficiary, input.Caller, input.DurationSeconds, now)
	if err != nil {
		return Deployment{}, err
	}
	if uint64(input.Funding) > math.MaxInt64 {
		return Deployment{}, fmt.Errorf("funding %d: %w", uint64(input.Funding), ErrInvalidFunding)
	}

	salt := uuid.New()
	address := DeriveAddress(input.Caller, input.Beneficiary, now, salt[:])
	d := Deployment{
		Address:     address,
		AccountCode: AccountCode(address),
		Ledger:      led,
		CreatedAt:   time.Now().UTC(),
	}

	if s.wallets != nil {
		if _, err := s.wallets.Open(ctx, input.Beneficiary); err != nil {
			return Deployment{}, fmt.Errorf("open beneficiary wallet: %w", err)
		}
	}

	clientTxID := input.ClientTxID
	if clientTxID == "" {
		clientTxID = "deploy:" + d.ID()
	}
	err = s.repo.Create(ctx, d, func(ctx context.Context, custody Custody) error {
		if err := custody.EnsureAccount(ctx, d.AccountCode); err != nil {
			return err
		}
		if input.Funding == 0 {
			return nil
		}
		_, err := custody.Deposit(ctx, d.AccountCode, clientTxID, input.Funding)
		return err
	})
	if err != nil {
		s.logger.Warn("vesting deploy failed",
			slog.String("beneficiary", input.Beneficiary.String()),
			slog.Any("error", err),
		)
		return Deployment{}, err
	}

	s.logger.Info("vesting deployed",
		slog.String("deployment_id", d.ID()),
		slog.String("beneficiary", led.Beneficiary.String()),
		slog.Uint64("duration_ms", uint64(led.Duration)),
		slog.Uint64("funding", uint64(input.Funding)),
	)
	s.notify(ctx, notification.Message{
		Kind:         notification.KindDeployed,
		DeploymentID: d.ID(),
		Destination:  led.Beneficiary.String(),
		Value:        uint64(input.Funding),
		OccurredAt:   int64(now),
	})
	return d, nil
}

// Get returns a deployment.
func (s *Service) Get(ctx context.Context, id string) (Deployment, error) {
	return s.repo.Get(ctx, id)
}

// List returns every hosted deployment.
func (s *Service) List(ctx context.Context) ([]Deployment, error) {
	return s.repo.List(ctx)
}

// Status evaluates every query at one instant.
func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	var st Status
	err := s.repo.View(ctx, id, func(ctx context.Context, d Deployment, custody Custody) error {
		now := s.clock.Now()
		held, err := custody.HeldBalance(ctx, d.AccountCode)
		if err != nil {
			return err
		}
		st, err = statusOf(d, held, now)
		return err
	})
	if err != nil {
		s.logFault("vesting status failed", id, err)
		return Status{}, err
	}
	return st, nil
}

func statusOf(d Deployment, held Amount, now Timestamp) (Status, error) {
	l := d.Ledger
	end, err := l.EndTime()
	if err != nil {
		return Status{}, err
	}
	remaining, err := l.TimeRemaining(now)
	if err != nil {
		return Status{}, err
	}
	vested, err := l.VestedAmount(held, now)
	if err != nil {
		return Status{}, err
	}
	releasable, err := l.ReleasableAmount(held, now)
	if err != nil {
		return Status{}, err
	}
	return Status{
		ID:                d.ID(),
		Beneficiary:       l.Beneficiary,
		Controller:        l.Controller,
		TimeNow:           now,
		StartTime:         l.StartTime,
		Duration:          l.Duration,
		EndTime:           end,
		TimeRemaining:     remaining,
		ContractBalance:   held,
		ReleasedBalance:   l.ReleasedTotal,
		ReleasableBalance: releasable,
		VestedAmount:      vested,
		Phase:             PhaseOf(releasable),
	}, nil
}

// Query evaluates a single named query. Identity results are identity.ID, all others
// are uint64.
func (s *Service) Query(ctx context.Context, id, name string) (any, error) {
	var out any
	err := s.repo.View(ctx, id, func(ctx context.Context, d Deployment, custody Custody) error {
		l := d.Ledger
		switch name {
		case QueryBeneficiary:
			out = l.Beneficiary
			return nil
		case QueryStartTime:
			out = uint64(l.StartTime)
			return nil
		case QueryDurationTime:
			out = uint64(l.Duration)
			return nil
		case QueryReleasedBalance:
			out = uint64(l.ReleasedTotal)
			return nil
		case QueryEndTime:
			end, err := l.EndTime()
			out = uint64(end)
			return err
		}

		now := s.clock.Now()
		switch name {
		case QueryTimeNow:
			out = uint64(now)
			return nil
		case QueryTimeRemaining:
			remaining, err := l.TimeRemaining(now)
			out = uint64(remaining)
			return err
		}

		held, err := custody.HeldBalance(ctx, d.AccountCode)
		if err != nil {
			return err
		}
		var v Amount
		switch name {
		case QueryContractBalance:
			v = held
		case QueryVestedAmount:
			v, err = l.VestedAmount(held, now)
		case QueryReleasableBalance:
			v, err = l.ReleasableAmount(held, now)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownQuery, name)
		}
		out = uint64(v)
		return err
	})
	if err != nil {
		s.logFault("vesting query failed", id, err)
		return nil, err
	}
	return out, nil
}

// Release pays everything vested and not yet released to the beneficiary. Any caller
// may trigger it. The accounting update and the payout commit together or not at all;
// the Released notification follows the commit.
func (s *Service) Release(ctx context.Context, id string) (Released, error) {
	var out Released
	err := s.repo.Update(ctx, id, func(ctx context.Context, d *Deployment, custody Custody) error {
		now := s.clock.Now()
		held, err := custody.HeldBalance(ctx, d.AccountCode)
		if err != nil {
			return err
		}
		next, payout, err := d.Ledger.Release(held, now)
		if err != nil {
			return err
		}

		to := wallet.AccountCode(payout.To)
		if err := custody.EnsureAccount(ctx, to); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		res, err := custody.Transfer(ctx, d.AccountCode, to, uuid.NewString(), payout.Amount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}

		d.Ledger = next
		out = Released{
			DeploymentID:  d.ID(),
			Value:         payout.Amount,
			To:            payout.To,
			TransactionID: res.TransactionID,
			ReleasedTotal: next.ReleasedTotal,
			At:            now,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrZeroReleasableBalance) {
			s.logger.Debug("vesting release skipped", slog.String("deployment_id", id))
		} else {
			s.logFault("vesting release failed", id, err)
		}
		return Released{}, err
	}

	s.logger.Info("vesting released",
		slog.String("deployment_id", out.DeploymentID),
		slog.String("beneficiary", out.To.String()),
		slog.Uint64("amount", uint64(out.Value)),
		slog.Uint64("released_total", uint64(out.ReleasedTotal)),
	)
	s.notify(ctx, notification.Message{
		Kind:          notification.KindReleased,
		DeploymentID:  out.DeploymentID,
		Destination:   out.To.String(),
		Value:         uint64(out.Value),
		TransactionID: out.TransactionID,
		OccurredAt:    int64(out.At),
	})
	return out, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification delivery failed",
			slog.String("kind", msg.Kind),
			slog.String("deployment_id", msg.DeploymentID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) logFault(msg, id string, err error) {
	level := slog.LevelWarn
	if IsFault(err) {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, msg, slog.String("deployment_id", id), slog.Any("error", err))
}
