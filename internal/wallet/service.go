package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/ledger"
)

const (
	statusActive = "active"
)

// AccountCode is the ledger account holding an identity's external funds.
func AccountCode(owner identity.ID) string {
	return "wallet:" + owner.String()
}

// Service exposes wallet operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds a wallet service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Open returns the wallet for owner, provisioning it and its ledger account on first use.
func (s *Service) Open(ctx context.Context, owner identity.ID) (Wallet, error) {
	if owner.IsZero() {
		return Wallet{}, identity.ErrInvalid
	}
	if w, err := s.repo.Get(ctx, owner); err == nil {
		return w, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Wallet{}, err
	}

	w := Wallet{
		Owner:       owner,
		AccountCode: AccountCode(owner),
		Status:      statusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledger.EnsureAccount(ctx, w.AccountCode); err != nil {
		return Wallet{}, err
	}
	if err := s.repo.Create(ctx, w); err != nil {
		if errors.Is(err, ErrExists) {
			return s.repo.Get(ctx, owner)
		}
		return Wallet{}, err
	}
	return w, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, owner identity.ID) (Wallet, error) {
	return s.repo.Get(ctx, owner)
}

// Balance returns the ledger balance for the wallet.
func (s *Service) Balance(ctx context.Context, owner identity.ID) (Balance, error) {
	w, err := s.repo.Get(ctx, owner)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, w.AccountCode)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Owner: owner, Amount: amount, AsOf: time.Now().UTC()}, nil
}
