package wallet

import (
	"context"
	"sync"

	"github.com/congo-pay/congo_vesting/internal/identity"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[identity.ID]Wallet
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[identity.ID]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.Owner]; exists {
		return ErrExists
	}
	r.storage[wallet.Owner] = wallet
	return nil
}

func (r *memoryRepository) Get(_ context.Context, owner identity.ID) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[owner]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}
