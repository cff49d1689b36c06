package vesting

import (
	"context"
	"sort"
	"sync"

	"github.com/congo-pay/congo_vesting/internal/ledger"
)

// CreateFunc runs inside the unit of work that creates a deployment.
type CreateFunc func(ctx context.Context, custody Custody) error

// UpdateFunc mutates a deployment inside a unit of work. Returning an error discards
// the mutation together with every custody posting made through custody.
type UpdateFunc func(ctx context.Context, d *Deployment, custody Custody) error

// ViewFunc reads a deployment and its custody from one consistent snapshot.
type ViewFunc func(ctx context.Context, d Deployment, custody Custody) error

// Repository persists deployments and serializes all work against each of them.
type Repository interface {
	Create(ctx context.Context, d Deployment, fn CreateFunc) error
	Get(ctx context.Context, id string) (Deployment, error)
	List(ctx context.Context) ([]Deployment, error)
	View(ctx context.Context, id string, fn ViewFunc) error
	Update(ctx context.Context, id string, fn UpdateFunc) error
}

type memoryRepository struct {
	mu          sync.Mutex
	deployments map[string]Deployment
	custody     Custody
}

// NewMemoryRepository keeps deployments in memory with custody on the given ledger.
//
// One mutex covers each whole unit of work. A custody transfer is always the final
// effect of an UpdateFunc, so a failed transfer leaves nothing to undo.
func NewMemoryRepository(l ledger.Ledger) Repository {
	return &memoryRepository{
		deployments: make(map[string]Deployment),
		custody:     NewCustody(l),
	}
}

func (r *memoryRepository) Create(ctx context.Context, d Deployment, fn CreateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deployments[d.ID()]; exists {
		return ErrDuplicateDeployment
	}
	if fn != nil {
		if err := fn(ctx, r.custody); err != nil {
			return err
		}
	}
	r.deployments[d.ID()] = d
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deployments[id]
	if !ok {
		return Deployment{}, ErrNotFound
	}
	return d, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Deployment, 0, len(r.deployments))
	for _, d := range r.deployments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) View(ctx context.Context, id string, fn ViewFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deployments[id]
	if !ok {
		return ErrNotFound
	}
	return fn(ctx, d, r.custody)
}

func (r *memoryRepository) Update(ctx context.Context, id string, fn UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.deployments[id]
	if !ok {
		return ErrNotFound
	}
	next := current
	if err := fn(ctx, &next, r.custody); err != nil {
		return err
	}
	r.deployments[id] = next
	return nil
}
