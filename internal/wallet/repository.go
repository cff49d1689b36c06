package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/congo_vesting/internal/identity"
)

var (
	// ErrNotFound is returned when no wallet is registered for an identity.
	ErrNotFound = errors.New("wallet not found")
	// ErrExists is returned when a wallet is already registered for an identity.
	ErrExists = errors.New("wallet exists")
)

// Repository persists wallet metadata.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, owner identity.ID) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	cmd, err := r.db.Exec(ctx, `INSERT INTO wallets (owner, account_code, status, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (owner) DO NOTHING`,
		wallet.Owner[:], wallet.AccountCode, wallet.Status, wallet.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// Get fetches wallet metadata by owner identity.
func (r *PostgresRepository) Get(ctx context.Context, owner identity.ID) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT account_code, status, created_at
        FROM wallets WHERE owner = $1`, owner[:])
	w := Wallet{Owner: owner}
	var createdAt time.Time
	if err := row.Scan(&w.AccountCode, &w.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
