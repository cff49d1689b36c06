package vesting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/ledger"
)

// PostgresRepository stores deployments in PostgreSQL. Each unit of work is a single
// transaction holding the deployment row lock, and custody postings made through the
// supplied Custody join that transaction.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectDeployment = `SELECT address, account_code, start_time::text, duration::text,
        released_total::text, beneficiary, controller, created_at
        FROM vestings`

// Create inserts a deployment after fn has prepared its custody account.
func (r *PostgresRepository) Create(ctx context.Context, d Deployment, fn CreateFunc) error {
	return r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		custody := NewCustody(ledger.NewTxLedger(tx))
		if fn != nil {
			if err := fn(ctx, custody); err != nil {
				return err
			}
		}
		cmd, err := tx.Exec(ctx, `INSERT INTO vestings (address, account_code, start_time, duration,
            released_total, beneficiary, controller, created_at)
            VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8)
            ON CONFLICT (address) DO NOTHING`,
			d.Address[:], d.AccountCode,
			formatUint(uint64(d.Ledger.StartTime)), formatUint(uint64(d.Ledger.Duration)),
			formatUint(uint64(d.Ledger.ReleasedTotal)),
			d.Ledger.Beneficiary[:], d.Ledger.Controller[:], d.CreatedAt.UTC())
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrDuplicateDeployment
		}
		return nil
	})
}

// Get fetches a deployment by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Deployment, error) {
	address, err := identity.Parse(id)
	if err != nil {
		return Deployment{}, ErrNotFound
	}
	return scanDeployment(r.db.QueryRow(ctx, selectDeployment+` WHERE address = $1`, address[:]))
}

// List returns all deployments, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Deployment, error) {
	rows, err := r.db.Query(ctx, selectDeployment+` ORDER BY created_at, address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// View runs fn against a repeatable-read snapshot.
func (r *PostgresRepository) View(ctx context.Context, id string, fn ViewFunc) error {
	address, err := identity.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return r.inTx(ctx, opts, func(tx pgx.Tx) error {
		d, err := scanDeployment(tx.QueryRow(ctx, selectDeployment+` WHERE address = $1`, address[:]))
		if err != nil {
			return err
		}
		return fn(ctx, d, NewCustody(ledger.NewTxLedger(tx)))
	})
}

// Update locks the deployment row, applies fn and persists the new release total in
// the same transaction as fn's custody postings.
func (r *PostgresRepository) Update(ctx context.Context, id string, fn UpdateFunc) error {
	address, err := identity.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	return r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		d, err := scanDeployment(tx.QueryRow(ctx, selectDeployment+` WHERE address = $1 FOR UPDATE`, address[:]))
		if err != nil {
			return err
		}
		before := d.Ledger.ReleasedTotal
		if err := fn(ctx, &d, NewCustody(ledger.NewTxLedger(tx))); err != nil {
			return err
		}
		if d.Ledger.ReleasedTotal < before {
			return fmt.Errorf("%w: released total decreased from %d to %d", ErrInvariantViolation, before, d.Ledger.ReleasedTotal)
		}
		_, err = tx.Exec(ctx, `UPDATE vestings SET released_total = $1::numeric WHERE address = $2`,
			formatUint(uint64(d.Ledger.ReleasedTotal)), address[:])
		return err
	})
}

func (r *PostgresRepository) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanDeployment(row pgx.Row) (Deployment, error) {
	var (
		address, beneficiary, controller []byte
		start, duration, released        string
		createdAt                        time.Time
		d                                Deployment
	)
	if err := row.Scan(&address, &d.AccountCode, &start, &duration, &released, &beneficiary, &controller, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deployment{}, ErrNotFound
		}
		return Deployment{}, err
	}
	if len(address) != identity.Size || len(beneficiary) != identity.Size || len(controller) != identity.Size {
		return Deployment{}, fmt.Errorf("%w: malformed identity column", ErrInvariantViolation)
	}
	copy(d.Address[:], address)
	copy(d.Ledger.Beneficiary[:], beneficiary)
	copy(d.Ledger.Controller[:], controller)

	var err error
	if d.Ledger.StartTime, err = parseUint[Timestamp](start); err != nil {
		return Deployment{}, err
	}
	if d.Ledger.Duration, err = parseUint[Timestamp](duration); err != nil {
		return Deployment{}, err
	}
	if d.Ledger.ReleasedTotal, err = parseUint[Amount](released); err != nil {
		return Deployment{}, err
	}
	d.CreatedAt = createdAt.UTC()
	return d, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint[T ~uint64](s string) (T, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	}
	return T(v), nil
}
