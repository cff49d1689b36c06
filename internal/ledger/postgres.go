package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	return ensureAccount(ctx, l.db, code)
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	return balanceForCode(ctx, l.db, code)
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	var res TransactionResult
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		res, err = transferTx(ctx, tx, fromCode, toCode, kind, clientTxID, amount)
		return err
	})
	if errors.Is(err, ErrDuplicateTransaction) {
		return res, err
	}
	if err != nil {
		return TransactionResult{}, err
	}
	return res, nil
}

// Deposit credits an account from the external deposits counter-account.
func (l *PostgresLedger) Deposit(ctx context.Context, code, clientTxID string, amount int64) (DepositResult, error) {
	var res DepositResult
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		res, err = depositTx(ctx, tx, code, clientTxID, amount)
		return err
	})
	if errors.Is(err, ErrDuplicateTransaction) {
		return res, err
	}
	if err != nil {
		return DepositResult{}, err
	}
	return res, nil
}

func (l *PostgresLedger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TxLedger runs ledger postings inside a transaction owned by the caller, so the
// postings commit or roll back together with the caller's own writes.
type TxLedger struct {
	tx pgx.Tx
}

// NewTxLedger binds a ledger to an open transaction.
func NewTxLedger(tx pgx.Tx) *TxLedger {
	return &TxLedger{tx: tx}
}

func (l *TxLedger) EnsureAccount(ctx context.Context, code string) error {
	return ensureAccount(ctx, l.tx, code)
}

func (l *TxLedger) Balance(ctx context.Context, code string) (int64, error) {
	return balanceForCode(ctx, l.tx, code)
}

func (l *TxLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	return transferTx(ctx, l.tx, fromCode, toCode, kind, clientTxID, amount)
}

func (l *TxLedger) Deposit(ctx context.Context, code, clientTxID string, amount int64) (DepositResult, error) {
	return depositTx(ctx, l.tx, code, clientTxID, amount)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func ensureAccount(ctx context.Context, q querier, code string) error {
	_, err := q.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

func balanceForCode(ctx context.Context, q querier, code string) (int64, error) {
	var id uuid.UUID
	if err := q.QueryRow(ctx, `SELECT id FROM accounts WHERE code = $1`, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("account %s: %w", code, ErrAccountNotFound)
		}
		return 0, err
	}
	return balanceForAccount(ctx, q, id)
}

func transferTx(ctx context.Context, tx pgx.Tx, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	fromAccountID, err := accountIDForCode(ctx, tx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toAccountID, err := accountIDForCode(ctx, tx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	const existingTxQuery = `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var existingTxID uuid.UUID
	if err := tx.QueryRow(ctx, existingTxQuery, clientTxID, kind).Scan(&existingTxID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return TransactionResult{}, err
		}
	} else {
		fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		toBal, err := balanceForAccount(ctx, tx, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{TransactionID: existingTxID.String(), FromBalance: fromBal, ToBalance: toBal}, ErrDuplicateTransaction
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}
	toBalance, err := balanceForAccount(ctx, tx, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if toBalance > math.MaxInt64-amount {
		return TransactionResult{}, ErrBalanceOverflow
	}

	txID, err := postEntries(ctx, tx, kind, clientTxID, fromAccountID, toAccountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{TransactionID: txID.String(), FromBalance: fromBalance - amount, ToBalance: toBalance + amount}, nil
}

func depositTx(ctx context.Context, tx pgx.Tx, code, clientTxID string, amount int64) (DepositResult, error) {
	if amount <= 0 {
		return DepositResult{}, ErrInvalidAmount
	}

	accountID, err := accountIDForCode(ctx, tx, code)
	if err != nil {
		return DepositResult{}, err
	}
	externalID, err := accountIDForCode(ctx, tx, ExternalDepositsAccountCode)
	if err != nil {
		return DepositResult{}, err
	}

	scopedID := depositKey(code, clientTxID)
	const existingQuery = `SELECT id, status FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var existingTxID uuid.UUID
	var existingStatus string
	if err := tx.QueryRow(ctx, existingQuery, scopedID, KindDeposit).Scan(&existingTxID, &existingStatus); err == nil {
		bal, balErr := balanceForAccount(ctx, tx, accountID)
		if balErr != nil {
			return DepositResult{}, balErr
		}
		return DepositResult{TransactionID: existingTxID.String(), AccountBalance: bal, Status: existingStatus}, ErrDuplicateTransaction
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return DepositResult{}, err
	}

	balance, err := balanceForAccount(ctx, tx, accountID)
	if err != nil {
		return DepositResult{}, err
	}
	if balance > math.MaxInt64-amount {
		return DepositResult{}, ErrBalanceOverflow
	}

	txID, err := postEntries(ctx, tx, KindDeposit, scopedID, externalID, accountID, amount)
	if err != nil {
		return DepositResult{}, err
	}

	return DepositResult{TransactionID: txID.String(), AccountBalance: balance + amount, Status: StatusCompleted}, nil
}

func postEntries(ctx context.Context, tx pgx.Tx, kind, clientTxID string, debitID, creditID uuid.UUID, amount int64) (uuid.UUID, error) {
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, StatusCompleted); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, debitID, -amount); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, creditID, amount); err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("account %s: %w", code, ErrAccountNotFound)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, q querier, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := q.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}
