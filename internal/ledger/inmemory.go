package ledger

import (
	"context"
	"math"
	"sync"
)

// InMemoryLedger is a concurrency-safe ledger kept entirely in process memory.
type InMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]TransactionResult
	deposits     map[string]DepositResult
	failNext     error
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development runs without Postgres.
func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{
		balances:     map[string]int64{ExternalDepositsAccountCode: 0},
		transactions: make(map[string]TransactionResult),
		deposits:     make(map[string]DepositResult),
	}
}

func (l *InMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *InMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *InMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.failNext; err != nil {
		l.failNext = nil
		return TransactionResult{}, err
	}

	key := kind + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}

	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}
	if toBalance > math.MaxInt64-amount {
		return TransactionResult{}, ErrBalanceOverflow
	}

	fromBalance -= amount
	toBalance += amount

	l.balances[fromCode] = fromBalance
	l.balances[toCode] = toBalance

	res := TransactionResult{
		TransactionID: key,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}

	l.transactions[key] = res
	return res, nil
}

func (l *InMemoryLedger) Deposit(_ context.Context, code, clientTxID string, amount int64) (DepositResult, error) {
	if amount <= 0 {
		return DepositResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := KindDeposit + ":" + depositKey(code, clientTxID)
	if res, exists := l.deposits[key]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[code]
	if !ok {
		return DepositResult{}, ErrAccountNotFound
	}

	if balance > math.MaxInt64-amount {
		return DepositResult{}, ErrBalanceOverflow
	}

	balance += amount
	l.balances[code] = balance
	l.balances[ExternalDepositsAccountCode] -= amount

	res := DepositResult{
		TransactionID:  key,
		AccountBalance: balance,
		Status:         StatusCompleted,
	}
	l.deposits[key] = res
	return res, nil
}

// FailNextTransfer makes the next Transfer return err without touching balances.
// Tests use it to simulate a custody collaborator that refuses a payout.
func (l *InMemoryLedger) FailNextTransfer(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = err
}

// SeedBalance overwrites the balance of an account. Test helper.
func (l *InMemoryLedger) SeedBalance(code string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[code] = amount
}
