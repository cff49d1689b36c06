package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_TransferMaintainsBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "vesting:a"); err != nil {
		t.Fatalf("ensure account a: %v", err)
	}
	if err := l.EnsureAccount(ctx, "wallet:b"); err != nil {
		t.Fatalf("ensure account b: %v", err)
	}

	l.SeedBalance("vesting:a", 10_000)

	res, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, "client-1", 1_500)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if res.FromBalance != 8_500 {
		t.Fatalf("expected from balance 8500, got %d", res.FromBalance)
	}
	if res.ToBalance != 1_500 {
		t.Fatalf("expected to balance 1500, got %d", res.ToBalance)
	}

	total := l.balances["vesting:a"] + l.balances["wallet:b"]
	if total != 10_000 {
		t.Fatalf("ledger not balanced, total=%d", total)
	}
}

func TestInMemoryLedger_DuplicateTransaction(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "vesting:a")
	l.EnsureAccount(ctx, "wallet:b")
	l.SeedBalance("vesting:a", 5_000)

	if _, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, "dup", 500); err != nil {
		t.Fatalf("initial transfer failed: %v", err)
	}
	if _, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, "dup", 500); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestInMemoryLedger_TransferRejectsUnknownAndOverdrawn(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "vesting:a")
	l.SeedBalance("vesting:a", 100)

	if _, err := l.Transfer(ctx, "vesting:a", "wallet:missing", KindRelease, "x", 10); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}

	l.EnsureAccount(ctx, "wallet:b")
	if _, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, "y", 101); err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, "z", 0); err != ErrInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestInMemoryLedger_FailNextTransfer(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "vesting:a")
	l.EnsureAccount(ctx, "wallet:b")
	l.SeedBalance("vesting:a", 1_000)

	boom := errors.New("recipient rejected funds")
	l.FailNextTransfer(boom)

	if _, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, "a", 100); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if bal, _ := l.Balance(ctx, "vesting:a"); bal != 1_000 {
		t.Fatalf("expected untouched balance 1000, got %d", bal)
	}
	if _, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, "a", 100); err != nil {
		t.Fatalf("second transfer should succeed: %v", err)
	}
}

func TestInMemoryLedger_ConcurrentTransfers(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "vesting:a")
	l.EnsureAccount(ctx, "wallet:b")
	l.SeedBalance("vesting:a", 100_000)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txID := fmt.Sprintf("tx-%d", i)
			if _, err := l.Transfer(ctx, "vesting:a", "wallet:b", KindRelease, txID, amount); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	total := l.balances["vesting:a"] + l.balances["wallet:b"]
	if total != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", total)
	}
}

func TestInMemoryLedger_Deposit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "vesting:a")

	res, err := l.Deposit(ctx, "vesting:a", "client-deposit", 2_000)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("unexpected status: %s", res.Status)
	}
	if res.AccountBalance != 2_000 {
		t.Fatalf("expected balance 2000, got %d", res.AccountBalance)
	}
	if ext, _ := l.Balance(ctx, ExternalDepositsAccountCode); ext != -2_000 {
		t.Fatalf("expected external counter-account -2000, got %d", ext)
	}

	if _, err := l.Deposit(ctx, "vesting:a", "client-deposit", 2_000); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate deposit error, got %v", err)
	}
	if _, err := l.Deposit(ctx, "vesting:missing", "other", 1); err != ErrAccountNotFound {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestInMemoryLedger_DepositClientTxIDScopedToAccount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "vesting:a")
	l.EnsureAccount(ctx, "vesting:b")

	if _, err := l.Deposit(ctx, "vesting:a", "shared", 700); err != nil {
		t.Fatalf("deposit a: %v", err)
	}
	res, err := l.Deposit(ctx, "vesting:b", "shared", 300)
	if err != nil {
		t.Fatalf("deposit b reusing client id: %v", err)
	}
	if res.AccountBalance != 300 {
		t.Fatalf("expected b balance 300, got %d", res.AccountBalance)
	}
	if bal, _ := l.Balance(ctx, "vesting:a"); bal != 700 {
		t.Fatalf("expected a balance 700, got %d", bal)
	}
}
