package vesting

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/infra"
	"github.com/congo-pay/congo_vesting/internal/ledger"
	"github.com/congo-pay/congo_vesting/internal/logging"
	"github.com/congo-pay/congo_vesting/internal/wallet"
	"github.com/congo-pay/congo_vesting/migrations"
)

// testDatabaseEnv names a disposable database for the Postgres repository tests.
const testDatabaseEnv = "VESTING_TEST_DATABASE_URL"

type postgresFixture struct {
	svc   *Service
	repo  *PostgresRepository
	led   *ledger.PostgresLedger
	clock *manualClock
}

func newPostgresFixture(t *testing.T) postgresFixture {
	t.Helper()
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}
	ctx := context.Background()
	pool, err := infra.NewPostgresPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := infra.ApplyMigrations(ctx, pool, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	led := ledger.NewPostgresLedger(pool)
	if err := led.EnsureAccount(ctx, ledger.ExternalDepositsAccountCode); err != nil {
		t.Fatalf("ensure external account: %v", err)
	}
	repo := NewPostgresRepository(pool)
	wallets := wallet.NewService(wallet.NewPostgresRepository(pool), led)
	clock := &manualClock{now: testStart}
	svc := NewService(repo, wallets, clock, nil, logging.Discard())
	return postgresFixture{svc: svc, repo: repo, led: led, clock: clock}
}

// uniqueIdentity keeps runs against a shared database from colliding.
func uniqueIdentity() identity.ID {
	var id identity.ID
	a, b := uuid.New(), uuid.New()
	copy(id[:16], a[:])
	copy(id[16:], b[:])
	return id
}

func TestPostgresUpdateRollsBackCustodyWithLedger(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	beneficiary := uniqueIdentity()

	d, err := f.svc.Deploy(ctx, DeployInput{Beneficiary: beneficiary, DurationSeconds: 200, Funding: 1000, Caller: testController})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	f.clock.Advance(100_000)

	abort := errors.New("abort after transfer")
	err = f.repo.Update(ctx, d.ID(), func(ctx context.Context, dep *Deployment, custody Custody) error {
		if _, err := custody.Transfer(ctx, dep.AccountCode, wallet.AccountCode(beneficiary), uuid.NewString(), 500); err != nil {
			return err
		}
		dep.Ledger.ReleasedTotal += 500
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("expected abort, got %v", err)
	}

	stored, err := f.repo.Get(ctx, d.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Ledger.ReleasedTotal != 0 {
		t.Fatalf("expected released total to roll back, got %d", stored.Ledger.ReleasedTotal)
	}
	if held, _ := f.led.Balance(ctx, d.AccountCode); held != 1000 {
		t.Fatalf("expected custody to keep 1000, got %d", held)
	}
	if paid, _ := f.led.Balance(ctx, wallet.AccountCode(beneficiary)); paid != 0 {
		t.Fatalf("expected no payout, got %d", paid)
	}

	released, err := f.svc.Release(ctx, d.ID())
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Value != 500 || released.ReleasedTotal != 500 {
		t.Fatalf("unexpected release %+v", released)
	}
	if held, _ := f.led.Balance(ctx, d.AccountCode); held != 500 {
		t.Fatalf("expected custody 500 after release, got %d", held)
	}
}

func TestPostgresConcurrentReleasesPayOnce(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	beneficiary := uniqueIdentity()

	d, err := f.svc.Deploy(ctx, DeployInput{Beneficiary: beneficiary, DurationSeconds: 200, Funding: 1000, Caller: testController})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	f.clock.Advance(200_000)

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Release(ctx, d.ID())
		}(i)
	}
	wg.Wait()

	var ok int
	for i, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrZeroReleasableBalance):
		default:
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one payout, got %d", ok)
	}
	if paid, _ := f.led.Balance(ctx, wallet.AccountCode(beneficiary)); paid != 1000 {
		t.Fatalf("expected beneficiary paid 1000, got %d", paid)
	}
}
