package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/urfave/cli"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/vesting"
)

var (
	scheduleFlags = []cli.Flag{
		cli.Uint64Flag{Name: "balance, b", Usage: "tokens currently held in custody"},
		cli.Uint64Flag{Name: "released, r", Usage: "tokens already released"},
		cli.Uint64Flag{Name: "duration, d", Usage: "vesting duration in seconds"},
		cli.Uint64Flag{Name: "elapsed, e", Usage: "seconds since the start of the schedule"},
	}
	deployFlags = []cli.Flag{
		cli.StringFlag{Name: "beneficiary", Usage: "hex identity receiving released tokens"},
		cli.Uint64Flag{Name: "duration, d", Usage: "vesting duration in seconds"},
		cli.Uint64Flag{Name: "funding, f", Usage: "tokens deposited at creation"},
		cli.StringFlag{Name: "client-tx-id", Usage: "idempotency key for the initial funding"},
	}
	depositFlags = []cli.Flag{
		cli.Int64Flag{Name: "amount, a", Usage: "tokens to deposit"},
		cli.StringFlag{Name: "client-tx-id", Usage: "idempotency key for the deposit"},
	}
)

var errMissingArg = errors.New("missing argument")

func scheduleAction(ctx *cli.Context) error {
	seconds := ctx.Uint64("duration")
	if seconds > math.MaxUint64/vesting.MillisPerSecond {
		return vesting.ErrArithmeticOverflow
	}
	elapsed := ctx.Uint64("elapsed")
	if elapsed > math.MaxUint64/vesting.MillisPerSecond {
		return vesting.ErrArithmeticOverflow
	}

	l := vesting.Ledger{
		Duration:      vesting.Timestamp(seconds * vesting.MillisPerSecond),
		ReleasedTotal: vesting.Amount(ctx.Uint64("released")),
	}
	at := vesting.Timestamp(elapsed * vesting.MillisPerSecond)
	held := vesting.Amount(ctx.Uint64("balance"))

	vested, err := l.VestedAmount(held, at)
	if err != nil {
		return err
	}
	releasable, err := l.ReleasableAmount(held, at)
	if err != nil {
		return err
	}
	remaining, err := l.TimeRemaining(at)
	if err != nil {
		return err
	}

	w := ctx.App.Writer
	fmt.Fprintf(w, "vested_amount:      %d\n", vested)
	fmt.Fprintf(w, "releasable_balance: %d\n", releasable)
	fmt.Fprintf(w, "time_remaining_ms:  %d\n", remaining)
	fmt.Fprintf(w, "phase:              %s\n", vesting.PhaseOf(releasable))
	return nil
}

func deployAction(ctx *cli.Context) error {
	beneficiary, err := identity.Parse(ctx.String("beneficiary"))
	if err != nil {
		return fmt.Errorf("--beneficiary: %w", err)
	}
	if ctx.GlobalString("caller") == "" {
		return fmt.Errorf("%w: --caller", errMissingArg)
	}
	body := map[string]any{
		"beneficiary":      beneficiary,
		"duration_seconds": ctx.Uint64("duration"),
		"funding":          ctx.Uint64("funding"),
		"client_tx_id":     ctx.String("client-tx-id"),
	}
	return call(ctx, http.MethodPost, "/vestings", body)
}

func listAction(ctx *cli.Context) error {
	return call(ctx, http.MethodGet, "/vestings", nil)
}

func statusAction(ctx *cli.Context) error {
	id, err := arg(ctx, 0, "deployment-id")
	if err != nil {
		return err
	}
	return call(ctx, http.MethodGet, "/vestings/"+url.PathEscape(id), nil)
}

func queryAction(ctx *cli.Context) error {
	id, err := arg(ctx, 0, "deployment-id")
	if err != nil {
		return err
	}
	name, err := arg(ctx, 1, "name")
	if err != nil {
		return err
	}
	return call(ctx, http.MethodGet, "/vestings/"+url.PathEscape(id)+"/"+url.PathEscape(name), nil)
}

func releaseAction(ctx *cli.Context) error {
	id, err := arg(ctx, 0, "deployment-id")
	if err != nil {
		return err
	}
	return call(ctx, http.MethodPost, "/vestings/"+url.PathEscape(id)+"/release", nil)
}

func depositAction(ctx *cli.Context) error {
	id, err := arg(ctx, 0, "deployment-id")
	if err != nil {
		return err
	}
	body := map[string]any{
		"amount":       ctx.Int64("amount"),
		"client_tx_id": ctx.String("client-tx-id"),
	}
	return call(ctx, http.MethodPost, "/vestings/"+url.PathEscape(id)+"/deposits", body)
}

func balanceAction(ctx *cli.Context) error {
	raw, err := arg(ctx, 0, "identity")
	if err != nil {
		return err
	}
	owner, err := identity.Parse(raw)
	if err != nil {
		return err
	}
	return call(ctx, http.MethodGet, "/wallets/"+owner.String()+"/balance", nil)
}

func arg(ctx *cli.Context, i int, name string) (string, error) {
	v := ctx.Args().Get(i)
	if v == "" {
		return "", fmt.Errorf("%w: <%s>", errMissingArg, name)
	}
	return v, nil
}

func call(ctx *cli.Context, method, path string, body any) error {
	out, err := clientFrom(ctx).do(context.Background(), method, path, body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		_, err = ctx.App.Writer.Write(out)
		return err
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(ctx.App.Writer)
	return err
}
