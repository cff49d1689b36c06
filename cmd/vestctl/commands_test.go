package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"vestctl"}, args...))
	return out.String(), err
}

func TestScheduleCommand(t *testing.T) {
	out, err := run(t, "schedule", "--balance", "1000", "--duration", "200", "--elapsed", "100")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for _, want := range []string{"vested_amount:      500", "releasable_balance: 500", "time_remaining_ms:  100000", "phase:              releasable"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestScheduleCommandRejectsOverflow(t *testing.T) {
	if _, err := run(t, "schedule", "--balance", "1", "--duration", "18446744073709551615"); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestReleaseCommandCallsAPI(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": 500})
	}))
	defer srv.Close()

	out, err := run(t, "--server", srv.URL, "release", "abc")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if gotPath != "POST /api/v1/vestings/abc/release" {
		t.Fatalf("unexpected request %s", gotPath)
	}
	if gotKey == "" {
		t.Fatal("expected an idempotency key on release")
	}
	if !strings.Contains(out, `"value": 500`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestCommandSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "zero releasable balance", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := run(t, "--server", srv.URL, "release", "abc")
	if err == nil || !strings.Contains(err.Error(), "409") {
		t.Fatalf("expected 409 error, got %v", err)
	}
}

func TestDeployRequiresCaller(t *testing.T) {
	beneficiary := strings.Repeat("ab", 32)
	if _, err := run(t, "deploy", "--beneficiary", beneficiary, "--duration", "10"); err == nil {
		t.Fatal("expected missing caller error")
	}
}
