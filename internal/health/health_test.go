package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ok(context.Context) error { return nil }

func failWith(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

// get serves path through a mux with h registered and decodes the body.
func get(t *testing.T, h *Handler, path string) (int, http.Header, result) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("GET %s: decode JSON: %v", path, err)
	}
	return rec.Code, rec.Header(), body
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := New("1.2.3", Checker{Name: "attempts", Check: failWith("down")})

	status, header, body := get(t, h, "/healthz")
	if status != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok even with a failing checker", status, body.Status)
	}
	if got := header.Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if body.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", body.Version)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantChecks: map[string]string{},
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "attempts", Check: ok},
				{Name: "lessons", Check: ok},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantChecks: map[string]string{"attempts": "ok", "lessons": "ok"},
		},
		{
			name: "one fails",
			checkers: []Checker{
				{Name: "attempts", Check: failWith("connection refused")},
				{Name: "lessons", Check: ok},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
			wantChecks: map[string]string{"attempts": "fail: connection refused", "lessons": "ok"},
		},
		{
			name: "all fail",
			checkers: []Checker{
				{Name: "attempts", Check: failWith("disk full")},
				{Name: "lessons", Check: failWith("all sources open")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
			wantChecks: map[string]string{"attempts": "fail: disk full", "lessons": "fail: all sources open"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, _, body := get(t, New("", tt.checkers...), "/readyz")
			if status != tt.wantStatus || body.Status != tt.wantBody {
				t.Errorf("readyz = %d %q, want %d %q", status, body.Status, tt.wantStatus, tt.wantBody)
			}
			if len(body.Checks) != len(tt.wantChecks) {
				t.Errorf("checks = %v, want %v", body.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("check %s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestPingChecker(t *testing.T) {
	t.Parallel()

	c := PingChecker("attempts", pinger{})
	if c.Name != "attempts" {
		t.Errorf("Name = %q, want attempts", c.Name)
	}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("healthy ping: %v", err)
	}

	want := errors.New("pool closed")
	if err := PingChecker("attempts", pinger{err: want}).Check(context.Background()); !errors.Is(err, want) {
		t.Errorf("failing ping = %v, want %v", err, want)
	}
}

func TestReadyz_CheckRespectsDeadline(t *testing.T) {
	t.Parallel()

	h := New("", Checker{Name: "slow", Check: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 for a timed-out check", rec.Code)
	}
}
