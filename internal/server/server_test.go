package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/timingbelt/internal/config"
	"github.com/me/timingbelt/internal/demo"
	"github.com/me/timingbelt/internal/metrics"
	"github.com/me/timingbelt/internal/store"
	"github.com/me/timingbelt/internal/timer"
	"github.com/me/timingbelt/pkg/belt"
	"github.com/me/timingbelt/pkg/model"
)

// syncRunner runs calls inline on the test goroutine.
type syncRunner struct{}

func (syncRunner) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

// stoppedRunner behaves like a loop that has exited.
type stoppedRunner struct{}

func (stoppedRunner) Do(context.Context, func()) error {
	return timer.ErrStopped
}

type manualTimer struct {
	listener func()
	armed    bool
}

func (t *manualTimer) SetListener(fn func()) { t.listener = fn }
func (t *manualTimer) Schedule()             { t.armed = true }

type testEnv struct {
	srv       *Server
	harness   *demo.Harness
	collector *metrics.Collector
	store     *store.SQLiteStore
	frame     *manualTimer
	idle      *manualTimer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	logger := testLogger()
	env := &testEnv{frame: &manualTimer{}, idle: &manualTimer{}}
	env.collector = metrics.NewCollector("ses_test")

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	env.store = st

	tb, err := belt.New(env.frame, env.idle,
		belt.WithLogger(logger),
		belt.WithSessionID("ses_test"),
		belt.WithObserver(env.collector.Observe),
	)
	if err != nil {
		t.Fatalf("belt.New: %v", err)
	}
	env.harness = demo.NewHarness(tb, logger, demo.WithSpend(func(time.Duration) {}))

	opts = append([]Option{WithStats(env.collector), WithStore(st)}, opts...)
	env.srv = New(config.DefaultServerConfig(), syncRunner{}, env.harness, logger, opts...)
	return env
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v, body=%s", method, path, err, w.Body.String())
	}
	return w, env
}

func doGet(t *testing.T, srv *Server, path string) envelope {
	t.Helper()
	w, env := do(t, srv, "GET", path, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status=%d, want 200, body=%s", path, w.Code, w.Body.String())
	}
	return env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func TestDiscovery(t *testing.T) {
	env := newTestEnv(t)
	resp := doGet(t, env.srv, "/api/v1/")
	if resp.Status != "ok" || resp.RequestID == "" {
		t.Errorf("envelope = %+v", resp)
	}
	var data discoveryResponse
	decodeData(t, resp, &data)
	if data.Name != "timingbelt API" || len(data.Endpoints) != len(endpoints) {
		t.Errorf("discovery = %+v", data)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	w, resp := do(t, env.srv, "GET", "/api/v1/health", "")
	if got := w.Header().Get("X-Request-ID"); got == "" || got != resp.RequestID {
		t.Errorf("X-Request-ID = %q, envelope request_id = %q", got, resp.RequestID)
	}
	if !strings.HasPrefix(resp.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", resp.RequestID)
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"cli id", "cli_1a2b3c4d", true},
		{"bad characters", "abc def", false},
		{"too long", strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go < 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/health", nil)
			req.Header.Set("X-Request-ID", tt.header)
			w := httptest.NewRecorder()
			env.srv.ServeHTTP(w, req)
			got := w.Header().Get("X-Request-ID")
			if tt.reuse && got != tt.header {
				t.Errorf("X-Request-ID = %q, want %q", got, tt.header)
			}
			if !tt.reuse && !strings.HasPrefix(got, "req_") {
				t.Errorf("X-Request-ID = %q, want a fresh req_ id", got)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	logger := testLogger()
	env := newTestEnv(t)
	rec := store.NewRecorder(env.store, store.DefaultRecorderConfig(), logger)
	env.srv = New(config.DefaultServerConfig(), syncRunner{}, env.harness, logger,
		WithStore(env.store), WithRecorder(rec))

	var data healthResponse
	decodeData(t, doGet(t, env.srv, "/api/v1/health"), &data)
	if data.Status != "healthy" || data.SessionID != "ses_test" || data.State != "IDLE" {
		t.Errorf("health = %+v", data)
	}
	if data.Store != "sqlite" || data.Recorder == nil {
		t.Errorf("store = %q recorder = %v", data.Store, data.Recorder)
	}
}

func TestHealth_StoppedLoop(t *testing.T) {
	env := newTestEnv(t)
	srv := New(config.DefaultServerConfig(), stoppedRunner{}, env.harness, testLogger())

	var data healthResponse
	decodeData(t, doGet(t, srv, "/api/v1/health"), &data)
	if data.Status != "degraded" || data.Store != "disabled" {
		t.Errorf("health = %+v", data)
	}
}

func TestStoppedLoopAnswersUnavailable(t *testing.T) {
	env := newTestEnv(t)
	srv := New(config.DefaultServerConfig(), stoppedRunner{}, env.harness, testLogger())

	w, resp := do(t, srv, "GET", "/api/v1/renderables", "")
	if w.Code != http.StatusServiceUnavailable || resp.Error == nil || resp.Error.Code != model.ErrUnavailable {
		t.Errorf("status=%d error=%+v", w.Code, resp.Error)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.collector.Observe(model.CycleTrace{Kind: model.CycleKindRender})
	env.collector.Observe(model.CycleTrace{Kind: model.CycleKindIdle, JobsStepped: 2})

	var s model.Stats
	decodeData(t, doGet(t, env.srv, "/api/v1/stats"), &s)
	if s.SessionID != "ses_test" || s.RenderCycles != 1 || s.IdleCycles != 1 || s.JobSteps != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestStats_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	srv := New(config.DefaultServerConfig(), syncRunner{}, env.harness, testLogger())
	for _, path := range []string{"/api/v1/stats", "/api/v1/sse/stats", "/api/v1/cycles", "/api/v1/cycles/cyc_1"} {
		w, resp := do(t, srv, "GET", path, "")
		if w.Code != http.StatusServiceUnavailable || resp.Error.Code != model.ErrUnavailable {
			t.Errorf("GET %s: status=%d error=%+v", path, w.Code, resp.Error)
		}
	}
}

func TestStats_Reset(t *testing.T) {
	env := newTestEnv(t)
	env.collector.Observe(model.CycleTrace{Kind: model.CycleKindRender, Duration: time.Millisecond})
	env.collector.Observe(model.CycleTrace{Kind: model.CycleKindIdle, JobsStepped: 2})

	w, resp := do(t, env.srv, "DELETE", "/api/v1/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body=%s", w.Code, w.Body.String())
	}
	var s model.Stats
	decodeData(t, resp, &s)
	if s.SessionID != "ses_test" || s.RenderCycles != 0 || s.IdleCycles != 0 || s.AvgRenderDuration != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
	if got := env.collector.Snapshot().JobSteps; got != 0 {
		t.Errorf("collector JobSteps = %d after reset", got)
	}

	srv := New(config.DefaultServerConfig(), syncRunner{}, env.harness, testLogger())
	if w, _ := do(t, srv, "DELETE", "/api/v1/stats", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("reset without a collector: status = %d, want 503", w.Code)
	}
}

func TestRequestEndsBeforeLoopRuns(t *testing.T) {
	env := newTestEnv(t)
	// The loop is not started yet, so queued calls wait.
	loop := timer.NewLoop(timer.DefaultConfig(), testLogger())
	srv := New(config.DefaultServerConfig(), loop, env.harness, testLogger())

	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancelled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 5*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go < 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()
			req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"name":"late","steps":1}`)).WithContext(ctx)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503, body=%s", w.Code, w.Body.String())
			}
		})
	}

	runCtx, stop := context.WithCancel(context.Background())
	t.Cleanup(func() {
		stop()
		<-loop.Done()
	})
	go loop.Start(runCtx)

	var jobs []model.JobInfo
	if err := loop.Do(context.Background(), func() { jobs = env.harness.Jobs() }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("jobs = %+v, want none queued by abandoned requests", jobs)
	}
}

func TestNotFoundRoute(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest("GET", "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
