package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/contractsonly/api/internal/jobs"
	"github.com/contractsonly/api/internal/middleware"
	"github.com/contractsonly/api/internal/model"
)

// ============================================================================
// Mocks
// ============================================================================

type mockBatchRunner struct {
	executeBatchFunc func(ctx context.Context, specs []jobs.JobSpec) model.BatchResult
}

func (m *mockBatchRunner) ExecuteBatch(ctx context.Context, specs []jobs.JobSpec) model.BatchResult {
	if m.executeBatchFunc != nil {
		return m.executeBatchFunc(ctx, specs)
	}
	return model.BatchResult{}
}

func noop(context.Context) error { return nil }

func newTestRegistry(t *testing.T, names ...string) *jobs.Registry {
	t.Helper()
	reg := jobs.NewRegistry()
	for _, n := range names {
		if err := reg.Register(n, noop); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}
	return reg
}

func passthrough(next http.Handler) http.Handler { return next }

func newCronMux(h *CronHandler) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, passthrough)
	return mux
}

func decodeRun(t *testing.T, rr *httptest.ResponseRecorder) RunResponse {
	t.Helper()
	var resp RunResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// resultsFor fails the named jobs and succeeds the rest
func resultsFor(failing ...string) func(ctx context.Context, specs []jobs.JobSpec) model.BatchResult {
	return func(ctx context.Context, specs []jobs.JobSpec) model.BatchResult {
		out := model.BatchResult{}
		for _, s := range specs {
			out[s.Name] = model.JobResult{Success: true}
		}
		for _, f := range failing {
			if _, ok := out[f]; ok {
				out[f] = model.JobResult{Success: false, Error: "boom", RetryCount: 3}
			}
		}
		return out
	}
}

// ============================================================================
// RunJobs Tests
// ============================================================================

func TestCronHandler_RunJobs_StatusCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		failing    []string
		wantCode   int
		wantStatus model.BatchStatus
	}{
		{"all succeed", nil, http.StatusOK, model.BatchStatusSuccess},
		{"mixed", []string{"weekly-digest"}, http.StatusMultiStatus, model.BatchStatusPartial},
		{"all fail", []string{"weekly-digest", "verify-postings"}, http.StatusInternalServerError, model.BatchStatusFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewCronHandler(CronHandlerConfig{
				Runner: &mockBatchRunner{executeBatchFunc: resultsFor(tt.failing...)},
				Jobs:   newTestRegistry(t, "weekly-digest", "verify-postings"),
			})

			req := httptest.NewRequest(http.MethodPost, "/v1/cron/jobs", nil)
			rr := httptest.NewRecorder()
			newCronMux(h).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			resp := decodeRun(t, rr)
			if resp.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, resp.Status)
			}
			if resp.Success != (tt.wantStatus == model.BatchStatusSuccess) {
				t.Errorf("unexpected success flag %v", resp.Success)
			}
			if len(resp.Results) != 2 {
				t.Errorf("expected 2 results, got %d", len(resp.Results))
			}
			if resp.RunID == "" || rr.Header().Get("X-Run-ID") != resp.RunID {
				t.Errorf("run id missing or mismatched: body=%q header=%q", resp.RunID, rr.Header().Get("X-Run-ID"))
			}
		})
	}
}

func TestCronHandler_RunJobs_SelectsQueryJobs(t *testing.T) {
	t.Parallel()
	var got []string
	h := NewCronHandler(CronHandlerConfig{
		Runner: &mockBatchRunner{executeBatchFunc: func(ctx context.Context, specs []jobs.JobSpec) model.BatchResult {
			for _, s := range specs {
				got = append(got, s.Name)
			}
			return resultsFor()(ctx, specs)
		}},
		Jobs: newTestRegistry(t, "a", "b", "c"),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/cron/jobs?job=c&job=a,b", nil)
	rr := httptest.NewRecorder()
	newCronMux(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if want := []string{"c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected jobs %v, got %v", want, got)
	}
}

func TestCronHandler_RunJobs_UnknownJob_Returns404WithoutRunning(t *testing.T) {
	t.Parallel()
	called := false
	h := NewCronHandler(CronHandlerConfig{
		Runner: &mockBatchRunner{executeBatchFunc: func(ctx context.Context, specs []jobs.JobSpec) model.BatchResult {
			called = true
			return nil
		}},
		Jobs: newTestRegistry(t, "a"),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/cron/jobs?job=a&job=nope", nil)
	rr := httptest.NewRecorder()
	newCronMux(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if called {
		t.Error("no job should run when a name is unknown")
	}
}

func TestCronHandler_RunJobs_EmptyRegistry_Returns200(t *testing.T) {
	t.Parallel()
	h := NewCronHandler(CronHandlerConfig{
		Runner: &mockBatchRunner{},
		Jobs:   newTestRegistry(t),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/cron/jobs", nil)
	rr := httptest.NewRecorder()
	newCronMux(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestCronHandler_Run_PropagatesRunIDAndSurvivesClientCancel(t *testing.T) {
	t.Parallel()
	var (
		mu       sync.Mutex
		ctxRunID string
		ctxErr   error
	)
	var onBatchRunID string
	h := NewCronHandler(CronHandlerConfig{
		Runner: &mockBatchRunner{executeBatchFunc: func(ctx context.Context, specs []jobs.JobSpec) model.BatchResult {
			mu.Lock()
			ctxRunID = jobs.RunIDFromContext(ctx)
			ctxErr = ctx.Err()
			mu.Unlock()
			return resultsFor()(ctx, specs)
		}},
		Jobs:    newTestRegistry(t, "a"),
		OnBatch: func(runID string, _ model.BatchResult) { onBatchRunID = runID },
	})

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/cron/jobs/a", nil).WithContext(reqCtx)
	rr := httptest.NewRecorder()
	newCronMux(h).ServeHTTP(rr, req)

	resp := decodeRun(t, rr)
	mu.Lock()
	defer mu.Unlock()
	if ctxRunID != resp.RunID {
		t.Errorf("expected run id %q in job context, got %q", resp.RunID, ctxRunID)
	}
	if ctxErr != nil {
		t.Errorf("job context should not inherit client cancellation, got %v", ctxErr)
	}
	if onBatchRunID != resp.RunID {
		t.Errorf("expected OnBatch run id %q, got %q", resp.RunID, onBatchRunID)
	}
}

func TestCronHandler_Run_BatchOutlastsServerWriteTimeout(t *testing.T) {
	t.Parallel()
	h := NewCronHandler(CronHandlerConfig{
		Runner: &mockBatchRunner{executeBatchFunc: func(ctx context.Context, specs []jobs.JobSpec) model.BatchResult {
			time.Sleep(300 * time.Millisecond)
			return resultsFor()(ctx, specs)
		}},
		Jobs: newTestRegistry(t, "weekly-digest"),
	})

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewUnstartedServer(middleware.Chain(newCronMux(h),
		middleware.RequestID,
		middleware.AccessLog(quiet),
		middleware.Compress,
	))
	srv.Config.WriteTimeout = 50 * time.Millisecond
	srv.Start()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/cron/jobs/weekly-digest", "application/json", nil)
	if err != nil {
		t.Fatalf("result lost after write timeout: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var run RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !run.Success || !run.Results["weekly-digest"].Success {
		t.Errorf("expected successful run, got %+v", run)
	}
}

// ============================================================================
// RunJob / ListJobs Tests
// ============================================================================

func TestCronHandler_RunJob_PathName(t *testing.T) {
	t.Parallel()
	h := NewCronHandler(CronHandlerConfig{
		Runner: &mockBatchRunner{executeBatchFunc: resultsFor("b")},
		Jobs:   newTestRegistry(t, "a", "b"),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/cron/jobs/b", nil)
	rr := httptest.NewRecorder()
	newCronMux(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for the single failed job, got %d", rr.Code)
	}
	resp := decodeRun(t, rr)
	if _, ok := resp.Results["a"]; ok {
		t.Error("only the named job should run")
	}
	if resp.Results["b"].Error != "boom" {
		t.Errorf("expected error to be reported, got %+v", resp.Results["b"])
	}
}

func TestCronHandler_ListJobs(t *testing.T) {
	t.Parallel()
	h := NewCronHandler(CronHandlerConfig{
		Runner: &mockBatchRunner{},
		Jobs:   newTestRegistry(t, "weekly-digest", "expire-postings"),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/cron/jobs", nil)
	rr := httptest.NewRecorder()
	newCronMux(h).ServeHTTP(rr, req)

	var body struct {
		Data []string `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := []string{"weekly-digest", "expire-postings"}; !reflect.DeepEqual(body.Data, want) {
		t.Errorf("expected %v, got %v", want, body.Data)
	}
}

func TestCronHandler_RoutesUseAuth(t *testing.T) {
	t.Parallel()
	h := NewCronHandler(CronHandlerConfig{Runner: &mockBatchRunner{}, Jobs: newTestRegistry(t, "a")})
	mux := http.NewServeMux()
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, MapServiceError(errors.New("x")))
		})
	}
	h.RegisterRoutes(mux, deny)

	for _, target := range []string{"/v1/cron/jobs", "/v1/cron/jobs/a"} {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected the auth wrapper to answer, got %d", target, rr.Code)
		}
	}
}
