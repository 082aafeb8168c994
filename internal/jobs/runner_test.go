package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractsonly/api/internal/model"
)

// ============================================================================
// Test Helpers
// ============================================================================

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(probes ...Probe) *Runner {
	return NewRunner(RunnerConfig{
		Defaults: JobConfig{MaxRetries: 3, RetryDelay: time.Millisecond, Timeout: time.Second},
		Logger:   discardLogger(),
		Probes:   probes,
	})
}

// failingUntil returns work that fails its first n calls and counts every call
func failingUntil(n int32, calls *atomic.Int32) WorkFunc {
	return func(ctx context.Context) error {
		if calls.Add(1) <= n {
			return errBoom
		}
		return nil
	}
}

func staticProbe(name string, ok bool) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) bool { return ok }}
}

// ============================================================================
// ExecuteJob Tests
// ============================================================================

func TestExecuteJob_AlwaysFailing_InvokedMaxRetriesPlusOne(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("max_retries_%d", n), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			work := func(ctx context.Context) error {
				calls.Add(1)
				return errBoom
			}

			result := newTestRunner().ExecuteJob(context.Background(), "always-fails", work,
				WithMaxRetries(n), WithRetryDelay(0))

			assert.False(t, result.Success)
			assert.Equal(t, n, result.RetryCount)
			assert.Equal(t, int32(n+1), calls.Load())
			assert.Equal(t, "boom", result.Error)
		})
	}
}

func TestExecuteJob_SucceedsOnAttemptK(t *testing.T) {
	t.Parallel()

	const maxRetries = 4
	for k := 0; k <= maxRetries; k++ {
		t.Run(fmt.Sprintf("attempt_%d", k), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			result := newTestRunner().ExecuteJob(context.Background(), "flaky",
				failingUntil(int32(k), &calls),
				WithMaxRetries(maxRetries), WithRetryDelay(0))

			assert.True(t, result.Success)
			assert.Empty(t, result.Error)
			assert.Equal(t, k, result.RetryCount)
			assert.Equal(t, int32(k+1), calls.Load())
		})
	}
}

func TestExecuteJob_RetryScenario(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	start := time.Now()
	result := newTestRunner().ExecuteJob(context.Background(), "x",
		failingUntil(2, &calls),
		WithMaxRetries(2),
		WithRetryDelay(10*time.Millisecond),
		WithTimeout(50*time.Millisecond),
	)
	elapsed := time.Since(start)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RetryCount)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.GreaterOrEqual(t, result.ExecutionTimeMs, int64(20))
}

func TestExecuteJob_NeverResolving_TimesOut(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	work := func(ctx context.Context) error {
		<-block
		return nil
	}

	start := time.Now()
	result := newTestRunner().ExecuteJob(context.Background(), "stuck", work,
		WithMaxRetries(0), WithTimeout(50*time.Millisecond))
	elapsed := time.Since(start)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, ErrJobTimeout.Error())
	assert.Contains(t, result.Error, "stuck")
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestExecuteJob_AttemptContextCarriesDeadline(t *testing.T) {
	t.Parallel()

	work := func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	}

	result := newTestRunner().ExecuteJob(context.Background(), "deadline", work,
		WithMaxRetries(1), WithRetryDelay(0), WithTimeout(20*time.Millisecond))

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.RetryCount)
}

func TestExecuteJob_TimeoutIsPerAttempt(t *testing.T) {
	t.Parallel()

	// Each attempt uses 60% of the timeout; together they exceed it
	const timeout = 100 * time.Millisecond
	var calls atomic.Int32
	work := func(ctx context.Context) error {
		select {
		case <-time.After(60 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		if calls.Add(1) <= 2 {
			return errBoom
		}
		return nil
	}

	result := newTestRunner().ExecuteJob(context.Background(), "slow-flaky", work,
		WithMaxRetries(2), WithRetryDelay(0), WithTimeout(timeout))

	assert.True(t, result.Success, "got %+v", result)
	assert.Equal(t, 2, result.RetryCount)
	assert.Equal(t, int32(3), calls.Load())
	assert.Greater(t, result.ExecutionTimeMs, timeout.Milliseconds())
}

func TestExecuteJob_PanicBecomesFailedResult(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	work := func(ctx context.Context) error {
		calls.Add(1)
		panic("kaboom")
	}

	result := newTestRunner().ExecuteJob(context.Background(), "panics", work,
		WithMaxRetries(1), WithRetryDelay(0))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "kaboom")
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecuteJob_InvalidConfig(t *testing.T) {
	t.Parallel()

	noop := func(ctx context.Context) error { return nil }

	tests := []struct {
		name string
		work WorkFunc
		opts []Option
	}{
		{"negative retries", noop, []Option{WithMaxRetries(-1)}},
		{"negative delay", noop, []Option{WithRetryDelay(-time.Second)}},
		{"zero timeout", noop, []Option{WithTimeout(0)}},
		{"nil work", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := newTestRunner().ExecuteJob(context.Background(), "bad", tt.work, tt.opts...)
			assert.False(t, result.Success)
			assert.Contains(t, result.Error, ErrInvalidJobConfig.Error())
			assert.Zero(t, result.RetryCount)
		})
	}
}

func TestExecuteJob_PanickingOption(t *testing.T) {
	t.Parallel()

	bad := func(c *JobConfig) { panic("bad option") }
	result := newTestRunner().ExecuteJob(context.Background(), "bad-option",
		func(ctx context.Context) error { return nil }, bad)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "bad option")
}

func TestExecuteJob_ParentCancelStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	work := func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			cancel()
		}
		return errBoom
	}

	result := newTestRunner().ExecuteJob(ctx, "cancelled", work,
		WithMaxRetries(5), WithRetryDelay(time.Second))

	assert.False(t, result.Success)
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, result.RetryCount)
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestExecuteJob_ParentCancelDuringDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	work := func(context.Context) error {
		if calls.Add(1) == 1 {
			time.AfterFunc(20*time.Millisecond, cancel)
		}
		return errBoom
	}

	result := newTestRunner().ExecuteJob(ctx, "cancelled-waiting", work,
		WithMaxRetries(5), WithRetryDelay(time.Second))

	assert.False(t, result.Success)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestExecuteJob_ParentCancelOnLastAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	work := func(context.Context) error {
		cancel()
		return errBoom
	}

	result := newTestRunner().ExecuteJob(ctx, "cancelled-last", work, WithMaxRetries(0))

	assert.False(t, result.Success)
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestExecuteJob_DefaultsApply(t *testing.T) {
	t.Parallel()

	r := NewRunner(RunnerConfig{Logger: discardLogger()})
	assert.Equal(t, DefaultJobConfig(), r.Defaults())

	var calls atomic.Int32
	result := r.ExecuteJob(context.Background(), "defaults", failingUntil(0, &calls))
	assert.True(t, result.Success)
}

func TestExecuteJob_OnResult(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		names []string
		runID string
	)
	r := NewRunner(RunnerConfig{
		Logger: discardLogger(),
		OnResult: func(ctx context.Context, name string, result model.JobResult) {
			mu.Lock()
			defer mu.Unlock()
			names = append(names, name)
			runID = RunIDFromContext(ctx)
		},
	})

	ctx := WithRunID(context.Background(), "run-1")
	r.ExecuteJob(ctx, "observed", func(ctx context.Context) error { return nil })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"observed"}, names)
	assert.Equal(t, "run-1", runID)
}

// ============================================================================
// ExecuteBatch Tests
// ============================================================================

func TestExecuteBatch_Isolation(t *testing.T) {
	t.Parallel()

	const n = 6
	specs := make([]JobSpec, n)
	for i := 0; i < n; i++ {
		fail := i%2 == 1
		specs[i] = JobSpec{
			Name: fmt.Sprintf("job-%d", i),
			Work: func(ctx context.Context) error {
				if fail {
					return errBoom
				}
				return nil
			},
			Options: []Option{WithMaxRetries(0)},
		}
	}

	batch := newTestRunner().ExecuteBatch(context.Background(), specs)

	require.Len(t, batch, n)
	for i := 0; i < n; i++ {
		result, ok := batch[fmt.Sprintf("job-%d", i)]
		require.True(t, ok)
		assert.Equal(t, i%2 == 0, result.Success, "job-%d", i)
	}
	assert.Equal(t, model.BatchStatusPartial, batch.Status())
}

func TestExecuteBatch_RunsConcurrently(t *testing.T) {
	t.Parallel()

	slow := func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}
	specs := []JobSpec{
		{Name: "a", Work: slow, Options: []Option{WithMaxRetries(0)}},
		{Name: "b", Work: slow, Options: []Option{WithMaxRetries(0)}},
		{Name: "c", Work: slow, Options: []Option{WithMaxRetries(0)}},
	}

	start := time.Now()
	batch := newTestRunner().ExecuteBatch(context.Background(), specs)
	elapsed := time.Since(start)

	assert.Equal(t, model.BatchStatusSuccess, batch.Status())
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestExecuteBatch_DuplicateNames_LaterWins(t *testing.T) {
	t.Parallel()

	ok := func(ctx context.Context) error { return nil }
	fail := func(ctx context.Context) error { return errBoom }

	batch := newTestRunner().ExecuteBatch(context.Background(), []JobSpec{
		{Name: "a", Work: ok, Options: []Option{WithMaxRetries(0)}},
		{Name: "a", Work: fail, Options: []Option{WithMaxRetries(0)}},
	})

	require.Len(t, batch, 1)
	assert.False(t, batch["a"].Success)
	assert.Equal(t, "boom", batch["a"].Error)
}

func TestExecuteBatch_PanicsAndBadSpecsStillYieldResults(t *testing.T) {
	t.Parallel()

	batch := newTestRunner().ExecuteBatch(context.Background(), []JobSpec{
		{Name: "panics", Work: func(ctx context.Context) error { panic("x") }, Options: []Option{WithMaxRetries(0)}},
		{Name: "nil-work"},
		{Name: "bad-timeout", Work: func(ctx context.Context) error { return nil }, Options: []Option{WithTimeout(-1)}},
		{Name: "ok", Work: func(ctx context.Context) error { return nil }},
	})

	require.Len(t, batch, 4)
	assert.False(t, batch["panics"].Success)
	assert.False(t, batch["nil-work"].Success)
	assert.False(t, batch["bad-timeout"].Success)
	assert.True(t, batch["ok"].Success)
}

func TestExecuteBatch_Empty(t *testing.T) {
	t.Parallel()

	batch := newTestRunner().ExecuteBatch(context.Background(), nil)
	assert.Empty(t, batch)
	assert.Equal(t, model.BatchStatusSuccess, batch.Status())
}

// ============================================================================
// HealthCheck Tests
// ============================================================================

func TestHealthCheck_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		probes []Probe
		want   model.HealthStatus
	}{
		{"all pass", []Probe{staticProbe("a", true), staticProbe("b", true), staticProbe("c", true)}, model.HealthStatusHealthy},
		{"all fail", []Probe{staticProbe("a", false), staticProbe("b", false), staticProbe("c", false)}, model.HealthStatusUnhealthy},
		{"mixed", []Probe{staticProbe("a", true), staticProbe("b", false), staticProbe("c", true)}, model.HealthStatusDegraded},
		{"no probes", nil, model.HealthStatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := newTestRunner(tt.probes...).HealthCheck(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Checks, len(tt.probes))
			assert.False(t, report.Timestamp.IsZero())
		})
	}
}

func TestHealthCheck_PanickingProbeDegradesOnlyItself(t *testing.T) {
	t.Parallel()

	panics := Probe{Name: "panics", Check: func(ctx context.Context) bool { panic("probe bug") }}
	report := newTestRunner(panics, staticProbe("ok", true)).HealthCheck(context.Background())

	assert.Equal(t, model.HealthStatusDegraded, report.Status)
	assert.False(t, report.Checks["panics"])
	assert.True(t, report.Checks["ok"])
}

func TestHealthCheck_SlowProbeTimesOut(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	slow := Probe{Name: "slow", Check: func(ctx context.Context) bool {
		<-block
		return true
	}}
	r := NewRunner(RunnerConfig{
		Logger:       discardLogger(),
		Probes:       []Probe{slow, {Name: "nil-check"}},
		ProbeTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	report := r.HealthCheck(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, model.HealthStatusUnhealthy, report.Status)
	assert.False(t, report.Checks["slow"])
	assert.False(t, report.Checks["nil-check"])
}
