package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contractsonly/api/internal/model"
)

// DefaultProbeTimeout bounds a single health probe
const DefaultProbeTimeout = 5 * time.Second

// RunnerConfig holds runner dependencies
type RunnerConfig struct {
	// Defaults is the policy options are applied over. Zero value means DefaultJobConfig.
	Defaults JobConfig

	Logger       *slog.Logger
	Probes       []Probe
	ProbeTimeout time.Duration

	// OnResult is called once per finished job. Optional.
	OnResult func(ctx context.Context, name string, result model.JobResult)
}

// Runner executes jobs with retries and timeouts. It holds no mutable
// state between calls and is safe for concurrent use.
type Runner struct {
	defaults     JobConfig
	logger       *slog.Logger
	probes       []Probe
	probeTimeout time.Duration
	onResult     func(context.Context, string, model.JobResult)
}

// NewRunner creates a runner
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Defaults == (JobConfig{}) {
		cfg.Defaults = DefaultJobConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	probes := make([]Probe, len(cfg.Probes))
	copy(probes, cfg.Probes)

	return &Runner{
		defaults:     cfg.Defaults,
		logger:       cfg.Logger,
		probes:       probes,
		probeTimeout: cfg.ProbeTimeout,
		onResult:     cfg.OnResult,
	}
}

// Defaults returns the policy jobs start from
func (r *Runner) Defaults() JobConfig {
	return r.defaults
}

// ExecuteJob runs work until it succeeds or the retry budget is spent.
// Attempt N+1 starts only after attempt N resolved and the retry delay
// elapsed. Cancelling ctx stops further attempts.
func (r *Runner) ExecuteJob(ctx context.Context, name string, work WorkFunc, opts ...Option) (result model.JobResult) {
	start := time.Now()
	log := r.logger.With(slog.String("job", name))

	defer func() {
		if rec := recover(); rec != nil {
			result = model.JobResult{
				Success:         false,
				Error:           fmt.Sprintf("%v: %v", ErrJobPanic, rec),
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}
			log.Error("job setup panicked", slog.Any("panic", rec))
		}
		if r.onResult != nil {
			r.onResult(ctx, name, result)
		}
	}()

	cfg := r.defaults.apply(opts)
	if err := cfg.Validate(); err != nil {
		log.Error("job rejected", slog.String("error", err.Error()))
		return failedResult(err, start, 0)
	}
	if work == nil {
		err := fmt.Errorf("%w: work is nil", ErrInvalidJobConfig)
		log.Error("job rejected", slog.String("error", err.Error()))
		return failedResult(err, start, 0)
	}

	var lastErr error
	attempt := 0
	for ; attempt <= cfg.MaxRetries; attempt++ {
		err := r.attempt(ctx, name, work, cfg.Timeout)
		if err == nil {
			result = model.JobResult{
				Success:         true,
				ExecutionTimeMs: time.Since(start).Milliseconds(),
				RetryCount:      attempt,
			}
			log.Info("job succeeded",
				slog.Int("retry_count", attempt),
				slog.Int64("execution_time_ms", result.ExecutionTimeMs),
			)
			return result
		}

		lastErr = err
		log.Warn("job attempt failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", cfg.MaxRetries+1),
			slog.String("error", err.Error()),
		)

		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if attempt == cfg.MaxRetries {
			break
		}
		if !sleep(ctx, cfg.RetryDelay) {
			lastErr = ctx.Err()
			break
		}
	}

	if attempt > cfg.MaxRetries {
		attempt = cfg.MaxRetries
	}
	result = failedResult(lastErr, start, attempt)
	log.Error("job failed",
		slog.Int("retry_count", attempt),
		slog.Int64("execution_time_ms", result.ExecutionTimeMs),
		slog.String("error", result.Error),
	)
	return result
}

// attempt runs work once under its own deadline
func (r *Runner) attempt(ctx context.Context, name string, work WorkFunc, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("%w: %v", ErrJobPanic, rec)
			}
		}()
		done <- work(attemptCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		// Prefer a result that raced the deadline
		select {
		case err := <-done:
			return err
		default:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s after %s", ErrJobTimeout, name, timeout)
	}
}

// ExecuteBatch runs every spec concurrently and waits for all of them.
// The result holds one entry per distinct name; when names repeat, the
// spec later in the input wins.
func (r *Runner) ExecuteBatch(ctx context.Context, specs []JobSpec) model.BatchResult {
	results := make([]model.JobResult, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec JobSpec) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = model.JobResult{
						Success: false,
						Error:   fmt.Sprintf("%v: %v", ErrJobPanic, rec),
					}
					r.logger.Error("batch job panicked",
						slog.String("job", spec.Name),
						slog.Any("panic", rec),
					)
				}
			}()
			results[i] = r.ExecuteJob(ctx, spec.Name, spec.Work, spec.Options...)
		}(i, spec)
	}
	wg.Wait()

	batch := make(model.BatchResult, len(specs))
	for i, spec := range specs {
		if _, dup := batch[spec.Name]; dup {
			r.logger.Warn("duplicate job name in batch, keeping later result",
				slog.String("job", spec.Name),
			)
		}
		batch[spec.Name] = results[i]
	}

	r.logger.Info("batch finished",
		slog.Int("jobs", len(batch)),
		slog.Int("succeeded", batch.Succeeded()),
		slog.Int("failed", batch.Failed()),
	)
	return batch
}

// HealthCheck runs every probe concurrently and classifies the result.
// A probe that panics, errors or outlives the probe timeout counts as failed.
func (r *Runner) HealthCheck(ctx context.Context) model.HealthReport {
	outcomes := make([]bool, len(r.probes))

	var wg sync.WaitGroup
	for i, p := range r.probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			outcomes[i] = r.runProbe(ctx, p)
		}(i, p)
	}
	wg.Wait()

	checks := make(map[string]bool, len(r.probes))
	for i, p := range r.probes {
		checks[p.Name] = outcomes[i]
		if !outcomes[i] {
			r.logger.Warn("health probe failed", slog.String("probe", p.Name))
		}
	}

	return model.HealthReport{
		Status:    model.ClassifyHealth(checks),
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	}
}

func (r *Runner) runProbe(ctx context.Context, p Probe) bool {
	if p.Check == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- false
			}
		}()
		done <- p.Check(probeCtx)
	}()

	select {
	case ok := <-done:
		return ok
	case <-probeCtx.Done():
		return false
	}
}

func failedResult(err error, start time.Time, retries int) model.JobResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return model.JobResult{
		Success:         false,
		Error:           msg,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		RetryCount:      retries,
	}
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
