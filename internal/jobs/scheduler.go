package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/contractsonly/api/internal/model"
)

// BatchExecutor runs a batch of jobs
type BatchExecutor interface {
	ExecuteBatch(ctx context.Context, specs []JobSpec) model.BatchResult
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	Interval time.Duration
	// StartDelay lets services initialize before the first run
	StartDelay time.Duration
	// BatchTimeout bounds one scheduled batch
	BatchTimeout time.Duration
	Logger       *slog.Logger
	// OnBatch is called with every scheduled batch result. Optional.
	OnBatch func(runID string, result model.BatchResult)
}

// Scheduler runs every registered job on an interval. It is the in-process
// fallback when no external cron calls the trigger endpoint.
type Scheduler struct {
	executor BatchExecutor
	registry *Registry
	cfg      SchedulerConfig
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(executor BatchExecutor, registry *Registry, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.StartDelay < 0 {
		cfg.StartDelay = 0
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		executor: executor,
		registry: registry,
		cfg:      cfg,
	}
}

// Start begins the schedule loop. A stopped scheduler can be started again.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(stop)
	s.cfg.Logger.Info("job scheduler started", slog.Duration("interval", s.cfg.Interval))
}

// Stop ends the schedule loop. An in-flight batch has its context cancelled
// and Stop waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop := s.stopCh
	s.mu.Unlock()

	close(stop)
	s.wg.Wait()
	s.cfg.Logger.Info("job scheduler stopped")
}

// run is the main loop
func (s *Scheduler) run(stop <-chan struct{}) {
	defer s.wg.Done()

	if s.cfg.StartDelay > 0 {
		select {
		case <-time.After(s.cfg.StartDelay):
		case <-stop:
			return
		}
	}
	s.tick(stop)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(stop)
		case <-stop:
			return
		}
	}
}

func (s *Scheduler) tick(stop <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BatchTimeout)
	defer cancel()

	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.RunOnce(ctx)
}

// RunOnce runs every registered job once (for testing or manual trigger)
func (s *Scheduler) RunOnce(ctx context.Context) model.BatchResult {
	runID := model.NewRunID()
	result := s.executor.ExecuteBatch(WithRunID(ctx, runID), s.registry.Specs())

	s.cfg.Logger.Info("scheduled batch finished",
		slog.String("run_id", runID),
		slog.String("status", string(result.Status())),
		slog.Int("failed", result.Failed()),
	)
	if s.cfg.OnBatch != nil {
		s.cfg.OnBatch(runID, result)
	}
	return result
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
