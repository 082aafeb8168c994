package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/contractsonly/api/internal/jobs"
	"github.com/contractsonly/api/internal/model"
)

// BatchRunner executes a set of jobs concurrently
type BatchRunner interface {
	ExecuteBatch(ctx context.Context, specs []jobs.JobSpec) model.BatchResult
}

// JobCatalog resolves job names to runnable specs
type JobCatalog interface {
	Names() []string
	Select(names ...string) ([]jobs.JobSpec, error)
}

// CronHandlerConfig holds the dependencies for CronHandler
type CronHandlerConfig struct {
	Runner  BatchRunner
	Jobs    JobCatalog
	Logger  *slog.Logger
	OnBatch func(runID string, result model.BatchResult)
}

// CronHandler triggers registered jobs on behalf of an external scheduler
type CronHandler struct {
	runner  BatchRunner
	jobs    JobCatalog
	logger  *slog.Logger
	onBatch func(runID string, result model.BatchResult)
	now     func() time.Time
}

// RunResponse is the body returned by the trigger routes
type RunResponse struct {
	RunID     string            `json:"run_id"`
	Status    model.BatchStatus `json:"status"`
	Success   bool              `json:"success"`
	Results   model.BatchResult `json:"results"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewCronHandler creates a new cron handler
func NewCronHandler(cfg CronHandlerConfig) *CronHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CronHandler{
		runner:  cfg.Runner,
		jobs:    cfg.Jobs,
		logger:  logger,
		onBatch: cfg.OnBatch,
		now:     time.Now,
	}
}

// RegisterRoutes registers cron routes wrapped with the given auth middleware
func (h *CronHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /v1/cron/jobs", auth(http.HandlerFunc(h.ListJobs)))
	mux.Handle("POST /v1/cron/jobs", auth(http.HandlerFunc(h.RunJobs)))
	mux.Handle("POST /v1/cron/jobs/{name}", auth(http.HandlerFunc(h.RunJob)))
}

// ListJobs returns the registered job names
func (h *CronHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	WriteData(w, http.StatusOK, h.jobs.Names(), nil)
}

// RunJobs runs every registered job, or the subset named by ?job=
// (repeatable, or comma separated)
func (h *CronHandler) RunJobs(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, v := range r.URL.Query()["job"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	h.run(w, r, names)
}

// RunJob runs a single job named in the path
func (h *CronHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, []string{r.PathValue("name")})
}

func (h *CronHandler) run(w http.ResponseWriter, r *http.Request, names []string) {
	specs, err := h.jobs.Select(names...)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	runID := model.NewRunID()
	// A dropped trigger connection must not abort jobs half way through
	ctx := jobs.WithRunID(context.WithoutCancel(r.Context()), runID)

	// With retries a batch can outlast the server's WriteTimeout; the result
	// must still reach the invoker
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("write deadline not lifted",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
	}

	h.logger.Info("cron run started",
		slog.String("run_id", runID),
		slog.Int("jobs", len(specs)),
	)

	result := h.runner.ExecuteBatch(ctx, specs)
	status := result.Status()

	h.logger.Info("cron run finished",
		slog.String("run_id", runID),
		slog.String("status", string(status)),
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("failed", result.Failed()),
	)
	if h.onBatch != nil {
		h.onBatch(runID, result)
	}

	w.Header().Set("X-Run-ID", runID)
	WriteJSON(w, statusCodeFor(status), RunResponse{
		RunID:     runID,
		Status:    status,
		Success:   status == model.BatchStatusSuccess,
		Results:   result,
		Timestamp: h.now().UTC(),
	})
}

func statusCodeFor(status model.BatchStatus) int {
	switch status {
	case model.BatchStatusSuccess:
		return http.StatusOK
	case model.BatchStatusPartial:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}
