package model

import (
	"time"

	"github.com/google/uuid"
)

// JobResult is the terminal outcome of one job execution.
// RetryCount is the zero-based index of the successful attempt, or the
// configured retry limit when every attempt failed.
type JobResult struct {
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	RetryCount      int    `json:"retry_count"`
}

// BatchResult maps job names to their results, one entry per submitted name
type BatchResult map[string]JobResult

// Succeeded returns the number of successful jobs in the batch
func (b BatchResult) Succeeded() int {
	n := 0
	for _, r := range b {
		if r.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of failed jobs in the batch
func (b BatchResult) Failed() int {
	return len(b) - b.Succeeded()
}

// BatchStatus summarizes a batch for HTTP responses
type BatchStatus string

const (
	BatchStatusSuccess BatchStatus = "success"
	BatchStatusPartial BatchStatus = "partial"
	BatchStatusFailure BatchStatus = "failure"
)

// Status classifies the batch. An empty batch counts as a success.
func (b BatchResult) Status() BatchStatus {
	switch ok := b.Succeeded(); {
	case ok == len(b):
		return BatchStatusSuccess
	case ok == 0:
		return BatchStatusFailure
	default:
		return BatchStatusPartial
	}
}

// HealthStatus is the aggregated state of all health probes
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is computed fresh on every health check
type HealthReport struct {
	Status    HealthStatus    `json:"status"`
	Checks    map[string]bool `json:"checks"`
	Timestamp time.Time       `json:"timestamp"`
}

// ClassifyHealth buckets probe outcomes: all pass is healthy, none pass is
// unhealthy, anything in between is degraded. No probes counts as healthy.
func ClassifyHealth(checks map[string]bool) HealthStatus {
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	switch {
	case passed == len(checks):
		return HealthStatusHealthy
	case passed == 0:
		return HealthStatusUnhealthy
	default:
		return HealthStatusDegraded
	}
}

// JobRunEvent is published to live feed subscribers after each job finishes
type JobRunEvent struct {
	RunID      string    `json:"run_id,omitempty"`
	Job        string    `json:"job"`
	Result     JobResult `json:"result"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunID returns an identifier for one trigger of a job batch
func NewRunID() string {
	return uuid.New().String()
}
