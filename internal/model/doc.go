// Package model defines domain entities and data structures for the
// ContractsOnly job service.
//
// The model package contains the records read and written by the job bodies
// (postings, digest subscribers), the result types produced by the job
// runner, and the RFC 9457 error type used by every HTTP response.
//
// # Domain Entities
//
//   - JobPosting: a contract role listed on the board, with its verification verdict
//   - DigestSubscriber: a profile opted in to the weekly digest email
//
// # Runner Results
//
// The runner never returns errors for job failures; outcomes are values:
//
//	type JobResult struct {
//	    Success         bool   `json:"success"`
//	    Error           string `json:"error,omitempty"`
//	    ExecutionTimeMs int64  `json:"execution_time_ms"`
//	    RetryCount      int    `json:"retry_count"`
//	}
//
// BatchResult maps job names to results, and HealthReport carries the
// aggregated probe outcome.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go.
package model
