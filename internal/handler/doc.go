// Package handler provides HTTP request handlers for the ContractsOnly API.
//
// Each handler struct holds the dependencies for one feature area and
// registers its own routes on an http.ServeMux:
//
//   - CronHandler: job trigger routes under /v1/cron
//   - HealthHandler: GET /health
//   - DigestHandler: unsubscribe links from digest emails
//   - LiveHandler: websocket feed of job results
//
// Dependencies are narrow interfaces so handlers can be tested with
// function-field mocks. Errors are written as RFC 9457 Problem Details via
// MapServiceError.
//
// # Trigger Responses
//
// A run answers 200 when every job succeeded, 207 when some failed and
// 500 when all failed. The body always carries the per-job results:
//
//	{"run_id":"…","status":"partial","success":false,"results":{…},"timestamp":"…"}
package handler
