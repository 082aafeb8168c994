// Package service implements the background job bodies for the ContractsOnly API.
//
// Each service exposes a method with the jobs.WorkFunc signature so it can
// be registered with the job runner:
//
//   - DigestService.SendWeeklyDigests: weekly email of new matching postings
//   - VerificationService.VerifyPending: contract scoring of imported postings
//   - PostingService.ExpireStale: retires postings past their TTL
//   - ReportService.Refresh: asks the analytics endpoint to rebuild reports
//
// # Service Pattern
//
//   - Constructor function (NewXxxService) accepts a config struct with dependencies
//   - Services define their own narrow repository interfaces for easy mocking
//   - Errors are sentinel errors from errors.go or wrapped errors for context
//   - Partial failures across records are aggregated with errors.Join
//
// # Error Handling
//
//	if errors.Is(err, service.ErrUnsubscribeTokenExpired) {
//	    // Handle expired link
//	}
package service
