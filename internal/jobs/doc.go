// Package jobs runs the API's scheduled background work.
//
// The Runner executes named units of asynchronous work with bounded retries,
// a fixed delay between attempts and a per-attempt timeout. Failures never
// escape as errors or panics; every job yields a model.JobResult.
//
// # Running Jobs
//
//	runner := jobs.NewRunner(jobs.RunnerConfig{
//	    Logger: logger,
//	    Probes: jobs.DefaultProbes(50<<20, []string{"DATABASE_URL"}, db),
//	})
//
//	result := runner.ExecuteJob(ctx, "weekly-digest", digest.SendWeeklyDigests,
//	    jobs.WithMaxRetries(2),
//	    jobs.WithTimeout(5*time.Minute),
//	)
//
// ExecuteBatch runs several jobs concurrently and returns one result per
// job name. HealthCheck runs the configured probes and classifies the
// service as healthy, degraded or unhealthy.
//
// # Registry and Scheduler
//
// The Registry holds the named jobs the API exposes. The Scheduler runs the
// registered batch on an interval when no external cron drives the service.
//
// # Timeouts
//
// A timed-out attempt stops being waited on and its context is cancelled,
// but the goroutine running it is not killed. Work functions must watch
// ctx.Done() to release resources promptly.
package jobs
