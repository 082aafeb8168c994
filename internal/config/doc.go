// Package config manages application configuration for the ContractsOnly API.
//
// Configuration is loaded from environment variables and checked with
// Validate, which reports every problem at once:
//
//	cfg, err := config.Load()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS)
//   - DatabaseConfig: Postgres connection settings
//   - EmailConfig: Resend API settings and links placed in emails
//   - CronConfig: shared secret for the scheduled invoker
//   - JobsConfig: default retry policy for background jobs
//   - SchedulerConfig: in-process schedule fallback
//   - HealthConfig: health probe thresholds
//   - RateLimitConfig: per-client request limits
//   - VerificationConfig: posting verification and expiry
//   - AnalyticsConfig: analytics refresh endpoint
//
// # Environment Variables
//
// Key environment variables:
//
//	SERVER_PORT           - HTTP server port (default: 8080)
//	DATABASE_URL          - Postgres DSN
//	RESEND_API_KEY        - email provider API key
//	CRON_SECRET           - bearer secret the scheduled invoker sends
//	CRON_SECRET_HASH      - bcrypt hash of the secret, preferred over CRON_SECRET
//	UNSUBSCRIBE_SECRET    - HMAC key for digest unsubscribe links
//	JOB_MAX_RETRIES       - default retries per job (default: 3)
//	JOB_RETRY_DELAY       - delay between attempts (default: 1s)
//	JOB_TIMEOUT           - per-attempt timeout (default: 60s)
//	REDIS_ADDR            - shared rate limit store; in-memory when unset
package config
