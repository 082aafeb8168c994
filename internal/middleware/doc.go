// Package middleware provides HTTP middleware for the ContractsOnly API.
//
// # Available Middleware
//
//   - RequestID: propagates a well-formed X-Request-ID or assigns a UUID
//   - AccessLog: one slog line per request, with the batch run_id on trigger routes
//   - Recovery: converts handler panics into a 500 Problem Details body
//   - CORS: origin allow-list and preflight handling
//   - Compress: pooled gzip responses (skipped for websocket upgrades)
//   - CronAuth: bearer secret check for the job trigger routes
//   - RateLimit: per-client request budget
//
// The wrapped writers implement Unwrap, so handlers can use
// http.ResponseController through the whole chain.
//
// # Cron Authentication
//
// Trigger routes require "Authorization: Bearer <CRON_SECRET>". When
// CRON_SECRET_HASH is set the presented secret is checked with bcrypt
// instead, so the plaintext never needs to live on the server:
//
//	auth := middleware.CronAuth(middleware.NewStaticSecret(cfg.Cron.Secret, cfg.Cron.SecretHash))
//
// # Rate Limiting
//
// RateLimit accepts any Limiter. Both limiters count hits per client in
// fixed one-minute windows: MemoryLimiter inside one process, RedisLimiter
// in Redis so every instance shares the budget. Limiter errors let the
// request through.
package middleware
