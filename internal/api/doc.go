// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz and /readyz for liveness/readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for crawl progress (record count, ID bounds).
//   - GET /journals/{journal_id}/artifact for the cached raw page.
package api
