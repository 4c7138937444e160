// Package api hosts the HTTP server, middleware, and REST handlers for the
// catalog collector. Notable routes:
//   - GET /healthz / readyz for Kubernetes liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/catalog/collect runs one synchronous collection; the request
//     context is the cancellation signal.
package api
