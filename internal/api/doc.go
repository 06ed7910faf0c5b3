// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz and /readyz for Kubernetes health checks; readyz opens and closes
//     a browser session.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/postal-codes/search?commune=&street=&number= resolves one
//     address, scraping Correos de Chile on a cache miss.
//   - GET /v1/postal-codes/{code} lists the stored addresses of a code.
//   - GET /v1/postal-codes?page=&limit= pages through stored addresses.
package api
