// Package api hosts the operator HTTP surface of the scraper. Notable routes:
//   - GET /healthz and /readyz for container probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the controller state and latest cycle report.
package api
