// Package server provides the HTTP API for policy checks.
//
// The server exposes the loaded policy set over HTTP:
//
//   - POST /v1/check    evaluate a document against one or all policies
//   - POST /v1/explain  show the constraints a policy imposes (inverse query)
//   - GET  /v1/policies list the loaded policies
//   - GET  /health      liveness probe
//   - GET  /ready       readiness probe (policies loaded)
//   - GET  /metrics     Prometheus metrics, when enabled
//
// Requests pass through a middleware chain: panic recovery, request ID
// assignment, and structured request logging. Check outcomes can
// optionally be appended to a decision recorder.
package server
