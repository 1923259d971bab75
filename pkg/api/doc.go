// Package api exposes the notification queue over HTTP for the delivery log
// UI and operational tooling.
//
// Endpoints:
//
//	GET  /api/v1/jobs/{id}                       job status
//	POST /api/v1/jobs/{id}/cancel                cancel a pending job
//	GET  /api/v1/recipients/{id}/jobs            delivery history (status, since, limit, offset filters)
//	GET  /api/v1/recipients/{id}/quiet-hours     quiet hours state and next send time
//
// All responses are JSON. Cancellation of a job that is already claimed or
// settled returns 409.
package api
