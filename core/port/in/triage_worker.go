package in

import "triage_server/core/domain"

// WorkerControl is the control surface the dashboard and main expose over
// the poll worker. Start and Stop are synchronous, idempotent, and safe to
// call from a goroutine other than the worker's.
type WorkerControl interface {
	// Start launches the background poll loop with the given cadence.
	// A second Start while running is a warning-logged no-op.
	Start(pollIntervalSeconds int) error

	// Stop requests a cooperative stop, observed between cycles.
	Stop()

	Status() domain.WorkerStatus
}
