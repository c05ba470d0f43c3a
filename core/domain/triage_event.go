package domain

import "time"

// =============================================================================
// LogEvent - worker progress events pushed to the event sink and SSE feed
// =============================================================================

// LogEvent is an immutable, timestamped worker event. Ordering within the
// sink is FIFO; Seq is assigned by the sink on push.
type LogEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Seq       int64       `json:"seq"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type EventType string

const (
	// Worker lifecycle events
	EventWorkerStarted       EventType = "worker.started"
	EventWorkerReady         EventType = "worker.ready" // ready sentinel, see ReadySignal
	EventWorkerStopped       EventType = "worker.stopped"
	EventWorkerAlreadyActive EventType = "worker.already_active"
	EventAuthFailed          EventType = "worker.auth_failed"

	// Per-cycle events
	EventCycleError EventType = "cycle.error"

	// Per-message events
	EventMessageDetected EventType = "message.detected"
	EventMessageSkipped  EventType = "message.skipped"
	EventReplySent       EventType = "reply.sent"
	EventReplyFailed     EventType = "reply.failed"

	// System events
	EventConnected EventType = "connected"
)

// ReadySignal is the distinguished message of the EventWorkerReady event,
// letting an observer tell a first successful start from ordinary log lines.
const ReadySignal = "WORKER_READY_SIGNAL"

// ReplySentData is the structured payload of an EventReplySent event.
type ReplySentData struct {
	Recipient      string    `json:"recipient"`
	Subject        string    `json:"subject"`
	ErrorCode      int       `json:"error_code"`
	SentAt         time.Time `json:"sent_at"`
	TotalProcessed int64     `json:"total_processed"`
}

// =============================================================================
// Worker state
// =============================================================================

// WorkerPhase is the poll worker's lifecycle phase.
type WorkerPhase string

const (
	PhaseIdle           WorkerPhase = "idle"
	PhaseAuthenticating WorkerPhase = "authenticating"
	PhasePolling        WorkerPhase = "polling"
	PhaseStopped        WorkerPhase = "stopped"
)

// WorkerStatus is a read-only snapshot of the poll worker, safe to take from
// the control goroutine while the worker runs.
type WorkerStatus struct {
	Phase          WorkerPhase `json:"phase"`
	Running        bool        `json:"running"`
	PollInterval   int         `json:"poll_interval_seconds"`
	ProcessedCount int64       `json:"processed_count"`
}
