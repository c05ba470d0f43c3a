package out

import "triage_server/core/domain"

// EventSink is the one-directional, thread-safe channel from the worker to
// its observers. The worker only pushes immutable events; observers drain a
// subscription in FIFO order.
type EventSink interface {
	Push(event *domain.LogEvent)
	Subscribe() <-chan *domain.LogEvent
	Unsubscribe(ch <-chan *domain.LogEvent)
}

// IssueRepository resolves extracted error codes against the reference
// dataset.
type IssueRepository interface {
	Lookup(code int) (*domain.IssueRecord, bool)
	Len() int
}
