package out

import (
	"context"

	"triage_server/core/domain"
)

// MailboxReader lists and fetches unread mail through the provider's read
// session.
type MailboxReader interface {
	// ListUnread returns identifiers of unread messages, newest first,
	// bounded by maxResults.
	ListUnread(ctx context.Context, maxResults int64) ([]string, error)

	// GetMessage fetches the full raw message for an identifier.
	GetMessage(ctx context.Context, id string) (*domain.RawMessage, error)

	// MarkRead removes the unread flag so the provider stops reporting the
	// message on later runs.
	MarkRead(ctx context.Context, id string) error
}

// MailboxSender dispatches replies through the provider's send session.
type MailboxSender interface {
	Send(ctx context.Context, to, subject, body string) (*domain.SendResult, error)
}

// SessionProvider acquires the provider sessions the worker needs before it
// can enter polling. Each call fails with an apperr AUTH_FAILED when the
// credential material is missing, invalid, or unrefreshable.
type SessionProvider interface {
	AcquireReadSession(ctx context.Context) (MailboxReader, error)
	AcquireSendSession(ctx context.Context) (MailboxSender, error)
}
