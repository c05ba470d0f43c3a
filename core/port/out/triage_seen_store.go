package out

import "context"

// SeenStore is the dedup set of message identifiers already attempted.
// MarkSeen reports whether the id was newly added; a false return means the
// message was attempted before and must be skipped. The worker calls Reset
// once per run, so every start begins with an empty set.
type SeenStore interface {
	MarkSeen(ctx context.Context, id string) (bool, error)
	Reset(ctx context.Context) error
}
