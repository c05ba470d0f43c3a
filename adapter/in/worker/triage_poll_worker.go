// Package worker implements the unread-mail poll loop.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
	"triage_server/core/service/triage"
)

const (
	// listBatchSize bounds each unread listing, matching the provider-side
	// page the pipeline was tuned for.
	listBatchSize = 5

	// replySubject is the fixed subject of every triage reply.
	replySubject = "Reply for error"

	// snippetCount is how many knowledge base snippets feed the drafter.
	snippetCount = 2

	defaultPollSeconds = 10
)

// PollWorker drives the triage pipeline: list unread mail, classify, draft
// and send replies, and report progress through the event sink. It owns a
// single background goroutine; Start, Stop and Status are safe to call from
// any goroutine.
type PollWorker struct {
	sessions out.SessionProvider
	seen     out.SeenStore
	issues   out.IssueRepository
	snippets out.SnippetSearcher
	drafter  out.ReplyDrafter
	sink     out.EventSink
	log      zerolog.Logger

	mu           sync.Mutex
	cancel       context.CancelFunc
	done         chan struct{}
	running      bool
	phase        domain.WorkerPhase
	pollInterval time.Duration

	processedCount int64
}

// Deps bundles the worker's collaborators. Snippets may be nil when no
// knowledge base is configured.
type Deps struct {
	Sessions out.SessionProvider
	Seen     out.SeenStore
	Issues   out.IssueRepository
	Snippets out.SnippetSearcher
	Drafter  out.ReplyDrafter
	Sink     out.EventSink
}

func NewPollWorker(deps Deps, log zerolog.Logger) *PollWorker {
	return &PollWorker{
		sessions: deps.Sessions,
		seen:     deps.Seen,
		issues:   deps.Issues,
		snippets: deps.Snippets,
		drafter:  deps.Drafter,
		sink:     deps.Sink,
		log:      log.With().Str("component", "poll_worker").Logger(),
		phase:    domain.PhaseIdle,
	}
}

// Start launches the poll loop. Starting an already running worker is a
// warning-level no-op; the running loop and its interval are untouched.
func (w *PollWorker) Start(intervalSeconds int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.log.Warn().Msg("start requested while worker already active")
		w.sink.Push(&domain.LogEvent{
			Type:    domain.EventWorkerAlreadyActive,
			Message: "worker is already running",
		})
		return nil
	}

	if intervalSeconds <= 0 {
		intervalSeconds = defaultPollSeconds
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	w.phase = domain.PhaseAuthenticating
	w.pollInterval = time.Duration(intervalSeconds) * time.Second

	w.log.Info().Int("interval_seconds", intervalSeconds).Msg("worker starting")
	w.sink.Push(&domain.LogEvent{
		Type:    domain.EventWorkerStarted,
		Message: "worker started",
	})

	go w.run(ctx)
	return nil
}

// Stop cancels the poll loop and waits for it to wind down. Calling Stop on
// an idle worker is a no-op.
func (w *PollWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done
}

// Status returns a snapshot of the worker.
func (w *PollWorker) Status() domain.WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	return domain.WorkerStatus{
		Phase:          w.phase,
		Running:        w.running,
		PollInterval:   int(w.pollInterval / time.Second),
		ProcessedCount: atomic.LoadInt64(&w.processedCount),
	}
}

func (w *PollWorker) setPhase(phase domain.WorkerPhase) {
	w.mu.Lock()
	w.phase = phase
	w.mu.Unlock()
}

func (w *PollWorker) run(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.phase = domain.PhaseStopped
		close(w.done)
		w.mu.Unlock()

		w.log.Info().Msg("worker stopped")
		w.sink.Push(&domain.LogEvent{
			Type:    domain.EventWorkerStopped,
			Message: "worker stopped",
		})
	}()

	// Each run begins with a fresh seen set; duplicate suppression across
	// runs comes from marking replied messages read at the provider.
	if err := w.seen.Reset(ctx); err != nil {
		w.log.Warn().Err(err).Msg("failed to reset seen store")
	}

	reader, err := w.sessions.AcquireReadSession(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to acquire read session")
		w.sink.Push(&domain.LogEvent{
			Type:    domain.EventAuthFailed,
			Message: "authentication failed: " + err.Error(),
		})
		return
	}

	sender, err := w.sessions.AcquireSendSession(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to acquire send session")
		w.sink.Push(&domain.LogEvent{
			Type:    domain.EventAuthFailed,
			Message: "authentication failed: " + err.Error(),
		})
		return
	}

	w.sink.Push(&domain.LogEvent{
		Type:    domain.EventWorkerReady,
		Message: domain.ReadySignal,
	})
	w.setPhase(domain.PhasePolling)
	w.log.Info().Msg("worker ready, polling")

	interval := w.pollInterval
	for {
		if ctx.Err() != nil {
			return
		}

		w.pollCycle(ctx, reader, sender)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}
	}
}

// pollCycle runs one listing pass. Errors never escape; failures are logged
// and pushed to the sink so the next interval gets a fresh attempt.
func (w *PollWorker) pollCycle(ctx context.Context, reader out.MailboxReader, sender out.MailboxSender) {
	ids, err := reader.ListUnread(ctx, listBatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error().Err(err).Msg("failed to list unread messages")
		w.sink.Push(&domain.LogEvent{
			Type:    domain.EventCycleError,
			Message: "poll cycle failed: " + err.Error(),
		})
		return
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}

		added, err := w.seen.MarkSeen(ctx, id)
		if err != nil {
			w.log.Error().Str("message_id", id).Err(err).Msg("seen store failure")
			continue
		}
		if !added {
			continue
		}

		w.processMessage(ctx, reader, sender, id)
	}
}

// processMessage runs one message through normalize, classify, extract,
// lookup, draft and send. The message is already marked seen, so a failure
// here is reported once and never retried.
func (w *PollWorker) processMessage(ctx context.Context, reader out.MailboxReader, sender out.MailboxSender, id string) {
	raw, err := reader.GetMessage(ctx, id)
	if err != nil {
		w.log.Error().Str("message_id", id).Err(err).Msg("failed to fetch message")
		w.sink.Push(&domain.LogEvent{
			Type:    domain.EventCycleError,
			Message: "failed to fetch message " + id + ": " + err.Error(),
		})
		return
	}

	norm := triage.Normalize(raw)

	w.log.Info().
		Str("message_id", id).
		Str("sender", norm.Sender).
		Str("subject", norm.Subject).
		Msg("new message detected")
	w.sink.Push(&domain.LogEvent{
		Type:    domain.EventMessageDetected,
		Message: "new message from " + norm.Sender + ": " + norm.Subject,
	})

	verdict := triage.Classify(norm.Subject, norm.Sender, norm.CleanBody)
	if verdict != domain.VerdictRelevant {
		w.skip(id, norm.Sender, skipReason(verdict))
		return
	}

	code, ok := triage.ExtractCode(norm.CleanBody)
	if !ok {
		w.skip(id, norm.Sender, "no error code found in body")
		return
	}

	var issue *out.IssueContext
	if record, found := w.issues.Lookup(code); found {
		issue = &out.IssueContext{
			IssueNumber: record.IssueNumber,
			Issue:       record.Issue,
			Solution:    record.Solution,
			Device:      record.Device,
		}
	} else {
		w.log.Info().Int("error_code", code).Msg("no issue record matched, relying on semantic context")
	}

	var snippets []string
	if w.snippets != nil {
		snippets, err = w.snippets.Snippets(ctx, norm.CleanBody, snippetCount)
		if err != nil {
			w.log.Warn().Err(err).Msg("snippet retrieval failed, drafting without context")
			snippets = nil
		}
	}

	body, err := w.drafter.Draft(ctx, issue, norm.CleanBody, snippets)
	if err != nil {
		w.replyFailed(id, norm.Sender, "draft failed", err)
		return
	}

	if _, err := sender.Send(ctx, norm.Sender, replySubject, body); err != nil {
		w.replyFailed(id, norm.Sender, "send failed", err)
		return
	}

	if err := reader.MarkRead(ctx, id); err != nil {
		w.log.Warn().Str("message_id", id).Err(err).Msg("failed to mark message read")
	}

	total := atomic.AddInt64(&w.processedCount, 1)

	w.log.Info().
		Str("message_id", id).
		Str("recipient", norm.Sender).
		Int("error_code", code).
		Int64("total_processed", total).
		Msg("reply sent")
	w.sink.Push(&domain.LogEvent{
		Type:    domain.EventReplySent,
		Message: "reply sent to " + norm.Sender,
		Data: domain.ReplySentData{
			Recipient:      norm.Sender,
			Subject:        replySubject,
			ErrorCode:      code,
			SentAt:         time.Now(),
			TotalProcessed: total,
		},
	})
}

func (w *PollWorker) skip(id, sender, reason string) {
	w.log.Info().Str("message_id", id).Str("sender", sender).Str("reason", reason).Msg("message skipped")
	w.sink.Push(&domain.LogEvent{
		Type:    domain.EventMessageSkipped,
		Message: "skipped message from " + sender + ": " + reason,
	})
}

func (w *PollWorker) replyFailed(id, sender, stage string, err error) {
	w.log.Error().Str("message_id", id).Str("sender", sender).Err(err).Msg(stage)
	w.sink.Push(&domain.LogEvent{
		Type:    domain.EventReplyFailed,
		Message: stage + " for " + sender + ": " + err.Error(),
	})
}

func skipReason(verdict domain.Verdict) string {
	switch verdict {
	case domain.VerdictSpamOrPurchase:
		return "purchase or promotional content"
	case domain.VerdictNotRelevant:
		return "not a tech support request"
	default:
		return string(verdict)
	}
}

var _ in.WorkerControl = (*PollWorker)(nil)
