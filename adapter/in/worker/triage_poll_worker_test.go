package worker

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"triage_server/adapter/out/persistence"
	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/core/service/issue"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeReader struct {
	mu         sync.Mutex
	batches    [][]string
	errs       []error
	messages   map[string]*domain.RawMessage
	listCalls  int
	markedRead []string
	listed     chan struct{}
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		messages: make(map[string]*domain.RawMessage),
		listed:   make(chan struct{}, 64),
	}
}

func (r *fakeReader) ListUnread(_ context.Context, _ int64) ([]string, error) {
	r.mu.Lock()
	call := r.listCalls
	r.listCalls++
	r.mu.Unlock()

	defer func() { r.listed <- struct{}{} }()

	if call < len(r.errs) && r.errs[call] != nil {
		return nil, r.errs[call]
	}
	if call < len(r.batches) {
		return r.batches[call], nil
	}
	return nil, nil
}

func (r *fakeReader) GetMessage(_ context.Context, id string) (*domain.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

func (r *fakeReader) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedRead = append(r.markedRead, id)
	return nil
}

func (r *fakeReader) listCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  bool
	sends chan sentMail
}

func newFakeSender() *fakeSender {
	return &fakeSender{sends: make(chan sentMail, 64)}
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) (*domain.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("smtp down")
	}
	mail := sentMail{To: to, Subject: subject, Body: body}
	s.sent = append(s.sent, mail)
	s.sends <- mail
	return &domain.SendResult{ExternalID: "ext-1", ThreadID: "thr-1"}, nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeSessions struct {
	reader  out.MailboxReader
	sender  out.MailboxSender
	readErr error
	sendErr error
}

func (p *fakeSessions) AcquireReadSession(context.Context) (out.MailboxReader, error) {
	if p.readErr != nil {
		return nil, p.readErr
	}
	return p.reader, nil
}

func (p *fakeSessions) AcquireSendSession(context.Context) (out.MailboxSender, error) {
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	return p.sender, nil
}

type fakeDrafter struct{}

func (fakeDrafter) Draft(_ context.Context, _ *out.IssueContext, _ string, _ []string) (string, error) {
	return "Dear customer, please restart the device. Best Regards, Tech Support", nil
}

type failingDrafter struct{}

func (failingDrafter) Draft(context.Context, *out.IssueContext, string, []string) (string, error) {
	return "", errors.New("model unavailable")
}

type recordingSink struct {
	mu     sync.Mutex
	events []*domain.LogEvent
}

func (s *recordingSink) Push(ev *domain.LogEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Subscribe() <-chan *domain.LogEvent   { return nil }
func (s *recordingSink) Unsubscribe(<-chan *domain.LogEvent) {}

func (s *recordingSink) find(t domain.EventType) *domain.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Type == t {
			return ev
		}
	}
	return nil
}

func (s *recordingSink) count(t domain.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (s *recordingSink) waitFor(t *testing.T, typ domain.EventType, timeout time.Duration) *domain.LogEvent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ev := s.find(typ); ev != nil {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for event %s", typ)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func supportMessage(id, from, subject, body string) *domain.RawMessage {
	return &domain.RawMessage{
		ID: id,
		Headers: []domain.RawHeader{
			{Name: "From", Value: from},
			{Name: "Subject", Value: subject},
		},
		Parts: []domain.RawPart{
			{MimeType: "text/plain", Data: encodeBody(body)},
		},
	}
}

func testIssues() out.IssueRepository {
	return issue.NewRepository([]domain.IssueRecord{
		{IssueNumber: 101, Issue: "machine down", Solution: "power cycle the unit", Device: "IntelliPod"},
	})
}

func newTestWorker(reader *fakeReader, sender *fakeSender, drafter out.ReplyDrafter, sink *recordingSink) *PollWorker {
	return NewPollWorker(Deps{
		Sessions: &fakeSessions{reader: reader, sender: sender},
		Seen:     persistence.NewMemorySeenStore(),
		Issues:   testIssues(),
		Drafter:  drafter,
		Sink:     sink,
	}, zerolog.Nop())
}

// =============================================================================
// Tests
// =============================================================================

func TestWorkerEndToEnd(t *testing.T) {
	reader := newFakeReader()
	reader.batches = [][]string{{"m1"}}
	reader.messages["m1"] = supportMessage("m1", "user@x.com", "Need tech support - Error", "Error : 101 machine down")

	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, fakeDrafter{}, sink)

	if err := w.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	var mail sentMail
	select {
	case mail = <-sender.sends:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reply send")
	}

	if mail.To != "user@x.com" {
		t.Errorf("reply recipient = %q, want user@x.com", mail.To)
	}
	if mail.Subject != "Reply for error" {
		t.Errorf("reply subject = %q, want Reply for error", mail.Subject)
	}

	ev := sink.waitFor(t, domain.EventReplySent, time.Second)
	data, ok := ev.Data.(domain.ReplySentData)
	if !ok {
		t.Fatalf("reply event data has type %T", ev.Data)
	}
	if data.ErrorCode != 101 {
		t.Errorf("error code = %d, want 101", data.ErrorCode)
	}
	if data.TotalProcessed != 1 {
		t.Errorf("total processed = %d, want 1", data.TotalProcessed)
	}

	sink.waitFor(t, domain.EventWorkerReady, time.Second)
	if ready := sink.find(domain.EventWorkerReady); ready.Message != domain.ReadySignal {
		t.Errorf("ready event message = %q, want %q", ready.Message, domain.ReadySignal)
	}

	if st := w.Status(); st.ProcessedCount != 1 {
		t.Errorf("status processed count = %d, want 1", st.ProcessedCount)
	}
}

func TestWorkerProcessesEachMessageOnce(t *testing.T) {
	reader := newFakeReader()
	// The provider keeps reporting the same unread id across polls.
	reader.batches = [][]string{{"m1"}, {"m1"}, {"m1"}}
	reader.messages["m1"] = supportMessage("m1", "user@x.com", "tech support needed", "Code: 101 again")

	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, fakeDrafter{}, sink)

	if err := w.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Wait through three full listing passes before stopping.
	for i := 0; i < 3; i++ {
		select {
		case <-reader.listed:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for listing %d", i+1)
		}
	}
	w.Stop()

	if n := sender.sentCount(); n != 1 {
		t.Errorf("sent %d replies, want exactly 1", n)
	}
}

func TestWorkerRestartBeginsWithFreshSeenSet(t *testing.T) {
	reader := newFakeReader()
	// The provider reports the same unread id in both runs.
	reader.batches = [][]string{{"m1"}, {"m1"}}
	reader.messages["m1"] = supportMessage("m1", "user@x.com", "tech support", "Error: 101")

	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, fakeDrafter{}, sink)

	for run := 0; run < 2; run++ {
		if err := w.Start(3600); err != nil {
			t.Fatalf("Start run %d: %v", run+1, err)
		}
		select {
		case <-sender.sends:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for send in run %d", run+1)
		}
		w.Stop()
	}

	if n := sender.sentCount(); n != 2 {
		t.Errorf("sent %d replies across two runs, want 2", n)
	}
}

func TestWorkerDoubleStart(t *testing.T) {
	reader := newFakeReader()
	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, fakeDrafter{}, sink)

	if err := w.Start(60); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	sink.waitFor(t, domain.EventWorkerReady, time.Second)

	if err := w.Start(60); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if sink.find(domain.EventWorkerAlreadyActive) == nil {
		t.Error("second start did not emit already-active event")
	}
	if n := sink.count(domain.EventWorkerStarted); n != 1 {
		t.Errorf("started events = %d, want 1", n)
	}
	if st := w.Status(); !st.Running {
		t.Error("worker should still be running after double start")
	}
}

func TestWorkerStopDuringSleep(t *testing.T) {
	reader := newFakeReader()
	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, fakeDrafter{}, sink)

	if err := w.Start(3600); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-reader.listed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for first listing")
	}

	w.Stop()

	if n := reader.listCount(); n != 1 {
		t.Errorf("list calls after stop = %d, want 1", n)
	}

	st := w.Status()
	if st.Running {
		t.Error("worker still reports running after Stop")
	}
	if st.Phase != domain.PhaseStopped {
		t.Errorf("phase = %s, want %s", st.Phase, domain.PhaseStopped)
	}
	if sink.find(domain.EventWorkerStopped) == nil {
		t.Error("no stopped event emitted")
	}
}

func TestWorkerSurvivesCycleError(t *testing.T) {
	reader := newFakeReader()
	reader.errs = []error{errors.New("network unreachable"), nil}
	reader.batches = [][]string{nil, {"m1"}}
	reader.messages["m1"] = supportMessage("m1", "user@x.com", "error in device", "Error - 101 again")

	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, fakeDrafter{}, sink)

	if err := w.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sink.waitFor(t, domain.EventCycleError, 3*time.Second)
	sink.waitFor(t, domain.EventReplySent, 3*time.Second)

	if st := w.Status(); !st.Running {
		t.Error("worker died on a cycle error")
	}
}

func TestWorkerAuthFailureStops(t *testing.T) {
	sink := &recordingSink{}
	w := NewPollWorker(Deps{
		Sessions: &fakeSessions{readErr: errors.New("invalid_grant")},
		Seen:     persistence.NewMemorySeenStore(),
		Issues:   testIssues(),
		Drafter:  fakeDrafter{},
		Sink:     sink,
	}, zerolog.Nop())

	if err := w.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sink.waitFor(t, domain.EventAuthFailed, time.Second)
	sink.waitFor(t, domain.EventWorkerStopped, time.Second)

	if st := w.Status(); st.Running {
		t.Error("worker running despite auth failure")
	}
	if sink.find(domain.EventWorkerReady) != nil {
		t.Error("ready sentinel emitted despite auth failure")
	}
}

func TestWorkerSkipsIrrelevantAndSpam(t *testing.T) {
	reader := newFakeReader()
	reader.batches = [][]string{{"m1", "m2", "m3"}}
	// No support keyword in subject.
	reader.messages["m1"] = supportMessage("m1", "a@x.com", "hello there", "Error: 500")
	// Support keyword present, but purchase keyword overrides.
	reader.messages["m2"] = supportMessage("m2", "b@x.com", "error with my order", "Error: 101")
	// Relevant but no numeric code anywhere.
	reader.messages["m3"] = supportMessage("m3", "c@x.com", "need assistance", "it just stopped working")

	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, fakeDrafter{}, sink)

	if err := w.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-reader.listed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for listing")
	}
	w.Stop()

	if n := sender.sentCount(); n != 0 {
		t.Errorf("sent %d replies, want 0", n)
	}
	if n := sink.count(domain.EventMessageSkipped); n != 3 {
		t.Errorf("skipped events = %d, want 3", n)
	}
}

func TestWorkerReportsDraftFailure(t *testing.T) {
	reader := newFakeReader()
	reader.batches = [][]string{{"m1"}}
	reader.messages["m1"] = supportMessage("m1", "user@x.com", "tech support", "Error: 101")

	sender := newFakeSender()
	sink := &recordingSink{}
	w := newTestWorker(reader, sender, failingDrafter{}, sink)

	if err := w.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sink.waitFor(t, domain.EventReplyFailed, 3*time.Second)

	if n := sender.sentCount(); n != 0 {
		t.Errorf("sent %d replies after draft failure, want 0", n)
	}
	if st := w.Status(); st.ProcessedCount != 0 {
		t.Errorf("processed count = %d, want 0", st.ProcessedCount)
	}
}
