package domain

// RawHeader is a single provider-supplied message header.
type RawHeader struct {
	Name  string
	Value string
}

// RawPart is one MIME part of a provider message body.
// Data is base64url-encoded as delivered by the provider.
type RawPart struct {
	MimeType string
	Data     string
}

// RawMessage is an unread message as fetched from the mailbox provider.
// It is immutable once fetched; the normalizer consumes it transiently.
type RawMessage struct {
	ID      string
	Headers []RawHeader
	Parts   []RawPart // multi-part body; empty for single-part messages
	Body    RawPart   // top-level body for single-part messages
}

// Sentinel values used when a message lacks the expected structure.
const (
	UnknownHeader = "(unknown)"
	NoBodyFound   = "(No body found)"
)

// NormalizedMessage is the cleaned, header-extracted form of a RawMessage.
// CleanBody never contains raw HTML tags or bare URLs.
type NormalizedMessage struct {
	Sender    string
	Subject   string
	CleanBody string
}

// Verdict is the three-way outcome of keyword triage.
type Verdict string

const (
	VerdictRelevant       Verdict = "relevant"
	VerdictNotRelevant    Verdict = "not_relevant"
	VerdictSpamOrPurchase Verdict = "spam_or_purchase"
)

// IssueRecord maps a numeric error code to a known problem and its solution.
// Loaded from the reference dataset; Device is optional.
type IssueRecord struct {
	IssueNumber int    `json:"issue_number"`
	Issue       string `json:"issue"`
	Solution    string `json:"solution"`
	Device      string `json:"device,omitempty"`
}

// SendResult reports a dispatched reply.
type SendResult struct {
	ExternalID string
	ThreadID   string
}
