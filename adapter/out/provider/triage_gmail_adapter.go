// Package provider implements mail provider adapters.
package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
)

// GmailMailbox wraps an authenticated Gmail service behind the mailbox
// ports. One instance is built per session (read vs send), since each
// session carries its own token.
type GmailMailbox struct {
	svc *gmail.Service
	cb  *gobreaker.CircuitBreaker
	log zerolog.Logger
}

// NewGmailMailbox builds a mailbox around an already-authenticated service.
func NewGmailMailbox(svc *gmail.Service, log zerolog.Logger) *GmailMailbox {
	logger := log.With().Str("component", "gmail_mailbox").Logger()

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &GmailMailbox{
		svc: svc,
		cb:  gobreaker.NewCircuitBreaker(cbSettings),
		log: logger,
	}
}

// ListUnread returns the IDs of the newest unread messages, bounded by
// maxResults.
func (m *GmailMailbox) ListUnread(ctx context.Context, maxResults int64) ([]string, error) {
	var resp *gmail.ListMessagesResponse
	cbErr := m.execute("ListUnread", func() error {
		var apiErr error
		resp, apiErr = m.svc.Users.Messages.List("me").
			Q("is:unread").
			MaxResults(maxResults).
			Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, m.wrapError(cbErr, "failed to list unread messages")
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// GetMessage retrieves the full message payload.
func (m *GmailMailbox) GetMessage(ctx context.Context, id string) (*domain.RawMessage, error) {
	var msg *gmail.Message
	cbErr := m.execute("GetMessage", func() error {
		var apiErr error
		msg, apiErr = m.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, m.wrapError(cbErr, "failed to get message")
	}

	return convertMessage(msg), nil
}

// MarkRead removes the UNREAD label so the message drops out of later
// unread queries.
func (m *GmailMailbox) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}

	cbErr := m.execute("MarkRead", func() error {
		_, apiErr := m.svc.Users.Messages.Modify("me", id, req).Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return m.wrapError(cbErr, "failed to mark message read")
	}
	return nil
}

// Send delivers a plain-text message and returns provider identifiers.
func (m *GmailMailbox) Send(ctx context.Context, to, subject, body string) (*domain.SendResult, error) {
	raw := buildRawMessage(to, subject, body)
	gmailMsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	var sent *gmail.Message
	cbErr := m.execute("Send", func() error {
		var apiErr error
		sent, apiErr = m.svc.Users.Messages.Send("me", gmailMsg).Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, m.wrapError(cbErr, "failed to send message")
	}

	return &domain.SendResult{
		ExternalID: sent.Id,
		ThreadID:   sent.ThreadId,
	}, nil
}

// execute wraps an API call with circuit breaker protection so sustained
// provider outages fail fast instead of hammering the API.
func (m *GmailMailbox) execute(operation string, fn func() error) error {
	_, err := m.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 500, 502, 503, 429:
					return nil, err
				case 400, 401, 403, 404:
					// Client errors must not trip the breaker.
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}

	if err != nil {
		m.log.Error().
			Str("operation", operation).
			Str("breaker_state", m.cb.State().String()).
			Err(err).
			Msg("gmail api call failed")
	}

	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func (m *GmailMailbox) wrapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 401:
			return apperr.TokenExpired(msg, err)
		case 403:
			if strings.Contains(apiErr.Message, "Rate Limit") {
				return apperr.ProviderError(msg, err)
			}
			return apperr.AuthFailed(msg, err)
		}
	}

	return apperr.ProviderError(msg, err)
}

// convertMessage flattens a Gmail message into the transport-neutral form
// the triage pipeline consumes.
func convertMessage(msg *gmail.Message) *domain.RawMessage {
	raw := &domain.RawMessage{ID: msg.Id}
	if msg.Payload == nil {
		return raw
	}

	for _, h := range msg.Payload.Headers {
		raw.Headers = append(raw.Headers, domain.RawHeader{
			Name:  h.Name,
			Value: h.Value,
		})
	}

	for _, part := range msg.Payload.Parts {
		p := domain.RawPart{MimeType: part.MimeType}
		if part.Body != nil {
			p.Data = part.Body.Data
		}
		raw.Parts = append(raw.Parts, p)
	}

	if msg.Payload.Body != nil {
		raw.Body = domain.RawPart{
			MimeType: msg.Payload.MimeType,
			Data:     msg.Payload.Body.Data,
		}
	}

	return raw
}

// buildRawMessage assembles a minimal RFC 2822 plain-text message.
func buildRawMessage(to, subject, body string) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

var (
	_ out.MailboxReader = (*GmailMailbox)(nil)
	_ out.MailboxSender = (*GmailMailbox)(nil)
)
