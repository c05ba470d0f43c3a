package triage

import (
	"encoding/base64"
	"strings"
	"testing"

	"triage_server/core/domain"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "url and tag stripped, whitespace collapsed",
			in:   "Check http://x.com/y <b>now</b>   please",
			want: "Check now please",
		},
		{
			name: "https url",
			in:   "see https://example.com/path?q=1 for details",
			want: "see for details",
		},
		{
			name: "nested tags",
			in:   "<div><p>hello</p></div> world",
			want: "hello world",
		},
		{
			name: "newlines and tabs collapse",
			in:   "a\n\nb\tc",
			want: "a b c",
		},
		{
			name: "already clean",
			in:   "plain text",
			want: "plain text",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeHeaders(t *testing.T) {
	raw := &domain.RawMessage{
		ID: "m1",
		Headers: []domain.RawHeader{
			{Name: "From", Value: "first@x.com"},
			{Name: "Subject", Value: "first subject"},
			{Name: "From", Value: "last@x.com"},
			{Name: "Subject", Value: "last subject"},
		},
		Body: domain.RawPart{MimeType: "text/plain", Data: b64("hello")},
	}

	got := Normalize(raw)
	if got.Sender != "last@x.com" {
		t.Errorf("Sender = %q, want last occurrence %q", got.Sender, "last@x.com")
	}
	if got.Subject != "last subject" {
		t.Errorf("Subject = %q, want last occurrence %q", got.Subject, "last subject")
	}
}

func TestNormalizeMissingHeaders(t *testing.T) {
	raw := &domain.RawMessage{
		ID:   "m2",
		Body: domain.RawPart{MimeType: "text/plain", Data: b64("body")},
	}

	got := Normalize(raw)
	if got.Sender != domain.UnknownHeader {
		t.Errorf("Sender = %q, want sentinel %q", got.Sender, domain.UnknownHeader)
	}
	if got.Subject != domain.UnknownHeader {
		t.Errorf("Subject = %q, want sentinel %q", got.Subject, domain.UnknownHeader)
	}
}

func TestNormalizeBody(t *testing.T) {
	tests := []struct {
		name string
		raw  *domain.RawMessage
		want string
	}{
		{
			name: "multipart prefers first text part",
			raw: &domain.RawMessage{
				Parts: []domain.RawPart{
					{MimeType: "text/plain", Data: b64("plain wins")},
					{MimeType: "text/html", Data: b64("<p>html loses</p>")},
				},
			},
			want: "plain wins",
		},
		{
			name: "multipart html accepted when first",
			raw: &domain.RawMessage{
				Parts: []domain.RawPart{
					{MimeType: "text/html", Data: b64("<p>html body</p>")},
					{MimeType: "text/plain", Data: b64("later plain")},
				},
			},
			want: "html body",
		},
		{
			name: "non-text parts skipped",
			raw: &domain.RawMessage{
				Parts: []domain.RawPart{
					{MimeType: "image/png", Data: b64("binary")},
					{MimeType: "text/plain", Data: b64("the text")},
				},
			},
			want: "the text",
		},
		{
			name: "part without data skipped",
			raw: &domain.RawMessage{
				Parts: []domain.RawPart{
					{MimeType: "text/plain"},
					{MimeType: "text/plain", Data: b64("second part")},
				},
			},
			want: "second part",
		},
		{
			name: "single part top-level body",
			raw: &domain.RawMessage{
				Body: domain.RawPart{MimeType: "text/plain", Data: b64("single")},
			},
			want: "single",
		},
		{
			name: "no qualifying part falls back to sentinel",
			raw: &domain.RawMessage{
				Parts: []domain.RawPart{
					{MimeType: "application/pdf", Data: b64("x")},
				},
			},
			want: domain.NoBodyFound,
		},
		{
			name: "structurally absent payload yields sentinel",
			raw:  &domain.RawMessage{},
			want: domain.NoBodyFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got.CleanBody != tt.want {
				t.Errorf("CleanBody = %q, want %q", got.CleanBody, tt.want)
			}
		})
	}
}

// Malformed base64 must degrade, never panic or drop the message.
func TestNormalizeMalformedBase64(t *testing.T) {
	raw := &domain.RawMessage{
		Body: domain.RawPart{MimeType: "text/plain", Data: "!!!not-base64!!!"},
	}
	got := Normalize(raw)
	if got.CleanBody == "" {
		t.Error("malformed base64 should decode best-effort, got empty body")
	}
}

// The cleaning invariant: no raw tags or bare URLs survive normalization.
func TestNormalizeCleanInvariant(t *testing.T) {
	raw := &domain.RawMessage{
		Body: domain.RawPart{
			MimeType: "text/html",
			Data:     b64("<html><body>Visit https://spam.example/buy <b>today</b></body></html>"),
		},
	}
	got := Normalize(raw)
	if strings.ContainsAny(got.CleanBody, "<>") {
		t.Errorf("CleanBody contains tag characters: %q", got.CleanBody)
	}
	if strings.Contains(got.CleanBody, "://") {
		t.Errorf("CleanBody contains a URL: %q", got.CleanBody)
	}
}
