// Package triage implements the pure message-triage pipeline stages:
// normalization, keyword classification, and error-code extraction.
package triage

import (
	"encoding/base64"
	"regexp"
	"strings"

	"triage_server/core/domain"
)

var (
	urlPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	wsPattern  = regexp.MustCompile(`\s+`)
)

// Normalize decodes a raw provider message into header fields and a cleaned
// plain-text body. It never fails: structural gaps degrade to the sentinel
// strings.
func Normalize(raw *domain.RawMessage) domain.NormalizedMessage {
	sender := domain.UnknownHeader
	subject := domain.UnknownHeader

	// Last occurrence wins, matching a single forward scan.
	for _, h := range raw.Headers {
		switch h.Name {
		case "From":
			sender = h.Value
		case "Subject":
			subject = h.Value
		}
	}

	return domain.NormalizedMessage{
		Sender:    sender,
		Subject:   subject,
		CleanBody: CleanText(extractBody(raw)),
	}
}

// extractBody picks the message body: for multi-part messages the first part
// in given order with a text/plain or text/html MIME type and decodable
// content; otherwise the top-level body.
func extractBody(raw *domain.RawMessage) string {
	for _, part := range raw.Parts {
		if part.Data == "" {
			continue
		}
		if part.MimeType == "text/plain" || part.MimeType == "text/html" {
			return decodeBody(part.Data)
		}
	}

	if raw.Body.Data != "" {
		return decodeBody(raw.Body.Data)
	}

	return domain.NoBodyFound
}

// decodeBody decodes base64url content best-effort: on malformed input the
// bytes decoded before the error are kept rather than failing the message.
func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil && len(decoded) == 0 {
		return data
	}
	return string(decoded)
}

// CleanText strips URL-shaped substrings and anything resembling an HTML
// tag, then collapses whitespace. Deliberately crude; this is a heuristic
// cleaner, not an HTML parser.
func CleanText(body string) string {
	body = urlPattern.ReplaceAllString(body, "")
	body = tagPattern.ReplaceAllString(body, "")
	body = wsPattern.ReplaceAllString(body, " ")
	return strings.TrimSpace(body)
}
