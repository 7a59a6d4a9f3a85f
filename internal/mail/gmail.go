package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	nmail "net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSource reads messages from the authenticated user's Gmail inbox.
type GmailSource struct {
	service    *gmail.Service
	query      string
	maxResults int64
}

// NewGmailSource creates a Gmail-backed source using the provided
// authenticated HTTP client. The query uses Gmail search syntax, for
// example "newer_than:2d".
func NewGmailSource(ctx context.Context, httpClient *http.Client, query string, maxResults int64) (*GmailSource, error) {
	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &GmailSource{service: service, query: query, maxResults: maxResults}, nil
}

// ListRecent returns the IDs of inbox messages matching the query.
func (s *GmailSource) ListRecent(ctx context.Context) ([]string, error) {
	resp, err := s.service.Users.Messages.List("me").
		LabelIds("INBOX").
		Q(s.query).
		MaxResults(s.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// Fetch retrieves one message and flattens it to plain text. The received
// timestamp comes from the Date header, falling back to Gmail's internal
// timestamp when the header is missing or malformed.
func (s *GmailSource) Fetch(ctx context.Context, id string) (*Message, error) {
	msg, err := s.service.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	received, err := nmail.ParseDate(header(msg.Payload, "Date"))
	if err != nil {
		received = time.UnixMilli(msg.InternalDate)
	}

	return &Message{
		ID:       id,
		From:     header(msg.Payload, "From"),
		Subject:  header(msg.Payload, "Subject"),
		Body:     bodyText(msg.Payload),
		Received: received,
	}, nil
}

func header(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// bodyText prefers a text/plain part anywhere in the MIME tree and falls
// back to rendering a text/html part.
func bodyText(payload *gmail.MessagePart) string {
	if plain := findPart(payload, "text/plain"); plain != "" {
		return plain
	}
	if rawHTML := findPart(payload, "text/html"); rawHTML != "" {
		return HTMLToText(rawHTML)
	}
	return ""
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		if text, err := decodeBody(part.Body.Data); err == nil {
			return text
		}
	}
	for _, child := range part.Parts {
		if text := findPart(child, mimeType); text != "" {
			return text
		}
	}
	return ""
}

// decodeBody decodes Gmail's base64url payload, tolerating the padded
// variant some senders produce.
func decodeBody(data string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode message body: %w", err)
		}
	}
	return string(raw), nil
}
