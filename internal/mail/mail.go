// Package mail retrieves recent messages and flattens them into plain text
// for the extraction pipeline.
package mail

import (
	"context"
	"time"
)

// Message is one retrieved email, already decoded to plain text.
type Message struct {
	ID       string
	From     string
	Subject  string
	Body     string
	Received time.Time
}

// Source is a generic interface for message providers.
type Source interface {
	ListRecent(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, id string) (*Message, error)
}
