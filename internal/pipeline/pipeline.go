// Package pipeline sequences the whole flow for each message: fetch,
// normalize, extract, reconcile, materialize, and insert past the
// conflict check.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	calclient "github.com/SuperCoolPencil/CLEO/internal/calendar"
	"github.com/SuperCoolPencil/CLEO/internal/event"
	"github.com/SuperCoolPencil/CLEO/internal/extract"
	"github.com/SuperCoolPencil/CLEO/internal/llm"
	"github.com/SuperCoolPencil/CLEO/internal/mail"

	gcal "google.golang.org/api/calendar/v3"
)

// Status classifies what happened to one message.
type Status string

const (
	StatusInserted Status = "inserted"
	StatusSkipped  Status = "skipped"
	StatusNoSignal Status = "no-signal"
	StatusSeen     Status = "already-processed"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// Outcome reports what one message produced. When a message fans out into
// several events, Inserted/Skipped/Failed count the individual events.
type Outcome struct {
	MessageID string
	Subject   string
	Status    Status
	Inserted  int
	Skipped   int
	Failed    int
	Links     []string
	Errors    []error
}

// DecisionFunc is consulted when the conflict policy is "ask": it receives
// the message, the proposed event and the conflicting ones, and returns a
// concrete policy to retry with.
type DecisionFunc func(msg *mail.Message, p event.Proposed, conflicts []*gcal.Event) calclient.Policy

// Options wires a Pipeline together.
type Options struct {
	Source          mail.Source
	Resolver        *calclient.Resolver
	Enricher        llm.Enricher // optional
	Seen            *SeenStore   // optional
	Location        *time.Location
	Policy          calclient.Policy
	DefaultDuration bool
	Decide          DecisionFunc // required when Policy is ask
}

// Pipeline processes messages one at a time, in order.
type Pipeline struct {
	opts Options
}

// New creates a pipeline from the given options.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Run lists recent messages and processes each one. Per-message failures
// are reported in the outcomes; only the initial listing can fail the run
// as a whole.
func (p *Pipeline) Run(ctx context.Context) ([]Outcome, error) {
	ids, err := p.opts.Source.ListRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, p.processMessage(ctx, id))
	}
	return outcomes, nil
}

func (p *Pipeline) processMessage(ctx context.Context, id string) Outcome {
	out := Outcome{MessageID: id}

	if p.opts.Seen != nil && p.opts.Seen.Seen(id) {
		out.Status = StatusSeen
		return out
	}

	msg, err := p.opts.Source.Fetch(ctx, id)
	if err != nil {
		out.Status = StatusFailed
		out.Failed++
		out.Errors = append(out.Errors, err)
		return out
	}
	out.Subject = msg.Subject

	text := extract.Normalize(msg.Subject, msg.Body)
	x := extract.Extract(text, msg.Received)
	if !x.HasDates() && !x.HasTimes() {
		out.Status = StatusNoSignal
		p.markSeen(id, &out)
		return out
	}
	extract.Reconcile(x, msg.Received, p.opts.DefaultDuration)

	title := strings.TrimSpace(msg.Subject)
	if title == "" {
		title = "Event"
	}
	location := extract.Location(text)

	if p.opts.Enricher != nil {
		if enr, err := p.opts.Enricher.Enrich(ctx, msg.From, msg.Subject, msg.Body); err != nil {
			log.Printf("Warning: enrichment failed for message %s: %v", id, err)
		} else {
			if enr.Title != "" {
				title = enr.Title
			}
			if location == "" && enr.Location != "" {
				location = enr.Location
			}
		}
	}

	rec := event.Record{
		Summary:     title,
		Description: fmt.Sprintf("From: %s\n\n%s", msg.From, strings.TrimSpace(msg.Body)),
		Location:    location,
		Times:       x,
	}
	proposals, err := event.Materialize(rec, p.opts.Location)
	if err != nil {
		out.Status = StatusFailed
		out.Failed++
		out.Errors = append(out.Errors, err)
		return out
	}

	for _, prop := range proposals {
		res, err := p.opts.Resolver.Insert(prop, p.opts.Policy)
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, err)
			continue
		}
		if res.NeedsDecision {
			policy := calclient.PolicyKeepOld
			if p.opts.Decide != nil {
				policy = p.opts.Decide(msg, prop, res.Conflicts)
			}
			if policy == calclient.PolicyAsk {
				// Nobody to ask twice.
				policy = calclient.PolicyKeepOld
			}
			res, err = p.opts.Resolver.Insert(prop, policy)
			if err != nil {
				out.Failed++
				out.Errors = append(out.Errors, err)
				continue
			}
		}
		switch {
		case res.Inserted:
			out.Inserted++
			if res.Link != "" {
				out.Links = append(out.Links, res.Link)
			}
		case res.Skipped:
			out.Skipped++
		}
	}

	switch {
	case out.Failed > 0 && out.Inserted > 0:
		out.Status = StatusPartial
	case out.Failed > 0:
		out.Status = StatusFailed
	case out.Inserted > 0:
		out.Status = StatusInserted
	default:
		out.Status = StatusSkipped
	}

	// Failed fan-out members stay unmarked so the next run retries them.
	if out.Failed == 0 {
		p.markSeen(id, &out)
	}
	return out
}

func (p *Pipeline) markSeen(id string, out *Outcome) {
	if p.opts.Seen == nil {
		return
	}
	if err := p.opts.Seen.Mark(id); err != nil {
		log.Printf("Warning: failed to record processed message %s: %v", id, err)
		out.Errors = append(out.Errors, err)
	}
}
