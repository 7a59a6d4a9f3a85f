package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	calclient "github.com/SuperCoolPencil/CLEO/internal/calendar"
	"github.com/SuperCoolPencil/CLEO/internal/event"
	"github.com/SuperCoolPencil/CLEO/internal/mail"

	gcal "google.golang.org/api/calendar/v3"
)

type fakeSource struct {
	order   []string
	msgs    map[string]*mail.Message
	fetches int
}

func (f *fakeSource) ListRecent(ctx context.Context) ([]string, error) {
	return f.order, nil
}

func (f *fakeSource) Fetch(ctx context.Context, id string) (*mail.Message, error) {
	f.fetches++
	m, ok := f.msgs[id]
	if !ok {
		return nil, errors.New("no such message")
	}
	return m, nil
}

// fakeCal is an in-memory calendar destination.
type fakeCal struct {
	existing    []*gcal.Event
	inserted    []*gcal.Event
	deleted     []string
	failOnStart string // insertions starting with this DateTime fail
}

func (f *fakeCal) FindOrCreateCalendarByName(name, colorID string) (string, error) {
	return "cal-1", nil
}

func (f *fakeCal) GetEvents(calendarID string, timeMin, timeMax time.Time) ([]*gcal.Event, error) {
	return f.existing, nil
}

func (f *fakeCal) InsertEvent(calendarID string, ev *gcal.Event) (string, error) {
	if f.failOnStart != "" && ev.Start != nil && strings.HasPrefix(ev.Start.DateTime, f.failOnStart) {
		return "", errors.New("backend rejected the event")
	}
	f.inserted = append(f.inserted, ev)
	return "link-1", nil
}

func (f *fakeCal) DeleteEvent(calendarID, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

func newTestPipeline(src *fakeSource, cal *fakeCal, policy calclient.Policy, decide DecisionFunc) *Pipeline {
	return New(Options{
		Source:   src,
		Resolver: calclient.NewResolver(cal, "cal-1", time.UTC),
		Location: time.UTC,
		Policy:   policy,
		Decide:   decide,
	})
}

func outingMessage(id string) *mail.Message {
	return &mail.Message{
		ID:       id,
		From:     "events@club.example",
		Subject:  "team outing",
		Body:     "we meet on 14 august 2025 at 9am in the auditorium",
		Received: time.Date(2025, time.August, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestPipeline_InsertsExtractedEvent(t *testing.T) {
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": outingMessage("m1")}}
	cal := &fakeCal{}

	outcomes, err := newTestPipeline(src, cal, calclient.PolicyKeepBoth, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	out := outcomes[0]
	if out.Status != StatusInserted || out.Inserted != 1 {
		t.Fatalf("expected an insert, got %+v", out)
	}
	if len(cal.inserted) != 1 {
		t.Fatalf("expected 1 event in the calendar, got %d", len(cal.inserted))
	}
	ev := cal.inserted[0]
	if ev.Summary != "team outing" {
		t.Errorf("expected the subject as the title, got %q", ev.Summary)
	}
	if ev.Location != "auditorium" {
		t.Errorf("expected the extracted location, got %q", ev.Location)
	}
	if ev.Start.DateTime != "2025-08-14T09:00:00Z" {
		t.Errorf("unexpected start: %+v", ev.Start)
	}
	if len(out.Links) != 1 || out.Links[0] != "link-1" {
		t.Errorf("expected the insert link reported, got %v", out.Links)
	}
}

func TestPipeline_NoSignalSkips(t *testing.T) {
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": {
		ID:       "m1",
		Subject:  "hello",
		Body:     "just wanted to say thanks for everything",
		Received: time.Date(2025, time.August, 1, 10, 30, 0, 0, time.UTC),
	}}}
	cal := &fakeCal{}

	outcomes, err := newTestPipeline(src, cal, calclient.PolicyKeepBoth, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusNoSignal {
		t.Errorf("expected no-signal, got %+v", outcomes[0])
	}
	if len(cal.inserted) != 0 {
		t.Error("no-signal messages must not produce events")
	}
}

func TestPipeline_SeenMessageNotRefetched(t *testing.T) {
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": outingMessage("m1")}}
	cal := &fakeCal{}

	seen := NewSeenStore(t.TempDir() + "/seen.json")
	if err := seen.Mark("m1"); err != nil {
		t.Fatal(err)
	}

	p := New(Options{
		Source:   src,
		Resolver: calclient.NewResolver(cal, "cal-1", time.UTC),
		Seen:     seen,
		Location: time.UTC,
		Policy:   calclient.PolicyKeepBoth,
	})
	outcomes, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusSeen {
		t.Errorf("expected already-processed, got %+v", outcomes[0])
	}
	if src.fetches != 0 {
		t.Errorf("expected no fetch for a seen message, got %d", src.fetches)
	}
}

func TestPipeline_SeenStorePersistsAcrossRuns(t *testing.T) {
	path := t.TempDir() + "/seen.json"
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": outingMessage("m1")}}
	cal := &fakeCal{}

	seen := NewSeenStore(path)
	if err := seen.Load(); err != nil {
		t.Fatal(err)
	}
	p := New(Options{
		Source:   src,
		Resolver: calclient.NewResolver(cal, "cal-1", time.UTC),
		Seen:     seen,
		Location: time.UTC,
		Policy:   calclient.PolicyKeepBoth,
	})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	reloaded := NewSeenStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if !reloaded.Seen("m1") {
		t.Error("expected the processed message recorded on disk")
	}
}

func TestPipeline_AskConsultsDecisionFunc(t *testing.T) {
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": outingMessage("m1")}}
	cal := &fakeCal{existing: []*gcal.Event{{
		Id:      "old-1",
		Summary: "existing standup",
		Start:   &gcal.EventDateTime{DateTime: "2025-08-14T09:00:00Z"},
		End:     &gcal.EventDateTime{DateTime: "2025-08-14T10:00:00Z"},
	}}}

	var sawConflicts int
	decide := func(msg *mail.Message, p event.Proposed, conflicts []*gcal.Event) calclient.Policy {
		sawConflicts = len(conflicts)
		return calclient.PolicyKeepBoth
	}

	outcomes, err := newTestPipeline(src, cal, calclient.PolicyAsk, decide).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sawConflicts != 1 {
		t.Errorf("expected the decision func to see 1 conflict, got %d", sawConflicts)
	}
	if outcomes[0].Status != StatusInserted {
		t.Errorf("expected the keep-both decision to insert, got %+v", outcomes[0])
	}
}

func TestPipeline_AskWithoutDeciderKeepsOld(t *testing.T) {
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": outingMessage("m1")}}
	cal := &fakeCal{existing: []*gcal.Event{{
		Id:    "old-1",
		Start: &gcal.EventDateTime{DateTime: "2025-08-14T09:00:00Z"},
		End:   &gcal.EventDateTime{DateTime: "2025-08-14T10:00:00Z"},
	}}}

	outcomes, err := newTestPipeline(src, cal, calclient.PolicyAsk, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusSkipped || len(cal.inserted) != 0 {
		t.Errorf("expected a conservative skip, got %+v", outcomes[0])
	}
}

func TestPipeline_PartialFanOutReported(t *testing.T) {
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": {
		ID:       "m1",
		From:     "drama@club.example",
		Subject:  "auditions",
		Body:     "auditions will be held on 8th & 9th january at 5 pm",
		Received: time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC),
	}}}
	cal := &fakeCal{failOnStart: "2025-01-09"}

	outcomes, err := newTestPipeline(src, cal, calclient.PolicyKeepBoth, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := outcomes[0]
	if out.Status != StatusPartial {
		t.Fatalf("expected a partial outcome, got %+v", out)
	}
	if out.Inserted != 1 || out.Failed != 1 {
		t.Errorf("expected 1 inserted and 1 failed, got %+v", out)
	}
	if len(cal.inserted) != 1 || !strings.HasPrefix(cal.inserted[0].Start.DateTime, "2025-01-08") {
		t.Errorf("expected only the 8th inserted, got %+v", cal.inserted)
	}
	if len(out.Errors) != 1 {
		t.Errorf("expected the failure surfaced, got %v", out.Errors)
	}
}

func TestPipeline_TimeOnlyMessageUsesReceivedDate(t *testing.T) {
	src := &fakeSource{order: []string{"m1"}, msgs: map[string]*mail.Message{"m1": {
		ID:       "m1",
		From:     "lead@club.example",
		Subject:  "standup",
		Body:     "quick standup at 5 pm",
		Received: time.Date(2025, time.August, 1, 10, 30, 0, 0, time.UTC),
	}}}
	cal := &fakeCal{}

	outcomes, err := newTestPipeline(src, cal, calclient.PolicyKeepBoth, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusInserted {
		t.Fatalf("expected a time-only message to insert, got %+v", outcomes[0])
	}
	if len(cal.inserted) != 1 || cal.inserted[0].Start.DateTime != "2025-08-01T17:00:00Z" {
		t.Errorf("expected the event anchored to the received date, got %+v", cal.inserted)
	}
}

func TestPipeline_FetchFailureIsolated(t *testing.T) {
	src := &fakeSource{
		order: []string{"gone", "m1"},
		msgs:  map[string]*mail.Message{"m1": outingMessage("m1")},
	}
	cal := &fakeCal{}

	outcomes, err := newTestPipeline(src, cal, calclient.PolicyKeepBoth, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusFailed {
		t.Errorf("expected the missing message to fail, got %+v", outcomes[0])
	}
	if outcomes[1].Status != StatusInserted {
		t.Errorf("expected the next message to still be processed, got %+v", outcomes[1])
	}
}
