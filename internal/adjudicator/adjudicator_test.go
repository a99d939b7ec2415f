package adjudicator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeBackend struct {
	name     string
	response string
	err      error
	calls    int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify_ParsesStructuredReply(t *testing.T) {
	backend := &fakeBackend{name: "primary", response: "VERDICT: incident\nCONFIDENCE: 0.9\nREASONING: police confirmed closure"}
	a := New([]Backend{backend}, nil, testLogger())

	result, err := a.Classify(context.Background(), "Drone closes airport", "Police confirmed a closure.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsIncident || result.Confidence != 0.9 {
		t.Fatalf("got %+v", result)
	}
}

func TestClassify_FallsThroughOnExhaustion(t *testing.T) {
	backend := &fakeBackend{name: "primary", err: errors.New("429 rate limit exceeded")}
	a := New([]Backend{backend}, nil, testLogger())

	_, err := a.Classify(context.Background(), "title", "narrative")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRoundRobin_FailsOverToSecondBackend(t *testing.T) {
	first := &fakeBackend{name: "first", err: errors.New("503 service unavailable")}
	second := &fakeBackend{name: "second", response: "VERDICT: incident\nCONFIDENCE: 0.7\nREASONING: ok"}
	a := New([]Backend{first, second}, nil, testLogger())

	result, err := a.Classify(context.Background(), "title", "narrative")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected both backends called once, got first=%d second=%d", first.calls, second.calls)
	}
	if !result.IsIncident {
		t.Fatalf("expected second backend's verdict to be used")
	}
}

func TestComplete_NonRetryableErrorStopsImmediately(t *testing.T) {
	first := &fakeBackend{name: "first", err: errors.New("invalid api key")}
	second := &fakeBackend{name: "second", response: "VERDICT: incident\nCONFIDENCE: 0.7\nREASONING: ok"}
	a := New([]Backend{first, second}, nil, testLogger())

	_, err := a.Classify(context.Background(), "title", "narrative")
	if err == nil {
		t.Fatal("expected an error")
	}
	if second.calls != 0 {
		t.Fatalf("expected second backend not called after a non-retryable error, got %d calls", second.calls)
	}
}

func TestResponseCache_HitSkipsBackend(t *testing.T) {
	backend := &fakeBackend{name: "primary", response: "VERDICT: incident\nCONFIDENCE: 0.9\nREASONING: ok"}
	cache := NewResponseCache(time.Minute)
	a := New([]Backend{backend}, cache, testLogger())

	ctx := context.Background()
	if _, err := a.Classify(ctx, "title", "narrative"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Classify(ctx, "title", "narrative"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.calls != 1 {
		t.Fatalf("expected backend called once due to cache hit, got %d", backend.calls)
	}
}

func TestAssessDuplicate_OverridesContradiction(t *testing.T) {
	backend := &fakeBackend{name: "primary", response: "VERDICT: duplicate\nCONFIDENCE: 0.9\nREASONING: same drone story"}
	a := New([]Backend{backend}, nil, testLogger())

	newIncident := IncidentSummary{Title: "Drone at Oslo Airport", Lat: 60.1939, Lon: 11.1004, OccurredAt: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	candidate := IncidentSummary{Title: "Drone at Bergen Harbor", Lat: 60.3913, Lon: 5.3221, OccurredAt: time.Date(2026, 7, 30, 22, 0, 0, 0, time.UTC)}

	result, err := a.AssessDuplicate(context.Background(), newIncident, candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsDuplicate {
		t.Fatalf("expected contradiction override to not_duplicate, got %+v", result)
	}
}

func TestAssessDuplicate_AcceptsConsistentMatch(t *testing.T) {
	backend := &fakeBackend{name: "primary", response: "VERDICT: duplicate\nCONFIDENCE: 0.88\nREASONING: same event"}
	a := New([]Backend{backend}, nil, testLogger())

	t0 := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	newIncident := IncidentSummary{Title: "Drone at Oslo Airport", Lat: 60.1939, Lon: 11.1004, OccurredAt: t0}
	candidate := IncidentSummary{Title: "UAV sighted Oslo Airport", Lat: 60.1940, Lon: 11.1005, OccurredAt: t0.Add(30 * time.Minute)}

	result, err := a.AssessDuplicate(context.Background(), newIncident, candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatalf("expected duplicate verdict to stand, got %+v", result)
	}
}

func TestParseStructuredReply_DefaultsOnMissingFields(t *testing.T) {
	reply := parseStructuredReply("some unrelated text with no matching lines")
	if reply.Confidence != 0.5 {
		t.Errorf("expected default confidence 0.5, got %v", reply.Confidence)
	}
	if reply.Verdict != "" {
		t.Errorf("expected empty verdict, got %q", reply.Verdict)
	}
}

func TestParseStructuredReply_CaseInsensitive(t *testing.T) {
	reply := parseStructuredReply("Verdict: DUPLICATE\nConfidence: 0.81\nReasoning: matches")
	if reply.Verdict != "duplicate" {
		t.Errorf("expected lowercase verdict, got %q", reply.Verdict)
	}
	if reply.Confidence != 0.81 {
		t.Errorf("got confidence %v", reply.Confidence)
	}
}
