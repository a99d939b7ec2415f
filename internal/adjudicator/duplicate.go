package adjudicator

import (
	"context"
	"fmt"
	"time"

	"github.com/STRATINT/stratint/internal/geo"
)

// IncidentSummary is the subset of incident fields the duplicate prompt
// needs from each side of the comparison.
type IncidentSummary struct {
	Title        string
	OccurredAt   time.Time
	Lat, Lon     float64
	LocationName string
	AssetType    string
	Country      string
	Narrative    string
	SourceCount  int
}

// DuplicateResult is the Tier-3 LLM deduplicator's verdict on whether two
// incidents describe the same real-world event.
type DuplicateResult struct {
	IsDuplicate bool
	Confidence  float64
	Reasoning   string
}

const duplicateSystemPrompt = `You compare two drone-incident reports and decide if they describe the same
real-world event. Respond with exactly three lines:
VERDICT: duplicate or not_duplicate
CONFIDENCE: a number between 0 and 1
REASONING: one sentence
Do not add any other text.`

const maxNarrativeChars = 400

// contradictionDistanceMeters / contradictionTimeWindow implement the
// anti-hallucination guard: a claimed duplicate is overridden to
// not_duplicate when the two incidents are both farther apart than this
// distance and further apart in time than this window.
const contradictionDistanceMeters = 500.0

var contradictionTimeWindow = 3 * time.Hour

// AssessDuplicate asks the adjudicator whether new and candidate describe
// the same incident. On failure, callers fall back to the Tier-2 score and
// log llm_unavailable; this returns ErrUnavailable (or the first non-retryable
// error) in that case.
func (a *Adjudicator) AssessDuplicate(ctx context.Context, newIncident, candidate IncidentSummary) (DuplicateResult, error) {
	userPrompt := buildDuplicatePrompt(newIncident, candidate)
	cacheKey := HashPayloads(newIncident.Title+newIncident.OccurredAt.String(), candidate.Title+candidate.OccurredAt.String())

	text, err := a.complete(ctx, cacheKey, duplicateSystemPrompt, userPrompt)
	if err != nil {
		return DuplicateResult{}, err
	}

	reply := parseStructuredReply(text)
	result := DuplicateResult{
		IsDuplicate: reply.Verdict == "duplicate",
		Confidence:  capConfidence(reply.Confidence),
		Reasoning:   reply.Reasoning,
	}

	if result.IsDuplicate && contradictsPrecomputedRule(newIncident, candidate) {
		result.IsDuplicate = false
		result.Reasoning = "overridden: location and time both contradict claimed duplicate (" + result.Reasoning + ")"
	}

	return result, nil
}

// contradictsPrecomputedRule implements the guard from spec §4.6: if the
// adjudicator claims a match that contradicts a precomputed rule (location
// > 500m apart AND timestamps differ by > 3h), the match is not trusted.
func contradictsPrecomputedRule(a, b IncidentSummary) bool {
	distance := geo.HaversineMeters(a.Lat, a.Lon, b.Lat, b.Lon)
	timeDiff := a.OccurredAt.Sub(b.OccurredAt)
	if timeDiff < 0 {
		timeDiff = -timeDiff
	}
	return distance > contradictionDistanceMeters && timeDiff > contradictionTimeWindow
}

func buildDuplicatePrompt(a, b IncidentSummary) string {
	return fmt.Sprintf(
		"INCIDENT A:\nTitle: %s\nDate: %s\nCoordinates: %.4f, %.4f\nLocation: %s\nAsset type: %s\nCountry: %s\nSources: %d\nNarrative: %s\n\n"+
			"INCIDENT B:\nTitle: %s\nDate: %s\nCoordinates: %.4f, %.4f\nLocation: %s\nAsset type: %s\nCountry: %s\nSources: %d\nNarrative: %s",
		a.Title, a.OccurredAt.Format(time.RFC3339), a.Lat, a.Lon, a.LocationName, a.AssetType, a.Country, a.SourceCount, truncate(a.Narrative, maxNarrativeChars),
		b.Title, b.OccurredAt.Format(time.RFC3339), b.Lat, b.Lon, b.LocationName, b.AssetType, b.Country, b.SourceCount, truncate(b.Narrative, maxNarrativeChars),
	)
}

func truncate(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
