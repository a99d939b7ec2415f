package adjudicator

import (
	"context"
	"fmt"
)

// ClassifyResult is the AI Adjudicator's verdict on whether a candidate
// describes a real drone incident, used as a fallback when the rule-based
// classifier's confidence is too low to trust on its own.
type ClassifyResult struct {
	IsIncident bool
	Confidence float64
	Category   string
	Reasoning  string
}

const classifySystemPrompt = `You classify short news excerpts about drone sightings. Respond with exactly three lines:
VERDICT: incident or not_incident
CONFIDENCE: a number between 0 and 1
REASONING: one sentence
Do not add any other text.`

// Classify asks the adjudicator whether title/narrative describes a genuine
// drone incident. On total backend exhaustion, callers must fall through to
// the rule-based classifier's verdict and flag ai_unavailable; this method
// returns ErrUnavailable in that case, never a zero-value false verdict.
func (a *Adjudicator) Classify(ctx context.Context, title, narrative string) (ClassifyResult, error) {
	userPrompt := fmt.Sprintf("TITLE: %s\nNARRATIVE: %s", title, narrative)
	cacheKey := HashPayloads(classifySystemPrompt, userPrompt)

	text, err := a.complete(ctx, cacheKey, classifySystemPrompt, userPrompt)
	if err != nil {
		return ClassifyResult{}, err
	}

	reply := parseStructuredReply(text)
	isIncident := reply.Verdict == "incident"

	return ClassifyResult{
		IsIncident: isIncident,
		Confidence: capConfidence(reply.Confidence),
		Category:   reply.Verdict,
		Reasoning:  reply.Reasoning,
	}, nil
}
