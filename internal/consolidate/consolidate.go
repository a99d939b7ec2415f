// Package consolidate implements the consolidation engine (C10): a pure
// function that merges a persisted incident with a new candidate into one
// record, and computes the resulting evidence score.
package consolidate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/STRATINT/stratint/internal/models"
)

// officialQuoteRe matches an official-attribution quote in narrative text,
// required for evidence_score=3 (VERIFIED) alongside 2+ media sources.
var officialQuoteRe = regexp.MustCompile(`(?i)\b(politi(et)?|forsvar(et)?|police|ministry|notam)\b`)

// Merge combines existing and candidate into one incident record per the
// evidence-score law. It is a pure function: no I/O, no clock reads; ties
// in source ordering are broken deterministically by source_url ascending.
func Merge(existing, candidate models.Incident) models.Incident {
	merged := existing

	if candidate.OccurredAt.Before(merged.OccurredAt) {
		merged.OccurredAt = candidate.OccurredAt
	}
	if candidate.FirstSeenAt.Before(merged.FirstSeenAt) {
		merged.FirstSeenAt = candidate.FirstSeenAt
	}
	if candidate.LastSeenAt.After(merged.LastSeenAt) {
		merged.LastSeenAt = candidate.LastSeenAt
	}

	if wordCount(candidate.Title) > wordCount(merged.Title) {
		merged.Title = candidate.Title
	}
	if len(candidate.Narrative) > len(merged.Narrative) {
		merged.Narrative = candidate.Narrative
	}

	merged.Sources = mergeSources(existing.Sources, candidate.Sources)
	merged.EvidenceScore = evidenceScore(merged.Sources, merged.Narrative)
	merged.VerificationStatus = verificationStatus(merged.EvidenceScore)

	return merged
}

// mergeSources unions two source lists, deduplicating on exact source_url
// match and sorting the result by source_url ascending for deterministic
// output.
func mergeSources(a, b []models.IncidentSource) []models.IncidentSource {
	byURL := make(map[string]models.IncidentSource, len(a)+len(b))
	for _, s := range a {
		byURL[s.SourceURL] = s
	}
	for _, s := range b {
		if _, exists := byURL[s.SourceURL]; !exists {
			byURL[s.SourceURL] = s
		}
	}

	merged := make([]models.IncidentSource, 0, len(byURL))
	for _, s := range byURL {
		merged = append(merged, s)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].SourceURL < merged[j].SourceURL
	})
	return merged
}

// evidenceScore applies the four-tier evidence law to a merged source set.
func evidenceScore(sources []models.IncidentSource, narrative string) int {
	hasOfficial := false
	mediaCount := 0
	maxTrustWeight := 0

	for _, s := range sources {
		if s.TrustWeight == 4 || s.SourceType.IsOfficial() {
			hasOfficial = true
		}
		if s.SourceType.IsMedia() && s.TrustWeight >= 2 {
			mediaCount++
		}
		if s.TrustWeight > maxTrustWeight {
			maxTrustWeight = s.TrustWeight
		}
	}

	if hasOfficial {
		return models.EvidenceOfficial
	}
	if mediaCount >= 2 && officialQuoteRe.MatchString(narrative) {
		return models.EvidenceVerified
	}
	if maxTrustWeight >= 2 {
		return models.EvidenceReported
	}
	return models.EvidenceUnconfirmed
}

func verificationStatus(evidenceScore int) models.VerificationStatus {
	switch {
	case evidenceScore >= models.EvidenceOfficial:
		return models.VerificationAutoVerified
	case evidenceScore >= models.EvidenceVerified:
		return models.VerificationVerified
	default:
		return models.VerificationPending
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
