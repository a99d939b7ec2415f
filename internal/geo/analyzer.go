// Package geo implements the geographic-scope analyzer (C3): it decides
// whether an incident's coordinates and text place it in scope for this
// deployment's region, with confidence scoring for ambiguous cases.
package geo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/STRATINT/stratint/internal/models"
)

// Analysis is the result of scoping an incident.
type Analysis struct {
	IsInScope  bool
	Confidence float64
	Reason     string
	Flags      []string
}

// Analyzer scores incidents against a region and curated keyword lists.
type Analyzer struct {
	bounds          models.RegionBounds
	foreignKeywords map[string]*regexp.Regexp
	nordicContext   []string
	inScopeCities   map[string]*regexp.Regexp
	officialTokens  []string
}

// New constructs an Analyzer for the given region bounds.
func New(bounds models.RegionBounds) *Analyzer {
	a := &Analyzer{
		bounds:          bounds,
		foreignKeywords: compileWordBoundary(defaultForeignKeywords),
		nordicContext:   defaultNordicContextMarkers,
		inScopeCities:   compileWordBoundary(defaultInScopeCities),
		officialTokens:  []string{"politi", "police", "forsvar", "myndighed", "polis", "poliisi"},
	}
	return a
}

func compileWordBoundary(words []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		out[w] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// Analyze scores a candidate incident's geographic scope.
func (a *Analyzer) Analyze(title, narrative string, lat, lon *float64) Analysis {
	if lat == nil || lon == nil {
		return Analysis{IsInScope: false, Confidence: 0, Reason: "no coordinates provided", Flags: []string{"missing_coords"}}
	}

	if !a.bounds.Contains(*lat, *lon) {
		return Analysis{
			IsInScope:  false,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("coordinates outside region (%.4f, %.4f)", *lat, *lon),
			Flags:      []string{"coords_outside_region"},
		}
	}

	fullText := title + " " + narrative
	confidence := 1.0
	var flags []string

	foreignHits := a.matchAny(fullText, a.foreignKeywords)
	if len(foreignHits) > 0 {
		if a.hasNordicContext(narrative) {
			confidence -= 0.4
			flags = append(flags, "foreign_with_nordic_context")
			return Analysis{
				IsInScope:  confidence >= 0.5,
				Confidence: round2(confidence),
				Reason:     fmt.Sprintf("foreign keywords present with Nordic context: %s", strings.Join(foreignHits, ", ")),
				Flags:      flags,
			}
		}
		return Analysis{
			IsInScope:  false,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("foreign incident detected: %s", strings.Join(foreignHits, ", ")),
			Flags:      []string{"foreign_incident"},
		}
	}

	cityHits := a.matchAny(fullText, a.inScopeCities)
	if len(cityHits) > 0 {
		confidence = min1(confidence + 0.2*float64(len(cityHits)))
		flags = append(flags, "in_scope_city")
	}

	lowerText := strings.ToLower(fullText)
	for _, token := range a.officialTokens {
		if strings.Contains(lowerText, token) {
			confidence = min1(confidence + 0.1)
			flags = append(flags, "official_source_mention")
			break
		}
	}

	isInScope := confidence >= 0.5
	reason := "passed geographic scope checks"
	if !isInScope {
		reason = fmt.Sprintf("low confidence (%.2f)", confidence)
	}

	return Analysis{IsInScope: isInScope, Confidence: round2(confidence), Reason: reason, Flags: flags}
}

func (a *Analyzer) matchAny(text string, patterns map[string]*regexp.Regexp) []string {
	var hits []string
	for word, re := range patterns {
		if re.MatchString(text) {
			hits = append(hits, word)
		}
	}
	return hits
}

func (a *Analyzer) hasNordicContext(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range a.nordicContext {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func min1(f float64) float64 {
	if f > 1.0 {
		return 1.0
	}
	return f
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
