// Package embedding implements the embedding deduplicator (C8): it builds
// the labeled embedding text for an incident, queries the nearest stored
// neighbors within a spatial/temporal/country window, and classifies the
// best match against the two configured similarity thresholds.
package embedding

import (
	"fmt"
	"strings"
	"time"

	"github.com/STRATINT/stratint/internal/models"
)

// Dimension is the fixed embedding vector width this service produces and
// stores. Kept in sync with models.EmbeddingDimension.
const Dimension = models.EmbeddingDimension

// Thresholds for the Tier-2 decision.
const (
	DefaultHighThreshold = 0.92 // >= this: accept merge without LLM involvement
	DefaultLowThreshold  = 0.80 // below this: not a duplicate
)

// SearchWindow bounds the candidate-neighbor query.
const (
	TimeWindow    = 48 * time.Hour
	RadiusMeters  = 50_000.0
	MaxNeighbors  = 5
)

var assetTypeSynonyms = map[models.AssetType]string{
	models.AssetTypeAirport:    "airport aerodrome airfield",
	models.AssetTypeMilitary:   "military base installation",
	models.AssetTypeHarbor:     "harbor harbour port",
	models.AssetTypePowerplant: "powerplant power plant facility",
	models.AssetTypeBridge:     "bridge crossing",
	models.AssetTypeOther:      "site location",
}

// BuildText constructs the pipe-joined, labeled embedding text for an
// incident. The same construction must run at write time (to embed and
// store) and at query time (to embed the candidate before searching), or
// similarity scores will drift incomparably.
func BuildText(title, locationName string, assetType models.AssetType, occurredAt time.Time, narrative string) string {
	expandedType := assetTypeSynonyms[assetType]
	if expandedType == "" {
		expandedType = string(assetType)
	}

	details := narrative
	truncated := false
	if codePointLen(details) > 200 {
		details = truncateCodePoints(details, 200)
		truncated = true
	}
	if truncated {
		details += "…"
	}

	return fmt.Sprintf("Event: %s | Location: %s | Type: %s | Date: %s | Details: %s",
		title, normalizeLocationName(locationName), expandedType, occurredAt.Format("2006-01-02"), details)
}

func codePointLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func truncateCodePoints(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// Neighbor is one candidate returned by a nearest-neighbor search, paired
// with its cosine similarity to the query embedding.
type Neighbor struct {
	IncidentID string
	Similarity float64
}

// Decision is the Tier-2 classifier's outcome for the best neighbor found.
type Decision string

const (
	DecisionNoMatch      Decision = "no_match"       // no neighbor at or above tau_low
	DecisionAcceptMerge  Decision = "accept_merge"   // best neighbor >= tau_high
	DecisionNeedsTier3   Decision = "needs_tier3"    // best neighbor in [tau_low, tau_high)
)

// Classify picks the best neighbor (callers must pass them sorted by
// similarity descending, or Classify sorts defensively by scanning for the
// max) and applies the threshold law.
type Classifier struct {
	HighThreshold float64
	LowThreshold  float64
}

// NewClassifier builds a Classifier with the default thresholds.
func NewClassifier() *Classifier {
	return &Classifier{HighThreshold: DefaultHighThreshold, LowThreshold: DefaultLowThreshold}
}

// Classify returns the decision and the best matching neighbor, if any.
func (c *Classifier) Classify(neighbors []Neighbor) (Decision, *Neighbor) {
	if len(neighbors) == 0 {
		return DecisionNoMatch, nil
	}

	best := neighbors[0]
	for _, n := range neighbors[1:] {
		if n.Similarity > best.Similarity {
			best = n
		}
	}

	switch {
	case best.Similarity < c.LowThreshold:
		return DecisionNoMatch, nil
	case best.Similarity >= c.HighThreshold:
		return DecisionAcceptMerge, &best
	default:
		return DecisionNeedsTier3, &best
	}
}

// normalizeLocationName strips redundant whitespace so embedding text stays
// stable regardless of how upstream components formatted a place name.
func normalizeLocationName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
