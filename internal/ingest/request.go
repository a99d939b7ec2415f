package ingest

import (
	"time"

	"github.com/STRATINT/stratint/internal/models"
)

// Request is the decoded POST /ingest body, per spec §6.
type Request struct {
	Title              string        `json:"title"`
	Narrative          string        `json:"narrative"`
	OccurredAt         time.Time     `json:"occurred_at"`
	FirstSeenAt        *time.Time    `json:"first_seen_at"`
	LastSeenAt         *time.Time    `json:"last_seen_at"`
	Lat                float64       `json:"lat"`
	Lon                float64       `json:"lon"`
	AssetType          string        `json:"asset_type"`
	Status             string        `json:"status"`
	EvidenceScore      int           `json:"evidence_score"`
	Country            string        `json:"country"`
	VerificationStatus string        `json:"verification_status"`
	Sources            []SourceInput `json:"sources"`
}

// SourceInput is one reporting source attached to the ingest request.
type SourceInput struct {
	SourceURL   string     `json:"source_url"`
	SourceType  string     `json:"source_type"`
	SourceName  string     `json:"source_name"`
	SourceQuote string     `json:"source_quote"`
	TrustWeight int        `json:"trust_weight"`
	PublishedAt *time.Time `json:"published_at"`
}

// validateStructure checks the required-field and range invariants a
// malformed body would violate before any pipeline stage runs.
func (r Request) validateStructure() *Error {
	if r.Title == "" {
		return invalidInput("title is required")
	}
	if r.OccurredAt.IsZero() {
		return invalidInput("occurred_at is required and must be RFC3339")
	}
	if r.Lat < -90 || r.Lat > 90 {
		return invalidInput("lat out of range")
	}
	if r.Lon < -180 || r.Lon > 180 {
		return invalidInput("lon out of range")
	}
	if r.EvidenceScore != 0 && (r.EvidenceScore < 1 || r.EvidenceScore > 4) {
		return invalidInput("evidence_score must be between 1 and 4")
	}
	for _, src := range r.Sources {
		if src.SourceURL == "" {
			return invalidInput("source_url is required for every source")
		}
		if src.TrustWeight != 0 && (src.TrustWeight < 1 || src.TrustWeight > 4) {
			return invalidInput("trust_weight must be between 1 and 4")
		}
		if len(src.SourceQuote) > 500 {
			return invalidInput("source_quote must be at most 500 characters")
		}
	}
	return nil
}

func (r Request) firstSourceURL() string {
	if len(r.Sources) == 0 {
		return ""
	}
	return r.Sources[0].SourceURL
}

// toIncident builds the candidate incident record this request describes,
// before any dedup decision. sanitizedTitle/sanitizedNarrative come from
// the text validator (C2), not the raw request fields.
func (r Request) toIncident(sanitizedTitle, sanitizedNarrative string) models.Incident {
	assetType := models.AssetType(r.AssetType)
	if assetType == "" {
		assetType = models.AssetTypeOther
	}
	status := models.IncidentStatus(r.Status)
	if status == "" {
		status = models.IncidentStatusUnconfirmed
	}
	evidenceScore := r.EvidenceScore
	if evidenceScore == 0 {
		evidenceScore = models.EvidenceUnconfirmed
	}

	firstSeen := r.OccurredAt
	if r.FirstSeenAt != nil {
		firstSeen = *r.FirstSeenAt
	}
	lastSeen := r.OccurredAt
	if r.LastSeenAt != nil {
		lastSeen = *r.LastSeenAt
	}

	return models.Incident{
		Title:         sanitizedTitle,
		Narrative:     sanitizedNarrative,
		OccurredAt:    r.OccurredAt,
		FirstSeenAt:   firstSeen,
		LastSeenAt:    lastSeen,
		Latitude:      r.Lat,
		Longitude:     r.Lon,
		AssetType:     assetType,
		Status:        status,
		EvidenceScore: evidenceScore,
		Country:       r.Country,
	}
}

func (r Request) toIncidentSources() []models.IncidentSource {
	out := make([]models.IncidentSource, 0, len(r.Sources))
	for _, src := range r.Sources {
		publishedAt := time.Now()
		if src.PublishedAt != nil {
			publishedAt = *src.PublishedAt
		}
		trustWeight := src.TrustWeight
		if trustWeight == 0 {
			trustWeight = 1
		}
		sourceType := models.SourceType(src.SourceType)
		if sourceType == "" {
			sourceType = models.SourceTypeOther
		}
		out = append(out, models.IncidentSource{
			SourceURL:   src.SourceURL,
			SourceName:  src.SourceName,
			SourceQuote: src.SourceQuote,
			PublishedAt: publishedAt,
			SourceType:  sourceType,
			TrustWeight: trustWeight,
		})
	}
	return out
}
