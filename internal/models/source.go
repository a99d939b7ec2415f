package models

import "time"

// Source represents a publisher/outlet a drone incident was reported by.
// Sources are process-wide and long-lived: many incidents reference a
// source, but no incident owns one.
type Source struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Domain      string     `json:"domain"`
	Type        SourceType `json:"source_type"`
	HomepageURL string     `json:"homepage_url,omitempty"`
	TrustWeight int        `json:"trust_weight"` // 1..4, monotonic non-decreasing on upsert
	CreatedAt   time.Time  `json:"created_at"`
}

// SourceType categorizes the origin of a reported incident source.
type SourceType string

const (
	SourceTypePolice            SourceType = "police"
	SourceTypeNOTAM             SourceType = "notam"
	SourceTypeAviationAuthority SourceType = "aviation_authority"
	SourceTypeMilitary          SourceType = "military"
	SourceTypeMedia             SourceType = "media"
	SourceTypeVerifiedMedia     SourceType = "verified_media"
	SourceTypeSocial            SourceType = "social"
	SourceTypeOther             SourceType = "other"
)

// IsOfficial reports whether this source type counts as an official,
// evidence_score=4-granting source type (independent of trust_weight).
func (t SourceType) IsOfficial() bool {
	switch t {
	case SourceTypePolice, SourceTypeNOTAM, SourceTypeAviationAuthority, SourceTypeMilitary:
		return true
	default:
		return false
	}
}

// IsMedia reports whether this source type counts towards the 2+ media
// sources required for evidence_score=3 (VERIFIED).
func (t SourceType) IsMedia() bool {
	return t == SourceTypeMedia || t == SourceTypeVerifiedMedia
}

// IncidentSource is an append-only join row attributing one incident to one
// reporting article/post from one source. Owned by exactly one Incident;
// cascades on incident delete (which does not occur in steady state).
type IncidentSource struct {
	IncidentID   string    `json:"incident_id"`
	SourceID     string    `json:"source_id"`
	SourceURL    string    `json:"source_url"` // unique within incident
	SourceName   string    `json:"source_name,omitempty"`
	SourceQuote  string    `json:"source_quote,omitempty"` // <=500 chars
	PublishedAt  time.Time `json:"published_at"`
	Lang         string    `json:"lang,omitempty"`
	SourceType   SourceType `json:"source_type"`
	TrustWeight  int        `json:"trust_weight"`
}

// IncidentEmbedding stores the Tier-2 deduplication vector for an incident.
// Written once on incident creation; replaced only on an explicit re-embed.
type IncidentEmbedding struct {
	IncidentID     string    `json:"incident_id"` // unique
	Embedding      []float32 `json:"embedding"`
	EmbeddingModel string    `json:"embedding_model"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EmbeddingDimension is the fixed vector width this service writes and
// queries. Tied to EmbeddingModel; changing either requires a re-embed
// backfill, and cross-model similarity is never compared.
const EmbeddingDimension = 768
