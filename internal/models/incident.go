package models

import "time"

// Incident represents a single drone/airspace-intrusion incident consolidated
// from one or more reporting sources.
type Incident struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Narrative          string             `json:"narrative,omitempty"`
	OccurredAt         time.Time          `json:"occurred_at"`
	FirstSeenAt        time.Time          `json:"first_seen_at"`
	LastSeenAt         time.Time          `json:"last_seen_at"`
	Latitude           float64            `json:"lat"`
	Longitude          float64            `json:"lon"`
	AssetType          AssetType          `json:"asset_type"`
	Status             IncidentStatus     `json:"status"`
	EvidenceScore      int                `json:"evidence_score"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Country            string             `json:"country,omitempty"`
	Sources            []IncidentSource   `json:"sources,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// AssetType classifies the kind of asset a drone incident involves.
type AssetType string

const (
	AssetTypeAirport    AssetType = "airport"
	AssetTypeMilitary   AssetType = "military"
	AssetTypeHarbor     AssetType = "harbor"
	AssetTypePowerplant AssetType = "powerplant"
	AssetTypeBridge     AssetType = "bridge"
	AssetTypeOther      AssetType = "other"
)

// IncidentStatus represents the operational status of an incident.
type IncidentStatus string

const (
	IncidentStatusActive       IncidentStatus = "active"
	IncidentStatusResolved     IncidentStatus = "resolved"
	IncidentStatusUnconfirmed  IncidentStatus = "unconfirmed"
)

// VerificationStatus represents how an incident's facts have been corroborated.
type VerificationStatus string

const (
	VerificationAutoVerified VerificationStatus = "auto_verified"
	VerificationVerified     VerificationStatus = "verified"
	VerificationPending      VerificationStatus = "pending"
	VerificationRejected     VerificationStatus = "rejected"
)

// EvidenceScore levels, per the four-tier evidence system.
const (
	EvidenceOfficial    = 4 // any source with trust_weight=4 or an official source_type
	EvidenceVerified    = 3 // 2+ media sources plus an official-attribution quote
	EvidenceReported    = 2 // a single source with trust_weight >= 2
	EvidenceUnconfirmed = 1 // everything else
)

// SpatialFallbackRadius gives the Tier-1/consolidation fallback search radius,
// in meters, by asset type. Authoritative per spec, not independently derived.
var SpatialFallbackRadius = map[AssetType]float64{
	AssetTypeAirport:    3000,
	AssetTypeMilitary:   3000,
	AssetTypeHarbor:     1500,
	AssetTypePowerplant: 1000,
	AssetTypeBridge:     500,
	AssetTypeOther:      500,
}

// RegionBounds bounds the geographic scope incidents may be ingested for.
// Configurable rather than hardcoded so a deployment can narrow scope
// (e.g. to Nordic countries) without a code change.
type RegionBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// DefaultRegionBounds is the authoritative European scope from spec.md.
var DefaultRegionBounds = RegionBounds{MinLat: 35, MaxLat: 71, MinLon: -10, MaxLon: 31}

// Contains reports whether the given coordinate falls inside the region.
func (b RegionBounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Validate reports the structural invariants the write path must enforce
// before an incident is persisted.
func (i *Incident) Validate() error {
	if i.FirstSeenAt.After(i.LastSeenAt) {
		return errInvariant("first_seen_at must not be after last_seen_at")
	}
	if i.OccurredAt.After(i.LastSeenAt) {
		return errInvariant("occurred_at must not be after last_seen_at")
	}
	if i.EvidenceScore < 1 || i.EvidenceScore > 4 {
		return errInvariant("evidence_score must be between 1 and 4")
	}
	return nil
}

type invariantError string

func (e invariantError) Error() string { return string(e) }

func errInvariant(msg string) error { return invariantError(msg) }
