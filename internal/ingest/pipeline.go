// Package ingest implements the Ingest Write Path (C11): the per-candidate
// state machine from spec §4.11 that gates, classifies, scopes, and
// deduplicates one incoming report before it is merged into an existing
// incident or persisted as a new one.
package ingest

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/STRATINT/stratint/internal/adjudicator"
	"github.com/STRATINT/stratint/internal/classify"
	"github.com/STRATINT/stratint/internal/consolidate"
	"github.com/STRATINT/stratint/internal/dedup"
	"github.com/STRATINT/stratint/internal/embedding"
	"github.com/STRATINT/stratint/internal/gazetteer"
	"github.com/STRATINT/stratint/internal/geo"
	"github.com/STRATINT/stratint/internal/models"
	"github.com/STRATINT/stratint/internal/satiregate"
	"github.com/STRATINT/stratint/internal/textvalidate"
)

// classifierConfidenceThreshold is τ from spec §4.6: below this, the
// rule-based classifier's verdict is corroborated by the AI adjudicator
// when one is configured.
const classifierConfidenceThreshold = 0.7

// tier1RadiusMeters / tier1Window bound the Tier-1 fuzzy-matcher candidate
// pool per spec §4.11's state diagram ("recent rows ≤ 48h, ≤ 1 km").
const tier1RadiusMeters = 1000.0

var tier1Window = 48 * time.Hour

// Store is the persistence boundary the pipeline needs from C12.
type Store interface {
	WithFingerprintLock(ctx context.Context, fingerprint string, fn func(ctx context.Context, tx *sql.Tx) error) error
	FindBySourceURL(ctx context.Context, sourceURL string) (*models.Incident, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, assetType models.AssetType) ([]models.Incident, error)
	FindRecentNear(ctx context.Context, lat, lon, radiusMeters float64, since time.Time) ([]models.Incident, error)
	Create(ctx context.Context, tx *sql.Tx, incident models.Incident, sources []models.IncidentSource) (string, error)
	ApplyMerge(ctx context.Context, tx *sql.Tx, incidentID string, merged models.Incident, newSources []models.IncidentSource) error
}

// EmbeddingStore is the Tier-2 persistence boundary from C8.
type EmbeddingStore interface {
	Upsert(ctx context.Context, incidentID string, vector []float32, model string) error
	Search(ctx context.Context, p embedding.SearchParams) ([]embedding.Neighbor, error)
}

// Pipeline wires C1-C10 and C12 together into the write path. adjudicator
// may be nil: spec §6 requires C6/C9 to disable gracefully when no LLM
// credentials are configured.
type Pipeline struct {
	store      Store
	embeddings EmbeddingStore
	embedder   embedding.Embedder // nil disables Tier-2 gracefully, same as adjudicator

	gazetteer    *gazetteer.Gazetteer
	geoAnalyzer  *geo.Analyzer
	classifier   *classify.Classifier
	satireGate   *satiregate.Gate
	fuzzy        *dedup.FuzzyMatcher
	embedClass   *embedding.Classifier
	adjudicator  *adjudicator.Adjudicator

	logger *slog.Logger
}

// Config bundles the pipeline's constructor-injected dependencies.
type Config struct {
	Store       Store
	Embeddings  EmbeddingStore
	Embedder    embedding.Embedder
	Gazetteer   *gazetteer.Gazetteer
	GeoAnalyzer *geo.Analyzer
	Classifier  *classify.Classifier
	SatireGate  *satiregate.Gate
	Adjudicator *adjudicator.Adjudicator
	Logger      *slog.Logger
}

// New constructs a Pipeline from its dependencies.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		store:       cfg.Store,
		embeddings:  cfg.Embeddings,
		embedder:    cfg.Embedder,
		gazetteer:   cfg.Gazetteer,
		geoAnalyzer: cfg.GeoAnalyzer,
		classifier:  cfg.Classifier,
		satireGate:  cfg.SatireGate,
		fuzzy:       dedup.NewFuzzyMatcher(),
		embedClass:  embedding.NewClassifier(),
		adjudicator: cfg.Adjudicator,
		logger:      cfg.Logger,
	}
}

// Outcome is the write path's terminal result for one request.
type Outcome struct {
	IncidentID string
	Created    bool // true = 201, false = 200 (merged)
}

// Process runs one candidate through the full state machine.
func (p *Pipeline) Process(ctx context.Context, req Request) (Outcome, *Error) {
	if err := req.validateStructure(); err != nil {
		return Outcome{}, err
	}

	// C2: text validation.
	titleResult := textvalidate.ValidateTitle(&req.Title)
	if !titleResult.OK {
		if titleResult.Reason == "malicious_content" {
			return Outcome{}, maliciousContent("title failed content validation")
		}
		return Outcome{}, invalidInput("title failed validation: " + titleResult.Reason)
	}
	narrativeResult := textvalidate.ValidateNarrative(&req.Narrative)
	if !narrativeResult.OK {
		if narrativeResult.Reason == "malicious_content" {
			return Outcome{}, maliciousContent("narrative failed content validation")
		}
		return Outcome{}, invalidInput("narrative failed validation: " + narrativeResult.Reason)
	}

	// C5: satire + temporal gate.
	if v := p.satireGate.CheckTemporal(req.OccurredAt); !v.OK {
		return Outcome{}, rejectedTemporal(v.Reason)
	}
	if v := p.satireGate.CheckSource(req.firstSourceURL()); !v.OK {
		return Outcome{}, rejectedSatire(v.Reason)
	}

	// C4: classify, falling back to C6 when confidence is too low.
	verdict := p.classifier.Classify(titleResult.Sanitized, narrativeResult.Sanitized)
	if !verdict.IsIncident && verdict.Confidence < classifierConfidenceThreshold && p.adjudicator != nil {
		aiResult, err := p.adjudicator.Classify(ctx, titleResult.Sanitized, narrativeResult.Sanitized)
		if err != nil {
			p.logger.Warn("ai classifier unavailable, using rule-based verdict", "error", err)
		} else {
			verdict.IsIncident = aiResult.IsIncident
			verdict.Confidence = aiResult.Confidence
			verdict.Reason = aiResult.Reasoning
		}
	}
	if !verdict.IsIncident {
		return Outcome{}, rejectedCategory(string(verdict.Category), verdict.Reason)
	}

	// C3: geographic scope.
	lat, lon := req.Lat, req.Lon
	analysis := p.geoAnalyzer.Analyze(titleResult.Sanitized, narrativeResult.Sanitized, &lat, &lon)
	if !analysis.IsInScope {
		return Outcome{}, outOfScope(geoScopeCategory(analysis.Flags), analysis.Reason)
	}

	country := req.Country
	if country == "" {
		if entry, ok := p.gazetteer.FindInText(titleResult.Sanitized + " " + narrativeResult.Sanitized); ok {
			country = entry.Country
		}
	}

	candidate := req.toIncident(titleResult.Sanitized, narrativeResult.Sanitized)
	candidate.Country = country
	sources := req.toIncidentSources()
	candidate.Sources = sources

	fp := fingerprint(candidate.Latitude, candidate.Longitude, candidate.OccurredAt, candidate.Country, candidate.AssetType)

	var outcome Outcome
	lockErr := p.store.WithFingerprintLock(ctx, fp, func(ctx context.Context, tx *sql.Tx) error {
		o, err := p.resolveAndWrite(ctx, tx, candidate, sources)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if lockErr != nil {
		p.logger.Error("write path transaction failed", "error", lockErr)
		return Outcome{}, storeFailure()
	}

	return outcome, nil
}

// resolveAndWrite runs the dedup cascade (source-URL lookup, spatial
// fallback, Tier-1/2/3) and performs the resulting MERGE or CREATE, all
// inside the fingerprint-locked transaction.
func (p *Pipeline) resolveAndWrite(ctx context.Context, tx *sql.Tx, candidate models.Incident, sources []models.IncidentSource) (Outcome, error) {
	// Global source-URL lookup is authoritative and serializes concurrent
	// identical-URL arrivals independent of the fingerprint lock.
	for _, src := range sources {
		existing, err := p.store.FindBySourceURL(ctx, src.SourceURL)
		if err != nil {
			return Outcome{}, err
		}
		if existing != nil {
			return p.merge(ctx, tx, *existing, candidate, sources)
		}
	}

	match, err := p.findDuplicate(ctx, candidate)
	if err != nil {
		return Outcome{}, err
	}
	if match != nil {
		return p.merge(ctx, tx, *match, candidate, sources)
	}

	id, err := p.store.Create(ctx, tx, candidate, sources)
	if err != nil {
		return Outcome{}, err
	}
	p.embedAsync(ctx, id, candidate)
	return Outcome{IncidentID: id, Created: true}, nil
}

// findDuplicate runs the Tier-1/2/3 cascade: spatial fallback candidates
// first, then fuzzy title match, then (on a borderline embedding score)
// the LLM deduplicator.
func (p *Pipeline) findDuplicate(ctx context.Context, candidate models.Incident) (*models.Incident, error) {
	radius, ok := models.SpatialFallbackRadius[candidate.AssetType]
	if !ok {
		radius = models.SpatialFallbackRadius[models.AssetTypeOther]
	}

	pool, err := p.store.FindNearby(ctx, candidate.Latitude, candidate.Longitude, radius, candidate.AssetType)
	if err != nil {
		return nil, err
	}
	recent, err := p.store.FindRecentNear(ctx, candidate.Latitude, candidate.Longitude, tier1RadiusMeters, candidate.OccurredAt.Add(-tier1Window))
	if err != nil {
		return nil, err
	}
	pool = append(pool, recent...)

	for _, existing := range dedupeByID(pool) {
		if p.fuzzy.IsMatch(candidate.Title, existing.Title) {
			return &existing, nil
		}
	}

	if p.embedder == nil || len(pool) == 0 {
		return nil, nil
	}

	text := embedding.BuildText(candidate.Title, "", candidate.AssetType, candidate.OccurredAt, candidate.Narrative)
	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		p.logger.Warn("embedding unavailable, skipping tier-2/3", "error", err)
		return nil, nil
	}

	neighbors, err := p.embeddings.Search(ctx, embedding.SearchParams{
		Vector:         vector,
		EmbeddingModel: p.embedder.ModelName(),
		Lat:            candidate.Latitude,
		Lon:            candidate.Longitude,
		OccurredAt:     candidate.OccurredAt,
		Country:        candidate.Country,
		RadiusMeters:   embedding.RadiusMeters,
		TimeWindow:     embedding.TimeWindow,
		MinSimilarity:  p.embedClass.LowThreshold,
		Limit:          embedding.MaxNeighbors,
	})
	if err != nil {
		p.logger.Warn("tier-2 search failed, continuing without it", "error", err)
		return nil, nil
	}

	decision, best := p.embedClass.Classify(neighbors)
	switch decision {
	case embedding.DecisionNoMatch:
		return nil, nil
	case embedding.DecisionAcceptMerge:
		return findByID(pool, best.IncidentID), nil
	case embedding.DecisionNeedsTier3:
		if p.adjudicator == nil {
			return nil, nil
		}
		return p.assessTier3(ctx, candidate, pool, best.IncidentID)
	default:
		return nil, nil
	}
}

func (p *Pipeline) assessTier3(ctx context.Context, candidate models.Incident, pool []models.Incident, incidentID string) (*models.Incident, error) {
	existing := findByID(pool, incidentID)
	if existing == nil {
		return nil, nil
	}
	result, err := p.adjudicator.AssessDuplicate(ctx, toSummary(candidate), toSummary(*existing))
	if err != nil {
		p.logger.Warn("tier-3 adjudicator unavailable, treating as unique", "error", err)
		return nil, nil
	}
	if result.IsDuplicate {
		return existing, nil
	}
	return nil, nil
}

func (p *Pipeline) merge(ctx context.Context, tx *sql.Tx, existing, candidate models.Incident, newSources []models.IncidentSource) (Outcome, error) {
	merged := consolidate.Merge(existing, candidate)
	if err := p.store.ApplyMerge(ctx, tx, existing.ID, merged, newSources); err != nil {
		return Outcome{}, err
	}
	return Outcome{IncidentID: existing.ID, Created: false}, nil
}

// embedAsync computes and stores the Tier-2 vector for a freshly created
// incident. Embedding failures never fail the write: the incident is
// already durably created, and a missing vector only means this one row
// won't be a Tier-2 candidate for future dedup until a re-embed backfill.
func (p *Pipeline) embedAsync(ctx context.Context, incidentID string, incident models.Incident) {
	if p.embedder == nil {
		return
	}
	text := embedding.BuildText(incident.Title, "", incident.AssetType, incident.OccurredAt, incident.Narrative)
	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		p.logger.Warn("failed to compute embedding for new incident", "incident_id", incidentID, "error", err)
		return
	}
	if err := p.embeddings.Upsert(ctx, incidentID, vector, p.embedder.ModelName()); err != nil {
		p.logger.Warn("failed to store embedding for new incident", "incident_id", incidentID, "error", err)
	}
}

func toSummary(i models.Incident) adjudicator.IncidentSummary {
	return adjudicator.IncidentSummary{
		Title:       i.Title,
		OccurredAt:  i.OccurredAt,
		Lat:         i.Latitude,
		Lon:         i.Longitude,
		AssetType:   string(i.AssetType),
		Country:     i.Country,
		Narrative:   i.Narrative,
		SourceCount: len(i.Sources),
	}
}

// geoScopeCategory maps the geo analyzer's internal flags (internal/geo)
// to the caller-facing rejection category for spec §8's scope-rejection
// contract. foreign_with_nordic_context still rejects as "foreign" since
// the Nordic context only lowered confidence, it didn't change the verdict.
func geoScopeCategory(flags []string) string {
	for _, f := range flags {
		switch f {
		case "foreign_incident", "foreign_with_nordic_context":
			return "foreign"
		case "coords_outside_region":
			return "coords_outside_region"
		case "missing_coords":
			return "missing_coords"
		}
	}
	return "out_of_scope"
}

func dedupeByID(incidents []models.Incident) []models.Incident {
	seen := make(map[string]bool, len(incidents))
	out := make([]models.Incident, 0, len(incidents))
	for _, i := range incidents {
		if seen[i.ID] {
			continue
		}
		seen[i.ID] = true
		out = append(out, i)
	}
	return out
}

func findByID(incidents []models.Incident, id string) *models.Incident {
	for i := range incidents {
		if incidents[i].ID == id {
			return &incidents[i]
		}
	}
	return nil
}
