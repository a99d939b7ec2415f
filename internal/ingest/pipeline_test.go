package ingest

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/STRATINT/stratint/internal/adjudicator"
	"github.com/STRATINT/stratint/internal/classify"
	"github.com/STRATINT/stratint/internal/embedding"
	"github.com/STRATINT/stratint/internal/gazetteer"
	"github.com/STRATINT/stratint/internal/geo"
	"github.com/STRATINT/stratint/internal/models"
	"github.com/STRATINT/stratint/internal/satiregate"
)

// fakeStore is an in-memory Store double: static, not a mock library,
// per spec §9's "small interfaces with static test doubles" design note.
type fakeStore struct {
	incidents map[string]models.Incident
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{incidents: make(map[string]models.Incident)}
}

func (s *fakeStore) WithFingerprintLock(ctx context.Context, fingerprint string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

func (s *fakeStore) FindBySourceURL(ctx context.Context, sourceURL string) (*models.Incident, error) {
	for _, inc := range s.incidents {
		for _, src := range inc.Sources {
			if src.SourceURL == sourceURL {
				found := inc
				return &found, nil
			}
		}
	}
	return nil, nil
}

func (s *fakeStore) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, assetType models.AssetType) ([]models.Incident, error) {
	var out []models.Incident
	for _, inc := range s.incidents {
		if inc.AssetType == assetType {
			out = append(out, inc)
		}
	}
	return out, nil
}

func (s *fakeStore) FindRecentNear(ctx context.Context, lat, lon, radiusMeters float64, since time.Time) ([]models.Incident, error) {
	return nil, nil
}

func (s *fakeStore) Create(ctx context.Context, tx *sql.Tx, incident models.Incident, sources []models.IncidentSource) (string, error) {
	s.nextID++
	id := "incident-" + string(rune('a'+s.nextID))
	incident.ID = id
	incident.Sources = sources
	s.incidents[id] = incident
	return id, nil
}

func (s *fakeStore) ApplyMerge(ctx context.Context, tx *sql.Tx, incidentID string, merged models.Incident, newSources []models.IncidentSource) error {
	// merged.Sources and merged.EvidenceScore are already the consolidate.Merge
	// result (existing sources unioned with the candidate's) — store them
	// as-is rather than re-deriving Sources from newSources, which would
	// double-count entries already folded into the union.
	merged.ID = incidentID
	s.incidents[incidentID] = merged
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(store Store) *Pipeline {
	return New(Config{
		Store:       store,
		Embeddings:  nil,
		Embedder:    nil,
		Gazetteer:   gazetteer.New(gazetteer.DefaultEntries()),
		GeoAnalyzer: geo.New(models.DefaultRegionBounds),
		Classifier:  classify.New(),
		SatireGate:  satiregate.New(60),
		Adjudicator: nil,
		Logger:      testLogger(),
	})
}

func baseRequest() Request {
	return Request{
		Title:      "Drone spotted near Kastrup airport runway",
		Narrative:  "Police confirmed a drone was sighted near the runway and flights were halted.",
		OccurredAt: time.Now().UTC().Add(-time.Hour),
		Lat:        55.6180,
		Lon:        12.6476,
		AssetType:  "airport",
		Country:    "DK",
		Sources: []SourceInput{
			{SourceURL: "https://example.com/article-1", SourceType: "media", TrustWeight: 2},
		},
	}
}

func TestProcess_CreatesNewIncident(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	outcome, err := p.Process(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Created {
		t.Errorf("expected a new incident to be created")
	}
}

func TestProcess_ExactSourceURLDedupIsIdempotent(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)
	ctx := context.Background()

	first, err := p.Process(ctx, baseRequest())
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	second, err := p.Process(ctx, baseRequest())
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	if second.Created {
		t.Errorf("expected the second identical-URL request to merge, not create")
	}
	if second.IncidentID != first.IncidentID {
		t.Errorf("expected the same incident id, got %q and %q", first.IncidentID, second.IncidentID)
	}
}

func TestProcess_MergesBySpatialFallback(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)
	ctx := context.Background()

	first, err := p.Process(ctx, baseRequest())
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	second := baseRequest()
	second.Title = "Drone spotted near Kastrup airport runway again this evening"
	second.Sources = []SourceInput{{SourceURL: "https://example.com/article-2", SourceType: "media", TrustWeight: 2}}

	outcome, err := p.Process(ctx, second)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if outcome.Created {
		t.Errorf("expected the fuzzy-matching nearby report to merge")
	}
	if outcome.IncidentID != first.IncidentID {
		t.Errorf("expected merge into the original incident")
	}
}

// TestProcess_MergeRecomputesEvidenceScore is spec §8 Scenario 5: an
// existing incident with a single trust=3 media source (evidence=2) merges
// with a new trust=4 police source and must come out evidence=4.
func TestProcess_MergeRecomputesEvidenceScore(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)
	ctx := context.Background()

	first := baseRequest()
	first.Sources = []SourceInput{{SourceURL: "https://example.com/article-5a", SourceType: "media", TrustWeight: 3}}

	created, err := p.Process(ctx, first)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if got := store.incidents[created.IncidentID].EvidenceScore; got != models.EvidenceReported {
		t.Fatalf("expected initial evidence score %d, got %d", models.EvidenceReported, got)
	}

	second := baseRequest()
	second.Title = "Drone spotted near Kastrup airport runway again this evening"
	second.Sources = []SourceInput{{SourceURL: "https://example.com/article-5b", SourceType: "police", TrustWeight: 4}}

	outcome, err := p.Process(ctx, second)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if outcome.Created {
		t.Fatalf("expected the second report to merge, not create")
	}
	if got := store.incidents[outcome.IncidentID].EvidenceScore; got != models.EvidenceOfficial {
		t.Errorf("expected post-merge evidence score %d, got %d", models.EvidenceOfficial, got)
	}
}

func TestProcess_RejectsSatireSource(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	req := baseRequest()
	req.Sources[0].SourceURL = "https://rokokoposten.dk/drone-satire-piece"

	_, err := p.Process(context.Background(), req)
	if err == nil {
		t.Fatalf("expected a satire rejection")
	}
	if err.Kind != KindRejectedSatire {
		t.Errorf("expected KindRejectedSatire, got %v", err.Kind)
	}
	if err.HTTPStatus() != 403 {
		t.Errorf("expected 403, got %d", err.HTTPStatus())
	}
}

func TestProcess_RejectsForeignIncidentAs400(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	req := baseRequest()
	req.Title = "Drone spotted near Kyiv military base"
	req.Narrative = "Ukrainian officials confirmed a drone incursion near the base in Kyiv."
	req.Lat, req.Lon = 50.45, 30.52
	req.AssetType = "military"
	req.Country = "UA"

	_, err := p.Process(context.Background(), req)
	if err == nil {
		t.Fatalf("expected rejection for an out-of-scope foreign incident")
	}
	if err.HTTPStatus() != 400 {
		t.Errorf("expected 400, got %d", err.HTTPStatus())
	}
	if err.Category != "foreign" {
		t.Errorf("expected category %q, got %q", "foreign", err.Category)
	}
}

func TestProcess_RejectsInvalidStructure(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	req := baseRequest()
	req.Title = ""

	_, err := p.Process(context.Background(), req)
	if err == nil || err.Kind != KindInvalidInput {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestProcess_Tier2BorderlineEscalatesToTier3(t *testing.T) {
	store := newFakeStore()
	first := baseRequest()
	first.AssetType = "military" // avoid colliding with the airport fallback-radius test fixtures

	fakeEmbed := &fakeEmbedder{vector: []float32{1, 0, 0}}
	fakeEmbeddings := &fakeEmbeddingStore{}
	fakeAdjudicator := adjudicator.New([]adjudicator.Backend{&stubBackend{response: "VERDICT: not_duplicate\nCONFIDENCE: 0.7\nREASONING: different runway"}}, adjudicator.NewResponseCache(time.Minute), testLogger())

	p := New(Config{
		Store:       store,
		Embeddings:  fakeEmbeddings,
		Embedder:    fakeEmbed,
		Gazetteer:   gazetteer.New(gazetteer.DefaultEntries()),
		GeoAnalyzer: geo.New(models.DefaultRegionBounds),
		Classifier:  classify.New(),
		SatireGate:  satiregate.New(60),
		Adjudicator: fakeAdjudicator,
		Logger:      testLogger(),
	})

	ctx := context.Background()
	created, err := p.Process(ctx, first)
	if err != nil {
		t.Fatalf("unexpected error creating first incident: %v", err)
	}

	fakeEmbeddings.neighbors = []embedding.Neighbor{{IncidentID: created.IncidentID, Similarity: 0.85}}

	second := baseRequest()
	second.AssetType = "military"
	second.Title = "Drone detected close to Billund harbor entrance"
	second.Narrative = "Police confirmed a drone was detected near the harbor entrance overnight."
	second.Sources = []SourceInput{{SourceURL: "https://example.com/article-3", SourceType: "media", TrustWeight: 2}}

	outcome, err := p.Process(ctx, second)
	if err != nil {
		t.Fatalf("unexpected error on second ingest: %v", err)
	}
	if !outcome.Created {
		t.Errorf("expected tier-3 not_duplicate verdict to result in a new incident, got merge into %q", outcome.IncidentID)
	}
}

type fakeEmbedder struct {
	vector []float32
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake-embedder" }

type fakeEmbeddingStore struct {
	neighbors []embedding.Neighbor
}

func (s *fakeEmbeddingStore) Upsert(ctx context.Context, incidentID string, vector []float32, model string) error {
	return nil
}

func (s *fakeEmbeddingStore) Search(ctx context.Context, p embedding.SearchParams) ([]embedding.Neighbor, error) {
	return s.neighbors, nil
}

type stubBackend struct {
	response string
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return b.response, nil
}
