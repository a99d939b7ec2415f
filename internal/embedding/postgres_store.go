package embedding

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PostgresStore implements the C8 nearest-neighbor search and upsert
// contract against a Postgres database with the pgvector extension
// installed, using the same raw-SQL, transaction-scoped style as the
// spatial incident repository.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert stores or replaces an incident's embedding, keyed on incident ID.
func (s *PostgresStore) Upsert(ctx context.Context, incidentID string, vector []float32, model string) error {
	query := `
		INSERT INTO incident_embeddings (incident_id, embedding, embedding_model, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (incident_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			embedding_model = EXCLUDED.embedding_model,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, incidentID, vectorLiteral(vector), model, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// SearchParams bounds a nearest-neighbor query to the composite
// spatial/temporal/country window spec'd for Tier 2.
type SearchParams struct {
	Vector         []float32
	EmbeddingModel string
	Lat, Lon       float64
	OccurredAt     time.Time
	Country        string
	RadiusMeters   float64
	TimeWindow     time.Duration
	MinSimilarity  float64
	Limit          int
}

// Search returns up to Limit neighbors within the window, above
// MinSimilarity, sorted by similarity descending. Embeddings written by a
// different embedding_model are never compared, since cosine distance
// across model families is undefined.
func (s *PostgresStore) Search(ctx context.Context, p SearchParams) ([]Neighbor, error) {
	query := `
		SELECT e.incident_id, 1 - (e.embedding <=> $1) AS similarity
		FROM incident_embeddings e
		JOIN incidents i ON i.id = e.incident_id
		WHERE e.embedding_model = $2
		  AND i.occurred_at BETWEEN $3 AND $4
		  AND i.country = $5
		  AND ST_DWithin(i.location::geography, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography, $8)
		  AND 1 - (e.embedding <=> $1) >= $9
		ORDER BY similarity DESC
		LIMIT $10
	`

	windowStart := p.OccurredAt.Add(-p.TimeWindow)
	windowEnd := p.OccurredAt.Add(p.TimeWindow)

	rows, err := s.db.QueryContext(ctx, query,
		vectorLiteral(p.Vector),
		p.EmbeddingModel,
		windowStart,
		windowEnd,
		p.Country,
		p.Lon,
		p.Lat,
		p.RadiusMeters,
		p.MinSimilarity,
		p.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbor embeddings: %w", err)
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.IncidentID, &n.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor row: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating neighbor rows: %w", err)
	}
	return neighbors, nil
}

// vectorLiteral renders a float32 slice as a pgvector literal, e.g.
// "[0.1,0.2,0.3]". pq does not know the vector type, so the literal is
// passed as a plain string and cast by the column's declared type.
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
