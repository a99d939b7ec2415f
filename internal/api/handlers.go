package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/STRATINT/stratint/internal/ingest"
	"github.com/STRATINT/stratint/internal/models"
	"github.com/STRATINT/stratint/internal/spatial"
)

// Handler serves the two public operations spec §6 names: the ingest write
// path and the read-side incident listing.
type Handler struct {
	pipeline *ingest.Pipeline
	store    *spatial.Store
	logger   *slog.Logger
}

func NewHandler(pipeline *ingest.Pipeline, store *spatial.Store, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, store: store, logger: logger}
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
	Detail   string `json:"detail"`
}

type ingestResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	EvidenceScore int    `json:"evidence_score"`
}

// Ingest handles POST /ingest.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ingest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", "request body is not valid JSON")
		return
	}

	outcome, ingestErr := h.pipeline.Process(r.Context(), req)
	if ingestErr != nil {
		h.writeError(w, ingestErr.HTTPStatus(), ingestErr.Category, ingestErr.Detail)
		return
	}

	incident, err := h.store.GetByID(r.Context(), outcome.IncidentID)
	if err != nil || incident == nil {
		h.logger.Error("failed to reload incident after write", "incident_id", outcome.IncidentID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "store_failure", "generic")
		return
	}

	status := http.StatusOK
	statusLabel := "merged"
	if outcome.Created {
		status = http.StatusCreated
		statusLabel = "created"
	}

	h.writeJSON(w, status, ingestResponse{
		ID:            incident.ID,
		Status:        statusLabel,
		EvidenceScore: incident.EvidenceScore,
	})
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	incidents, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list incidents", "error", err)
		h.writeError(w, http.StatusInternalServerError, "store_failure", "generic")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Incidents []models.Incident `json:"incidents"`
		Count     int                `json:"count"`
	}{Incidents: incidents, Count: len(incidents)})
}

func parseListFilter(r *http.Request) (spatial.ListFilter, error) {
	q := r.URL.Query()
	filter := spatial.ListFilter{
		Country:   q.Get("country"),
		AssetType: q.Get("asset_type"),
		Status:    q.Get("status"),
		Limit:     50,
	}

	if raw := q.Get("min_evidence"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("min_evidence must be an integer")
		}
		filter.MinEvidence = v
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("since must be RFC3339")
		}
		filter.Since = &since
	}

	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = v
	}

	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = v
	}

	return filter, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, category, detail string) {
	h.writeJSON(w, status, errorResponse{Error: strings.ToLower(http.StatusText(status)), Category: category, Detail: detail})
}
