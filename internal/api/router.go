package api

import (
	"database/sql"
	"net/http"

	"github.com/STRATINT/stratint/internal/auth"
	"github.com/STRATINT/stratint/internal/config"
	"github.com/STRATINT/stratint/internal/database"
	"github.com/STRATINT/stratint/internal/ingest"
	"github.com/STRATINT/stratint/internal/ratelimit"
	"github.com/STRATINT/stratint/internal/spatial"
	"log/slog"
)

// SetupRoutes wires the ingest write path and the read-side incident
// listing onto mux, applying CORS, auth, and rate limiting in the order
// spec §4.11/§6 expects: CORS preflight first, then rate limit, then auth,
// so a throttled or disallowed caller never reaches the bearer-token check.
func SetupRoutes(mux *http.ServeMux, pipeline *ingest.Pipeline, store *spatial.Store, db *sql.DB, authCfg auth.Config, corsCfg config.CORSConfig, limiter *ratelimit.Limiter, logger *slog.Logger) {
	handler := NewHandler(pipeline, store, logger)
	authMiddleware := auth.Middleware(authCfg, logger)

	ingestChain := cors(corsCfg, http.MethodPost)(
		limiter.Middleware(
			authMiddleware(http.HandlerFunc(handler.Ingest)),
		),
	)
	mux.Handle("/ingest", ingestChain)

	mux.Handle("/incidents", cors(corsCfg, http.MethodGet)(http.HandlerFunc(handler.ListIncidents)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context(), db); err != nil {
			logger.Error("health check failed", "error", err)
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
}

// cors enforces the allow-list from ALLOWED_ORIGINS and handles preflight.
// An empty ALLOWED_ORIGINS config allows every origin (dev default).
func cors(cfg config.CORSConfig, methods ...string) func(http.Handler) http.Handler {
	allowedMethods := ""
	for i, m := range methods {
		if i > 0 {
			allowedMethods += ", "
		}
		allowedMethods += m
	}
	allowedMethods += ", OPTIONS"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if !cfg.Allowed(origin) {
					http.Error(w, `{"error":"forbidden","detail":"origin not allowed"}`, http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
