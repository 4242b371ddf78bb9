package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
)

// QueryGenerator is the slice of the nl2sql service the handlers need.
type QueryGenerator interface {
	Generate(ctx context.Context, req nl2sql.Request) (*nl2sql.Result, error)
}

// Dependencies wires the handler to its collaborators.
type Dependencies struct {
	Logger    *zap.Logger
	Generator QueryGenerator
	DB        database.DBAdapter
}

// NewHandler builds the HTTP surface: query generation, schema reflection,
// liveness, and metrics, wrapped in logging and metrics middleware.
func NewHandler(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})

	mux.HandleFunc("GET /api/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})

	var handler http.Handler = mux
	handler = corsMiddleware(handler)
	handler = observability.MetricsMiddleware(handler)
	if deps.Logger != nil {
		handler = observability.LoggingMiddleware(deps.Logger)(handler)
	}
	return handler
}

// corsMiddleware mirrors the permissive CORS policy the UI expects.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	snapshot, err := deps.DB.Snapshot(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SCHEMA_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
