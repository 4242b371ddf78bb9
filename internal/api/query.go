package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
)

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request nl2sql.Request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body: "+err.Error())
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required")
		return
	}

	result, err := deps.Generator.Generate(r.Context(), request)
	observability.RecordGeneration(outcomeLabel(err))

	// Pipeline failures are carried in the payload, not the status code;
	// the caller always receives a well-formed response object.
	writeJSON(w, http.StatusOK, result)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "executed"
	}
	var (
		rejected   *nl2sql.ErrSafetyRejected
		execution  *nl2sql.ErrExecution
		generation *nl2sql.ErrGeneration
		schema     *nl2sql.ErrSchema
		connection *nl2sql.ErrConnection
	)
	switch {
	case errors.As(err, &rejected):
		return "rejected"
	case errors.As(err, &execution):
		return "execution_failed"
	case errors.As(err, &generation):
		return "generation_failed"
	case errors.As(err, &schema):
		return "schema_failed"
	case errors.As(err, &connection):
		return "connection_failed"
	default:
		return "failed"
	}
}
