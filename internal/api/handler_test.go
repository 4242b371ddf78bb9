package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	result *nl2sql.Result
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, req nl2sql.Request) (*nl2sql.Result, error) {
	res := s.result
	if res == nil {
		res = &nl2sql.Result{Question: req.Question, TablesUsed: []string{}}
		if s.err != nil {
			res.Error = s.err.Error()
		}
	}
	return res, s.err
}

type stubDB struct {
	snapshot database.Snapshot
	err      error
}

func (s *stubDB) ListTables(ctx context.Context) ([]string, error) {
	return s.snapshot.TableNames(), s.err
}

func (s *stubDB) DescribeTable(ctx context.Context, tableName string) (database.TableInfo, error) {
	return s.snapshot[tableName], s.err
}

func (s *stubDB) Snapshot(ctx context.Context) (database.Snapshot, error) {
	return s.snapshot, s.err
}

func (s *stubDB) DependencyOrder(ctx context.Context) ([]string, error) {
	return s.snapshot.DependencyOrder()
}

func (s *stubDB) ExecuteSelect(ctx context.Context, query string) (*database.ResultSet, error) {
	return nil, errors.New("not used")
}

func (s *stubDB) Ping(ctx context.Context) error { return s.err }
func (s *stubDB) Close() error                   { return nil }
func (s *stubDB) GetConfig() config.DatabaseConfig {
	return config.DatabaseConfig{Dialect: "mysql"}
}

func newTestHandler(gen QueryGenerator, db database.DBAdapter) http.Handler {
	return NewHandler(Dependencies{
		Logger:    zap.NewNop(),
		Generator: gen,
		DB:        db,
	})
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(&stubGenerator{}, &stubDB{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestQueryEndpointSuccess(t *testing.T) {
	gen := &stubGenerator{
		result: &nl2sql.Result{
			Question:   "How many customers are there?",
			SQL:        "SELECT COUNT(*) FROM customers",
			TablesUsed: []string{"customers"},
			Result: &database.ResultSet{
				Columns: []string{"count"},
				Rows:    []map[string]any{{"count": 500}},
			},
		},
	}
	handler := newTestHandler(gen, &stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question": "How many customers are there?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result nl2sql.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "SELECT COUNT(*) FROM customers", result.SQL)
	assert.Equal(t, []string{"customers"}, result.TablesUsed)
	assert.Empty(t, result.Error)
	require.NotNil(t, result.Result)
}

func TestQueryEndpointPipelineFailureStillReturns200(t *testing.T) {
	rejected := &nl2sql.ErrSafetyRejected{SQL: "DROP TABLE customers", Reason: "contains denied keyword DROP"}
	gen := &stubGenerator{
		result: &nl2sql.Result{
			Question:   "Drop everything",
			SQL:        "DROP TABLE customers",
			TablesUsed: []string{"customers"},
			Error:      rejected.Error(),
		},
		err: rejected,
	}
	handler := newTestHandler(gen, &stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question": "Drop everything"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result nl2sql.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.Result)
}

func TestQueryEndpointMalformedBody(t *testing.T) {
	handler := newTestHandler(&stubGenerator{}, &stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": `))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_JSON", body["error"]["code"])
}

func TestQueryEndpointUnknownField(t *testing.T) {
	handler := newTestHandler(&stubGenerator{}, &stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question": "x", "mode": "raw"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryEndpointEmptyQuestion(t *testing.T) {
	handler := newTestHandler(&stubGenerator{}, &stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "   "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "QUESTION_REQUIRED", body["error"]["code"])
}

func TestSchemaEndpoint(t *testing.T) {
	db := &stubDB{
		snapshot: database.Snapshot{
			"customers": {
				Name:        "customers",
				Columns:     []database.ColumnInfo{{Name: "id", DataType: "int"}},
				PrimaryKeys: []string{"id"},
			},
		},
	}
	handler := newTestHandler(&stubGenerator{}, db)

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot map[string]database.TableInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	require.Contains(t, snapshot, "customers")
	assert.Equal(t, "id", snapshot["customers"].Columns[0].Name)
}

func TestSchemaEndpointReflectionFailure(t *testing.T) {
	handler := newTestHandler(&stubGenerator{}, &stubDB{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(&stubGenerator{}, &stubDB{})

	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(&stubGenerator{}, &stubDB{})

	// Drive one request through the middleware so the counter has a sample.
	warmup := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), warmup)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "askdb_http_requests_total")
}
