// File: internal/nl2sql/service.go
package nl2sql

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/genai"
)

// Service drives the query-generation pipeline: prompt construction,
// generation, sanitization, table extraction, safety gate, and execution.
// Each Generate call is independent; the service keeps no per-request state.
type Service struct {
	dbAdapter database.DBAdapter
	generator genai.SQLGenerator
	cfg       Config
}

// Config tunes the per-request timeouts and the generation retry policy.
type Config struct {
	GenerationTimeout time.Duration
	StatementTimeout  time.Duration
	Retry             RetryOptions
}

func NewService(db database.DBAdapter, generator genai.SQLGenerator, cfg Config) *Service {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryOptions
	}
	return &Service{
		dbAdapter: db,
		generator: generator,
		cfg:       cfg,
	}
}

// Request carries one natural-language question. Created per incoming call,
// discarded after the response.
type Request struct {
	Question string `json:"question"`
}

// Result is the response payload for one request. Exactly one of Result or
// Error is populated.
type Result struct {
	Question   string              `json:"question"`
	SQL        string              `json:"sql"`
	TablesUsed []string            `json:"tables_used"`
	Result     *database.ResultSet `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Generate runs the full pipeline for one question. The returned Result is
// always well-formed; when the pipeline fails, Result.Error carries the
// message and the typed error is also returned so callers can classify it.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{
		Question:   req.Question,
		TablesUsed: []string{},
	}

	if strings.TrimSpace(req.Question) == "" {
		err := &ErrGeneration{Msg: "question must not be empty", Err: nil}
		result.Error = err.Error()
		return result, err
	}

	if err := s.dbAdapter.Ping(ctx); err != nil {
		connErr := &ErrConnection{Msg: "database is unreachable", Err: err}
		result.Error = connErr.Error()
		return result, connErr
	}

	snapshot, err := s.dbAdapter.Snapshot(ctx)
	if err != nil {
		schemaErr := &ErrSchema{Msg: "failed to reflect schema", Err: err}
		result.Error = schemaErr.Error()
		return result, schemaErr
	}

	sqlText, err := s.generateStatement(ctx, snapshot, req.Question)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.SQL = sqlText
	result.TablesUsed = TablesUsed(sqlText, snapshot)

	decision := GateStatement(sqlText)
	if !decision.Allowed {
		rejected := &ErrSafetyRejected{SQL: sqlText, Reason: decision.Reason}
		log.Printf("INFO: Safety gate rejected statement (%s): %s", decision.Reason, sqlText)
		result.Error = rejected.Error()
		return result, rejected
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.StatementTimeout)
	defer cancel()
	rows, err := s.dbAdapter.ExecuteSelect(execCtx, sqlText)
	if err != nil {
		execErr := &ErrExecution{SQL: sqlText, Err: err}
		result.Error = execErr.Error()
		return result, execErr
	}

	result.Result = rows
	return result, nil
}

// generateStatement performs the model call with bounded retry and
// sanitizes the raw response into a single-line statement.
func (s *Service) generateStatement(ctx context.Context, snapshot database.Snapshot, question string) (string, error) {
	prompt := BuildPrompt(snapshot, question)

	raw, err := withRetry(ctx, s.cfg.Retry, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
		return s.generator.GenerateSQL(callCtx, prompt)
	})
	if err != nil {
		return "", &ErrGeneration{Msg: "model call failed", Err: err}
	}

	sqlText := CleanStatement(raw)
	if sqlText == "" {
		return "", &ErrGeneration{Msg: "model returned empty statement", Err: fmt.Errorf("raw response: %q", raw)}
	}
	return sqlText, nil
}
