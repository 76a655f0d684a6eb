// File path: internal/executor/executor.go
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/common/telemetry"
	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE", "EXEC", "EXECUTE",
}

// ValidationError reports a query rejected by the read-only policy. Nothing
// was sent to the backend.
type ValidationError struct {
	Query  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "query rejected: " + e.Reason
}

// ExecutionError wraps a backend failure for a query that passed validation.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Backend runs a statement against the structured store.
type Backend interface {
	Query(ctx context.Context, query string) ([]model.Row, error)
}

// Validate applies the read-only policy: the trimmed text must start with
// SELECT and must not contain a mutating keyword anywhere, matched as a
// case-insensitive substring.
func Validate(query string) error {
	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "SELECT") {
		return &ValidationError{Query: query, Reason: "only SELECT queries are allowed"}
	}
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			return &ValidationError{Query: query, Reason: fmt.Sprintf("forbidden keyword %s", keyword)}
		}
	}
	return nil
}

type Executor struct {
	backend Backend
	logger  *slog.Logger
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(backend Backend, opts ...Option) *Executor {
	e := &Executor{backend: backend, logger: common.Logger()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute validates and runs query. Rows come back in backend order and are
// never nil on success.
func (e *Executor) Execute(ctx context.Context, query string) ([]model.Row, error) {
	if err := Validate(query); err != nil {
		telemetry.RecordExecution(true, false)
		e.logger.Warn("executor: query rejected", "error", err)
		return nil, err
	}
	ctx, end := telemetry.StartSpan(ctx, "executor.execute")
	rows, err := e.backend.Query(ctx, strings.TrimSpace(query))
	if err != nil {
		end("error", err)
		telemetry.RecordExecution(false, true)
		e.logger.Error("executor: query failed", "error", err)
		return nil, &ExecutionError{Query: query, Err: err}
	}
	end("rows", len(rows))
	telemetry.RecordExecution(false, false)
	if rows == nil {
		rows = []model.Row{}
	}
	e.logger.Debug("executor: query executed", "rows", len(rows))
	return rows, nil
}
