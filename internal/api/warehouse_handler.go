// File path: internal/api/warehouse_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/executor"
	"github.com/nicodishanthj/Katral_insight/internal/sqlite"
)

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	tables, err := s.warehouse.Schema(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	schema := make(map[string][]sqlite.Column, len(tables))
	for _, table := range tables {
		schema[table.Name] = table.Columns
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schema": schema})
}

// handleQuerySQL runs caller supplied SQL through the executor, so the same
// read-only policy as the pipeline applies. The statement may arrive as the
// sql query parameter or a JSON body.
func (s *Server) handleQuerySQL(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	query := strings.TrimSpace(r.URL.Query().Get("sql"))
	if query == "" && r.Body != nil && r.ContentLength != 0 {
		var req sqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode sql request: %w", err))
			return
		}
		query = strings.TrimSpace(req.SQL)
	}
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("sql required"))
		return
	}
	rows, err := s.queries.Execute(r.Context(), query)
	if err != nil {
		var invalid *executor.ValidationError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("api: sql executed", "rows", len(rows))
	writeJSON(w, http.StatusOK, queryResponse{Results: rows, Count: len(rows)})
}

func (s *Server) handleDatabaseTables(w http.ResponseWriter, r *http.Request) {
	stats, err := s.warehouse.TableStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	names := make([]string, 0, len(stats))
	for _, stat := range stats {
		names = append(names, stat.Name)
	}
	writeJSON(w, http.StatusOK, databaseTablesResponse{Tables: names, Stats: stats})
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	page, err := s.warehouse.TableRows(ctx, name, limit, offset)
	if errors.Is(err, sqlite.ErrUnknownTable) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid table name: %s", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	tables, err := s.warehouse.Schema(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	columns := []sqlite.Column{}
	for _, table := range tables {
		if table.Name == page.Table {
			columns = table.Columns
			break
		}
	}
	writeJSON(w, http.StatusOK, tableDataResponse{
		Table:   page.Table,
		Columns: columns,
		Data:    page.Rows,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

func intParam(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return value, nil
}
