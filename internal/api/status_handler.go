// File path: internal/api/status_handler.go
package api

import (
	"net/http"
	"sort"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		LLMProvider:   s.health.LLMProvider,
		LLMModel:      s.health.LLMModel,
		LLMConfigured: s.health.LLMConfigured,
		DatabaseURL:   s.health.DatabaseURL,
		Environment:   s.health.Environment,
		Retrieval:     s.health.Retrieval,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metricsResponse{Metrics: s.knowledge.Summaries(kb.CategoryMetrics, "metric_name")})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tablesResponse{Tables: s.knowledge.Summaries(kb.CategoryDictionary, "table_name")})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := append([]common.LogEntry(nil), common.LogEntries()...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Time.Equal(entries[j].Time) {
			if entries[i].Component == entries[j].Component {
				return entries[i].Message < entries[j].Message
			}
			return entries[i].Component < entries[j].Component
		}
		return entries[i].Time.Before(entries[j].Time)
	})
	if entries == nil {
		entries = []common.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
