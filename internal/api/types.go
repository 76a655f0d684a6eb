// File path: internal/api/types.go
package api

import (
	"github.com/nicodishanthj/Katral_insight/internal/history"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
	"github.com/nicodishanthj/Katral_insight/internal/sqlite"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type historyResponse struct {
	Sessions []history.Session `json:"sessions"`
	Total    int               `json:"total"`
}

type historyMessagesResponse struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []model.Message `json:"messages"`
}

type healthResponse struct {
	Status        string `json:"status"`
	LLMProvider   string `json:"llm_provider"`
	LLMModel      string `json:"llm_model"`
	LLMConfigured bool   `json:"llm_configured"`
	DatabaseURL   string `json:"database_url"`
	Environment   string `json:"environment"`
	Retrieval     string `json:"retrieval,omitempty"`
}

type queryResponse struct {
	Results []model.Row `json:"results"`
	Count   int         `json:"count"`
}

type tableDataResponse struct {
	Table   string          `json:"table"`
	Columns []sqlite.Column `json:"columns"`
	Data    []model.Row     `json:"data"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type metricsResponse struct {
	Metrics []kb.Summary `json:"metrics"`
}

type tablesResponse struct {
	Tables []kb.Summary `json:"tables"`
}

type databaseTablesResponse struct {
	Tables []string           `json:"tables"`
	Stats  []sqlite.TableStat `json:"stats"`
}
