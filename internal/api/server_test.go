// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/Katral_insight/internal/answer"
	"github.com/nicodishanthj/Katral_insight/internal/conversation"
	"github.com/nicodishanthj/Katral_insight/internal/executor"
	"github.com/nicodishanthj/Katral_insight/internal/intent"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
	"github.com/nicodishanthj/Katral_insight/internal/pipeline"
	"github.com/nicodishanthj/Katral_insight/internal/retriever"
	"github.com/nicodishanthj/Katral_insight/internal/sqlgen"
	"github.com/nicodishanthj/Katral_insight/internal/sqlite"
)

type failingProcessor struct {
	convs conversation.Store
}

func (f failingProcessor) Process(context.Context, string, string) (pipeline.Result, error) {
	return pipeline.Result{}, errors.New("model unavailable")
}

func (f failingProcessor) Conversations() conversation.Store { return f.convs }

func newTestServer(t *testing.T) (*Server, *sqlite.Store) {
	t.Helper()
	cfg := sqlite.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "warehouse.db")
	cfg.Seed = true
	store, err := sqlite.OpenWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base, err := kb.Default()
	require.NoError(t, err)
	exec := executor.New(store)
	hist := store.History()
	p, err := pipeline.New(pipeline.Components{
		Conversations: conversation.NewMemoryStore(),
		Retriever:     retriever.New(kb.NewIndex(base)),
		Generator:     sqlgen.PatternGenerator{},
		Executor:      exec,
		Composer:      answer.PlainComposer{},
	},
		pipeline.WithHistory(hist),
		pipeline.WithResponder(intent.NewResponder(func(int) int { return 0 })),
	)
	require.NoError(t, err)

	srv, err := NewServer(Deps{
		Pipeline:  p,
		Queries:   exec,
		Warehouse: store,
		History:   hist,
		Knowledge: base,
		Health: HealthInfo{
			LLMProvider: "openai",
			LLMModel:    "gpt-4o-mini",
			DatabaseURL: cfg.Path,
			Environment: "test",
			Retrieval:   "lexical",
		},
	})
	require.NoError(t, err)
	return srv, store
}

func doRequest(t *testing.T, srv http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(Deps{})
	require.Error(t, err)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	decode(t, rec, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "openai", health["llm_provider"])
	assert.Equal(t, false, health["llm_configured"])
	assert.Equal(t, "test", health["environment"])

	rec = doRequest(t, srv, http.MethodGet, "/v1/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs map[string][]interface{}
	decode(t, rec, &logs)
	assert.Contains(t, logs, "entries")

	rec = doRequest(t, srv, http.MethodGet, "/debug/vars", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatRoundTripAndConversationLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", chatRequest{Message: "What is the total sales?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result pipeline.Result
	decode(t, rec, &result)
	require.NotEmpty(t, result.ConversationID)
	assert.Equal(t, "What is the total sales amount?", result.RefinedQuestion)
	assert.Contains(t, result.SQL, "SUM(amount)")
	require.Len(t, result.Table, 1)
	assert.True(t, strings.HasPrefix(result.FinalAnswer, "The result is: "), result.FinalAnswer)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/conversation/"+result.ConversationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conv conversation.Conversation
	decode(t, rec, &conv)
	assert.Equal(t, result.ConversationID, conv.ID)
	assert.Len(t, conv.Messages, 2)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chat/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions historyResponse
	decode(t, rec, &sessions)
	require.Equal(t, 1, sessions.Total)
	assert.Equal(t, "What is the total sales?", sessions.Sessions[0].Title)
	assert.Equal(t, 2, sessions.Sessions[0].MessageCount)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chat/history/"+result.ConversationID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages historyMessagesResponse
	decode(t, rec, &messages)
	assert.Equal(t, result.ConversationID, messages.ConversationID)
	require.Len(t, messages.Messages, 2)
	assert.Equal(t, result.SQL, messages.Messages[1].SQL)

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/conversation/"+result.ConversationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted messageResponse
	decode(t, rec, &deleted)
	assert.Equal(t, "Conversation deleted successfully", deleted.Message)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/conversation/"+result.ConversationID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/conversation/"+result.ConversationID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chat/history/"+result.ConversationID+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", chatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatPipelineFailureIsServerError(t *testing.T) {
	_, store := newTestServer(t)
	srv, err := NewServer(Deps{
		Pipeline:  failingProcessor{convs: conversation.NewMemoryStore()},
		Queries:   executor.New(store),
		Warehouse: store,
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", chatRequest{Message: "total sales"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Contains(t, body["error"], "model unavailable")

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chat/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "history endpoints need a backend")
}

func TestHistoryTitleUpdates(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", chatRequest{Message: "How many orders were placed?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result pipeline.Result
	decode(t, rec, &result)

	target := "/api/v1/chat/history/" + result.ConversationID + "/title?title=" + url.QueryEscape("Order volume")
	rec = doRequest(t, srv, http.MethodPut, target, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPut, "/api/v1/chat/history/"+result.ConversationID+"/title", titleRequest{Title: "Orders"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chat/history?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions historyResponse
	decode(t, rec, &sessions)
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, "Orders", sessions.Sessions[0].Title)

	rec = doRequest(t, srv, http.MethodPut, "/api/v1/chat/history/missing/title?title=x", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, srv, http.MethodPut, "/api/v1/chat/history/"+result.ConversationID+"/title", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chat/history?days=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/chat/history/"+result.ConversationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/chat/history/"+result.ConversationID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuerySQL(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/query/sql?sql="+url.QueryEscape("SELECT COUNT(*) AS n FROM regions"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out queryResponse
	decode(t, rec, &out)
	require.Equal(t, 1, out.Count)
	assert.EqualValues(t, 5, out.Results[0].Value("n"))

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query/sql", sqlRequest{SQL: "SELECT 100 AS total_sales, 'Dhaka' AS region"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `[{"total_sales":100,"region":"Dhaka"}]`)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query/sql", sqlRequest{SQL: "SELECT name FROM products ORDER BY id LIMIT 2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &out)
	assert.Equal(t, 2, out.Count)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query/sql", sqlRequest{SQL: "DELETE FROM sales"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query/sql", sqlRequest{SQL: "SELECT * FROM missing_table"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/query/sql", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWarehouseBrowsing(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/database/tables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tables databaseTablesResponse
	decode(t, rec, &tables)
	assert.Equal(t, sqlite.WarehouseTables, tables.Tables)
	require.Len(t, tables.Stats, len(sqlite.WarehouseTables))
	for _, stat := range tables.Stats {
		if stat.Name == "sales" {
			assert.EqualValues(t, 36, stat.Rows)
		}
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var schema map[string]map[string][]sqlite.Column
	decode(t, rec, &schema)
	require.Contains(t, schema["schema"], "sales")
	assert.NotEmpty(t, schema["schema"]["sales"])

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/database/tables/sales?limit=5&offset=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page tableDataResponse
	decode(t, rec, &page)
	assert.Equal(t, "sales", page.Table)
	assert.EqualValues(t, 36, page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 10, page.Offset)
	require.Len(t, page.Data, 5)
	assert.EqualValues(t, 11, page.Data[0].Value("id"))
	assert.NotEmpty(t, page.Columns)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/database/tables/sqlite_master", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/database/tables/sales?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKnowledgeListings(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var metrics metricsResponse
	decode(t, rec, &metrics)
	require.NotEmpty(t, metrics.Metrics)
	for _, metric := range metrics.Metrics {
		assert.NotEmpty(t, metric.ID)
		assert.NotEqual(t, "Unknown", metric.Name)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/tables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tables tablesResponse
	decode(t, rec, &tables)
	require.NotEmpty(t, tables.Tables)
}
