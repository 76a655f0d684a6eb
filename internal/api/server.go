// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/conversation"
	"github.com/nicodishanthj/Katral_insight/internal/history"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
	"github.com/nicodishanthj/Katral_insight/internal/pipeline"
	"github.com/nicodishanthj/Katral_insight/internal/sqlite"
)

// Processor answers one question within a conversation.
type Processor interface {
	Process(ctx context.Context, question, conversationID string) (pipeline.Result, error)
	Conversations() conversation.Store
}

// QueryRunner executes caller supplied read-only SQL.
type QueryRunner interface {
	Execute(ctx context.Context, query string) ([]model.Row, error)
}

// Warehouse exposes the browsing operations of the sales database.
type Warehouse interface {
	Schema(ctx context.Context) ([]sqlite.TableSchema, error)
	TableRows(ctx context.Context, table string, limit, offset int) (sqlite.TablePage, error)
	TableStats(ctx context.Context) ([]sqlite.TableStat, error)
}

// HealthInfo is reported verbatim by the health endpoint.
type HealthInfo struct {
	LLMProvider   string
	LLMModel      string
	LLMConfigured bool
	DatabaseURL   string
	Environment   string
	Retrieval     string
}

// Deps are the collaborators the server routes to. History and Knowledge
// may be nil.
type Deps struct {
	Pipeline  Processor
	Queries   QueryRunner
	Warehouse Warehouse
	History   history.Store
	Knowledge *kb.Base
	Health    HealthInfo
}

type Server struct {
	router    chi.Router
	pipeline  Processor
	queries   QueryRunner
	warehouse Warehouse
	history   history.Store
	knowledge *kb.Base
	health    HealthInfo
	now       func() time.Time
}

func NewServer(deps Deps) (*Server, error) {
	logger := common.Logger()
	if deps.Pipeline == nil {
		return nil, errors.New("pipeline required")
	}
	if deps.Queries == nil {
		return nil, errors.New("query runner required")
	}
	if deps.Warehouse == nil {
		return nil, errors.New("warehouse required")
	}
	srv := &Server{
		router:    chi.NewRouter(),
		pipeline:  deps.Pipeline,
		queries:   deps.Queries,
		warehouse: deps.Warehouse,
		history:   deps.History,
		knowledge: deps.Knowledge,
		health:    deps.Health,
		now:       time.Now,
	}
	logger.Info(
		"api: building server",
		"llm_provider", deps.Health.LLMProvider,
		"llm_configured", deps.Health.LLMConfigured,
		"history", deps.History != nil,
		"knowledge_items", deps.Knowledge.Len(),
	)
	srv.routes()
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(middleware.RequestID, middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr, "request_id", middleware.GetReqID(r.Context()))
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/v1/logs", s.handleLogs)
	s.router.Handle("/debug/vars", expvar.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/conversation/{id}", s.handleGetConversation)
		r.Delete("/conversation/{id}", s.handleDeleteConversation)

		r.Get("/chat/history", s.handleHistory)
		r.Get("/chat/history/{id}/messages", s.handleHistoryMessages)
		r.Put("/chat/history/{id}/title", s.handleUpdateTitle)
		r.Delete("/chat/history/{id}", s.handleDeleteHistory)

		r.Get("/health", s.handleHealth)
		r.Get("/schema", s.handleSchema)
		r.Post("/query/sql", s.handleQuerySQL)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/tables", s.handleTables)
		r.Get("/database/tables", s.handleDatabaseTables)
		r.Get("/database/tables/{name}", s.handleTableData)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
