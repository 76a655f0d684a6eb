// File path: internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/server"

	"github.com/nicodishanthj/Katral_insight/internal/answer"
	"github.com/nicodishanthj/Katral_insight/internal/api"
	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/conversation"
	"github.com/nicodishanthj/Katral_insight/internal/executor"
	"github.com/nicodishanthj/Katral_insight/internal/history"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
	"github.com/nicodishanthj/Katral_insight/internal/llm"
	"github.com/nicodishanthj/Katral_insight/internal/mcpserver"
	"github.com/nicodishanthj/Katral_insight/internal/pipeline"
	"github.com/nicodishanthj/Katral_insight/internal/retriever"
	"github.com/nicodishanthj/Katral_insight/internal/sqlgen"
	"github.com/nicodishanthj/Katral_insight/internal/sqlite"
	"github.com/nicodishanthj/Katral_insight/internal/vector"
)

const (
	RetrievalChroma  = "chroma"
	RetrievalLexical = "lexical"
	RetrievalCustom  = "custom"
)

type closer interface {
	Close() error
}

// App wires the warehouse, knowledge base, model transport and history
// backend into a pipeline and exposes the serving surfaces built on it.
type App struct {
	cfg Config

	warehouse *sqlite.Store
	history   history.Store
	knowledge *kb.Base
	executor  *executor.Executor
	pipeline  *pipeline.Pipeline
	health    api.HealthInfo

	closers []closer
}

// New constructs the application from cfg. Component configuration is read
// from the environment unless overridden through opts.
func New(ctx context.Context, cfg Config, opts ...Option) (_ *App, err error) {
	logger := common.Logger()
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				logger.Warn("app: cleanup after failed start", "error", cerr)
			}
		}
	}()

	sqliteCfg, err := resolveSQLiteConfig(settings, cfg)
	if err != nil {
		return nil, err
	}
	warehouse, err := sqlite.OpenWithConfig(sqliteCfg)
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}
	a.warehouse = warehouse
	a.closers = append(a.closers, warehouse)

	hist, err := openHistory(ctx, settings, warehouse)
	if err != nil {
		return nil, err
	}
	if hist != nil {
		a.history = hist
		a.closers = append(a.closers, hist)
	}

	knowledge, err := loadKnowledge(cfg.KnowledgeFile)
	if err != nil {
		return nil, err
	}
	a.knowledge = knowledge

	var llmCfg llm.Config
	if settings.llm != nil {
		llmCfg = *settings.llm
	} else {
		loaded, err := llm.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load llm config: %w", err)
		}
		llmCfg = loaded
	}

	searcher, retrieval, err := a.buildSearcher(ctx, settings, llmCfg)
	if err != nil {
		return nil, err
	}

	var (
		generator sqlgen.Generator
		composer  answer.Composer
	)
	transport := settings.transport
	if transport == nil && llmCfg.Configured() {
		t, err := llm.New(llmCfg)
		if err != nil {
			return nil, fmt.Errorf("init llm transport: %w", err)
		}
		transport = t
	}
	configured := transport != nil
	if configured {
		generator = sqlgen.NewClient(transport, logger)
		composer = answer.NewLLMComposer(transport)
	} else {
		logger.Warn("app: no language model configured, using pattern matching", "provider", llmCfg.Provider)
		generator = sqlgen.PatternGenerator{}
		composer = answer.PlainComposer{}
	}

	a.executor = executor.New(warehouse)
	pipelineOpts := []pipeline.Option{pipeline.WithTopK(cfg.TopK)}
	if a.history != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithHistory(a.history))
	}
	p, err := pipeline.New(pipeline.Components{
		Conversations: conversation.NewMemoryStore(),
		Retriever:     retriever.New(searcher, retriever.WithCacheSize(cfg.CacheSize)),
		Generator:     generator,
		Executor:      a.executor,
		Composer:      composer,
	}, pipelineOpts...)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	a.pipeline = p
	a.health = api.HealthInfo{
		LLMProvider:   llmCfg.Provider,
		LLMModel:      llmCfg.Model,
		LLMConfigured: configured,
		DatabaseURL:   "sqlite:///" + sqliteCfg.Path,
		Environment:   cfg.Environment,
		Retrieval:     retrieval,
	}
	logger.Info("app: ready",
		"llm_provider", llmCfg.Provider,
		"llm_configured", configured,
		"retrieval", retrieval,
		"history", a.history != nil,
		"knowledge_items", knowledge.Len(),
	)
	return a, nil
}

func resolveSQLiteConfig(settings options, cfg Config) (sqlite.Config, error) {
	var sqliteCfg sqlite.Config
	if settings.sqlite != nil {
		sqliteCfg = *settings.sqlite
	} else {
		loaded, err := sqlite.LoadConfig()
		if err != nil {
			return sqlite.Config{}, fmt.Errorf("load sqlite config: %w", err)
		}
		sqliteCfg = loaded
	}
	if cfg.Seed {
		sqliteCfg.Seed = true
	}
	return sqliteCfg, nil
}

func openHistory(ctx context.Context, settings options, warehouse *sqlite.Store) (history.Store, error) {
	histCfg := history.DefaultConfig()
	if settings.history != nil {
		histCfg = histCfg.Merge(*settings.history)
	} else {
		loaded, err := history.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load history config: %w", err)
		}
		histCfg = loaded
	}
	switch histCfg.Backend {
	case history.BackendNone:
		return nil, nil
	case history.BackendRedis:
		store, err := history.NewRedis(ctx, histCfg)
		if err != nil {
			return nil, fmt.Errorf("init redis history: %w", err)
		}
		return store, nil
	case history.BackendFile:
		store, err := history.NewFileStore(histCfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init file history: %w", err)
		}
		return store, nil
	default:
		return warehouse.History(), nil
	}
}

func loadKnowledge(path string) (*kb.Base, error) {
	if strings.TrimSpace(path) == "" {
		base, err := kb.Default()
		if err != nil {
			return nil, fmt.Errorf("load embedded knowledge: %w", err)
		}
		return base, nil
	}
	base, err := kb.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load knowledge %s: %w", path, err)
	}
	return base, nil
}

// buildSearcher prefers Chroma when it is enabled, an embedder exists and
// the knowledge loads into it; otherwise the in-memory index serves search.
func (a *App) buildSearcher(ctx context.Context, settings options, llmCfg llm.Config) (kb.Searcher, string, error) {
	logger := common.Logger()
	if settings.searcher != nil {
		return settings.searcher, RetrievalCustom, nil
	}
	index := kb.NewIndex(a.knowledge)
	var vecCfg vector.Config
	if settings.vector != nil {
		vecCfg = *settings.vector
	} else {
		loaded, err := vector.LoadConfig()
		if err != nil {
			return nil, "", fmt.Errorf("load vector config: %w", err)
		}
		vecCfg = loaded
	}
	if !vecCfg.Enabled {
		return index, RetrievalLexical, nil
	}
	embedder := settings.embedder
	if embedder == nil {
		e, err := llm.NewEmbedder(llmCfg)
		if err != nil {
			logger.Warn("app: chromadb enabled without embeddings, using lexical index", "error", err)
			return index, RetrievalLexical, nil
		}
		embedder = e
	}
	client, err := vector.New(ctx, vecCfg, embedder)
	if err != nil {
		return nil, "", fmt.Errorf("init vector client: %w", err)
	}
	a.closers = append(a.closers, client)
	if !client.Available() {
		logger.Warn("app: chromadb unreachable, using lexical index", "url", vecCfg.BaseURL())
		return index, RetrievalLexical, nil
	}
	if err := client.Load(ctx, a.knowledge); err != nil {
		logger.Warn("app: chromadb knowledge load failed, using lexical index", "error", err)
		return index, RetrievalLexical, nil
	}
	return client, RetrievalChroma, nil
}

// Pipeline exposes the configured query pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	if a == nil {
		return nil
	}
	return a.pipeline
}

// Warehouse exposes the sales database.
func (a *App) Warehouse() *sqlite.Store {
	if a == nil {
		return nil
	}
	return a.warehouse
}

// History exposes the history backend; nil when history is disabled.
func (a *App) History() history.Store {
	if a == nil {
		return nil
	}
	return a.history
}

// Health reports the values served by the health endpoint.
func (a *App) Health() api.HealthInfo {
	if a == nil {
		return api.HealthInfo{}
	}
	return a.health
}

// APIServer builds the HTTP API over the application.
func (a *App) APIServer() (*api.Server, error) {
	if a == nil || a.pipeline == nil {
		return nil, errors.New("app not initialised")
	}
	return api.NewServer(api.Deps{
		Pipeline:  a.pipeline,
		Queries:   a.executor,
		Warehouse: a.warehouse,
		History:   a.history,
		Knowledge: a.knowledge,
		Health:    a.health,
	})
}

// MCPServer builds the MCP tool server over the application.
func (a *App) MCPServer() (*mcpgo.MCPServer, error) {
	if a == nil || a.pipeline == nil {
		return nil, errors.New("app not initialised")
	}
	return mcpserver.New(a.pipeline, a.executor, a.knowledge)
}

// Close releases any resources associated with the application.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		closer := a.closers[i]
		if closer == nil {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	a.closers = nil
	return err
}
