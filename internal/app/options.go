// File path: internal/app/options.go
package app

import (
	"github.com/nicodishanthj/Katral_insight/internal/history"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
	"github.com/nicodishanthj/Katral_insight/internal/llm"
	"github.com/nicodishanthj/Katral_insight/internal/sqlgen"
	"github.com/nicodishanthj/Katral_insight/internal/sqlite"
	"github.com/nicodishanthj/Katral_insight/internal/vector"
)

type Option func(*options)

type options struct {
	llm       *llm.Config
	sqlite    *sqlite.Config
	vector    *vector.Config
	history   *history.Config
	transport sqlgen.Transport
	searcher  kb.Searcher
	embedder  vector.Embedder
}

// WithLLMConfig replaces the LLM_* environment configuration.
func WithLLMConfig(cfg llm.Config) Option {
	return func(o *options) {
		o.llm = &cfg
	}
}

// WithSQLiteConfig replaces the SQLITE_* environment configuration.
func WithSQLiteConfig(cfg sqlite.Config) Option {
	return func(o *options) {
		o.sqlite = &cfg
	}
}

// WithVectorConfig replaces the CHROMADB_* environment configuration.
func WithVectorConfig(cfg vector.Config) Option {
	return func(o *options) {
		o.vector = &cfg
	}
}

// WithHistoryConfig replaces the HISTORY_* environment configuration.
func WithHistoryConfig(cfg history.Config) Option {
	return func(o *options) {
		o.history = &cfg
	}
}

// WithTransport injects the model transport used for SQL generation and
// answer composition, bypassing provider selection. Primarily used in tests.
func WithTransport(transport sqlgen.Transport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithSearcher injects the knowledge search backend.
func WithSearcher(searcher kb.Searcher) Option {
	return func(o *options) {
		o.searcher = searcher
	}
}

// WithEmbedder injects the embedder used when Chroma retrieval is enabled.
func WithEmbedder(embedder vector.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}
