// File path: internal/retriever/retriever.go
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/common/telemetry"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
)

// NoContext is returned instead of an empty string when nothing matched.
const NoContext = "No relevant context found."

const defaultTopK = 5

// Retriever ranks knowledge across every category and renders it as prompt
// context.
type Retriever struct {
	searcher kb.Searcher
	cache    *hitCache
	logger   *slog.Logger
}

type Option func(*Retriever)

// WithCacheSize keeps the last size ranked results in memory. Zero disables
// caching.
func WithCacheSize(size int) Option {
	return func(r *Retriever) {
		r.cache = newHitCache(size)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(searcher kb.Searcher, opts ...Option) *Retriever {
	r := &Retriever{
		searcher: searcher,
		cache:    newHitCache(128),
		logger:   common.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Purge drops cached rankings, e.g. after the knowledge base was reloaded.
func (r *Retriever) Purge() {
	r.cache.Purge()
}

// Retrieve returns the formatted context for query.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (string, error) {
	hits, err := r.Rank(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return Format(hits), nil
}

// Rank searches every non-empty category for up to topK hits, merges them
// by ascending distance and keeps the best 2*topK.
func (r *Retriever) Rank(ctx context.Context, query string, topK int) ([]kb.Hit, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	start := time.Now()
	key := fmt.Sprintf("%d|%s", topK, strings.ToLower(strings.TrimSpace(query)))
	if cached, ok := r.cache.Get(key); ok {
		telemetry.RecordRetrieval(true, time.Since(start))
		return cached, nil
	}

	perCategory := make([][]kb.Hit, len(kb.Categories))
	complete := make([]bool, len(kb.Categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range kb.Categories {
		g.Go(func() error {
			perCategory[i], complete[i] = r.searchCategory(gctx, category, query, topK)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []kb.Hit
	for _, hits := range perCategory {
		merged = append(merged, hits...)
	}
	sortByDistance(merged)
	if limit := 2 * topK; len(merged) > limit {
		merged = merged[:limit]
	}
	cacheable := true
	for _, ok := range complete {
		cacheable = cacheable && ok
	}
	if cacheable {
		r.cache.Set(key, merged)
	}
	telemetry.RecordRetrieval(false, time.Since(start))
	r.logger.Debug("retriever: ranked context", "query", query, "top_k", topK, "hits", len(merged))
	return merged, nil
}

// searchCategory never fails the whole retrieval; a broken category is
// logged and contributes nothing. ok is false when the category could not be
// searched, and such a ranking is not cached.
func (r *Retriever) searchCategory(ctx context.Context, category kb.Category, query string, topK int) ([]kb.Hit, bool) {
	count, err := r.searcher.Count(ctx, category)
	if err != nil {
		r.logger.Warn("retriever: count failed", "category", category, "error", err)
		return nil, false
	}
	if count == 0 {
		return nil, true
	}
	hits, err := r.searcher.Search(ctx, category, query, topK)
	if err != nil {
		r.logger.Warn("retriever: search failed", "category", category, "error", err)
		return nil, false
	}
	for i := range hits {
		hits[i].Category = category
	}
	return hits, true
}

// sortByDistance orders hits ascending by distance with unscored hits last,
// keeping the incoming order for ties.
func sortByDistance(hits []kb.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i].Distance, hits[j].Distance
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}

// Format groups ranked hits under category headers in display order. Within
// a group hits keep their ranking order.
func Format(hits []kb.Hit) string {
	if len(hits) == 0 {
		return NoContext
	}
	grouped := make(map[kb.Category][]string, len(kb.Categories))
	for _, hit := range hits {
		grouped[hit.Category] = append(grouped[hit.Category], hit.Content)
	}
	var sections []string
	for _, category := range kb.Categories {
		contents := grouped[category]
		if len(contents) == 0 {
			continue
		}
		sections = append(sections, "\n=== "+category.Title()+" ===")
		for _, content := range contents {
			sections = append(sections, "\n"+content)
		}
	}
	if len(sections) == 0 {
		return NoContext
	}
	return strings.Join(sections, "\n")
}
