// File path: internal/retriever/retriever_test.go
package retriever

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/Katral_insight/internal/kb"
)

type stubSearcher struct {
	mu       sync.Mutex
	hits     map[kb.Category][]kb.Hit
	failing  map[kb.Category]bool
	searched map[kb.Category]int
	topKs    []int
}

func (s *stubSearcher) Count(_ context.Context, category kb.Category) (int, error) {
	return len(s.hits[category]), nil
}

func (s *stubSearcher) Search(_ context.Context, category kb.Category, _ string, topK int) ([]kb.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searched == nil {
		s.searched = map[kb.Category]int{}
	}
	s.searched[category]++
	s.topKs = append(s.topKs, topK)
	if s.failing[category] {
		return nil, errors.New("backend down")
	}
	src := s.hits[category]
	if len(src) > topK {
		src = src[:topK]
	}
	out := make([]kb.Hit, len(src))
	copy(out, src)
	return out, nil
}

func dist(v float64) *float64 { return &v }

func hit(content string, d *float64) kb.Hit {
	return kb.Hit{Content: content, Distance: d}
}

func TestRankMergesAndTruncates(t *testing.T) {
	s := &stubSearcher{hits: map[kb.Category][]kb.Hit{
		kb.CategoryDictionary:    {hit("dict-1", dist(0.4)), hit("dict-2", dist(0.9))},
		kb.CategoryMetrics:       {hit("metric-1", dist(0.1)), hit("metric-2", nil)},
		kb.CategoryDocumentation: {hit("doc-1", dist(0.2)), hit("doc-2", dist(0.3))},
	}}
	r := New(s, WithCacheSize(0))

	hits, err := r.Rank(context.Background(), "total sales", 2)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	var order []string
	for _, h := range hits {
		order = append(order, h.Content)
	}
	assert.Equal(t, []string{"metric-1", "doc-1", "doc-2", "dict-1"}, order)
	assert.Zero(t, s.searched[kb.CategoryRules], "empty category must be skipped")
	for _, k := range s.topKs {
		assert.Equal(t, 2, k)
	}
}

func TestRankPutsUnscoredLast(t *testing.T) {
	s := &stubSearcher{hits: map[kb.Category][]kb.Hit{
		kb.CategoryRules:   {hit("rule-nil", nil), hit("rule-far", dist(5))},
		kb.CategoryMetrics: {hit("metric-near", dist(0.5))},
	}}
	hits, err := New(s).Rank(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "metric-near", hits[0].Content)
	assert.Equal(t, "rule-far", hits[1].Content)
	assert.Equal(t, "rule-nil", hits[2].Content)
	assert.Equal(t, kb.CategoryRules, hits[2].Category)
}

func TestRetrieveFormatsInDisplayOrder(t *testing.T) {
	s := &stubSearcher{hits: map[kb.Category][]kb.Hit{
		kb.CategoryDocumentation: {hit("Doc overview", dist(0.05))},
		kb.CategoryRules:         {hit("Completed only", dist(0.2))},
		kb.CategoryDictionary:    {hit("Table: sales", dist(0.3)), hit("Table: regions", dist(0.1))},
	}}
	text, err := New(s).Retrieve(context.Background(), "sales", 5)
	require.NoError(t, err)

	dictIdx := strings.Index(text, "=== DATA DICTIONARY (Tables & Columns) ===")
	rulesIdx := strings.Index(text, "=== BUSINESS RULES ===")
	docsIdx := strings.Index(text, "=== DOCUMENTATION ===")
	require.True(t, dictIdx >= 0 && rulesIdx > dictIdx && docsIdx > rulesIdx, text)
	assert.NotContains(t, text, "METRIC DEFINITIONS")
	assert.Less(t, strings.Index(text, "Table: regions"), strings.Index(text, "Table: sales"))
	assert.Contains(t, text, "=== DATA DICTIONARY (Tables & Columns) ===\n\nTable: regions\n\nTable: sales\n")
}

func TestRetrieveFormatsEachItemAfterBlankLine(t *testing.T) {
	text := Format([]kb.Hit{
		{Content: "total_sales metric", Category: kb.CategoryMetrics},
		{Content: "revenue metric", Category: kb.CategoryMetrics},
	})
	assert.Equal(t, "\n=== METRIC DEFINITIONS ===\n\ntotal_sales metric\n\nrevenue metric", text)
}

func TestRetrieveEmptyReturnsSentinel(t *testing.T) {
	text, err := New(&stubSearcher{}).Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Equal(t, NoContext, text)
}

func TestRetrieveSkipsFailingCategory(t *testing.T) {
	s := &stubSearcher{
		hits: map[kb.Category][]kb.Hit{
			kb.CategoryMetrics: {hit("metric", dist(0.1))},
			kb.CategoryRules:   {hit("rule", dist(0.2))},
		},
		failing: map[kb.Category]bool{kb.CategoryRules: true},
	}
	text, err := New(s).Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Contains(t, text, "metric")
	assert.NotContains(t, text, "BUSINESS RULES")
}

func TestRankUsesCache(t *testing.T) {
	s := &stubSearcher{hits: map[kb.Category][]kb.Hit{
		kb.CategoryMetrics: {hit("metric", dist(0.1))},
	}}
	r := New(s, WithCacheSize(4))
	ctx := context.Background()
	_, err := r.Rank(ctx, "Total Sales", 3)
	require.NoError(t, err)
	_, err = r.Rank(ctx, "  total sales ", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, s.searched[kb.CategoryMetrics])

	r.Purge()
	_, err = r.Rank(ctx, "total sales", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, s.searched[kb.CategoryMetrics])
}

func TestRankDoesNotCacheDegradedResults(t *testing.T) {
	s := &stubSearcher{
		hits: map[kb.Category][]kb.Hit{
			kb.CategoryDictionary: {hit("sales table", dist(0.1))},
			kb.CategoryMetrics:    {hit("revenue metric", dist(0.2))},
		},
		failing: map[kb.Category]bool{kb.CategoryDictionary: true},
	}
	r := New(s, WithCacheSize(4))
	ctx := context.Background()

	first, err := r.Retrieve(ctx, "revenue", 3)
	require.NoError(t, err)
	assert.NotContains(t, first, "sales table")

	s.mu.Lock()
	s.failing = nil
	s.mu.Unlock()
	recovered, err := r.Retrieve(ctx, "revenue", 3)
	require.NoError(t, err)
	assert.Contains(t, recovered, "sales table")
	assert.Contains(t, recovered, "revenue metric")

	_, err = r.Retrieve(ctx, "revenue", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, s.searched[kb.CategoryMetrics], "the complete ranking is cached")
}

func TestRankWithIndex(t *testing.T) {
	base, err := kb.Default()
	require.NoError(t, err)
	text, err := New(kb.NewIndex(base)).Retrieve(context.Background(), "total sales amount", 2)
	require.NoError(t, err)
	assert.Contains(t, text, "=== ")
	assert.NotEqual(t, NoContext, text)
}

func TestHitCacheEvictsOldest(t *testing.T) {
	c := newHitCache(2)
	c.Set("a", nil)
	c.Set("b", nil)
	c.Get("a")
	c.Set("c", nil)
	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 2, c.Len())
}
