// File path: internal/kb/index.go
package kb

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// Index is an in-memory TF-IDF searcher. Distances are 1 - cosine
// similarity, so 0 is an exact lexical match and 1 shares no terms.
type Index struct {
	mu         sync.RWMutex
	categories map[Category]*categoryIndex
}

type categoryIndex struct {
	items   []Item
	vectors []map[string]float64
	norms   []float64
	df      map[string]int
}

// NewIndex builds an index over the given base.
func NewIndex(base *Base) *Index {
	idx := &Index{}
	idx.Refresh(base)
	return idx
}

// Refresh rebuilds every category from base.
func (idx *Index) Refresh(base *Base) {
	built := make(map[Category]*categoryIndex, len(Categories))
	for _, category := range Categories {
		var items []Item
		if base != nil {
			items = base.Items(category)
		}
		built[category] = buildCategoryIndex(items)
	}
	idx.mu.Lock()
	idx.categories = built
	idx.mu.Unlock()
}

func (idx *Index) Count(_ context.Context, category Category) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ci := idx.categories[category]
	if ci == nil {
		return 0, nil
	}
	return len(ci.items), nil
}

func (idx *Index) Search(_ context.Context, category Category, query string, topK int) ([]Hit, error) {
	idx.mu.RLock()
	ci := idx.categories[category]
	idx.mu.RUnlock()
	if ci == nil || len(ci.items) == 0 || topK <= 0 {
		return nil, nil
	}

	qtf := make(map[string]float64)
	for _, term := range tokenize(query) {
		qtf[term]++
	}
	var qnorm float64
	for term, freq := range qtf {
		weight := ci.weight(term, freq)
		qtf[term] = weight
		qnorm += weight * weight
	}
	qnorm = math.Sqrt(qnorm)

	type scored struct {
		pos      int
		distance float64
	}
	scores := make([]scored, 0, len(ci.items))
	for i := range ci.items {
		similarity := 0.0
		if denom := qnorm * ci.norms[i]; denom > 0 {
			var dot float64
			for term, weight := range qtf {
				dot += weight * ci.vectors[i][term]
			}
			similarity = dot / denom
		}
		scores = append(scores, scored{pos: i, distance: 1 - similarity})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].distance < scores[j].distance
	})
	if len(scores) > topK {
		scores = scores[:topK]
	}

	hits := make([]Hit, 0, len(scores))
	for _, s := range scores {
		item := ci.items[s.pos]
		distance := s.distance
		hits = append(hits, Hit{
			ID:       item.ID,
			Content:  item.Content,
			Category: category,
			Metadata: cloneMetadata(item.Metadata),
			Distance: &distance,
		})
	}
	return hits, nil
}

func buildCategoryIndex(items []Item) *categoryIndex {
	ci := &categoryIndex{
		items:   items,
		vectors: make([]map[string]float64, len(items)),
		norms:   make([]float64, len(items)),
		df:      make(map[string]int),
	}
	for i, item := range items {
		tf := make(map[string]float64)
		for _, term := range tokenize(item.Content + " " + metadataText(item.Metadata)) {
			tf[term]++
		}
		for term := range tf {
			ci.df[term]++
		}
		ci.vectors[i] = tf
	}
	for i, tf := range ci.vectors {
		var norm float64
		for term, freq := range tf {
			weight := ci.weight(term, freq)
			tf[term] = weight
			norm += weight * weight
		}
		ci.norms[i] = math.Sqrt(norm)
	}
	return ci
}

func (ci *categoryIndex) weight(term string, freq float64) float64 {
	df := float64(ci.df[term])
	if df == 0 {
		return 0
	}
	idf := math.Log((float64(len(ci.items))+1)/(df+1)) + 1
	return freq * idf
}

func metadataText(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	parts := make([]string, 0, len(metadata))
	for _, v := range metadata {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		case r > 127:
			return false
		}
		return true
	})
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
