// File path: internal/kb/types.go
package kb

import (
	"context"
	"fmt"
	"strings"
)

// Category groups knowledge items that are searched independently.
type Category string

const (
	CategoryDictionary    Category = "dictionary"
	CategoryMetrics       Category = "metrics"
	CategoryRules         Category = "rules"
	CategoryDocumentation Category = "documentation"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryDictionary,
	CategoryMetrics,
	CategoryRules,
	CategoryDocumentation,
}

// Title is the section header used when rendering retrieved context.
func (c Category) Title() string {
	switch c {
	case CategoryDictionary:
		return "DATA DICTIONARY (Tables & Columns)"
	case CategoryMetrics:
		return "METRIC DEFINITIONS"
	case CategoryRules:
		return "BUSINESS RULES"
	case CategoryDocumentation:
		return "DOCUMENTATION"
	default:
		return strings.ToUpper(string(c))
	}
}

// Rank returns the display position of c, or len(Categories) when unknown.
func (c Category) Rank() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}

// ParseCategory accepts the canonical names plus the collection aliases used
// by older knowledge files.
func ParseCategory(value string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dictionary", "data_dictionary", "table", "tables":
		return CategoryDictionary, nil
	case "metrics", "metric":
		return CategoryMetrics, nil
	case "rules", "rule", "business_rules":
		return CategoryRules, nil
	case "documentation", "docs", "doc":
		return CategoryDocumentation, nil
	}
	return "", fmt.Errorf("kb: unknown category %q", value)
}

// Item is a read-only piece of reference text.
type Item struct {
	ID       string            `json:"id" yaml:"id"`
	Content  string            `json:"content" yaml:"content"`
	Category Category          `json:"category" yaml:"-"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Hit is one ranked search result. Distance is nil when the backend did not
// report one.
type Hit struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Category Category          `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance *float64          `json:"distance,omitempty"`
}

// Searcher is the ranked search capability over the knowledge categories.
// An empty category yields zero results and no error.
type Searcher interface {
	Count(ctx context.Context, category Category) (int, error)
	Search(ctx context.Context, category Category, query string, topK int) ([]Hit, error)
}
