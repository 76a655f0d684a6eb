// File path: internal/kb/index_test.go
package kb

import (
	"context"
	"strings"
	"testing"
)

func TestDefaultKnowledgeLoads(t *testing.T) {
	base, err := Default()
	if err != nil {
		t.Fatalf("default knowledge: %v", err)
	}
	for _, category := range Categories {
		if len(base.Items(category)) == 0 {
			t.Fatalf("expected items in %s", category)
		}
	}
	for _, item := range base.Items(CategoryDictionary) {
		if item.Category != CategoryDictionary {
			t.Fatalf("item %s carries category %s", item.ID, item.Category)
		}
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	doc := `
metrics:
  - id: dup
    content: one
rules:
  - id: dup
    content: two
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestLoadRejectsUnknownSections(t *testing.T) {
	if _, err := Load(strings.NewReader("glossary: []\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestIndexRanksLexicalMatchFirst(t *testing.T) {
	base, err := Load(strings.NewReader(`
dictionary:
  - id: t_sales
    content: "Table: sales with amount and order_date"
  - id: t_regions
    content: "Table: regions with name and country"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	idx := NewIndex(base)
	ctx := context.Background()

	hits, err := idx.Search(ctx, CategoryDictionary, "regions by country", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "t_regions" {
		t.Fatalf("expected regions first, got %s", hits[0].ID)
	}
	if hits[0].Distance == nil || hits[1].Distance == nil || *hits[0].Distance > *hits[1].Distance {
		t.Fatalf("expected ascending distances: %+v", hits)
	}

	count, err := idx.Count(ctx, CategoryMetrics)
	if err != nil || count != 0 {
		t.Fatalf("expected empty metrics category, got %d (%v)", count, err)
	}
	empty, err := idx.Search(ctx, CategoryMetrics, "anything", 3)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no hits from empty category, got %v (%v)", empty, err)
	}
}

func TestSummariesUseSecondLine(t *testing.T) {
	base, err := Default()
	if err != nil {
		t.Fatalf("default knowledge: %v", err)
	}
	summaries := base.Summaries(CategoryMetrics, "metric_name")
	if len(summaries) == 0 {
		t.Fatalf("expected metric summaries")
	}
	if summaries[0].Name != "total_sales" || !strings.HasPrefix(summaries[0].Description, "Definition:") {
		t.Fatalf("unexpected summary: %+v", summaries[0])
	}
}
