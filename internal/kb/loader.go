// File path: internal/kb/loader.go
package kb

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultKnowledge []byte

// Base holds the loaded knowledge items grouped by category in file order.
type Base struct {
	items map[Category][]Item
}

type knowledgeFile struct {
	Dictionary    []Item `yaml:"dictionary"`
	Metrics       []Item `yaml:"metrics"`
	Rules         []Item `yaml:"rules"`
	Documentation []Item `yaml:"documentation"`
}

// Default parses the knowledge base compiled into the binary.
func Default() (*Base, error) {
	return Load(bytes.NewReader(defaultKnowledge))
}

// LoadFile reads a YAML knowledge file from disk. An empty path loads the
// embedded default.
func LoadFile(path string) (*Base, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Default()
	}
	f, err := os.Open(trimmed)
	if err != nil {
		return nil, fmt.Errorf("kb: open %s: %w", trimmed, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML knowledge document and validates it.
func Load(r io.Reader) (*Base, error) {
	var file knowledgeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("kb: decode knowledge: %w", err)
	}
	base := &Base{items: make(map[Category][]Item, len(Categories))}
	seen := make(map[string]struct{})
	groups := map[Category][]Item{
		CategoryDictionary:    file.Dictionary,
		CategoryMetrics:       file.Metrics,
		CategoryRules:         file.Rules,
		CategoryDocumentation: file.Documentation,
	}
	for _, category := range Categories {
		for i, item := range groups[category] {
			item.ID = strings.TrimSpace(item.ID)
			item.Content = strings.TrimSpace(item.Content)
			if item.ID == "" {
				return nil, fmt.Errorf("kb: %s item %d has no id", category, i)
			}
			if item.Content == "" {
				return nil, fmt.Errorf("kb: item %s has no content", item.ID)
			}
			if _, dup := seen[item.ID]; dup {
				return nil, fmt.Errorf("kb: duplicate item id %s", item.ID)
			}
			seen[item.ID] = struct{}{}
			item.Category = category
			base.items[category] = append(base.items[category], item)
		}
	}
	return base, nil
}

// Items returns a copy of the items in category.
func (b *Base) Items(category Category) []Item {
	if b == nil {
		return nil
	}
	src := b.items[category]
	if len(src) == 0 {
		return nil
	}
	out := make([]Item, len(src))
	copy(out, src)
	return out
}

// Len reports the total number of items.
func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	total := 0
	for _, items := range b.items {
		total += len(items)
	}
	return total
}

// Summary is the short listing used by the metrics and tables endpoints.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summaries lists category items using metadataKey as the display name and
// the second content line as the description.
func (b *Base) Summaries(category Category, metadataKey string) []Summary {
	items := b.Items(category)
	out := make([]Summary, 0, len(items))
	for _, item := range items {
		name := item.Metadata[metadataKey]
		if name == "" {
			name = "Unknown"
		}
		out = append(out, Summary{ID: item.ID, Name: name, Description: describe(item.Content)})
	}
	return out
}

func describe(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 1 {
		return strings.TrimSpace(lines[1])
	}
	runes := []rune(content)
	if len(runes) > 100 {
		return string(runes[:100])
	}
	return content
}
