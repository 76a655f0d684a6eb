// File path: internal/vector/chromadb.go
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/kb"
)

// Embedder turns texts into vectors. The same model must embed stored items
// and queries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// collectionSuffix names the Chroma collection backing each category.
var collectionSuffix = map[kb.Category]string{
	kb.CategoryDictionary:    "data_dictionary",
	kb.CategoryMetrics:       "metrics",
	kb.CategoryRules:         "business_rules",
	kb.CategoryDocumentation: "documentation",
}

// Client is a ChromaDB REST client holding one collection per knowledge
// category. It implements kb.Searcher.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	embedder   Embedder
	logger     *slog.Logger

	baseURL string
	prefix  string
	apiKey  string

	mu          sync.RWMutex
	available   bool
	collections map[kb.Category]string
}

var _ kb.Searcher = (*Client)(nil)

// New constructs a client and probes the server. An unreachable server is
// not an error; Available reports false until a later call succeeds.
func New(ctx context.Context, cfg Config, embedder Embedder) (*Client, error) {
	if embedder == nil {
		return nil, errors.New("vector: embedder is required")
	}
	logger := common.Logger()
	logger.Info("vector: initializing chromadb client",
		"host", cfg.Host,
		"port", cfg.Port,
		"prefix", cfg.CollectionPrefix,
		"timeout", cfg.Timeout,
	)
	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}
	client := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:   transport,
		embedder:    embedder,
		logger:      logger,
		baseURL:     strings.TrimRight(cfg.BaseURL(), "/"),
		prefix:      cfg.CollectionPrefix,
		apiKey:      cfg.APIKey,
		collections: make(map[kb.Category]string, len(collectionSuffix)),
	}
	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("vector: chromadb initialization failed", "error", err)
		return client, nil
	}
	logger.Info("vector: chromadb connection established")
	return client, nil
}

func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// CollectionName returns the Chroma collection used for category.
func (c *Client) CollectionName(category kb.Category) string {
	return c.prefix + "_" + collectionSuffix[category]
}

func (c *Client) ensureReady(ctx context.Context) error {
	c.mu.RLock()
	ready := c.available && len(c.collections) == len(collectionSuffix)
	c.mu.RUnlock()
	if ready {
		return nil
	}
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = c.health(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			c.setAvailable(false)
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	if err != nil {
		c.setAvailable(false)
		return err
	}
	for _, category := range kb.Categories {
		id, err := c.ensureCollection(ctx, c.CollectionName(category))
		if err != nil {
			c.setAvailable(false)
			return fmt.Errorf("collection %s: %w", c.CollectionName(category), err)
		}
		c.mu.Lock()
		c.collections[category] = id
		c.mu.Unlock()
	}
	c.setAvailable(true)
	return nil
}

func (c *Client) setAvailable(v bool) {
	c.mu.Lock()
	c.available = v
	c.mu.Unlock()
}

func (c *Client) collectionID(ctx context.Context, category kb.Category) (string, error) {
	if _, ok := collectionSuffix[category]; !ok {
		return "", fmt.Errorf("vector: unknown category %q", category)
	}
	if err := c.ensureReady(ctx); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collections[category], nil
}

// Load embeds every item of base and upserts it into its category
// collection.
func (c *Client) Load(ctx context.Context, base *kb.Base) error {
	for _, category := range kb.Categories {
		items := base.Items(category)
		if len(items) == 0 {
			continue
		}
		if err := c.upsert(ctx, category, items); err != nil {
			return fmt.Errorf("vector: load %s: %w", category, err)
		}
		c.logger.Info("vector: category loaded", "category", category, "items", len(items))
	}
	return nil
}

func (c *Client) upsert(ctx context.Context, category kb.Category, items []kb.Item) error {
	id, err := c.collectionID(ctx, category)
	if err != nil {
		return err
	}
	documents := make([]string, len(items))
	ids := make([]string, len(items))
	metadatas := make([]map[string]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
		documents[i] = item.Content
		metadatas[i] = metadataForItem(item)
	}
	embeddings, err := c.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(items) {
		return fmt.Errorf("embed: got %d vectors for %d items", len(embeddings), len(items))
	}
	payload := map[string]any{
		"ids":        ids,
		"documents":  documents,
		"metadatas":  metadatas,
		"embeddings": embeddings,
	}
	endpoint := fmt.Sprintf("%s/collections/%s/upsert", c.baseURL, url.PathEscape(id))
	err = c.doRequest(ctx, http.MethodPost, endpoint, payload, nil)
	if errors.Is(err, errNotFound) {
		fallback := fmt.Sprintf("%s/collections/%s/add", c.baseURL, url.PathEscape(id))
		return c.doRequest(ctx, http.MethodPost, fallback, payload, nil)
	}
	return err
}

func metadataForItem(item kb.Item) map[string]string {
	metadata := make(map[string]string, len(item.Metadata)+1)
	for k, v := range item.Metadata {
		metadata[k] = v
	}
	metadata["category"] = string(item.Category)
	return metadata
}

func (c *Client) Count(ctx context.Context, category kb.Category) (int, error) {
	id, err := c.collectionID(ctx, category)
	if err != nil {
		return 0, err
	}
	var count int
	endpoint := fmt.Sprintf("%s/collections/%s/count", c.baseURL, url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Client) Search(ctx context.Context, category kb.Category, query string, topK int) ([]kb.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	id, err := c.collectionID(ctx, category)
	if err != nil {
		return nil, err
	}
	vectors, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("vector: embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("vector: embedder returned no vector")
	}
	body := map[string]any{
		"query_embeddings": [][]float32{vectors[0]},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var resp struct {
		IDs       [][]string         `json:"ids"`
		Distances [][]*float64       `json:"distances"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Documents [][]string         `json:"documents"`
	}
	endpoint := fmt.Sprintf("%s/collections/%s/query", c.baseURL, url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	hits := make([]kb.Hit, 0, len(resp.IDs[0]))
	for idx, itemID := range resp.IDs[0] {
		hit := kb.Hit{ID: itemID, Category: category}
		if len(resp.Documents) > 0 && idx < len(resp.Documents[0]) {
			hit.Content = resp.Documents[0][idx]
		}
		if len(resp.Metadatas) > 0 && idx < len(resp.Metadatas[0]) {
			hit.Metadata = stringMetadata(resp.Metadatas[0][idx])
		}
		if len(resp.Distances) > 0 && idx < len(resp.Distances[0]) {
			hit.Distance = resp.Distances[0][idx]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func stringMetadata(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if k == "category" {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func (c *Client) ensureCollection(ctx context.Context, name string) (string, error) {
	id, err := c.findCollection(ctx, name)
	if err != nil || id != "" {
		return id, err
	}
	return c.createCollection(ctx, name)
}

func (c *Client) findCollection(ctx context.Context, name string) (string, error) {
	var resp []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	endpoint := fmt.Sprintf("%s/collections", c.baseURL)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return "", nil
		}
		return "", err
	}
	for _, col := range resp {
		if strings.EqualFold(col.Name, name) {
			return col.ID, nil
		}
	}
	return "", nil
}

func (c *Client) createCollection(ctx context.Context, name string) (string, error) {
	payload := map[string]any{"name": name, "get_or_create": true}
	var resp struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/collections", c.baseURL)
	if err := c.doRequest(ctx, http.MethodPost, endpoint, payload, &resp); err != nil {
		if errors.Is(err, errConflict) {
			return c.findCollection(ctx, name)
		}
		return "", err
	}
	return resp.ID, nil
}

var (
	errNotFound = errors.New("resource not found")
	errConflict = errors.New("resource conflict")
)

func (c *Client) health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, c.baseURL+"/heartbeat", nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusConflict:
		return errConflict
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chromadb %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Close releases pooled connections.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.transport.CloseIdleConnections()
	return nil
}
