// Package search finds prior tickets semantically similar to free text,
// using a Pinecone index of issue embeddings.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dupewatch-io/dupewatch/internal/provider"
	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

const queryTimeout = 30 * time.Second

// Config holds similarity search settings.
type Config struct {
	IndexURL       string  // Pinecone index endpoint, e.g. https://idx-xxx.svc.pinecone.io
	APIKey         string
	Namespace      string
	TopK           int     // retained matches, default 5
	ScoreThreshold float64 // minimum relevance score, default 0.50
	BrowseURL      string  // issue tracker browse base, e.g. https://site.atlassian.net/browse
}

// Client queries the vector index. Query text is embedded first, then
// matched against the index.
type Client struct {
	cfg      Config
	embedder provider.Embedder
	client   *http.Client
}

// New creates a similarity search client.
func New(cfg Config, embedder provider.Embedder) *Client {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Client{
		cfg:      cfg,
		embedder: embedder,
		client:   &http.Client{Timeout: queryTimeout},
	}
}

// Search returns up to TopK prior tickets with relevance >= ScoreThreshold,
// sorted by score descending. Ties keep retrieval order.
func (c *Client) Search(ctx context.Context, query string) ([]protocol.Match, error) {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	body := pineconeQuery{
		Namespace:       c.cfg.Namespace,
		Vector:          vector,
		TopK:            c.cfg.TopK,
		IncludeMetadata: true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("search: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IndexURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("search: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search: index returned %d: %s", resp.StatusCode, string(detail))
	}

	var result pineconeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("search: parse response: %w", err)
	}

	matches := make([]protocol.Match, 0, len(result.Matches))
	for _, m := range result.Matches {
		if m.Score < c.cfg.ScoreThreshold {
			continue
		}
		key, url := splitIssueKey(m.Metadata.Key, c.cfg.BrowseURL)
		if key == "" {
			continue
		}
		matches = append(matches, protocol.Match{
			Key:      key,
			Score:    m.Score,
			Status:   m.Metadata.Status,
			Priority: m.Metadata.Priority,
			URL:      url,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > c.cfg.TopK {
		matches = matches[:c.cfg.TopK]
	}
	return matches, nil
}

// splitIssueKey normalizes an indexed key that may be either a bare issue
// key or a full browse URL.
func splitIssueKey(raw, browseURL string) (key, url string) {
	if idx := strings.Index(raw, "/browse/"); idx >= 0 {
		key = strings.Trim(raw[idx+len("/browse/"):], "/")
		return key, raw
	}
	return raw, browseURL + "/" + raw
}

// --- Pinecone wire format types ---

type pineconeQuery struct {
	Namespace       string    `json:"namespace,omitempty"`
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeResponse struct {
	Matches []struct {
		ID       string  `json:"id"`
		Score    float64 `json:"score"`
		Metadata struct {
			Key      string `json:"key"`
			Status   string `json:"status"`
			Priority string `json:"priority"`
		} `json:"metadata"`
	} `json:"matches"`
}
