// Package jira is a minimal Jira Cloud REST v3 client covering the three
// calls this system makes: fetch an issue summary, fetch recent comments,
// and create an issue.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

const (
	requestTimeout = 30 * time.Second
	maxComments    = 30

	// creationLabel marks issues created through the bot.
	creationLabel = "slack-bot-creation"
)

// Config holds issue tracker settings.
type Config struct {
	BaseURL    string // https://<site>.atlassian.net
	Email      string
	APIToken   string
	ProjectKey string
	// Custom field IDs for the brand and environment selects.
	BrandField       string
	EnvironmentField string
}

// Client talks to the Jira REST API.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a Jira client.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// BrowseURL returns the canonical link for an issue key.
func (c *Client) BrowseURL(key string) string {
	return c.cfg.BaseURL + "/browse/" + key
}

// FetchIssue returns the current summary of an issue.
func (c *Client) FetchIssue(ctx context.Context, key string) (string, error) {
	var out struct {
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	}
	if err := c.get(ctx, "/rest/api/3/issue/"+key+"?fields=summary", &out); err != nil {
		return "", err
	}
	return out.Fields.Summary, nil
}

// FetchComments returns the text of the newest comments on an issue,
// formatted "Comment-NN: ...". Comments without extractable text are
// skipped.
func (c *Client) FetchComments(ctx context.Context, key string) ([]string, error) {
	var out struct {
		Comments []struct {
			Body adfNode `json:"body"`
		} `json:"comments"`
	}
	path := fmt.Sprintf("/rest/api/3/issue/%s/comment?orderBy=-created&maxResults=%d", key, maxComments)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}

	var comments []string
	for i, cm := range out.Comments {
		text := cm.Body.plainText()
		if text == "" {
			continue
		}
		comments = append(comments, fmt.Sprintf("Comment-%02d: %s", i+1, text))
	}
	return comments, nil
}

// Create submits a new issue. A non-2xx response surfaces as an error
// carrying the response body as detail.
func (c *Client) Create(ctx context.Context, fields protocol.TicketFields) (protocol.CreatedTicket, error) {
	project := fields.Project
	if project == "" {
		project = c.cfg.ProjectKey
	}

	labels := fields.Labels
	if !slices.Contains(labels, creationLabel) {
		labels = append(labels[:len(labels):len(labels)], creationLabel)
	}

	payload := map[string]any{
		"fields": map[string]any{
			"project":              map[string]string{"key": project},
			"summary":              fields.Summary,
			"description":          adfDocument(fields.Description),
			"issuetype":            map[string]string{"name": fields.IssueType},
			"priority":             map[string]string{"name": fields.Priority},
			c.cfg.BrandField:       []map[string]string{{"value": fields.Brand}},
			c.cfg.EnvironmentField: []map[string]string{{"value": fields.Environment}},
			"components":           []map[string]string{{"name": fields.Component}},
			"labels":               labels,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return protocol.CreatedTicket{}, fmt.Errorf("jira: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/rest/api/3/issue", bytes.NewReader(body))
	if err != nil {
		return protocol.CreatedTicket{}, fmt.Errorf("jira: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return protocol.CreatedTicket{}, fmt.Errorf("jira: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.CreatedTicket{}, fmt.Errorf("jira: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return protocol.CreatedTicket{}, fmt.Errorf("jira: create issue (status %d): %s", resp.StatusCode, string(respBody))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return protocol.CreatedTicket{}, fmt.Errorf("jira: unmarshal response: %w", err)
	}
	return protocol.CreatedTicket{Key: created.Key, URL: c.BrowseURL(created.Key)}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("jira: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("jira: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("jira: GET %s (status %d): %s", path, resp.StatusCode, string(detail))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("jira: parse response: %w", err)
	}
	return nil
}

// --- Atlassian Document Format ---

// adfNode is the recursive node shape of ADF bodies. Only paragraph/text
// nodes are extracted; everything else (mentions, media, code) is ignored.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

func (n adfNode) plainText() string {
	var parts []string
	for _, block := range n.Content {
		if block.Type != "paragraph" {
			continue
		}
		for _, inline := range block.Content {
			if inline.Type == "text" && inline.Text != "" {
				parts = append(parts, inline.Text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// adfDocument wraps plain text in a single-paragraph ADF document, the
// minimum Jira Cloud v3 accepts for a description.
func adfDocument(text string) map[string]any {
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []map[string]any{
			{
				"type": "paragraph",
				"content": []map[string]any{
					{"type": "text", "text": text},
				},
			},
		},
	}
}
