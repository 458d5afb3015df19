package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Email:            "bot@example.com",
		APIToken:         "token",
		ProjectKey:       "CJ",
		BrandField:       "customfield_11997",
		EnvironmentField: "customfield_11800",
	}
}

func TestFetchIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/CJ-100" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("fields") != "summary" {
			t.Errorf("fields = %s", r.URL.Query().Get("fields"))
		}
		user, _, ok := r.BasicAuth()
		if !ok || user != "bot@example.com" {
			t.Error("missing basic auth")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fields":{"summary":"Payments failing for brand X"}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	got, err := c.FetchIssue(context.Background(), "CJ-100")
	if err != nil {
		t.Fatalf("fetch issue: %v", err)
	}
	if got != "Payments failing for brand X" {
		t.Errorf("summary = %q", got)
	}
}

func TestFetchIssue_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorMessages":["Issue does not exist"]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	if _, err := c.FetchIssue(context.Background(), "CJ-999"); err == nil {
		t.Error("expected error for missing issue")
	}
}

func TestFetchComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/rest/api/3/issue/CJ-100/comment") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("orderBy") != "-created" {
			t.Errorf("orderBy = %s", r.URL.Query().Get("orderBy"))
		}
		if r.URL.Query().Get("maxResults") != "30" {
			t.Errorf("maxResults = %s", r.URL.Query().Get("maxResults"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"comments": [
				{"body": {"type": "doc", "content": [
					{"type": "paragraph", "content": [
						{"type": "text", "text": "Restarted the worker,"},
						{"type": "text", "text": "issue persists."}
					]}
				]}},
				{"body": {"type": "doc", "content": [
					{"type": "mediaSingle", "content": []}
				]}},
				{"body": {"type": "doc", "content": [
					{"type": "paragraph", "content": [{"type": "text", "text": "Fixed in prod."}]}
				]}}
			]
		}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	got, err := c.FetchComments(context.Background(), "CJ-100")
	if err != nil {
		t.Fatalf("fetch comments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 comments (one has no text), got %d: %v", len(got), got)
	}
	if got[0] != "Comment-01: Restarted the worker, issue persists." {
		t.Errorf("comment[0] = %q", got[0])
	}
	if got[1] != "Comment-03: Fixed in prod." {
		t.Errorf("comment[1] = %q", got[1])
	}
}

func TestCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/3/issue" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		fields := payload["fields"].(map[string]any)
		if fields["summary"] != "Checkout broken" {
			t.Errorf("summary = %v", fields["summary"])
		}
		if fields["project"].(map[string]any)["key"] != "CJ" {
			t.Errorf("project = %v", fields["project"])
		}
		if fields["issuetype"].(map[string]any)["name"] != "Bug" {
			t.Errorf("issuetype = %v", fields["issuetype"])
		}
		brand := fields["customfield_11997"].([]any)[0].(map[string]any)
		if brand["value"] != "Fortress" {
			t.Errorf("brand = %v", brand)
		}
		// The bot label is applied even though the caller passed none.
		labels := fields["labels"].([]any)
		if len(labels) != 1 || labels[0] != "slack-bot-creation" {
			t.Errorf("labels = %v", labels)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"10042","key":"CJ-142"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	got, err := c.Create(context.Background(), protocol.TicketFields{
		Summary:     "Checkout broken",
		Description: "Checkout 500s on submit",
		IssueType:   "Bug",
		Priority:    "High-P1",
		Brand:       "Fortress",
		Environment: "Prod",
		Component:   "API",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.Key != "CJ-142" {
		t.Errorf("key = %q", got.Key)
	}
	if got.URL != srv.URL+"/browse/CJ-142" {
		t.Errorf("url = %q", got.URL)
	}
}

func TestCreate_BadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":{"priority":"Priority is required"}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Create(context.Background(), protocol.TicketFields{Summary: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Priority is required") {
		t.Errorf("error should carry response body: %v", err)
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error should carry status: %v", err)
	}
}
