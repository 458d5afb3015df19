package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return f.vec, f.err
}

func newIndexServer(t *testing.T, matches []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pc-key" {
			t.Error("missing Api-Key header")
		}

		var q pineconeQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Fatalf("decode query: %v", err)
		}
		if len(q.Vector) == 0 {
			t.Error("query vector is empty")
		}
		if !q.IncludeMetadata {
			t.Error("includeMetadata should be set")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"matches": matches})
	}))
}

func match(key string, score float64) map[string]any {
	return map[string]any{
		"id":    key,
		"score": score,
		"metadata": map[string]string{
			"key": key, "status": "Open", "priority": "High-P1",
		},
	}
}

func TestSearch_FiltersAndSorts(t *testing.T) {
	srv := newIndexServer(t, []map[string]any{
		match("CJ-1", 0.61),
		match("CJ-2", 0.30), // below threshold
		match("CJ-3", 0.83),
		match("CJ-4", 0.55),
	})
	defer srv.Close()

	c := New(Config{
		IndexURL:       srv.URL,
		APIKey:         "pc-key",
		ScoreThreshold: 0.50,
		TopK:           5,
		BrowseURL:      "https://example.atlassian.net/browse",
	}, &fakeEmbedder{vec: []float64{0.1, 0.2}})

	got, err := c.Search(context.Background(), "payments failing")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("matches not sorted descending: %v", got)
		}
	}
	for _, m := range got {
		if m.Score < 0.50 {
			t.Errorf("match %s below threshold: %v", m.Key, m.Score)
		}
	}
	if got[0].Key != "CJ-3" {
		t.Errorf("top match = %s, want CJ-3", got[0].Key)
	}
	if got[0].URL != "https://example.atlassian.net/browse/CJ-3" {
		t.Errorf("url = %s", got[0].URL)
	}
}

func TestSearch_TopKCap(t *testing.T) {
	var many []map[string]any
	for i := 0; i < 8; i++ {
		many = append(many, match(fmt.Sprintf("CJ-%d", i), 0.9))
	}
	srv := newIndexServer(t, many)
	defer srv.Close()

	c := New(Config{IndexURL: srv.URL, APIKey: "pc-key", ScoreThreshold: 0.5, TopK: 3}, &fakeEmbedder{vec: []float64{1}})
	got, err := c.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected top-K cap of 3, got %d", len(got))
	}
	// Equal scores keep retrieval order (stable sort).
	if got[0].Key != "CJ-0" || got[1].Key != "CJ-1" {
		t.Errorf("tie order not stable: %v", got)
	}
}

func TestSearch_BrowseURLKey(t *testing.T) {
	srv := newIndexServer(t, []map[string]any{
		match("https://example.atlassian.net/browse/CJ-100", 0.81),
	})
	defer srv.Close()

	c := New(Config{IndexURL: srv.URL, APIKey: "pc-key", ScoreThreshold: 0.5}, &fakeEmbedder{vec: []float64{1}})
	got, err := c.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Key != "CJ-100" {
		t.Errorf("key = %q", got[0].Key)
	}
	if got[0].URL != "https://example.atlassian.net/browse/CJ-100" {
		t.Errorf("url = %q", got[0].URL)
	}
}

func TestSearch_EmbedError(t *testing.T) {
	c := New(Config{IndexURL: "http://unused", APIKey: "k"}, &fakeEmbedder{err: fmt.Errorf("model offline")})
	if _, err := c.Search(context.Background(), "q"); err == nil {
		t.Error("expected error when embedding fails")
	}
}

func TestSearch_IndexError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := New(Config{IndexURL: srv.URL, APIKey: "k"}, &fakeEmbedder{vec: []float64{1}})
	_, err := c.Search(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}
}
