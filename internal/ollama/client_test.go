package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"reddit-agent/internal/config"
	"reddit-agent/internal/llm"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *llm.Manager) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	manager := llm.NewManager(llm.DefaultConfig(), nil)
	t.Cleanup(manager.Stop)

	cfg := &config.Config{}
	cfg.Ollama.BaseURL = srv.URL
	cfg.Ollama.Model = "llama2"
	cfg.Ollama.EmbeddingModel = "nomic-embed-text"
	cfg.Ollama.TimeoutSeconds = 10
	return NewClient(cfg, manager), manager
}

func TestGenerate(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["model"] != "llama2" {
			t.Errorf("expected default model, got %v", payload["model"])
		}
		if payload["stream"] != false {
			t.Errorf("expected stream=false")
		}
		json.NewEncoder(w).Encode(map[string]string{"response": " hello world "})
	}))

	got, err := client.Generate(context.Background(), "", "say hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != " hello world " {
		t.Errorf("unexpected response %q", got)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))

	if _, err := client.Generate(context.Background(), "missing", "x"); err == nil {
		t.Errorf("expected error for non-200 status")
	}
}

func TestEmbed(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["model"] != "nomic-embed-text" {
			t.Errorf("expected embedding model, got %v", payload["model"])
		}
		json.NewEncoder(w).Encode(map[string][]float32{"embedding": {0.1, 0.2, 0.3}})
	}))

	vec, err := client.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3 dims, got %d", len(vec))
	}
}

func TestEmbed_Empty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]float32{"embedding": {}})
	}))

	if _, err := client.Embed(context.Background(), "x"); err == nil {
		t.Errorf("expected error for empty embedding")
	}
}

func TestTags(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama2:latest","size":3825819519},{"name":"mistral:latest","size":4109865159}]}`))
	}))

	models, err := client.Tags(context.Background())
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama2:latest" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestRewriteQuery_FallsBackToOriginalOnError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	query := "best pasta recipes on r/Cooking"
	if got := client.RewriteQuery(context.Background(), query, ""); got != query {
		t.Errorf("expected original query back, got %q", got)
	}
}

func TestRewriteQuery_UsesModelOutput(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "pasta recipes, italian cooking, easy dinner"})
	}))

	got := client.RewriteQuery(context.Background(), "what are good pasta recipes?", "")
	if got != "pasta recipes, italian cooking, easy dinner" {
		t.Errorf("unexpected rewrite: %q", got)
	}
}
