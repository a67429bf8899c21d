package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reddit-agent/internal/config"
	"reddit-agent/internal/llm"
)

// Client talks to a local Ollama instance. Generation and embedding calls go
// through the priority queue; cheap metadata calls (/api/tags) go direct.
type Client struct {
	baseURL      string
	defaultModel string
	embedModel   string

	critical   *llm.Client
	background *llm.Client
	httpClient *http.Client
}

// ModelInfo describes one locally available model, as reported by /api/tags.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

// NewClient creates an Ollama client backed by the given queue manager.
func NewClient(cfg *config.Config, manager *llm.Manager) *Client {
	timeout := time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second
	return &Client{
		baseURL:      cfg.Ollama.BaseURL,
		defaultModel: cfg.Ollama.Model,
		embedModel:   cfg.Ollama.EmbeddingModel,
		critical:     llm.NewClient(manager, llm.PriorityCritical, timeout),
		background:   llm.NewClient(manager, llm.PriorityBackground, 5*time.Minute),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// DefaultModel returns the configured default generation model.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

func (c *Client) resolveModel(model string) string {
	if model == "" {
		return c.defaultModel
	}
	return model
}

// generateOptions mirrors the sampling settings the service has always used.
func generateOptions() map[string]interface{} {
	return map[string]interface{}{
		"temperature": 0.7,
		"top_p":       0.9,
		"top_k":       40,
		"num_predict": 1000,
		"stop":        []string{"[END]"},
	}
}

// Generate runs a non-streaming completion through the critical queue.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":   c.resolveModel(model),
		"prompt":  prompt,
		"stream":  false,
		"options": generateOptions(),
	}

	body, err := c.critical.Call(ctx, c.baseURL+"/api/generate", payload)
	if err != nil {
		return "", err
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse ollama response: %w", err)
	}
	return result.Response, nil
}

// GenerateStream runs a streaming completion. The caller must read the NDJSON
// body and invoke cancel when finished.
func (c *Client) GenerateStream(ctx context.Context, model, prompt string) (*http.Response, context.CancelFunc, error) {
	payload := map[string]interface{}{
		"model":   c.resolveModel(model),
		"prompt":  prompt,
		"stream":  true,
		"options": generateOptions(),
	}
	return c.critical.CallStreaming(ctx, c.baseURL+"/api/generate", payload)
}

// Embed converts text to a vector using the configured embedding model.
// Embeddings run at background priority so they never starve user requests.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model":  c.embedModel,
		"prompt": text,
	}

	body, err := c.background.Call(ctx, c.baseURL+"/api/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Embedding, nil
}

// Tags lists the models available on the Ollama instance.
func (c *Client) Tags(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tags request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse tags response: %w", err)
	}
	return result.Models, nil
}
