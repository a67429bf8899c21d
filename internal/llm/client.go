package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Client wraps the queue for easy integration
type Client struct {
	manager  *Manager
	priority Priority
	timeout  time.Duration
}

// NewClient creates a new queue client
func NewClient(manager *Manager, priority Priority, timeout time.Duration) *Client {
	return &Client{
		manager:  manager,
		priority: priority,
		timeout:  timeout,
	}
}

// Call submits a non-streaming request
func (c *Client) Call(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error) {
	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)

	req := &Request{
		ID:          fmt.Sprintf("%d_%d", c.priority, time.Now().UnixNano()),
		Priority:    c.priority,
		Context:     ctx,
		URL:         url,
		Payload:     payload,
		IsStreaming: false,
		ResponseCh:  respCh,
		ErrorCh:     errCh,
		SubmitTime:  time.Now(),
		Timeout:     c.timeout,
	}

	if err := c.manager.Submit(req); err != nil {
		return nil, fmt.Errorf("failed to submit: %w", err)
	}

	select {
	case resp := <-respCh:
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CallStreaming submits a streaming request and returns the open HTTP
// response along with a cancel func that must be called when done reading.
func (c *Client) CallStreaming(ctx context.Context, url string, payload map[string]interface{}) (*http.Response, context.CancelFunc, error) {
	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)

	req := &Request{
		ID:          fmt.Sprintf("%d_stream_%d", c.priority, time.Now().UnixNano()),
		Priority:    c.priority,
		Context:     ctx,
		URL:         url,
		Payload:     payload,
		IsStreaming: true,
		ResponseCh:  respCh,
		ErrorCh:     errCh,
		SubmitTime:  time.Now(),
		Timeout:     c.timeout,
	}

	if err := c.manager.Submit(req); err != nil {
		return nil, nil, fmt.Errorf("failed to submit: %w", err)
	}

	select {
	case resp := <-respCh:
		if resp.StatusCode != http.StatusOK {
			if resp.HTTPResp != nil {
				resp.HTTPResp.Body.Close()
			}
			if resp.CancelFunc != nil {
				resp.CancelFunc()
			}
			return nil, nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
		}
		return resp.HTTPResp, resp.CancelFunc, nil
	case err := <-errCh:
		return nil, nil, err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
