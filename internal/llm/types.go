package llm

import (
	"context"
	"net/http"
	"time"
)

// Priority levels (just 2)
type Priority int

const (
	PriorityCritical   Priority = 0 // Interactive requests (search, summarize, ask)
	PriorityBackground Priority = 1 // Embeddings, enrichment, everything else
)

// Request encapsulates one call to the Ollama HTTP API
type Request struct {
	ID       string
	Priority Priority
	Context  context.Context

	URL         string
	Payload     map[string]interface{}
	IsStreaming bool

	// Response handling
	ResponseCh chan<- *Response
	ErrorCh    chan<- error

	SubmitTime time.Time
	Timeout    time.Duration
}

// Response encapsulates Ollama output
type Response struct {
	StatusCode int
	Body       []byte
	HTTPResp   *http.Response     // For streaming
	CancelFunc context.CancelFunc // For streaming: allows caller to clean up context
}

// Metrics tracks queue performance
type Metrics struct {
	CriticalEnqueued    int64            `json:"critical_enqueued"`
	CriticalProcessed   int64            `json:"critical_processed"`
	CriticalDropped     int64            `json:"critical_dropped"`
	BackgroundEnqueued  int64            `json:"background_enqueued"`
	BackgroundProcessed int64            `json:"background_processed"`
	BackgroundDropped   int64            `json:"background_dropped"`
	CurrentQueueDepth   map[Priority]int `json:"current_queue_depth"`
}
