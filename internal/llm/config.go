package llm

import (
	"time"

	"reddit-agent/internal/config"
)

// Config controls queue behavior
type Config struct {
	MaxConcurrent int // Total concurrent Ollama requests

	CriticalQueueSize   int // Interactive requests (small, rarely queues)
	BackgroundQueueSize int // Embeddings and enrichment (larger buffer)

	CriticalTimeout   time.Duration
	BackgroundTimeout time.Duration
}

// DefaultConfig returns sensible defaults for a single local Ollama instance
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:       1, // Local models rarely benefit from parallel decode
		CriticalQueueSize:   16,
		BackgroundQueueSize: 64,
		CriticalTimeout:     120 * time.Second,
		BackgroundTimeout:   300 * time.Second,
	}
}

// ConfigFromApp maps the application config onto queue settings
func ConfigFromApp(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Ollama.Queue.MaxConcurrent > 0 {
		c.MaxConcurrent = cfg.Ollama.Queue.MaxConcurrent
	}
	if cfg.Ollama.Queue.CriticalQueueSize > 0 {
		c.CriticalQueueSize = cfg.Ollama.Queue.CriticalQueueSize
	}
	if cfg.Ollama.Queue.BackgroundQueueSize > 0 {
		c.BackgroundQueueSize = cfg.Ollama.Queue.BackgroundQueueSize
	}
	if cfg.Ollama.TimeoutSeconds > 0 {
		c.CriticalTimeout = time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second
	}
	return c
}
