package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

type RedditConfig struct {
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret"`
	UserAgent       string `json:"user_agent"`
	RequestInterval int    `json:"request_interval_seconds"`
}

type OllamaConfig struct {
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embedding_model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Queue          struct {
		MaxConcurrent       int `json:"max_concurrent"`
		CriticalQueueSize   int `json:"critical_queue_size"`
		BackgroundQueueSize int `json:"background_queue_size"`
	} `json:"queue"`
}

type QdrantConfig struct {
	URL        string `json:"url"`
	Collection string `json:"collection"`
	APIKey     string `json:"api_key"`
	VectorSize int    `json:"vector_size"`
}

type SearchConfig struct {
	MaxPosts         int     `json:"max_posts"`
	MaxSubreddits    int     `json:"max_subreddits"`
	MinSimilarity    float64 `json:"min_similarity"`
	SummaryTTLMins   int     `json:"summary_ttl_minutes"`
	FetchLinkContent bool    `json:"fetch_link_content"`
}

type Config struct {
	Server struct {
		Host    string `json:"host"`
		Port    int    `json:"port"`
		Subpath string `json:"subpath"`
	} `json:"server"`
	Reddit   RedditConfig `json:"reddit"`
	Ollama   OllamaConfig `json:"ollama"`
	Qdrant   QdrantConfig `json:"qdrant"`
	Database struct {
		PostgresDSN string `json:"postgres_dsn"`
		SQLitePath  string `json:"sqlite_path"`
	} `json:"database"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Search SearchConfig `json:"search"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		applyDefaults(&c)
		if err := validate(&c); err != nil {
			cfgErr = err
			return
		}
		cfg = &c
	})
	return cfg, cfgErr
}

func applyDefaults(c *Config) {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.Subpath == "" {
		c.Server.Subpath = "/"
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "RedditAgent/1.0"
	}
	if c.Reddit.RequestInterval == 0 {
		c.Reddit.RequestInterval = 2
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "llama2"
	}
	if c.Ollama.EmbeddingModel == "" {
		c.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if c.Ollama.TimeoutSeconds == 0 {
		c.Ollama.TimeoutSeconds = 60
	}
	if c.Ollama.Queue.MaxConcurrent == 0 {
		c.Ollama.Queue.MaxConcurrent = 1
	}
	if c.Ollama.Queue.CriticalQueueSize == 0 {
		c.Ollama.Queue.CriticalQueueSize = 16
	}
	if c.Ollama.Queue.BackgroundQueueSize == 0 {
		c.Ollama.Queue.BackgroundQueueSize = 64
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "reddit_posts"
	}
	if c.Qdrant.VectorSize == 0 {
		c.Qdrant.VectorSize = 768
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/reddit.db"
	}
	if c.Search.MaxPosts == 0 {
		c.Search.MaxPosts = 10
	}
	if c.Search.MaxSubreddits == 0 {
		c.Search.MaxSubreddits = 5
	}
	if c.Search.MinSimilarity == 0 {
		c.Search.MinSimilarity = 0.3
	}
	if c.Search.SummaryTTLMins == 0 {
		c.Search.SummaryTTLMins = 60
	}
}

func validate(c *Config) error {
	// Read-only Reddit access needs both halves of the credential or neither.
	if (c.Reddit.ClientID == "") != (c.Reddit.ClientSecret == "") {
		return errors.New("reddit client_id and client_secret must be set together")
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		return errors.New("search min_similarity must be between 0 and 1")
	}
	return nil
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
