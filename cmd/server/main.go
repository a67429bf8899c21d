package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"reddit-agent/internal/api"
	"reddit-agent/internal/config"
	"reddit-agent/internal/db"
	"reddit-agent/internal/llm"
	"reddit-agent/internal/ollama"
	"reddit-agent/internal/reddit"
	"reddit-agent/internal/redisdb"
	"reddit-agent/internal/tools"
	"reddit-agent/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := db.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)
	cache := redisdb.NewCache(rdb, time.Duration(cfg.Search.SummaryTTLMins)*time.Minute)

	breaker := tools.NewCircuitBreaker("ollama", 5, 2*time.Minute)
	manager := llm.NewManager(llm.ConfigFromApp(cfg), breaker)
	defer manager.Stop()

	ollamaClient := ollama.NewClient(cfg, manager)
	redditClient := reddit.NewClient(cfg)

	svc := &api.Services{
		Reddit: redditClient,
		Ollama: ollamaClient,
		Cache:  cache,
		Queue:  manager,
	}

	// Semantic ranking is best-effort: a missing Qdrant only downgrades
	// search to score-based ordering.
	store, err := vectorstore.NewStore(cfg, ollamaClient)
	if err != nil {
		log.Printf("[Main] WARNING: Vector store unavailable, falling back to basic ranking: %v", err)
	} else {
		svc.Vectors = store
		log.Printf("[Main] ✓ Vector store ready (collection: %s)", cfg.Qdrant.Collection)
	}

	r := api.SetupRouter(cfg, svc)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Starting server on %s%s\n", addr, cfg.Server.Subpath)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
