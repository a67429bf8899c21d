package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"reddit-agent/internal/config"
)

// GET /health reports liveness plus upstream diagnostics: the Reddit circuit
// breaker counters and the Ollama queue depth.
func healthHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"status": "ok"}
		if svc.Reddit != nil {
			resp["reddit_breaker"] = svc.Reddit.BreakerStats()
		}
		if svc.Queue != nil {
			resp["ollama_queue"] = svc.Queue.GetMetrics()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GET /config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":    cfg.Server.Host,
				"port":    cfg.Server.Port,
				"subpath": cfg.Server.Subpath,
			},
			"ollama": gin.H{
				"model":           cfg.Ollama.Model,
				"embedding_model": cfg.Ollama.EmbeddingModel,
			},
			"search": cfg.Search,
		})
	}
}

// GET /models lists the models the local Ollama instance has pulled.
func ListModelsHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		models, err := svc.Ollama.Tags(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Ollama unavailable"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"models":  models,
			"default": svc.Ollama.DefaultModel(),
		})
	}
}
