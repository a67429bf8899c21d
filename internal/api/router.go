package api

import (
	"context"
	"net/http"
	"path"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"reddit-agent/internal/config"
	"reddit-agent/internal/llm"
	"reddit-agent/internal/ollama"
	"reddit-agent/internal/post"
	"reddit-agent/internal/reddit"
	"reddit-agent/internal/redisdb"
)

// VectorIndex is the slice of the vector store the handlers need. A nil
// index disables semantic ranking and the search pipeline falls back to
// score-based ordering.
type VectorIndex interface {
	AddPosts(ctx context.Context, posts []post.RedditPost) error
	SearchSimilar(ctx context.Context, query string, limit int, minSimilarity float64) ([]post.Ranked, error)
}

// Services bundles the clients the handlers depend on.
type Services struct {
	Reddit  *reddit.Client
	Ollama  *ollama.Client
	Vectors VectorIndex
	Cache   *redisdb.Cache
	Queue   *llm.Manager
}

func SetupRouter(cfg *config.Config, svc *Services) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default()) // allow all origins, matching the browser frontend
	subpath := cfg.Server.Subpath // e.g. "/reddit-agent" or any custom path, always starts with '/'

	// Load HTML templates
	r.LoadHTMLFiles("./frontend/index.html")

	// Serve frontend static assets
	r.Static(path.Join(subpath, "static"), "./static")

	r.GET(subpath, func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{"subpath": subpath})
	})
	r.GET(path.Join(subpath, "favicon.ico"), func(c *gin.Context) {
		c.File("./static/favicon.ico")
	})
	if subpath != "/" {
		// Redirect /subpath/ to /subpath (no duplicate panic)
		r.GET(subpath+"/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, subpath)
		})
	}

	// API routes
	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler(svc))
		group.GET("/config", configHandler(cfg))
		group.GET("/models", ListModelsHandler(svc))

		// --- Search pipeline ---
		group.POST("/search", SearchHandler(cfg, svc))

		// --- Single-post endpoints ---
		group.POST("/summarize/:id", SummarizeHandler(cfg, svc))
		group.POST("/ask", AskHandler(cfg, svc))
		group.GET("/posts/:id/comments", CommentsHandler(svc))

		// --- Streaming WebSocket endpoint ---
		group.GET("/ws/summarize", WSSummarizeHandler(cfg, svc))
	}
	return r
}
