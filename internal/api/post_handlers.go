package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reddit-agent/internal/config"
	"reddit-agent/internal/db"
	"reddit-agent/internal/post"
	"reddit-agent/internal/reddit"
)

type SummarizeRequest struct {
	Model string `json:"model"`
}

type QuestionRequest struct {
	PostID   string `json:"post_id"`
	Question string `json:"question"`
	Model    string `json:"model"`
}

// POST /summarize/:id generates (or returns a cached) summary of one post.
func SummarizeHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID := c.Param("id")
		var req SummarizeRequest
		_ = c.ShouldBindJSON(&req) // body is optional

		model := req.Model
		if model == "" {
			model = svc.Ollama.DefaultModel()
		}

		ctx := c.Request.Context()
		if cached := svc.Cache.GetSummary(ctx, postID, model); cached != "" {
			c.JSON(http.StatusOK, gin.H{"summary": cached, "cached": true})
			return
		}

		p, err := loadPost(ctx, svc, postID)
		if err != nil {
			writePostError(c, err)
			return
		}

		content := postContent(ctx, cfg, p)
		if content == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{"message": "Post has no text to summarize"}})
			return
		}

		summary, err := svc.Ollama.Summarize(ctx, content, model)
		if err != nil {
			log.Printf("[Posts] Summarization failed for %s: %v", postID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Summary generation failed. Please try again."}})
			return
		}

		svc.Cache.SetSummary(ctx, postID, model, summary)
		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}

// POST /ask answers a question about a specific post.
func AskHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QuestionRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.PostID == "" || req.Question == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "post_id and question are required"}})
			return
		}

		model := req.Model
		if model == "" {
			model = svc.Ollama.DefaultModel()
		}

		ctx := c.Request.Context()
		if cached := svc.Cache.GetAnswer(ctx, req.PostID, req.Question, model); cached != "" {
			c.JSON(http.StatusOK, gin.H{"answer": cached, "cached": true})
			return
		}

		p, err := loadPost(ctx, svc, req.PostID)
		if err != nil {
			writePostError(c, err)
			return
		}

		postCtx := fmt.Sprintf("Title: %s\n\nContent: %s", p.Title, postContent(ctx, cfg, p))
		answer, err := svc.Ollama.Answer(ctx, postCtx, req.Question, model)
		if err != nil {
			log.Printf("[Posts] Answering failed for %s: %v", req.PostID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Answer generation failed. Please try again."}})
			return
		}

		svc.Cache.SetAnswer(ctx, req.PostID, req.Question, model, answer)
		c.JSON(http.StatusOK, gin.H{"answer": answer})
	}
}

// GET /posts/:id/comments returns the top-level comments of a post.
func CommentsHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID := c.Param("id")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

		comments, err := svc.Reddit.GetComments(c.Request.Context(), postID, limit)
		if err != nil {
			writePostError(c, err)
			return
		}

		if db.DB != nil {
			if err := post.UpsertComments(db.DB, comments); err != nil {
				log.Printf("[Posts] Failed to persist comments: %v", err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"post_id": postID, "comments": comments})
	}
}

// loadPost returns a post from the local database, falling back to Reddit
// and persisting the fetched copy.
func loadPost(ctx context.Context, svc *Services, postID string) (*post.RedditPost, error) {
	if db.DB != nil {
		var p post.RedditPost
		err := db.DB.First(&p, "id = ?", postID).Error
		if err == nil {
			return &p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Posts] Database lookup failed for %s: %v", postID, err)
		}
	}

	p, comments, err := svc.Reddit.GetPost(ctx, postID, 10)
	if err != nil {
		return nil, err
	}
	if db.DB != nil {
		if err := post.Upsert(db.DB, []post.RedditPost{*p}); err != nil {
			log.Printf("[Posts] Failed to persist post %s: %v", postID, err)
		}
		if err := post.UpsertComments(db.DB, comments); err != nil {
			log.Printf("[Posts] Failed to persist comments for %s: %v", postID, err)
		}
	}
	return p, nil
}

// postContent returns the text worth summarizing: the selftext for self
// posts, extracted article text for link posts when enabled.
func postContent(ctx context.Context, cfg *config.Config, p *post.RedditPost) string {
	if p.IsSelf || !cfg.Search.FetchLinkContent {
		return p.Content
	}

	var extra struct {
		LinkURL string `json:"link_url"`
	}
	if len(p.Extra) > 0 {
		_ = json.Unmarshal(p.Extra, &extra)
	}
	if extra.LinkURL == "" {
		return p.Content
	}

	if article := reddit.ExtractArticle(ctx, extra.LinkURL); article != "" {
		return article
	}
	return p.Content
}

func writePostError(c *gin.Context, err error) {
	if errors.Is(err, reddit.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "Post not found"}})
		return
	}
	log.Printf("[Posts] Reddit fetch failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Reddit is unreachable. Please try again."}})
}
