package api

import (
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"reddit-agent/internal/config"
	"reddit-agent/internal/db"
	"reddit-agent/internal/post"
	"reddit-agent/internal/reddit"
	"reddit-agent/internal/vectorstore"
)

type SearchRequest struct {
	Query     string `json:"query"`
	Subreddit string `json:"subreddit"`
	Limit     int    `json:"limit"`
	Model     string `json:"model"`
}

type SearchResponse struct {
	OriginalQuery  string        `json:"original_query"`
	RewrittenQuery string        `json:"rewritten_query"`
	Posts          []post.Ranked `json:"posts"`
	Summary        string        `json:"summary"`
	Metadata       gin.H         `json:"metadata"`
}

const noResultsMessage = "No relevant discussions found. Try adjusting your search terms or exploring a different subreddit."

// POST /search runs the full pipeline: query rewriting, subreddit discovery,
// Reddit search, semantic ranking and a synthesized summary.
func SearchHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid query"}})
			return
		}
		if req.Limit <= 0 {
			req.Limit = cfg.Search.MaxPosts
		}

		ctx := c.Request.Context()

		// The query itself may pin down a community or a time window.
		subreddit := req.Subreddit
		if subreddit == "" {
			if hint := subredditHint(req.Query); hint != "" {
				subreddit = hint
				log.Printf("[Search] Extracted subreddit from query: r/%s", hint)
			}
		}
		timeFilter := ""
		if period := timePeriodHint(req.Query); period != "" {
			timeFilter = reddit.MapTimeFilter(period)
			log.Printf("[Search] Detected time period in query: %s", period)
		}

		// 1. Rewrite the query for better content discovery.
		rewritten := svc.Ollama.RewriteQuery(ctx, req.Query, req.Model)
		log.Printf("[Search] Using search terms: %q", rewritten)

		// 2. Fetch posts from Reddit.
		posts, err := svc.Reddit.SearchPosts(ctx, rewritten, subreddit, req.Limit, timeFilter)
		if err != nil {
			log.Printf("[Search] Reddit search failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Reddit is unreachable. Please try again."}})
			return
		}
		log.Printf("[Search] Found %d relevant discussions", len(posts))

		if len(posts) == 0 {
			c.JSON(http.StatusOK, SearchResponse{
				OriginalQuery:  req.Query,
				RewrittenQuery: rewritten,
				Posts:          []post.Ranked{},
				Summary:        noResultsMessage,
				Metadata: gin.H{
					"total_posts_found":   0,
					"processing_approach": "none",
					"subreddit":           req.Subreddit,
					"timestamp":           time.Now().Format(time.RFC3339),
				},
			})
			return
		}

		// 3. Persist fetched posts; a broken database never fails a search.
		if db.DB != nil {
			if err := post.Upsert(db.DB, posts); err != nil {
				log.Printf("[Search] Failed to persist posts: %v", err)
			}
		}

		// 4. Rank semantically, falling back to engagement ordering when the
		// vector store is down.
		ranked, approach := rankPosts(c, svc, rewritten, posts, cfg.Search.MinSimilarity)

		// 5. Synthesize a summary over the top posts.
		summary, err := svc.Ollama.Synthesize(ctx, req.Query, ranked, req.Model)
		if err != nil {
			log.Printf("[Search] Synthesis failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Summary generation failed. Please try again."}})
			return
		}

		c.JSON(http.StatusOK, SearchResponse{
			OriginalQuery:  req.Query,
			RewrittenQuery: rewritten,
			Posts:          ranked,
			Summary:        summary,
			Metadata: gin.H{
				"total_posts_found":   len(posts),
				"processing_approach": approach,
				"subreddit":           req.Subreddit,
				"timestamp":           time.Now().Format(time.RFC3339),
			},
		})
	}
}

// rankPosts indexes the fetched posts and ranks them by a blend of semantic
// similarity, engagement and recency. Returns the ranking approach used.
func rankPosts(c *gin.Context, svc *Services, query string, posts []post.RedditPost, minSimilarity float64) ([]post.Ranked, string) {
	ctx := c.Request.Context()

	if svc.Vectors != nil {
		if err := svc.Vectors.AddPosts(ctx, posts); err != nil {
			log.Printf("[Search] Vector indexing failed: %v", err)
		} else if similar, err := svc.Vectors.SearchSimilar(ctx, query, 5, minSimilarity); err != nil {
			log.Printf("[Search] Vector search failed: %v", err)
		} else if len(similar) > 0 {
			sort.SliceStable(similar, func(i, j int) bool {
				return blendScore(similar[i]) > blendScore(similar[j])
			})
			return similar, "semantic_search"
		}
	}

	// Fallback: plain engagement ordering over the top posts.
	top := posts
	if len(top) > 5 {
		top = top[:5]
	}
	now := time.Now()
	ranked := make([]post.Ranked, 0, len(top))
	for _, p := range top {
		ranked = append(ranked, post.Ranked{
			RedditPost:      p,
			EngagementScore: vectorstore.EngagementScore(p.Score, p.NumComments),
			TimeRelevance:   vectorstore.TimeRelevance(p.CreatedAt(), now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return fallbackScore(ranked[i]) > fallbackScore(ranked[j])
	})
	return ranked, "basic_ranking"
}

// blendScore weighs semantic similarity at 60%, engagement at 30% and
// recency at 10%.
func blendScore(p post.Ranked) float64 {
	return p.Similarity*0.6 + p.EngagementScore*0.3 + p.TimeRelevance*0.1
}

func fallbackScore(p post.Ranked) float64 {
	return float64(p.Score) + float64(p.NumComments)*2
}
