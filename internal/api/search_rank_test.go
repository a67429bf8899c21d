package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"reddit-agent/internal/post"
)

type stubIndex struct {
	results []post.Ranked
	err     error
}

func (s *stubIndex) AddPosts(ctx context.Context, posts []post.RedditPost) error {
	return s.err
}

func (s *stubIndex) SearchSimilar(ctx context.Context, query string, limit int, minSimilarity float64) ([]post.Ranked, error) {
	return s.results, s.err
}

func testGinContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/search", nil)
	return c
}

func TestRankPosts_SemanticBlend(t *testing.T) {
	// High engagement should outrank slightly higher similarity.
	svc := &Services{Vectors: &stubIndex{results: []post.Ranked{
		{RedditPost: post.RedditPost{ID: "similar"}, Similarity: 0.62, EngagementScore: 0.1, TimeRelevance: 1.0},
		{RedditPost: post.RedditPost{ID: "engaged"}, Similarity: 0.60, EngagementScore: 0.9, TimeRelevance: 1.0},
	}}}

	ranked, approach := rankPosts(testGinContext(t), svc, "query", nil, 0.3)
	if approach != "semantic_search" {
		t.Fatalf("expected semantic_search, got %s", approach)
	}
	if ranked[0].ID != "engaged" {
		t.Errorf("expected engagement to win the blend, got %s first", ranked[0].ID)
	}
}

func TestRankPosts_FallbackOnVectorError(t *testing.T) {
	svc := &Services{Vectors: &stubIndex{err: errors.New("qdrant down")}}
	posts := []post.RedditPost{
		{ID: "quiet", Score: 10, NumComments: 1},
		{ID: "busy", Score: 10, NumComments: 50},
	}

	ranked, approach := rankPosts(testGinContext(t), svc, "query", posts, 0.3)
	if approach != "basic_ranking" {
		t.Fatalf("expected basic_ranking, got %s", approach)
	}
	if ranked[0].ID != "busy" {
		t.Errorf("comments weigh double in the fallback, got %s first", ranked[0].ID)
	}
	if ranked[0].EngagementScore == 0 {
		t.Errorf("fallback should still compute engagement signals")
	}
}

func TestRankPosts_NilIndex(t *testing.T) {
	posts := []post.RedditPost{{ID: "only", Score: 1}}
	ranked, approach := rankPosts(testGinContext(t), &Services{}, "query", posts, 0.3)
	if approach != "basic_ranking" || len(ranked) != 1 {
		t.Errorf("nil vector index must fall back: %s, %d posts", approach, len(ranked))
	}
}
