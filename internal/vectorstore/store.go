package vectorstore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"reddit-agent/internal/config"
	"reddit-agent/internal/post"
)

// Embedder produces a vector for a piece of text. Satisfied by the Ollama
// client's Embed method.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store handles all vector database operations for semantic post search.
type Store struct {
	Client         *qdrant.Client
	CollectionName string

	embedder   Embedder
	vectorSize uint64
}

// NewStore connects to Qdrant and makes sure the post collection exists.
func NewStore(cfg *config.Config, embedder Embedder) (*Store, error) {
	// Strip http:// or https:// prefix and any port
	qdrantURL := strings.TrimPrefix(cfg.Qdrant.URL, "http://")
	qdrantURL = strings.TrimPrefix(qdrantURL, "https://")

	host := qdrantURL
	if idx := strings.Index(qdrantURL, ":"); idx != -1 {
		host = qdrantURL[:idx]
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   6334, // gRPC port
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	s := &Store{
		Client:         client,
		CollectionName: cfg.Qdrant.Collection,
		embedder:       embedder,
		vectorSize:     uint64(cfg.Qdrant.VectorSize),
	}

	if err := s.ensureCollection(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	return s, nil
}

// ensureCollection creates the collection and its payload indexes if missing.
func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.Client.CollectionExists(ctx, s.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	indexes := []struct {
		field string
		typ   qdrant.PayloadSchemaType
	}{
		{"subreddit", qdrant.PayloadSchemaType_Keyword},
		{"post_id", qdrant.PayloadSchemaType_Keyword},
		{"created_utc", qdrant.PayloadSchemaType_Float},
		{"engagement_score", qdrant.PayloadSchemaType_Float},
	}
	for _, idx := range indexes {
		fieldType := qdrant.FieldType(idx.typ)
		_, err = s.Client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.CollectionName,
			FieldName:      idx.field,
			FieldType:      &fieldType,
			Wait:           boolPtr(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for %s: %w", idx.field, err)
		}
	}
	return nil
}

// AddPosts embeds and upserts posts into the collection. Point ids are
// derived deterministically from the Reddit post id so re-indexing the same
// post overwrites the previous copy.
func (s *Store) AddPosts(ctx context.Context, posts []post.RedditPost) error {
	if len(posts) == 0 {
		return nil
	}

	now := time.Now()
	points := make([]*qdrant.PointStruct, 0, len(posts))
	for i := range posts {
		p := &posts[i]

		doc := documentRepresentation(p)
		embedding, err := s.embedder.Embed(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to embed post %s: %w", p.ID, err)
		}

		engagement := EngagementScore(p.Score, p.NumComments)
		recency := TimeRelevance(p.CreatedAt(), now)

		payload := map[string]*qdrant.Value{
			"post_id":             qdrant.NewValueString(p.ID),
			"title":               qdrant.NewValueString(p.Title),
			"content":             qdrant.NewValueString(p.Content),
			"author":              qdrant.NewValueString(p.Author),
			"subreddit":           qdrant.NewValueString(p.Subreddit),
			"score":               qdrant.NewValueInt(int64(p.Score)),
			"num_comments":        qdrant.NewValueInt(int64(p.NumComments)),
			"url":                 qdrant.NewValueString(p.URL),
			"created_utc":         qdrant.NewValueDouble(p.CreatedUTC),
			"doc_length":          qdrant.NewValueInt(int64(len(strings.Fields(doc)))),
			"engagement_score":    qdrant.NewValueDouble(engagement),
			"time_relevance":      qdrant.NewValueDouble(recency),
			"has_awards":          qdrant.NewValueBool(p.HasAwards),
			"is_original_content": qdrant.NewValueBool(p.IsOC),
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(p.ID)),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: payload,
		})
	}

	_, err := s.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.CollectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert posts: %w", err)
	}
	log.Printf("[VectorStore] Indexed %d posts into %s", len(points), s.CollectionName)
	return nil
}

// SearchSimilar embeds the query and returns the most semantically similar
// posts, ranked with engagement and recency boosts. Results below
// minSimilarity are dropped.
func (s *Store) SearchSimilar(ctx context.Context, query string, limit int, minSimilarity float64) ([]post.Ranked, error) {
	if limit <= 0 {
		limit = 5
	}

	embedding, err := s.embedder.Embed(ctx, enhanceQuery(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Over-fetch so boosting can reorder before the final trim.
	initialLimit := limit * 3
	if initialLimit > 20 {
		initialLimit = 20
	}

	searchResult, err := s.Client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          uint64Ptr(uint64(initialLimit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]post.Ranked, 0, len(searchResult))
	for _, point := range searchResult {
		base := float64(point.Score)
		if base < minSimilarity {
			continue
		}
		results = append(results, s.pointToRanked(point, query, base))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// pointToRanked converts a Qdrant point back into a ranked post.
func (s *Store) pointToRanked(point *qdrant.ScoredPoint, query string, base float64) post.Ranked {
	payload := point.Payload

	engagement := getFloatFromPayload(payload, "engagement_score")
	recency := getFloatFromPayload(payload, "time_relevance")
	title := getStringFromPayload(payload, "title")
	isOC := getBoolFromPayload(payload, "is_original_content")
	docLength := int(getIntFromPayload(payload, "doc_length"))

	return post.Ranked{
		RedditPost: post.RedditPost{
			ID:          getStringFromPayload(payload, "post_id"),
			Title:       title,
			Content:     getStringFromPayload(payload, "content"),
			Author:      getStringFromPayload(payload, "author"),
			Subreddit:   getStringFromPayload(payload, "subreddit"),
			Score:       int(getIntFromPayload(payload, "score")),
			NumComments: int(getIntFromPayload(payload, "num_comments")),
			URL:         getStringFromPayload(payload, "url"),
			CreatedUTC:  getFloatFromPayload(payload, "created_utc"),
			HasAwards:   getBoolFromPayload(payload, "has_awards"),
			IsOC:        isOC,
		},
		Similarity:      finalSimilarity(base, query, title, docLength, engagement, recency, isOC),
		EngagementScore: engagement,
		TimeRelevance:   recency,
	}
}

// documentRepresentation builds the text that gets embedded for a post.
// Fields are wrapped in markers so the embedding keeps some structure, and
// engagement signals are appended as weak features.
func documentRepresentation(p *post.RedditPost) string {
	parts := []string{
		fmt.Sprintf("[TITLE] %s [/TITLE]", p.Title),
		fmt.Sprintf("[CONTENT] %s [/CONTENT]", p.Content),
		fmt.Sprintf("[SUBREDDIT] r/%s [/SUBREDDIT]", p.Subreddit),
		fmt.Sprintf("[AUTHOR] u/%s [/AUTHOR]", p.Author),
	}
	if p.Score != 0 {
		parts = append(parts, fmt.Sprintf("[SCORE] %d [/SCORE]", p.Score))
	}
	if p.NumComments != 0 {
		parts = append(parts, fmt.Sprintf("[COMMENTS] %d [/COMMENTS]", p.NumComments))
	}
	if p.HasAwards {
		parts = append(parts, "[AWARDED] true [/AWARDED]")
	}
	if p.IsOC {
		parts = append(parts, "[OC] true [/OC]")
	}
	return strings.Join(parts, "\n")
}

// enhanceQuery strips Reddit-specific noise from the query and wraps it in
// markers matching the document representation.
func enhanceQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, noise := range []string{"reddit", "subreddit", "r/", "u/"} {
		q = strings.ReplaceAll(q, noise, "")
	}
	return fmt.Sprintf("[QUERY] %s [/QUERY]", strings.TrimSpace(q))
}

// pointID derives a stable UUID for a post so repeated indexing upserts
// instead of duplicating.
func pointID(postID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("reddit.com/"+postID)).String()
}

// Payload extraction helpers.
func getStringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok {
		return val.GetStringValue()
	}
	return ""
}

func getBoolFromPayload(payload map[string]*qdrant.Value, key string) bool {
	if val, ok := payload[key]; ok {
		return val.GetBoolValue()
	}
	return false
}

func getIntFromPayload(payload map[string]*qdrant.Value, key string) int64 {
	if val, ok := payload[key]; ok {
		return val.GetIntegerValue()
	}
	return 0
}

func getFloatFromPayload(payload map[string]*qdrant.Value, key string) float64 {
	if val, ok := payload[key]; ok {
		return val.GetDoubleValue()
	}
	return 0.0
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
