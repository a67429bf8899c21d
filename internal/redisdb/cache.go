package redisdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores generated summaries and answers so repeated requests for the
// same post skip the LLM entirely. A broken Redis never fails a request:
// lookups degrade to misses and writes are logged and dropped.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func summaryKey(postID, model string) string {
	return fmt.Sprintf("summary:%s:%s", postID, model)
}

func answerKey(postID, question, model string) string {
	h := sha256.Sum256([]byte(postID + "\x00" + question + "\x00" + model))
	return "answer:" + hex.EncodeToString(h[:16])
}

// GetSummary returns a cached summary, or "" on a miss.
func (c *Cache) GetSummary(ctx context.Context, postID, model string) string {
	return c.get(ctx, summaryKey(postID, model))
}

// SetSummary stores a freshly generated summary.
func (c *Cache) SetSummary(ctx context.Context, postID, model, summary string) {
	c.set(ctx, summaryKey(postID, model), summary)
}

// GetAnswer returns a cached answer for a question about a post, or "".
func (c *Cache) GetAnswer(ctx context.Context, postID, question, model string) string {
	return c.get(ctx, answerKey(postID, question, model))
}

// SetAnswer stores a freshly generated answer.
func (c *Cache) SetAnswer(ctx context.Context, postID, question, model, answer string) {
	c.set(ctx, answerKey(postID, question, model), answer)
}

func (c *Cache) get(ctx context.Context, key string) string {
	if c == nil || c.rdb == nil {
		return ""
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return ""
	}
	if err != nil {
		log.Printf("[Cache] Lookup failed for %s: %v", key, err)
		return ""
	}
	return val
}

func (c *Cache) set(ctx context.Context, key, val string) {
	if c == nil || c.rdb == nil || val == "" {
		return
	}
	if err := c.rdb.Set(ctx, key, val, c.ttl).Err(); err != nil {
		log.Printf("[Cache] Write failed for %s: %v", key, err)
	}
}
