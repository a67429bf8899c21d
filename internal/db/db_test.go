package db

import (
	"path/filepath"
	"testing"

	"reddit-agent/internal/config"
	"reddit-agent/internal/post"
)

func TestInit_InvalidPostgresDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.PostgresDSN = "invalid-dsn-for-testing"
	if err := Init(cfg); err == nil {
		t.Errorf("expected error for invalid DSN, got nil")
	}
}

func TestInit_SQLiteMigratesAndSaves(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "reddit.db")
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if DB == nil {
		t.Fatalf("DB not set")
	}

	posts := []post.RedditPost{
		{ID: "abc123", Title: "First", Subreddit: "golang", Score: 42},
	}
	if err := post.Upsert(DB, posts); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Saving again with a new score must replace, not duplicate.
	posts[0].Score = 99
	if err := post.Upsert(DB, posts); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var got post.RedditPost
	if err := DB.First(&got, "id = ?", "abc123").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Score != 99 {
		t.Errorf("expected upserted score 99, got %d", got.Score)
	}
	var count int64
	DB.Model(&post.RedditPost{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	comments := []post.RedditComment{
		{ID: "c1", PostID: "abc123", Content: "nice", Author: "u1", Score: 3},
	}
	if err := post.UpsertComments(DB, comments); err != nil {
		t.Fatalf("comments: %v", err)
	}
}
