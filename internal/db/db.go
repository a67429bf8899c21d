package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"reddit-agent/internal/config"
	"reddit-agent/internal/post"
)

var DB *gorm.DB

// Init opens the database and migrates the post/comment schema. Postgres is
// used when a DSN is configured, sqlite otherwise.
func Init(cfg *config.Config) error {
	var (
		db  *gorm.DB
		err error
	)
	if cfg.Database.PostgresDSN != "" {
		db, err = gorm.Open(postgres.Open(cfg.Database.PostgresDSN), &gorm.Config{})
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.Database.SQLitePath), &gorm.Config{})
	}
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&post.RedditPost{}, &post.RedditComment{}); err != nil {
		return err
	}

	DB = db
	log.Printf("Database connected and migrated")
	return nil
}
