package post

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RedditPost is the locally persisted copy of a fetched post. Reddit's own
// base36 id is the primary key.
type RedditPost struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title"`
	Content     string         `json:"content" gorm:"type:text"`
	Subreddit   string         `json:"subreddit" gorm:"index"`
	Author      string         `json:"author"`
	Score       int            `json:"score"`
	NumComments int            `json:"num_comments"`
	UpvoteRatio float64        `json:"upvote_ratio"`
	URL         string         `json:"url"`
	IsSelf      bool           `json:"is_self"`
	Domain      string         `json:"domain,omitempty"`
	LinkFlair   string         `json:"link_flair_text,omitempty"`
	IsOC        bool           `json:"is_original_content"`
	HasAwards   bool           `json:"has_awards"`
	CreatedUTC  float64        `json:"created_utc"`
	FetchedAt   time.Time      `json:"fetched_at"`
	Extra       datatypes.JSON `json:"-"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Comments    []RedditComment `json:"-" gorm:"foreignKey:PostID"`
}

// RedditComment is a top-level comment fetched for a post.
type RedditComment struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	PostID     string         `json:"post_id" gorm:"index"`
	Content    string         `json:"content" gorm:"type:text"`
	Author     string         `json:"author"`
	Score      int            `json:"score"`
	CreatedUTC float64        `json:"created_utc"`
	FetchedAt  time.Time      `json:"fetched_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// Ranked decorates a post with the relevance signals computed during a
// search: semantic similarity, engagement and recency.
type Ranked struct {
	RedditPost
	Similarity      float64 `json:"relevance_score"`
	EngagementScore float64 `json:"engagement_score"`
	TimeRelevance   float64 `json:"time_relevance"`
}

// CreatedAt returns the post creation time from the reddit epoch timestamp.
func (p *RedditPost) CreatedAt() time.Time {
	sec := int64(p.CreatedUTC)
	nsec := int64((p.CreatedUTC - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Upsert writes posts to the database, replacing older copies of the same id.
func Upsert(db *gorm.DB, posts []RedditPost) error {
	if len(posts) == 0 {
		return nil
	}
	for i := range posts {
		if posts[i].FetchedAt.IsZero() {
			posts[i].FetchedAt = time.Now()
		}
	}
	return db.Save(&posts).Error
}

// UpsertComments writes fetched comments to the database.
func UpsertComments(db *gorm.DB, comments []RedditComment) error {
	if len(comments) == 0 {
		return nil
	}
	for i := range comments {
		if comments[i].FetchedAt.IsZero() {
			comments[i].FetchedAt = time.Now()
		}
	}
	return db.Save(&comments).Error
}
