package reddit

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"reddit-agent/internal/post"
)

// listing mirrors Reddit's Listing envelope.
type listing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// postData is the subset of a t3 thing we care about.
type postData struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Selftext            string  `json:"selftext"`
	Subreddit           string  `json:"subreddit"`
	Author              string  `json:"author"`
	Score               int     `json:"score"`
	UpvoteRatio         float64 `json:"upvote_ratio"`
	Permalink           string  `json:"permalink"`
	URL                 string  `json:"url"`
	CreatedUTC          float64 `json:"created_utc"`
	NumComments         int     `json:"num_comments"`
	IsSelf              bool    `json:"is_self"`
	LinkFlairText       string  `json:"link_flair_text"`
	Domain              string  `json:"domain"`
	IsOriginalContent   bool    `json:"is_original_content"`
	TotalAwardsReceived int     `json:"total_awards_received"`
	Over18              bool    `json:"over_18"`
	Stickied            bool    `json:"stickied"`
}

// commentData is the subset of a t1 thing we care about.
type commentData struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

const maxContentLen = 1000

// toPost converts raw API data into the persisted model. Selftext is
// truncated so one rambling post cannot dominate an LLM context window.
func toPost(d postData) post.RedditPost {
	content := cutRune(d.Selftext, maxContentLen)

	extra, _ := json.Marshal(map[string]interface{}{
		"link_url": d.URL,
		"over_18":  d.Over18,
		"stickied": d.Stickied,
	})

	return post.RedditPost{
		ID:          d.ID,
		Title:       d.Title,
		Content:     content,
		Subreddit:   d.Subreddit,
		Author:      d.Author,
		Score:       d.Score,
		NumComments: d.NumComments,
		UpvoteRatio: d.UpvoteRatio,
		URL:         "https://reddit.com" + d.Permalink,
		IsSelf:      d.IsSelf,
		Domain:      d.Domain,
		LinkFlair:   d.LinkFlairText,
		IsOC:        d.IsOriginalContent,
		HasAwards:   d.TotalAwardsReceived > 0,
		CreatedUTC:  d.CreatedUTC,
		FetchedAt:   time.Now(),
		Extra:       datatypes.JSON(extra),
	}
}

func toComment(postID string, d commentData) post.RedditComment {
	return post.RedditComment{
		ID:         d.ID,
		PostID:     postID,
		Content:    d.Body,
		Author:     d.Author,
		Score:      d.Score,
		CreatedUTC: d.CreatedUTC,
		FetchedAt:  time.Now(),
	}
}

// posts decodes all t3 children of a listing.
func (l *listing) posts() []post.RedditPost {
	out := make([]post.RedditPost, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		var d postData
		if err := json.Unmarshal(child.Data, &d); err != nil || d.ID == "" {
			continue
		}
		out = append(out, toPost(d))
	}
	return out
}

// comments decodes all t1 children of a listing.
func (l *listing) comments(postID string) []post.RedditComment {
	out := make([]post.RedditComment, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "" && child.Kind != "t1" {
			continue
		}
		var d commentData
		if err := json.Unmarshal(child.Data, &d); err != nil || d.ID == "" {
			continue
		}
		out = append(out, toComment(postID, d))
	}
	return out
}
