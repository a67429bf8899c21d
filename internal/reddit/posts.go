package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"reddit-agent/internal/post"
)

// ErrPostNotFound is returned when Reddit has no post with the given id.
var ErrPostNotFound = errors.New("post not found")

// GetPost fetches a single post by its base36 id, along with its top-level
// comments. Reddit serves both in one round trip.
func (c *Client) GetPost(ctx context.Context, id string, commentLimit int) (*post.RedditPost, []post.RedditComment, error) {
	if commentLimit <= 0 {
		commentLimit = 10
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(commentLimit))
	q.Set("depth", "1")

	// /comments/{id}.json returns a two-element array: the post listing and
	// the comment listing.
	var payload []listing
	if err := c.getJSON(ctx, fmt.Sprintf("/comments/%s.json", id), q, &payload); err != nil {
		return nil, nil, err
	}
	if len(payload) < 1 {
		return nil, nil, ErrPostNotFound
	}

	posts := payload[0].posts()
	if len(posts) == 0 {
		return nil, nil, ErrPostNotFound
	}
	p := posts[0]

	var comments []post.RedditComment
	if len(payload) > 1 {
		comments = payload[1].comments(p.ID)
		if len(comments) > commentLimit {
			comments = comments[:commentLimit]
		}
	}
	return &p, comments, nil
}

// GetComments fetches only the top-level comments of a post.
func (c *Client) GetComments(ctx context.Context, id string, limit int) ([]post.RedditComment, error) {
	_, comments, err := c.GetPost(ctx, id, limit)
	return comments, err
}
