package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"reddit-agent/internal/config"
)

func newTestRedditClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Reddit.UserAgent = "RedditAgent/1.0 test"
	cfg.Reddit.RequestInterval = 1
	cfg.Search.MaxSubreddits = 5

	c := NewClient(cfg)
	c.BaseURL = srv.URL
	c.OAuthURL = srv.URL
	c.TokenURL = srv.URL + "/api/v1/access_token"
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

const searchListingJSON = `{
	"data": {
		"children": [
			{"kind": "t3", "data": {"id": "aaa", "title": "Low scored", "selftext": "body a", "subreddit": "golang", "author": "u1", "score": 5, "num_comments": 2, "permalink": "/r/golang/comments/aaa/x/", "created_utc": 1700000000, "is_self": true}},
			{"kind": "t3", "data": {"id": "bbb", "title": "High scored", "selftext": "body b", "subreddit": "golang", "author": "u2", "score": 50, "num_comments": 30, "permalink": "/r/golang/comments/bbb/y/", "created_utc": 1700000100, "is_self": true, "is_original_content": true, "total_awards_received": 1}}
		]
	}
}`

func TestSearchPosts_ExplicitSubreddit(t *testing.T) {
	var gotPath string
	client := newTestRedditClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("restrict_sr") != "1" {
			t.Errorf("expected restrict_sr=1")
		}
		w.Write([]byte(searchListingJSON))
	}))

	posts, err := client.SearchPosts(context.Background(), "generics", "golang", 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotPath != "/r/golang/search.json" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	// Sorted by score descending.
	if posts[0].ID != "bbb" || posts[1].ID != "aaa" {
		t.Errorf("posts not sorted by score: %s, %s", posts[0].ID, posts[1].ID)
	}
	if !posts[0].HasAwards || !posts[0].IsOC {
		t.Errorf("award/OC flags not mapped: %+v", posts[0])
	}
	if posts[0].URL != "https://reddit.com/r/golang/comments/bbb/y/" {
		t.Errorf("unexpected permalink URL: %s", posts[0].URL)
	}
}

func TestSearchPosts_TimeFilter(t *testing.T) {
	client := newTestRedditClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "week" {
			t.Errorf("expected t=week, got %q", r.URL.Query().Get("t"))
		}
		w.Write([]byte(`{"data":{"children":[]}}`))
	}))

	if _, err := client.SearchPosts(context.Background(), "news", "worldnews", 5, "week"); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestSearchPosts_DiscoveryAndDedup(t *testing.T) {
	client := newTestRedditClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/subreddits/search.json":
			w.Write([]byte(`{"data":{"children":[
				{"kind":"t5","data":{"display_name":"golang"}},
				{"kind":"t5","data":{"display_name":"dankmemes"}},
				{"kind":"t5","data":{"display_name":"programming"}}
			]}}`))
		case "/search.json":
			w.Write([]byte(`{"data":{"children":[]}}`))
		default:
			// Every subreddit search returns the same posts; result must
			// still be deduplicated.
			w.Write([]byte(searchListingJSON))
		}
	}))

	posts, err := client.SearchPosts(context.Background(), "compilers", "", 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("expected deduplicated posts, got %d", len(posts))
	}
}

func TestDiscoverSubreddits_DirectMention(t *testing.T) {
	client := newTestRedditClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no HTTP call expected for direct mentions, got %s", r.URL.Path)
	}))

	subs := client.discoverSubreddits(context.Background(), "best pasta from r/Cooking and r/recipes")
	if len(subs) != 2 || subs[0] != "Cooking" || subs[1] != "recipes" {
		t.Errorf("unexpected subreddits: %v", subs)
	}
}

func TestDiscoverSubreddits_Fallbacks(t *testing.T) {
	client := newTestRedditClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"children":[]}}`))
	}))

	subs := client.discoverSubreddits(context.Background(), "easy dinner recipe ideas")
	if len(subs) == 0 || subs[0] != "Cooking" {
		t.Errorf("expected food fallbacks, got %v", subs)
	}

	subs = client.discoverSubreddits(context.Background(), "meaning of life")
	if len(subs) == 0 || subs[0] != "AskReddit" {
		t.Errorf("expected general fallbacks, got %v", subs)
	}
}

func TestValidSubreddit(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"golang", true},
		{"Ask_Reddit", true},
		{"not-valid!", false},
		{"dankmemes", false},
		{"gonewild", false},
		{"funnystories", false},
	}
	for _, tc := range cases {
		if got := ValidSubreddit(tc.name); got != tc.want {
			t.Errorf("ValidSubreddit(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMapTimeFilter(t *testing.T) {
	cases := map[string]string{
		"today":      "day",
		"yesterday":  "day",
		"this week":  "week",
		"new":        "week",
		"this month": "month",
		"recent":     "month",
		"latest":     "month",
		"sometime":   "",
		"":           "",
	}
	for in, want := range cases {
		if got := MapTimeFilter(in); got != want {
			t.Errorf("MapTimeFilter(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeSubreddit(t *testing.T) {
	if NormalizeSubreddit("cooking") != "Cooking" {
		t.Errorf("cooking should normalize to Cooking")
	}
	if NormalizeSubreddit("golang") != "golang" {
		t.Errorf("golang should be untouched")
	}
}
