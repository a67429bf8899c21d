package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"reddit-agent/internal/post"
)

var (
	subredditNameRe    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	subredditMentionRe = regexp.MustCompile(`(?i)r/(\w+)`)

	// NSFW and meme-heavy communities are useless for summarization.
	blockedSubredditPatterns = []string{
		"nsfw", "porn", "gonewild", "memes", "dankmemes",
		"circlejerk", "shitpost", "funny", "onlyfans",
	}

	foodTerms = []string{
		"food", "recipe", "cook", "meal", "dish", "pasta", "pizza",
		"dinner", "lunch", "breakfast", "kitchen", "chef",
	}
)

// MapTimeFilter converts a human time phrase from the query into Reddit's
// t= search parameter. Returns "" when the phrase is unknown.
func MapTimeFilter(period string) string {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "today", "yesterday":
		return "day"
	case "this week", "new":
		return "week"
	case "this month", "recent", "latest":
		return "month"
	default:
		return ""
	}
}

// ValidSubreddit reports whether name looks like a real, usable subreddit.
func ValidSubreddit(name string) bool {
	if !subredditNameRe.MatchString(name) {
		return false
	}
	lower := strings.ToLower(name)
	for _, pattern := range blockedSubredditPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

// NormalizeSubreddit fixes casing for communities whose canonical name is
// not all lowercase.
func NormalizeSubreddit(name string) string {
	if strings.EqualFold(name, "cooking") {
		return "Cooking"
	}
	return name
}

// SearchPosts searches Reddit for posts matching the query. When subreddit is
// empty, relevant subreddits are discovered first and searched concurrently.
// Results are deduplicated, sorted by score and trimmed to limit.
func (c *Client) SearchPosts(ctx context.Context, query, subreddit string, limit int, timeFilter string) ([]post.RedditPost, error) {
	if limit <= 0 {
		limit = 10
	}

	var subs []string
	if subreddit != "" {
		subs = []string{NormalizeSubreddit(subreddit)}
	} else {
		subs = c.discoverSubreddits(ctx, query)
	}
	if len(subs) > c.maxSubreddits {
		subs = subs[:c.maxSubreddits]
	}
	log.Printf("[Reddit] Searching %d subreddits for %q: %v", len(subs), query, subs)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		combined []post.RedditPost
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub string) {
			defer wg.Done()
			posts, err := c.searchSubreddit(ctx, query, sub, limit, timeFilter)
			if err != nil {
				log.Printf("[Reddit] Search in r/%s failed: %v", sub, err)
				return
			}
			mu.Lock()
			combined = append(combined, posts...)
			mu.Unlock()
		}(sub)
	}
	wg.Wait()

	seen := make(map[string]struct{}, len(combined))
	deduped := combined[:0]
	for _, p := range combined {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		deduped = append(deduped, p)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped, nil
}

// searchSubreddit searches within one subreddit, restricted to it.
func (c *Client) searchSubreddit(ctx context.Context, query, subreddit string, limit int, timeFilter string) ([]post.RedditPost, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("restrict_sr", "1")
	q.Set("sort", "relevance")
	q.Set("limit", strconv.Itoa(limit))
	if timeFilter != "" {
		q.Set("t", timeFilter)
	}

	var result listing
	path := fmt.Sprintf("/r/%s/search.json", NormalizeSubreddit(subreddit))
	if err := c.getJSON(ctx, path, q, &result); err != nil {
		return nil, err
	}
	return result.posts(), nil
}

// discoverSubreddits finds communities relevant to the query:
// direct r/xxx mentions first, then the subreddit search API, then a
// two-stage pass over a global post search, then topic fallbacks.
func (c *Client) discoverSubreddits(ctx context.Context, query string) []string {
	if mentions := subredditMentionRe.FindAllStringSubmatch(query, -1); len(mentions) > 0 {
		direct := make([]string, 0, len(mentions))
		for _, m := range mentions {
			direct = append(direct, m[1])
		}
		log.Printf("[Reddit] Subreddits mentioned directly in query: %v", direct)
		return direct
	}

	discovered := make([]string, 0, c.maxSubreddits)
	seen := make(map[string]struct{})
	add := func(name string) {
		if name == "" || !ValidSubreddit(name) {
			return
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		discovered = append(discovered, name)
	}

	// Method 1: subreddit search API.
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "5")
	var subSearch listing
	if err := c.getJSON(ctx, "/subreddits/search.json", q, &subSearch); err != nil {
		log.Printf("[Reddit] Subreddit search failed: %v", err)
	} else {
		for _, child := range subSearch.Data.Children {
			var d struct {
				DisplayName string `json:"display_name"`
			}
			if err := json.Unmarshal(child.Data, &d); err == nil {
				add(d.DisplayName)
			}
		}
	}

	// Method 2: two-stage discovery. Search posts across all of Reddit and
	// collect the subreddits they live in.
	if len(discovered) < c.maxSubreddits {
		q := url.Values{}
		q.Set("q", query)
		q.Set("sort", "relevance")
		q.Set("limit", "10")
		var postSearch listing
		if err := c.getJSON(ctx, "/search.json", q, &postSearch); err != nil {
			log.Printf("[Reddit] Two-stage discovery failed: %v", err)
		} else {
			for _, p := range postSearch.posts() {
				add(p.Subreddit)
			}
		}
	}

	if len(discovered) == 0 {
		discovered = fallbackSubreddits(query)
		log.Printf("[Reddit] No subreddits discovered, using fallbacks: %v", discovered)
	}

	if len(discovered) > c.maxSubreddits {
		discovered = discovered[:c.maxSubreddits]
	}
	return discovered
}

// fallbackSubreddits picks a default community set by query topic.
func fallbackSubreddits(query string) []string {
	lower := strings.ToLower(query)
	for _, term := range foodTerms {
		if strings.Contains(lower, term) {
			return []string{"Cooking", "food", "recipes", "AskCulinary", "EatCheapAndHealthy"}
		}
	}
	return []string{"AskReddit", "explainlikeimfive", "NoStupidQuestions"}
}
