package api

import (
	"regexp"
	"strings"

	"reddit-agent/internal/reddit"
)

var (
	subredditHintRe = regexp.MustCompile(`(?i)(?:r/|subreddit\s+)(\w+)`)
	timePeriodRe    = regexp.MustCompile(`(?i)\b(today|yesterday|this week|this month|recent|latest|new)\b`)
)

// subredditHint pulls an explicitly mentioned community out of the query,
// preserving its capitalization.
func subredditHint(query string) string {
	m := subredditHintRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return reddit.NormalizeSubreddit(m[1])
}

// timePeriodHint returns the time phrase mentioned in the query, if any.
func timePeriodHint(query string) string {
	m := timePeriodRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
