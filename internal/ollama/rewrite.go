package ollama

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`(?i)\bterm\d\b|\bkeyword\d\b`)
	timePeriodRe  = regexp.MustCompile(`(?i)\b(today|yesterday|this week|this month|recent|latest|new)\b`)
	subredditRe   = regexp.MustCompile(`(?i)(?:r/|subreddit\s+)(\w+)`)

	// Models love to preface keyword lists with explanations. Strip every
	// variant we have seen before giving up and falling back.
	prefixPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)^(Sure|Here|I'll|These|Following|Best|Top|Absolutely|Certainly|Definitely|Let me|I'd|I've|I have|I think|I will|I would|Here's|Based on|As requested).+?:`),
		regexp.MustCompile(`(?is)^.+?(search terms|keywords|searching|search on|search in|search for|to find|finding posts|find relevant|find information).+?:`),
		regexp.MustCompile(`(?is)^.*?(Output|Terms|Results|Keywords).*?:`),
		regexp.MustCompile(`(?is)^.*?(\d+)\s*(simple|effective|useful|key|important|main|relevant|primary|essential).*:`),
	}

	headingRe      = regexp.MustCompile(`(?s)^.*?:(\s*)`)
	leadFillerRe   = regexp.MustCompile(`(?i)^(Sure\s*,?\s*|Okay\s*,?\s*|Here\s*,?\s*|Well\s*,?\s*)`)
	listItemRe     = regexp.MustCompile(`(?m)^\d+[\.\)]\s*`)
	listItemNLRe   = regexp.MustCompile(`(?m)\n+\d+[\.\)]\s*`)
	newlinesRe     = regexp.MustCompile(`\n+`)
	junkCharsRe    = regexp.MustCompile(`[^\w\s,]`)
	commaSpacingRe = regexp.MustCompile(`\s*,\s*`)
	trailingComma  = regexp.MustCompile(`,\s*$`)
	doubleCommaRe  = regexp.MustCompile(`,\s*,`)
	wordRe         = regexp.MustCompile(`\b\w{3,}\b`)
)

const rewritePromptFmt = `Extract 3-5 search keywords from: %q

OUTPUT FORMAT: keyword1, keyword2, keyword3

EXAMPLES:
"What are the most recommended productivity apps according to r/productivity?"
productivity apps, recommended apps, top productivity tools

"What are the top discussions about artificial intelligence on Reddit this week?"
artificial intelligence, AI discussions, machine learning, neural networks, AI ethics`

// RewriteQuery turns a raw user question into compact search keywords.
// Never fails: LLM problems degrade to regex keyword extraction, and an
// unreachable model returns the query untouched.
func (c *Client) RewriteQuery(ctx context.Context, query, model string) string {
	hasTimePeriod := timePeriodRe.MatchString(query)

	raw, err := c.Generate(ctx, model, fmt.Sprintf(rewritePromptFmt, query))
	if err != nil {
		log.Printf("[Ollama] Query rewrite failed, using original query: %v", err)
		return query
	}

	cleaned, ok := sanitizeRewrite(raw)
	if !ok {
		log.Printf("[Ollama] Rewrite output unusable, falling back to keyword extraction")
		return strings.Join(extractKeywords(query), ", ")
	}

	// Carry the time intent through even when the model dropped it.
	lower := strings.ToLower(cleaned)
	if hasTimePeriod && !strings.Contains(lower, "recent") && !strings.Contains(lower, "latest") {
		cleaned += ", recent posts"
	}
	return cleaned
}

// sanitizeRewrite normalizes raw model output into "kw1, kw2, kw3" form.
// Returns ok=false when the output is too mangled to trust.
func sanitizeRewrite(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)

	// Placeholder output means the model echoed the format instead of
	// filling it in.
	if placeholderRe.MatchString(cleaned) || strings.Contains(strings.ToLower(cleaned), "search terms") {
		return "", false
	}

	for _, re := range prefixPatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = headingRe.ReplaceAllString(cleaned, "")
	cleaned = leadFillerRe.ReplaceAllString(cleaned, "")
	cleaned = listItemRe.ReplaceAllString(cleaned, "")
	cleaned = listItemNLRe.ReplaceAllString(cleaned, ", ")
	cleaned = newlinesRe.ReplaceAllString(cleaned, ", ")
	cleaned = junkCharsRe.ReplaceAllString(cleaned, "")
	cleaned = commaSpacingRe.ReplaceAllString(cleaned, ", ")
	cleaned = trailingComma.ReplaceAllString(cleaned, "")
	cleaned = doubleCommaRe.ReplaceAllString(cleaned, ",")
	cleaned = strings.TrimSpace(cleaned)

	if len(strings.Fields(cleaned)) > 15 ||
		strings.HasPrefix(cleaned, "Sure") ||
		strings.Contains(cleaned, "Here are") ||
		len(strings.Split(cleaned, ",")) < 2 {
		return "", false
	}
	return cleaned, true
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {},
	"are": {}, "on": {}, "of": {}, "what": {}, "which": {}, "who": {},
	"whom": {}, "whose": {}, "why": {}, "how": {}, "when": {}, "where": {},
}

// extractKeywords is the regex fallback when the model cannot produce a
// usable keyword list.
func extractKeywords(query string) []string {
	words := wordRe.FindAllString(strings.ToLower(query), -1)

	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, skip := stopWords[w]; skip {
			continue
		}
		keywords = append(keywords, w)
	}

	lower := strings.ToLower(query)
	if strings.Contains(lower, "ai") || strings.Contains(lower, "artificial intelligence") || strings.Contains(lower, "machine learning") {
		if !containsString(keywords, "artificial intelligence") && !containsString(keywords, "ai") {
			keywords = append(keywords, "artificial intelligence")
		}
	}
	if timePeriodRe.MatchString(query) {
		keywords = append(keywords, "recent")
	}
	if m := subredditRe.FindStringSubmatch(query); m != nil {
		sub := strings.ToLower(m[1])
		if !containsString(keywords, sub) {
			keywords = append(keywords, "r/"+sub)
		}
	}
	return keywords
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
