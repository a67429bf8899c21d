package reddit

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const maxArticleLen = 2000

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractArticle fetches the page a link post points to and returns readable
// body text, so link posts can be summarized like self posts. Returns "" when
// nothing useful could be extracted.
func ExtractArticle(ctx context.Context, pageURL string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", browserUserAgents[rand.Intn(len(browserUserAgents))])

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("[Reddit] Link fetch failed for %s: %v", pageURL, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // limit 1 MB
	if err != nil {
		return ""
	}

	parsed, _ := nurl.Parse(pageURL)
	if article, err := readability.FromReader(strings.NewReader(string(body)), parsed); err == nil {
		text := strings.TrimSpace(whitespaceRe.ReplaceAllString(article.TextContent, " "))
		if len(text) >= 200 {
			return truncate(text, maxArticleLen)
		}
	}

	// Readability gave up; fall back to meta description plus paragraphs.
	return truncate(extractFallback(string(body)), maxArticleLen)
}

// extractFallback pulls the og:description and visible paragraph text out of
// raw HTML.
func extractFallback(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok && desc != "" {
		parts = append(parts, desc)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})
	doc.Find("article p, main p, p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) > 40 {
			parts = append(parts, text)
		}
		return len(parts) < 10
	})

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.Join(parts, " "), " "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := cutRune(s, n)
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return fmt.Sprintf("%s...", cut)
}

// cutRune shortens s to at most n bytes without splitting a UTF-8 rune.
func cutRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
