package ollama

import (
	"strings"
	"testing"
)

func TestSanitizeRewrite_CleanOutput(t *testing.T) {
	got, ok := sanitizeRewrite("productivity apps, recommended apps, top productivity tools")
	if !ok {
		t.Fatalf("expected clean output to be accepted")
	}
	if got != "productivity apps, recommended apps, top productivity tools" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestSanitizeRewrite_StripsPrefix(t *testing.T) {
	raw := "Sure, here are the keywords: pasta recipes, easy dinner, italian cooking"
	got, ok := sanitizeRewrite(raw)
	if !ok {
		t.Fatalf("expected output to be salvageable, got rejection")
	}
	if strings.Contains(strings.ToLower(got), "sure") || strings.Contains(got, ":") {
		t.Errorf("prefix not stripped: %q", got)
	}
	if !strings.Contains(got, "pasta recipes") {
		t.Errorf("keywords lost during cleanup: %q", got)
	}
}

func TestSanitizeRewrite_FlattensNumberedList(t *testing.T) {
	raw := "1. machine learning\n2. neural networks\n3. AI ethics"
	got, ok := sanitizeRewrite(raw)
	if !ok {
		t.Fatalf("expected list output to be salvageable")
	}
	if strings.Contains(got, "\n") || strings.Contains(got, "1.") {
		t.Errorf("list formatting not flattened: %q", got)
	}
	if len(strings.Split(got, ",")) != 3 {
		t.Errorf("expected 3 comma-separated keywords: %q", got)
	}
}

func TestSanitizeRewrite_RejectsPlaceholders(t *testing.T) {
	for _, raw := range []string{
		"keyword1, keyword2, keyword3",
		"here are your search terms: term1, term2",
	} {
		if _, ok := sanitizeRewrite(raw); ok {
			t.Errorf("expected placeholder output to be rejected: %q", raw)
		}
	}
}

func TestSanitizeRewrite_RejectsRamblingOutput(t *testing.T) {
	raw := "productivity"
	if _, ok := sanitizeRewrite(raw); ok {
		t.Errorf("single keyword without commas should be rejected")
	}

	long := strings.Repeat("word ", 20) + ", second"
	if _, ok := sanitizeRewrite(long); ok {
		t.Errorf("overlong output should be rejected")
	}
}

func TestExtractKeywords(t *testing.T) {
	kws := extractKeywords("What are the most recommended productivity apps according to r/productivity?")
	if len(kws) == 0 {
		t.Fatalf("expected keywords")
	}
	joined := strings.Join(kws, " ")
	if !strings.Contains(joined, "productivity") || !strings.Contains(joined, "apps") {
		t.Errorf("missing obvious keywords: %v", kws)
	}
	if strings.Contains(" "+joined+" ", " what ") {
		t.Errorf("stop word leaked through: %v", kws)
	}
}

func TestExtractKeywords_TimePeriod(t *testing.T) {
	kws := extractKeywords("top discussions about artificial intelligence this week")
	if !containsString(kws, "recent") {
		t.Errorf("expected time indicator keyword, got %v", kws)
	}
}
