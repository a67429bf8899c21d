package ollama

import (
	"context"
	"fmt"
	"strings"

	"reddit-agent/internal/post"
)

const synthesizePromptFmt = `You are a helpful assistant specializing in summarizing Reddit discussions. Given the following extracted key points and top comments, produce a clear and concise summary that highlights common themes, divergent opinions, and any consensus reached. Maintain the informal tone of Reddit while ensuring clarity and brevity.

CONTEXT:
%s

REQUIREMENTS:
1. Highlight common themes and patterns
2. Note any significant disagreements or debates
3. Identify any consensus or widely supported views
4. Preserve Reddit's informal, authentic tone
5. Include relevant examples or specific experiences
6. Structure with clear sections:
   - Main Points
   - Areas of Agreement
   - Differing Views (if any)
7. Use **bold** for key insights
8. Keep it concise but informative
9. Add credibility markers (e.g., "Multiple users reported...")
10. Note if certain views are from specific subreddits`

const summarizePromptFmt = `Summarize the following Reddit post in a few short paragraphs. Keep the informal tone of the original, preserve concrete details (names, numbers, recommendations), and finish with a one-line takeaway.

POST:
%s`

const answerPromptFmt = `Answer the question using only the Reddit post below. If the post does not contain the answer, say so instead of guessing.

%s

QUESTION: %s`

// Synthesize generates a summary answering the user's query from the ranked
// posts. At most the top 5 posts are included in the context.
func (c *Client) Synthesize(ctx context.Context, query string, posts []post.Ranked, model string) (string, error) {
	if len(posts) == 0 {
		return "No relevant posts found to synthesize an answer.", nil
	}

	var sb strings.Builder
	for i, p := range posts {
		if i >= 5 {
			break
		}
		relevance := ""
		if p.Similarity > 0 {
			relevance = fmt.Sprintf(" (Relevance: %.0f%%)", p.Similarity*100)
		}
		subreddit := ""
		if p.Subreddit != "" {
			subreddit = " from r/" + p.Subreddit
		}
		fmt.Fprintf(&sb, "%d. Title: %s%s%s\nContent: %s\n\n", i+1, p.Title, relevance, subreddit, p.Content)
	}

	prompt := fmt.Sprintf(synthesizePromptFmt, sb.String())
	answer, err := c.Generate(ctx, model, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Summarize generates a standalone summary of a single post's content.
func (c *Client) Summarize(ctx context.Context, content, model string) (string, error) {
	summary, err := c.Generate(ctx, model, fmt.Sprintf(summarizePromptFmt, content))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// SummarizePrompt returns the prompt Summarize would send, for streaming
// callers that manage the generation themselves.
func SummarizePrompt(content string) string {
	return fmt.Sprintf(summarizePromptFmt, content)
}

// Answer answers a free-text question about a single post.
func (c *Client) Answer(ctx context.Context, postContext, question, model string) (string, error) {
	answer, err := c.Generate(ctx, model, fmt.Sprintf(answerPromptFmt, postContext, question))
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
