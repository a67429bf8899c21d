package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"reddit-agent/internal/config"
	"reddit-agent/internal/tools"
)

// Realistic browser user agents for anonymous JSON endpoint access. Reddit
// throttles obvious bot agents hard on the public endpoints.
var browserUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/122.0.2365.66",
}

// Client fetches posts and comments from the Reddit API. With credentials
// configured it uses OAuth2 application-only auth against oauth.reddit.com;
// without them it falls back to the public JSON endpoints.
type Client struct {
	BaseURL  string // public endpoints, default https://www.reddit.com
	OAuthURL string // authenticated endpoints, default https://oauth.reddit.com
	TokenURL string // default https://www.reddit.com/api/v1/access_token

	cfg           config.RedditConfig
	maxSubreddits int

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *tools.CircuitBreaker

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Reddit client from the application config.
func NewClient(cfg *config.Config) *Client {
	interval := time.Duration(cfg.Reddit.RequestInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Client{
		BaseURL:       "https://www.reddit.com",
		OAuthURL:      "https://oauth.reddit.com",
		TokenURL:      "https://www.reddit.com/api/v1/access_token",
		cfg:           cfg.Reddit,
		maxSubreddits: cfg.Search.MaxSubreddits,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		limiter:       rate.NewLimiter(rate.Every(interval), 1),
		breaker:       tools.NewCircuitBreaker("reddit", 5, 2*time.Minute),
	}
}

func (c *Client) authenticated() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// accessToken returns a cached application-only OAuth token, refreshing it
// when less than a minute of validity remains.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, "POST", c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token")
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.token, nil
}

// getJSON performs a rate-limited GET against the Reddit API and decodes the
// response into target. path must start with "/" and include the .json suffix.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return c.breaker.Call(func() error {
		base := c.BaseURL
		var bearer string
		if c.authenticated() {
			token, err := c.accessToken(ctx)
			if err != nil {
				return err
			}
			base = c.OAuthURL
			bearer = token
		}

		u, err := url.Parse(base + path)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		q.Set("raw_json", "1")
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		} else {
			req.Header.Set("User-Agent", browserUserAgents[rand.Intn(len(browserUserAgents))])
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("reddit request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("reddit returned status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to parse reddit response: %w", err)
		}
		return nil
	})
}

// BreakerStats exposes the circuit breaker counters for diagnostics.
func (c *Client) BreakerStats() tools.Stats {
	return c.breaker.GetStats()
}
