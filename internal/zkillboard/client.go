package zkillboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public zKillboard API.
const DefaultBaseURL = "https://zkillboard.com/api"

// Options configures a Client. Zero values fall back to the defaults noted per field.
type Options struct {
	BaseURL   string  // DefaultBaseURL
	UserAgent string  // "Quartermaster-App/1.0"
	RPS       float64 // 10 requests per second

	// Thresholds classify a kill count (DefaultThresholds).
	Thresholds DangerThresholds
	// Concurrency bounds the per-system fan-out of a route assessment (5).
	Concurrency int
}

// Client is a rate-limited zKillboard API client. Requests are unauthenticated.
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	baseURL     string
	userAgent   string
	thresholds  DangerThresholds
	concurrency int
	now         func() time.Time
}

// NewClient creates a zKillboard client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Quartermaster-App/1.0"
	}
	if opts.RPS <= 0 {
		opts.RPS = 10
	}
	if opts.Thresholds == (DangerThresholds{}) {
		opts.Thresholds = DefaultThresholds
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	return &Client{
		http:        &http.Client{Timeout: 60 * time.Second}, // zKillboard can be slow
		limiter:     rate.NewLimiter(rate.Limit(opts.RPS), 1),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   opts.UserAgent,
		thresholds:  opts.Thresholds,
		concurrency: opts.Concurrency,
		now:         time.Now,
	}
}

// Thresholds returns the classification thresholds in use.
func (c *Client) Thresholds() DangerThresholds {
	return c.thresholds
}

// getJSON fetches a URL and decodes JSON, waiting on the rate limiter first.
// A 429 is returned as an error like any other non-200 status.
func (c *Client) getJSON(ctx context.Context, url string, dst interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("zkillboard %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

// HealthCheck pings zKillboard to verify connectivity.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/stats/regionID/10000002/", nil) // The Forge always has data
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
