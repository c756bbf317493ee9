package esi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public ESI endpoint.
const DefaultBaseURL = "https://esi.evetech.net/latest"

// Client maps ESI endpoints to Go calls. It never retries or caches;
// the semaphore only bounds concurrent connections.
type Client struct {
	http       *http.Client
	sem        chan struct{}
	baseURL    string
	datasource string
	userAgent  string
}

// NewClient creates an ESI client. Empty arguments fall back to the public
// tranquility endpoint.
func NewClient(baseURL, datasource, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if datasource == "" {
		datasource = "tranquility"
	}
	if userAgent == "" {
		userAgent = "Quartermaster-App/1.0"
	}
	return &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		sem:        make(chan struct{}, 20),
		baseURL:    strings.TrimRight(baseURL, "/"),
		datasource: datasource,
		userAgent:  userAgent,
	}
}

// endpoint builds an absolute URL with the datasource parameter attached.
func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("datasource", c.datasource)
	return c.baseURL + path + "?" + params.Encode()
}

// HealthCheck pings ESI to verify connectivity.
func (c *Client) HealthCheck(ctx context.Context) bool {
	var status struct {
		Players int `json:"players"`
	}
	return c.GetJSON(ctx, c.endpoint("/status/", nil), &status) == nil
}

// GetJSON fetches a public URL and decodes JSON into dst.
func (c *Client) GetJSON(ctx context.Context, rawURL string, dst interface{}) error {
	_, err := c.do(ctx, http.MethodGet, rawURL, "", nil, dst)
	return err
}

// AuthGetJSON performs a bearer-authenticated GET.
func (c *Client) AuthGetJSON(ctx context.Context, rawURL, accessToken string, dst interface{}) error {
	_, err := c.do(ctx, http.MethodGet, rawURL, accessToken, nil, dst)
	return err
}

// PostJSON sends body as JSON and decodes the response into dst.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, dst interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, rawURL, "", payload, dst)
	return err
}

func (c *Client) do(ctx context.Context, method, rawURL, accessToken string, body []byte, dst interface{}) (http.Header, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ESI %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return resp.Header, nil
}

// getPaged fetches page 1, reads X-Pages, then fetches the remaining pages
// concurrently. Any failed page fails the whole call.
func getPaged[T any](ctx context.Context, c *Client, path string, params url.Values, accessToken string) ([]T, error) {
	if params == nil {
		params = url.Values{}
	}
	pageURL := func(page int) string {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		return c.endpoint(path, q)
	}

	var first []T
	hdr, err := c.do(ctx, http.MethodGet, pageURL(1), accessToken, nil, &first)
	if err != nil {
		return nil, err
	}

	totalPages := 1
	if p := hdr.Get("X-Pages"); p != "" {
		if n, perr := strconv.Atoi(p); perr == nil && n > 1 {
			totalPages = n
		}
	}
	if totalPages == 1 {
		return first, nil
	}

	pages := make([][]T, totalPages+1)
	pages[1] = first
	g, gctx := errgroup.WithContext(ctx)
	for p := 2; p <= totalPages; p++ {
		page := p
		g.Go(func() error {
			var data []T
			if _, err := c.do(gctx, http.MethodGet, pageURL(page), accessToken, nil, &data); err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			pages[page] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]T, 0, len(first)*totalPages)
	for _, data := range pages[1:] {
		all = append(all, data...)
	}
	return all, nil
}
