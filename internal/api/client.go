// Package api is the REST client for the product backend. Responses arrive
// in either a `{data: ...}` or a `{success, message}` envelope. Idempotent
// GETs retry with exponential backoff on network and 5xx errors; writes
// never retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmorel/breakwater/internal/media"
	"github.com/dmorel/breakwater/internal/stats"
)

const (
	// Retry configuration
	maxRetries   = 3
	initialDelay = 500 * time.Millisecond
	maxDelay     = 10 * time.Second
)

// TokenSource yields the bearer token for authenticated requests. An empty
// token means anonymous.
type TokenSource interface {
	Token() string
}

// Client provides access to the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a backend client. tokens may be nil for anonymous use.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
	}
}

// Verify Client implements the stats backend at compile time.
var _ stats.Backend = (*Client)(nil)

// GetMedia fetches one media item by id.
func (c *Client) GetMedia(ctx context.Context, id string) (*media.Track, error) {
	var env dataEnvelope[mediaPayload]
	if err := c.getJSON(ctx, "/api/media/"+id, &env); err != nil {
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	track := env.Data.toTrack()
	return &track, nil
}

// GetMediaByGroup fetches all language variants of a content group.
func (c *Client) GetMediaByGroup(ctx context.Context, groupID string) ([]media.Track, error) {
	var env dataEnvelope[[]mediaPayload]
	if err := c.getJSON(ctx, "/api/media/group/"+groupID, &env); err != nil {
		return nil, fmt.Errorf("get media group %s: %w", groupID, err)
	}
	tracks := make([]media.Track, 0, len(env.Data))
	for _, p := range env.Data {
		tracks = append(tracks, p.toTrack())
	}
	return tracks, nil
}

// GetSubtitles fetches the subtitle tracks for a media item.
func (c *Client) GetSubtitles(ctx context.Context, mediaID string) ([]Subtitle, error) {
	var env dataEnvelope[[]Subtitle]
	if err := c.getJSON(ctx, "/api/subtitles/"+mediaID, &env); err != nil {
		return nil, fmt.Errorf("get subtitles %s: %w", mediaID, err)
	}
	return env.Data, nil
}

// GetStats fetches the current user's aggregate play counters.
func (c *Client) GetStats(ctx context.Context) (*stats.Aggregate, error) {
	var env dataEnvelope[stats.Aggregate]
	if err := c.getJSON(ctx, "/api/stats/me", &env); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	agg := env.Data
	return &agg, nil
}

// RecordPlay posts a finished listening session and returns the updated
// aggregate.
func (c *Client) RecordPlay(ctx context.Context, rec stats.PlayRecord) (*stats.Aggregate, error) {
	var env dataEnvelope[stats.Aggregate]
	if err := c.postJSON(ctx, "/api/stats/record", rec, &env); err != nil {
		return nil, fmt.Errorf("record play %s: %w", rec.MediaID, err)
	}
	agg := env.Data
	return &agg, nil
}

// ResetStats clears the current user's play counters.
func (c *Client) ResetStats(ctx context.Context) error {
	var env successEnvelope
	if err := c.postJSON(ctx, "/api/stats/reset", nil, &env); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("reset stats: backend refused: %s", env.Message)
	}
	return nil
}

// getJSON performs an authenticated GET with retry and decodes into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// postJSON performs an authenticated POST without retry and decodes into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
}

// doWithRetry executes a GET with exponential backoff. Retries on network
// errors and 5xx; 4xx returns immediately.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, maxDelay)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
