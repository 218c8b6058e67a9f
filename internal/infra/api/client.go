// Package api provides the authenticated client for the backend collection
// endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/auth"
)

// Errors
var (
	ErrNoSession         = errors.New("no session")
	ErrUnauthorized      = errors.New("session rejected by server")
	ErrServerUnavailable = errors.New("server unavailable")
	ErrMalformedPayload  = errors.New("malformed server payload")
	ErrEmptySongID       = errors.New("song id is empty")
)

// Config represents remote client configuration.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration // per-attempt abort timeout
	LoadTimeout    time.Duration // liked-songs load timeout (one-shot)
	MaxRetries     int           // extra attempts on 5xx or timeout
	RetryBackoff   time.Duration // base backoff, doubled per retry
}

// Client issues requests against the collection endpoints. Mutations retry
// on transient failures; 401 responses are never retried.
type Client struct {
	baseURL    string
	auth       auth.Adapter
	httpClient *http.Client

	requestTimeout time.Duration
	loadTimeout    time.Duration
	maxRetries     int
	retryBackoff   time.Duration
}

// New creates a new client.
func New(cfg Config, authAdapter auth.Adapter) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 8 * time.Second
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		auth:           authAdapter,
		httpClient:     &http.Client{},
		requestTimeout: cfg.RequestTimeout,
		loadTimeout:    cfg.LoadTimeout,
		maxRetries:     cfg.MaxRetries,
		retryBackoff:   cfg.RetryBackoff,
	}, nil
}

// likedSongsResponse is the wire shape of GET /api/liked-songs.
type likedSongsResponse struct {
	Success bool              `json:"success"`
	Songs   []song.ServerSong `json:"songs"`
}

// ackResponse is the wire shape of the mutation endpoints.
type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LoadLiked fetches the server's liked set. One-shot, no retries. The second
// return value is the freshness window advertised via Cache-Control max-age,
// or zero when the server did not send one.
func (c *Client) LoadLiked(ctx context.Context) ([]song.Song, time.Duration, error) {
	token := c.auth.CurrentToken()
	if token == "" {
		return nil, 0, ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/liked-songs", nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(ErrServerUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, 0, ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, 0, errors.Wrapf(ErrServerUnavailable, "status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, 0, errors.Newf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to read response body")
	}

	var parsed likedSongsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Callers must be able to tell a broken payload from an empty
		// liked set, otherwise they would wipe local state over it.
		zlog.Warn().Err(err).Msg("Malformed liked-songs payload")
		return nil, 0, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	if !parsed.Success {
		return nil, 0, errors.New("server reported failure")
	}

	songs := make([]song.Song, 0, len(parsed.Songs))
	for _, dto := range parsed.Songs {
		songs = append(songs, song.FromServer(dto))
	}
	return songs, parseMaxAge(resp.Header.Get("Cache-Control")), nil
}

// Like marks a song as liked on the server.
func (c *Client) Like(ctx context.Context, songID string) error {
	return c.mutate(ctx, "/api/like-song", songID)
}

// Unlike removes a song from the server's liked set.
func (c *Client) Unlike(ctx context.Context, songID string) error {
	return c.mutate(ctx, "/api/unlike-song", songID)
}

// ClearLiked empties the server's liked set. No retries.
func (c *Client) ClearLiked(ctx context.Context) error {
	token := c.auth.CurrentToken()
	if token == "" {
		// Anonymous mode: local-only, the caller proceeds.
		return nil
	}
	return c.post(ctx, "/api/liked-songs/clear", nil, token)
}

// mutate posts {songId} to path with the retry policy: up to maxRetries extra
// attempts on 5xx or timeout with doubling backoff, never on 401. Retries
// stop if the session disappears between attempts.
func (c *Client) mutate(ctx context.Context, path, songID string) error {
	if songID == "" {
		return ErrEmptySongID
	}
	token := c.auth.CurrentToken()
	if token == "" {
		return nil
	}

	payload := map[string]string{"songId": songID}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBackoff << (attempt - 1)
			zlog.Debug().Str("path", path).Dur("backoff", backoff).Msg("Retrying request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			// A session change invalidates the pending mutation.
			token = c.auth.CurrentToken()
			if token == "" {
				return lastErr
			}
		}

		err := c.post(ctx, path, payload, token)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		if !errors.Is(err, ErrServerUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// post issues a single JSON POST attempt with the per-attempt timeout.
func (c *Client) post(ctx context.Context, path string, payload any, token string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return context.DeadlineExceeded
		}
		return errors.Wrap(ErrServerUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return errors.Wrapf(ErrServerUnavailable, "status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return errors.Newf("request rejected with status %d", resp.StatusCode)
	}

	var ack ackResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		zlog.Warn().Err(err).Str("path", path).Msg("Malformed ack payload")
		return nil
	}
	if !ack.Success {
		return errors.Newf("server reported failure: %s", ack.Message)
	}
	return nil
}

// parseMaxAge extracts max-age seconds from a Cache-Control header.
func parseMaxAge(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}
