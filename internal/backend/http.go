package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ClientConfig controls the HTTP record client.
type ClientConfig struct {
	BaseURL string

	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration

	// MaxRetries bounds the in-attempt backoff retries. The retry-forever
	// loop lives in the sync layer; this only smooths transient blips
	// within one delivery attempt.
	MaxRetries      uint64
	InitialInterval time.Duration
}

// DefaultClientConfig returns the recommended client settings.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:         baseURL,
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
	}
}

// Client talks to the triplehelix record server over HTTP JSON. It
// implements Recorder and Bootstrapper.
type Client struct {
	cfg  ClientConfig
	base *url.URL
	http *http.Client
}

// NewClient creates a record client for the given config.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend client: base URL required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend client: parse base URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SaveStitch upserts one stitch record.
func (c *Client) SaveStitch(ctx context.Context, rec StitchRecord) error {
	path := fmt.Sprintf("/api/stitches/%s/%s", url.PathEscape(rec.ThreadID), url.PathEscape(rec.StitchID))
	return c.send(ctx, http.MethodPut, path, rec, nil)
}

// SaveSession upserts the cycle pointer.
func (c *Client) SaveSession(ctx context.Context, rec SessionRecord) error {
	return c.send(ctx, http.MethodPut, "/api/state", rec, nil)
}

// LoadSession fetches the persisted cycle pointer. A 404 means no pointer
// has ever been saved.
func (c *Client) LoadSession(ctx context.Context) (SessionRecord, bool, error) {
	var rec SessionRecord
	err := c.send(ctx, http.MethodGet, "/api/state", nil, &rec)
	if err != nil {
		if isNotFound(err) {
			return SessionRecord{}, false, nil
		}
		return SessionRecord{}, false, err
	}
	return rec, true, nil
}

// LoadStitches fetches every persisted stitch record.
func (c *Client) LoadStitches(ctx context.Context) ([]StitchRecord, error) {
	var recs []StitchRecord
	if err := c.send(ctx, http.MethodGet, "/api/stitches", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// statusError reports a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

// send performs one exchange with bounded exponential backoff. Client
// errors (4xx) are permanent; retrying them cannot help.
func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		u := c.base.JoinPath(path)
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			serr := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(serr)
			}
			return serr
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxElapsedTime = c.cfg.Timeout * time.Duration(c.cfg.MaxRetries+1)

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx))
	if err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return perm.Unwrap()
		}
		return err
	}
	return nil
}
