package pfr

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

const BaseURL = "https://www.pro-football-reference.com"

const ua = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119 Safari/537.36 (+stats-research)"

var ErrStatus = errors.New("unexpected status")

// RetryPolicy controls retries on 429 and 5xx responses.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration // base backoff
	MaxBackoff  time.Duration // cap per-attempt backoff
	Cooldown    time.Duration // used on 429 when no Retry-After
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 6,
		Base:        400 * time.Millisecond,
		MaxBackoff:  6 * time.Second,
		Cooldown:    7 * time.Second,
	}
}

// Client fetches pages from pro-football-reference.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
	Retry     RetryPolicy
	Logger    *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient() *Client {
	return &Client{
		BaseURL:   BaseURL,
		UserAgent: ua,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Retry:     DefaultRetryPolicy(),
		Logger:    slog.Default(),
		sleep:     sleepCtx,
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func parseRetryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	// HTTP date
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff is never zero; a zero wait means "do not retry" to getText.
func backoff(attempt int, base, ceiling time.Duration) time.Duration {
	// exponential + jitter, capped
	d := base * time.Duration(1<<attempt)
	j := time.Duration(rand.Intn(250)) * time.Millisecond
	if d+j > ceiling {
		d, j = ceiling, 0
	}
	if d+j <= 0 {
		return time.Millisecond
	}
	return d + j
}

type attemptResult struct {
	body  string
	retry time.Duration // >0: wait then try again
	err   error
}

// getText fetches a URL with UA/headers and retries on 429/5xx.
// Respects Retry-After when present.
func (c *Client) getText(ctx context.Context, url, referer string) (string, error) {
	p := c.Retry
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	sleep := c.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		res := c.attempt(ctx, url, referer, attempt, p)
		if res.retry == 0 {
			return res.body, res.err
		}
		lastErr = res.err
		if attempt == p.MaxAttempts-1 {
			break
		}
		c.logger().Debug("pfr: retrying", "url", url, "attempt", attempt+1, "wait", res.retry, "err", res.err)
		if err := sleep(ctx, res.retry); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted retries for %s: %w", url, lastErr)
}

func (c *Client) attempt(ctx context.Context, url, referer string, attempt int, p RetryPolicy) attemptResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return attemptResult{err: err}
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{err: err}
		}
		return attemptResult{err: err, retry: backoff(attempt, p.Base, p.MaxBackoff)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		b, err := readBody(resp)
		if err != nil {
			return attemptResult{err: err, retry: backoff(attempt, p.Base, p.MaxBackoff)}
		}
		return attemptResult{body: string(b)}

	case resp.StatusCode == http.StatusTooManyRequests:
		wait := parseRetryAfter(resp.Header.Get("Retry-After"))
		if wait == 0 {
			wait = p.Cooldown
		}
		wait = max(wait, time.Millisecond)
		return attemptResult{err: fmt.Errorf("%w %d for %s", ErrStatus, resp.StatusCode, url), retry: wait}

	case resp.StatusCode >= 500 && resp.StatusCode <= 599:
		return attemptResult{
			err:   fmt.Errorf("%w %d for %s", ErrStatus, resp.StatusCode, url),
			retry: backoff(attempt, p.Base, p.MaxBackoff),
		}
	}

	// Non-retryable
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return attemptResult{err: fmt.Errorf("%w %d for %s (body len=%d)", ErrStatus, resp.StatusCode, url, len(b))}
}

// readBody undoes Content-Encoding; setting Accept-Encoding ourselves
// turns off net/http's transparent gzip.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		r = fl
	case "br":
		r = brotli.NewReader(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
