// Package zulip is a client for the Zulip REST API that transparently waits
// out HTTP 429 rate limiting.
package zulip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultRequestTimeout = 30 * time.Second

// RateLimitObserver is told when the client starts and stops being throttled.
// Each method is called once per transition, never repeatedly while the
// state holds.
type RateLimitObserver interface {
	OnRateLimited(ctx context.Context)
	OnRecovered(ctx context.Context)
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimitState is a snapshot of the client's throttling state
type RateLimitState struct {
	Limited   bool          `json:"limited"`
	Since     time.Time     `json:"since,omitempty"`
	LastDelay time.Duration `json:"last_delay"`
}

// Request describes one API call
type Request struct {
	Method  string
	Path    string // e.g. /api/v1/users/me
	Params  url.Values
	Timeout time.Duration // zero uses the default request timeout
}

// Client is the rate-limited Zulip API client.
// It is safe for concurrent use.
type Client struct {
	site       string
	email      string
	apiKey     string
	httpClient *http.Client

	initialDelay time.Duration
	maxDelay     time.Duration

	observer RateLimitObserver
	sleep    Sleeper
	log      zerolog.Logger

	// Throttle state shared by all in-flight calls
	mu        sync.Mutex
	limited   bool
	since     time.Time
	lastDelay time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver sets the rate limit transition observer
func WithObserver(o RateLimitObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithSleeper replaces the backoff sleep (used by tests)
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client for site (no trailing slash) using HTTP basic
// auth. Consecutive 429 responses back off from initialDelay doubling up
// to maxDelay.
func NewClient(site, email, apiKey string, initialDelay, maxDelay time.Duration, opts ...Option) *Client {
	c := &Client{
		site:         strings.TrimRight(site, "/"),
		email:        email,
		apiKey:       apiKey,
		httpClient:   &http.Client{},
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		sleep:        SleepContext,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetObserver sets the observer after construction. It must be called
// before the client is shared between goroutines.
func (c *Client) SetObserver(o RateLimitObserver) {
	c.observer = o
}

// State returns the current throttling state
func (c *Client) State() RateLimitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RateLimitState{Limited: c.limited, Since: c.since, LastDelay: c.lastDelay}
}

// Do performs the request and returns the raw JSON body of a 2xx response.
// 429 responses are retried until another status arrives; every other
// non-2xx status is returned as *UpstreamError.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	// Backoff growth is scoped to this call's run of consecutive 429s
	delay := c.initialDelay

	for {
		status, header, body, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}

		if status != http.StatusTooManyRequests {
			c.markRecovered(ctx)
			if status < 200 || status > 299 {
				return nil, newUpstreamError(status, body)
			}
			return body, nil
		}

		c.markLimited(ctx)

		wait, ok := parseRetryAfter(header.Get("Retry-After"), time.Now())
		if !ok {
			wait = delay
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		c.mu.Lock()
		c.lastDelay = wait
		c.mu.Unlock()

		c.log.Warn().
			Str("path", req.Path).
			Dur("sleep", wait).
			Msg("Zulip rate limit hit")

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) send(ctx context.Context, req Request) (int, http.Header, []byte, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.site + req.Path
	var body io.Reader
	if req.Method == http.MethodGet || req.Method == http.MethodDelete {
		if len(req.Params) > 0 {
			endpoint += "?" + req.Params.Encode()
		}
	} else if req.Params != nil {
		body = strings.NewReader(req.Params.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.SetBasicAuth(c.email, c.apiKey)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read %s response: %w", req.Path, err)
	}
	return resp.StatusCode, resp.Header, data, nil
}

func (c *Client) markLimited(ctx context.Context) {
	c.mu.Lock()
	edge := !c.limited
	if edge {
		c.limited = true
		c.since = time.Now()
	}
	c.mu.Unlock()

	if edge {
		c.log.Warn().Msg("Entered rate-limited state")
		if c.observer != nil {
			c.observer.OnRateLimited(ctx)
		}
	}
}

func (c *Client) markRecovered(ctx context.Context) {
	c.mu.Lock()
	edge := c.limited
	if edge {
		c.limited = false
		c.since = time.Time{}
	}
	c.mu.Unlock()

	if edge {
		c.log.Info().Msg("Left rate-limited state")
		if c.observer != nil {
			c.observer.OnRecovered(ctx)
		}
	}
}

// parseRetryAfter accepts delay-seconds (fractions allowed) or an HTTP date
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return 0, false
		}
		if secs >= float64(math.MaxInt64)/float64(time.Second) {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		wait := at.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}
