package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// ClientOptions configure the shared HTTP client.
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	// RequestsPerSecond throttles outgoing requests; zero disables
	// throttling.
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Client is the HTTP client all adapters share: one user agent, one
// timeout, one rate limit across a vendor run.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	ua      string
	log     *slog.Logger
}

// NewClient builds a client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
		ua:      opts.UserAgent,
		log:     opts.Logger,
	}
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, FetchMeta, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, FetchMeta{}, err
		}
	}
	req.Header.Set("User-Agent", c.ua)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, FetchMeta{Latency: time.Since(start)}, &TransportError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	meta := FetchMeta{StatusCode: resp.StatusCode, Latency: time.Since(start)}
	if err != nil {
		return nil, meta, &TransportError{URL: req.URL.String(), Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, meta, &TransportError{URL: req.URL.String(), Status: resp.StatusCode}
	}
	c.log.Debug("fetched", "url", req.URL.String(), "status", resp.StatusCode, "bytes", len(body), "latency", meta.Latency)
	return body, meta, nil
}

// Get downloads a URL.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, FetchMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, FetchMeta{}, fmt.Errorf("build request: %w", err)
	}
	return c.do(ctx, req)
}

// PostForm sends a form-encoded POST.
func (c *Client) PostForm(ctx context.Context, rawURL string, data url.Values) ([]byte, FetchMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, FetchMeta{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, req)
}

// Prober waits for a chain's listing page to come up before a run
// starts. Chains take their pages down around publication time.
type Prober struct {
	Client   *Client
	Attempts int
	// Sleep is swapped out in tests.
	Sleep func(time.Duration)
}

// maxBackoff caps the doubling retry wait.
const maxBackoff = 5 * time.Minute

// Wait polls url until it answers 200. A 503 means the page is being
// republished and gets a short fixed pause; anything else backs off
// exponentially. Returns an error when all attempts are exhausted.
func (p *Prober) Wait(ctx context.Context, url string) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 120
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, meta, err := p.Client.Get(ctx, url)
		if err == nil {
			return nil
		}
		if meta.StatusCode == http.StatusServiceUnavailable {
			p.Client.log.Info("listing temporarily unavailable", "url", url, "attempt", attempt+1)
			sleep(5 * time.Second)
			continue
		}
		p.Client.log.Warn("listing unreachable", "url", url, "attempt", attempt+1, "err", err)
		if attempt < attempts-1 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			if wait > maxBackoff || wait <= 0 {
				wait = maxBackoff
			}
			sleep(wait)
		}
	}
	return &TransportError{URL: url, Err: fmt.Errorf("unreachable after %d attempts", attempts)}
}
