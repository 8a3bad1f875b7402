package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/lcalzada-xor/jspp/pkg/config"
)

// MaxSourceSize bounds a fetched script or page.
const MaxSourceSize = 16 << 20

// ErrTooLarge is returned when a response exceeds MaxSourceSize.
var ErrTooLarge = errors.New("response exceeds size limit")

// StatusError is returned by Fetch for a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.Code)
}

// Client wraps http.Client with retry logic and rate limiting.
type Client struct {
	HTTPClient  *http.Client
	RateLimiter *RateLimiter
	UserAgent   string
}

// NewClient creates a new Client instance with connection pooling and optional rate limiting.
// rateLimit: requests per second (0 = unlimited)
func NewClient(timeout time.Duration, proxyURL string, concurrency int, rateLimit float64) *Client {
	// Calculate pool sizes based on concurrency
	maxIdleConns := concurrency * 2
	maxIdleConnsPerHost := max(concurrency/2, 10)
	maxConnsPerHost := concurrency

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		// Connection pooling - scales with concurrency
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL != "" {
		if pURL, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(pURL)
		}
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	return &Client{
		HTTPClient:  httpClient,
		RateLimiter: NewRateLimiter(rateLimit),
		UserAgent:   config.DefaultUserAgent,
	}
}

// Do sends an HTTP request with automatic retries and rate limiting.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	// Apply rate limiting
	if err := c.RateLimiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	var resp *http.Response
	var err error
	maxRetries := 3

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 100ms, 200ms, 400ms
			backoff := time.Duration(math.Pow(2, float64(i-1))*100) * time.Millisecond
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
		}

		resp, err = c.HTTPClient.Do(req)

		// Success, or a client error that will not change on retry
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err != nil && req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		// Close body if we are going to retry
		if resp != nil && i < maxRetries {
			resp.Body.Close()
		}
	}

	// Return last error or response
	if err != nil {
		return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
	}
	return resp, nil
}

// Fetch downloads the body of rawURL. Non-2xx responses are *StatusError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if len(body) > MaxSourceSize {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, ErrTooLarge)
	}
	return body, nil
}
