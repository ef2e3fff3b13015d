package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// proxyContextKey carries the per-request proxy choice through the
// request context to the shared transport.
type proxyContextKey struct{}

// Client fetches pages over HTTP with per-request rotation of user agents
// and proxies.
//
// Design decision: We use a single shared http.Transport whose Proxy
// function reads the choice from the request context, rather than one
// transport per proxy. This keeps connection pooling in one place and
// still lets every request pick its proxy independently.
type Client struct {
	// httpClient is the underlying HTTP client shared by all fetches.
	httpClient *http.Client

	// userAgents supplies a user-agent string per request.
	userAgents *UserAgentPool

	// proxies supplies an optional proxy endpoint per request.
	proxies *ProxyPool

	// timeout is the per-fetch deadline.
	timeout time.Duration

	// maxBodySize limits how much of a response body is read.
	maxBodySize int64

	// headers are extra headers added to every request (site profile
	// headers, cookie).
	headers map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgents sets the user-agent rotation pool.
func WithUserAgents(pool *UserAgentPool) Option {
	return func(c *Client) {
		c.userAgents = pool
	}
}

// WithProxies sets the proxy rotation pool.
func WithProxies(pool *ProxyPool) Option {
	return func(c *Client) {
		c.proxies = pool
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithHeaders sets extra headers applied to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// NewClient creates a Client with the given per-fetch timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:               proxyFromContext,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			// The context deadline set in Get is the authoritative
			// timeout; the client-level timeout stays unset so the two
			// cannot disagree.
		},
		userAgents:  NewUserAgentPool(DefaultUserAgents...),
		proxies:     &ProxyPool{},
		timeout:     timeout,
		maxBodySize: model.MaxBodySize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// proxyFromContext returns the proxy stored in the request context, if any.
func proxyFromContext(r *http.Request) (*url.URL, error) {
	if u, ok := r.Context().Value(proxyContextKey{}).(*url.URL); ok {
		return u, nil
	}
	return nil, nil
}

// Fetch retrieves the given URL and returns the response as a FetchedPage.
// Failures are returned as *Error with a Kind the retry policy understands.
// A non-2xx status is a failure; redirects are followed by the underlying
// client, and the final URL is recorded on the page.
func (c *Client) Fetch(ctx context.Context, rawURL, referer string) (*model.FetchedPage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Attach the proxy choice for this request, if any.
	if proxyURL := c.proxies.Pick(); proxyURL != nil {
		ctx = context.WithValue(ctx, proxyContextKey{}, proxyURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, URL: rawURL, Err: err}
	}

	if ua := c.userAgents.Pick(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: classify(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
		return nil, &Error{Kind: KindHTTPStatus, URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, &Error{Kind: classify(err), URL: rawURL, Err: err}
	}

	page := &model.FetchedPage{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now().UTC(),
	}
	page.TruncateBody()

	return page, nil
}
