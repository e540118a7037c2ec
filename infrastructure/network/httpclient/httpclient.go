// Package httpclient is the HTTP plumbing shared by the chain and indexer
// clients.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/glittrfi/glittr-go/version"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxResponseSize bounds response bodies read into memory.
const maxResponseSize = 4 * 1024 * 1024

// ErrResponseTooLarge is returned for response bodies above maxResponseSize.
var ErrResponseTooLarge = errors.New("response too large")

// Config configures a Client.
type Config struct {
	// BaseURL is the address of the service, e.g. https://mempool.space/api.
	BaseURL string

	// Proxy is an optional SOCKS5 proxy address (host:port).
	Proxy     string
	ProxyUser string
	ProxyPass string

	// Timeout bounds a single request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client issues requests against a single base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// New returns a client for cfg.
func New(cfg Config) (*Client, error) {
	_, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base URL %s", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		_, _, err := net.SplitHostPort(cfg.Proxy)
		if err != nil {
			return nil, errors.Wrapf(err, "proxy address '%s' is invalid", cfg.Proxy)
		}
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return proxy.DialTimeout(network, addr, timeout)
		}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		userAgent:  version.UserAgent(),
	}, nil
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// resourceURL returns a full concatenated URL from the base URL and the
// given path elements.
func (c *Client) resourceURL(pathElements ...string) (string, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", errors.WithStack(err)
	}
	escaped := make([]string, 0, len(pathElements)+1)
	escaped = append(escaped, baseURL.Path)
	for _, element := range pathElements {
		escaped = append(escaped, url.PathEscape(element))
	}
	baseURL.Path = path.Join(escaped...)
	return baseURL.String(), nil
}

// Get requests the resource at the given path.
func (c *Client) Get(ctx context.Context, pathElements ...string) (*Response, error) {
	return c.do(ctx, http.MethodGet, nil, "", pathElements...)
}

// PostText posts body as text/plain to the resource at the given path.
func (c *Client) PostText(ctx context.Context, body string, pathElements ...string) (*Response, error) {
	return c.do(ctx, http.MethodPost, []byte(body), "text/plain", pathElements...)
}

func (c *Client) do(ctx context.Context, method string, body []byte, contentType string,
	pathElements ...string) (*Response, error) {

	requestURL, err := c.resourceURL(pathElements...)
	if err != nil {
		return nil, err
	}
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	request.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "error requesting %s %s", method, requestURL)
	}
	return readResponse(response)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusText returns the reason phrase of the response, e.g. "Bad Request".
func (r *Response) StatusText() string {
	if text := http.StatusText(r.StatusCode); text != "" {
		return text
	}
	return r.Status
}

// StatusError describes a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("response status %s", e.Status)
	}
	return fmt.Sprintf("response status %s: %s", e.Status, e.Body)
}

// Err returns a *StatusError for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return errors.WithStack(&StatusError{StatusCode: r.StatusCode, Status: r.Status, Body: string(bytes.TrimSpace(r.Body))})
}

func readResponse(response *http.Response) (*Response, error) {
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "error reading response")
	}
	if len(body) > maxResponseSize {
		return nil, errors.Wrapf(ErrResponseTooLarge, "%s returned more than %d bytes",
			response.Request.URL.Redacted(), maxResponseSize)
	}
	return &Response{StatusCode: response.StatusCode, Status: response.Status, Body: body}, nil
}
