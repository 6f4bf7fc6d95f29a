// Package catalog talks to the JSON action API exposed by CKAN and DKAN
// catalogs.
package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/catalog-harvester/internal/common/logger"
)

const (
	actionPath = "api/3/action"
	statusPath = "/api/util/status"

	// SearchLimit is the largest page package_search accepts.
	SearchLimit = 1000

	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 5.0
	defaultRateBurst = 5
	defaultUserAgent = "catalog-harvester/1.0"
)

// Config configures a catalog client.
type Config struct {
	// BaseURL is the catalog root, e.g. https://demo.ckan.org.
	BaseURL string

	// APIKey is sent verbatim in the Authorization header when set.
	APIKey string

	// Timeout for individual requests (default: 30s).
	Timeout time.Duration

	// RateLimit requests per second (default: 5).
	RateLimit float64

	// RateBurst maximum burst size (default: 5).
	RateBurst int

	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// Client is a rate-limited client for one catalog.
type Client struct {
	config      Config
	base        *url.URL
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      logger.Logger
}

// New creates a client for the catalog at cfg.BaseURL.
func New(cfg Config, log logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Client{
		config: cfg,
		base:   base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:      log.With("catalog", base.Host),
	}, nil
}

// BaseURL returns the catalog root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// DatasetURL returns the public page of a dataset.
func (c *Client) DatasetURL(name string) string {
	return c.BaseURL() + "/dataset/" + name
}

// ActionURL returns the endpoint of an action.
func (c *Client) ActionURL(action string) string {
	return c.BaseURL() + "/" + actionPath + "/" + action
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   any             `json:"error"`
}

// Action calls an action endpoint and returns its raw result member.
func (c *Client) Action(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	endpoint := c.ActionURL(action)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, &TransportError{URL: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
		}
		// CKAN answers 200 even on errors, only success tells them apart.
		if !env.Success {
			apiErr := &APIError{Action: action, StatusCode: resp.StatusCode, Message: errorMessage(env.Error)}
			c.logger.Error("API returned success=false", "url", endpoint, "error", apiErr)
			return nil, apiErr
		}
		return env.Result, nil
	case "text/html":
		return nil, &APIError{
			Action:     action,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Unknown Error: %s returned HTML", c.ActionURL(action)),
		}
	default:
		// Anything else is a raw quoted message.
		return nil, &APIError{
			Action:     action,
			StatusCode: resp.StatusCode,
			Message:    strings.Trim(string(body), `"`),
		}
	}
}

// List returns the names of every public dataset.
func (c *Client) List(ctx context.Context) ([]string, error) {
	raw, err := c.Action(ctx, "package_list", nil)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, &TransportError{URL: c.ActionURL("package_list"), Err: fmt.Errorf("decoding result: %w", err)}
	}
	return names, nil
}

// Search returns the names of datasets matching the query q.
func (c *Client) Search(ctx context.Context, q string, rows int) ([]string, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("rows", strconv.Itoa(rows))

	raw, err := c.Action(ctx, "package_search", params)
	if err != nil {
		return nil, err
	}
	var result struct {
		Count   int `json:"count"`
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &TransportError{URL: c.ActionURL("package_search"), Err: fmt.Errorf("decoding result: %w", err)}
	}

	names := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		names = append(names, r.Name)
	}
	c.logger.Debug("Search completed", "q", q, "count", result.Count, "returned", len(names))
	return names, nil
}

// Show fetches one dataset by id or name and returns the untyped result.
func (c *Client) Show(ctx context.Context, id string) (any, error) {
	params := url.Values{}
	params.Set("id", id)

	raw, err := c.Action(ctx, "package_show", params)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &TransportError{URL: c.ActionURL("package_show"), Err: fmt.Errorf("decoding result: %w", err)}
	}
	return result, nil
}

// Status returns the catalog's /api/util/status document.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	endpoint := c.BaseURL() + statusPath
	_, body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &TransportError{URL: endpoint, Err: fmt.Errorf("decoding status: %w", err)}
	}
	return status, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, []byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, &TransportError{URL: endpoint, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", c.config.APIKey)
	}

	c.logger.Debug("Calling catalog", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request", "url", endpoint, "error", err)
		return nil, nil, &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, nil, &TransportError{URL: endpoint, Err: fmt.Errorf("reading body: %w", err)}
	}
	return resp, body, nil
}

// readBody reads the response, undoing the content encoding we asked for.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(body), nil
}
