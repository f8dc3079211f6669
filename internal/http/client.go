package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// TokenManager supplies bearer tokens for authenticated requests.
// forceRefresh bypasses any cached token.
type TokenManager interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
}

// Request describes one API request.
type Request struct {
	Method string
	Path   string
	Query  map[string]string

	// Body is JSON-encoded unless ContentType says otherwise, in
	// which case it must be a []byte or string.
	Body        any
	ContentType string

	// Form, when set, is sent urlencoded and takes precedence over
	// Body.
	Form url.Values

	Headers map[string]string

	// Unauthenticated skips the Authorization header. Token exchange
	// uses this to call the OAuth endpoint through the same retry
	// machinery.
	Unauthenticated bool
}

// Response is a completed API response. Body always holds a JSON
// object; empty and 204 responses are normalized to "{}".
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       json.RawMessage

	// FromCache is true when the body was served without a network
	// round trip.
	FromCache bool
}

// Client is the resilient HTTP transport. Every request runs through
// one attempt loop that handles retryable statuses with backoff and
// 401/403 with a forced token refresh.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokenManager TokenManager
	retry        *RetryPolicy
	cache        *CacheController
	logger       spot.Logger
	userAgent    string
	debug        bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(logger spot.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy *RetryPolicy) ClientOption {
	return func(c *Client) {
		if policy != nil {
			c.retry = policy
		}
	}
}

// WithRetryConfig sets the retry policy from attempt count and delay
// bounds.
func WithRetryConfig(maxAttempts int, baseDelay, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.retry = NewRetryPolicy(spot.RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			MaxDelay:    maxDelay,
		})
	}
}

// WithCacheController enables response caching.
func WithCacheController(cache *CacheController) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a transport rooted at baseURL. tokenManager may be
// nil (or set later via SetTokenManager) for unauthenticated use.
func NewClient(baseURL string, tokenManager TokenManager, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: constants.DefaultHTTPTimeout},
		tokenManager: tokenManager,
		retry:        NewRetryPolicy(spot.RetryConfig{}),
		userAgent:    constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// SetTokenManager installs the token manager after construction. The
// token manager itself calls the transport during token exchange, so
// the two are wired in this order.
func (c *Client) SetTokenManager(tokenManager TokenManager) {
	c.tokenManager = tokenManager
}

// CacheController returns the attached cache controller, or nil.
func (c *Client) CacheController() *CacheController {
	return c.cache
}

// Do executes a request through the retry loop.
//
// Per attempt: a retryable status (429 and the configured 5xx set)
// waits out the backoff and retries; a 401/403 on an authenticated
// request forces a token refresh and retries immediately, consuming
// an attempt slot without backoff; any other 4xx/5xx fails straight
// away. Cacheable GETs are served from cache before any of this, and
// successful mutations invalidate their resource root.
//
//nolint:funlen,cyclop // the attempt loop reads better in one piece
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	cacheTTL := time.Duration(0)
	cacheKey := ""

	// Only authenticated reads are cacheable; unauthenticated calls
	// (token exchange) always hit the network.
	if c.cache != nil && req.Form == nil && !req.Unauthenticated {
		cacheTTL = c.cache.TTL(req.Method, req.Path)
		if cacheTTL > 0 {
			cacheKey = c.cache.Key(req.Method, req.Path, req.Query, req.Body)
			if data, ok := c.cache.Get(ctx, cacheKey); ok {
				c.logDebug("HTTP Cache Hit", map[string]interface{}{
					"method": req.Method,
					"path":   req.Path,
				})

				return &Response{
					StatusCode: http.StatusOK,
					Headers:    http.Header{},
					Body:       data,
					FromCache:  true,
				}, nil
			}
		}
	}

	forceRefresh := false
	refreshAttempted := false

	var lastErr error

	maxAttempts := c.retry.MaxAttempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		httpReq, err := c.buildRequest(ctx, req, forceRefresh)
		if err != nil {
			return nil, err
		}

		forceRefresh = false

		c.logRequest(httpReq, attempt)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts && c.retry.ShouldRetryError(err) {
				if waitErr := c.retry.Wait(ctx, attempt); waitErr != nil {
					return nil, &spot.RequestError{Message: "request cancelled during backoff", Err: waitErr}
				}

				continue
			}

			return nil, &spot.RequestError{Message: "sending request", Err: err}
		}

		body, err := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()

		if err != nil {
			lastErr = err
			if attempt < maxAttempts && c.retry.ShouldRetryError(err) {
				if waitErr := c.retry.Wait(ctx, attempt); waitErr != nil {
					return nil, &spot.RequestError{Message: "request cancelled during backoff", Err: waitErr}
				}

				continue
			}

			return nil, &spot.RequestError{Message: "reading response body", Err: err}
		}

		c.logResponse(httpResp, len(body), attempt)

		status := httpResp.StatusCode

		switch {
		case (status == http.StatusUnauthorized || status == http.StatusForbidden) && !req.Unauthenticated:
			// One forced refresh per request; a second 401/403
			// means the credentials are bad, not the token stale.
			if !refreshAttempted && attempt < maxAttempts && c.tokenManager != nil {
				refreshAttempted = true
				forceRefresh = true

				continue
			}

			return newErrorResponse(httpResp, body)

		case c.retry.ShouldRetryStatus(status):
			if attempt < maxAttempts {
				if waitErr := c.retry.Wait(ctx, attempt); waitErr != nil {
					return nil, &spot.RequestError{Message: "request cancelled during backoff", Err: waitErr}
				}

				continue
			}

			return newErrorResponse(httpResp, body)

		case status >= http.StatusBadRequest:
			return newErrorResponse(httpResp, body)
		}

		payload, err := normalizeBody(status, body)
		if err != nil {
			return nil, err
		}

		resp := &Response{
			StatusCode: status,
			Headers:    httpResp.Header,
			Body:       payload,
		}

		if c.cache != nil {
			if cacheKey != "" {
				c.cache.Set(ctx, cacheKey, payload, cacheTTL)
			} else if req.Method != "GET" {
				_ = c.cache.InvalidateAfterMutation(ctx, req.Path)
			}
		}

		return resp, nil
	}

	return nil, &spot.RequestError{Message: "request attempts exhausted", Err: lastErr}
}

// buildRequest constructs the *http.Request for one attempt. The body
// is re-encoded each time so attempts never share a consumed reader.
func (c *Client) buildRequest(ctx context.Context, req *Request, forceRefresh bool) (*http.Request, error) {
	fullURL, err := c.resolveURL(req)
	if err != nil {
		return nil, err
	}

	var (
		bodyReader  io.Reader
		contentType string
	)

	switch {
	case req.Form != nil:
		bodyReader = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		contentType = req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}

		switch body := req.Body.(type) {
		case []byte:
			bodyReader = bytes.NewReader(body)
		case string:
			bodyReader = strings.NewReader(body)
		default:
			encoded, err := json.Marshal(req.Body)
			if err != nil {
				return nil, &spot.RequestError{Message: "encoding request body", Err: err}
			}

			bodyReader = bytes.NewReader(encoded)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, &spot.RequestError{Message: "building request", Err: err}
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if !req.Unauthenticated && c.tokenManager != nil {
		token, err := c.tokenManager.Token(ctx, forceRefresh)
		if err != nil {
			return nil, &spot.AuthError{Message: "obtaining access token", Err: err}
		}

		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return httpReq, nil
}

// resolveURL joins the request path onto the base URL. Absolute URLs
// pass through untouched so callers can hit other hosts (the OAuth
// endpoint) with the same transport.
func (c *Client) resolveURL(req *Request) (string, error) {
	raw := req.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", &spot.RequestError{Message: "parsing request URL", Err: err}
	}

	if len(req.Query) > 0 {
		query := parsed.Query()
		for key, value := range req.Query {
			query.Set(key, value)
		}

		parsed.RawQuery = query.Encode()
	}

	return parsed.String(), nil
}

// normalizeBody validates a success payload. Empty bodies and 204s
// become "{}"; anything else must be a JSON object.
func normalizeBody(status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if status == http.StatusNoContent || len(trimmed) == 0 {
		return json.RawMessage(`{}`), nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, &spot.RequestError{Message: "response was not valid JSON", Err: err}
	}

	if _, ok := decoded.(map[string]any); !ok {
		return nil, &spot.RequestError{Message: "response payload must be a JSON object"}
	}

	return json.RawMessage(trimmed), nil
}

// newErrorResponse builds the *spot.APIError for a failed request,
// returning the response alongside so callers can still inspect it.
func newErrorResponse(httpResp *http.Response, body []byte) (*Response, error) {
	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	return resp, &spot.APIError{
		StatusCode: httpResp.StatusCode,
		Message:    apiErrorMessage(httpResp.StatusCode, body),
		Body:       string(body),
	}
}

// apiErrorMessage extracts a human-readable message from an error
// body, falling back to the status text.
func apiErrorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Reason  string `json:"reason"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		case payload.Reason != "":
			return payload.Reason
		}
	}

	return http.StatusText(status)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{Method: "GET", Path: path, Query: query})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: "POST", Path: path, Body: body})
}

// PostForm issues a POST with an urlencoded form body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, unauthenticated bool) (*Response, error) {
	return c.Do(ctx, &Request{Method: "POST", Path: path, Form: form, Unauthenticated: unauthenticated})
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: "PUT", Path: path, Body: body})
}

// Patch issues a PATCH request with a JSON body. contentType
// defaults to application/json.
func (c *Client) Patch(ctx context.Context, path string, body any, contentType string) (*Response, error) {
	return c.Do(ctx, &Request{Method: "PATCH", Path: path, Body: body, ContentType: contentType})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: "DELETE", Path: path})
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug && c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}

func (c *Client) logRequest(req *http.Request, attempt int) {
	c.logDebug("HTTP Request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"attempt": attempt,
	})
}

func (c *Client) logResponse(resp *http.Response, bodyLen, attempt int) {
	c.logDebug("HTTP Response", map[string]interface{}{
		"status":    resp.StatusCode,
		"body_size": bodyLen,
		"attempt":   attempt,
	})
}
