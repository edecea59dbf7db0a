// Package telegram is a thin HTTP client for the Telegram Bot API. It
// returns upstream responses untouched so callers can relay them verbatim.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 10 << 20 // 10 MiB
)

// ErrNoToken is returned by every call when the client has no bot token.
var ErrNoToken = errors.New("telegram: bot token is not configured")

// ErrEncode is returned by Call when the payload cannot be encoded as JSON.
// No request reaches the Bot API in that case.
var ErrEncode = errors.New("telegram: encode request")

// botSegment matches a leading /bot<token> path segment.
var botSegment = regexp.MustCompile(`^/bot[^/]*`)

// Client is a thin HTTP wrapper around the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// Response is an upstream reply, read in full.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewClient creates a Bot API client. An empty baseURL selects the public
// endpoint; a non-positive timeout selects 60s.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// HasToken reports whether a bot token is configured.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.http.Timeout
}

// ForwardURL maps an inbound path onto the upstream bot endpoint. A leading
// /bot<anything> segment supplied by the caller is replaced with the
// configured token.
func (c *Client) ForwardURL(path string, rawQuery string) (*url.URL, error) {
	if !c.HasToken() {
		return nil, ErrNoToken
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("telegram: parse base url: %w", err)
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	path = botSegment.ReplaceAllString(path, "")
	u.Path = strings.TrimRight(u.Path, "/") + "/bot" + c.token + path
	u.RawQuery = rawQuery
	return u, nil
}

// Call sends a JSON POST to the given Bot API method and returns the raw
// response, whatever its status. Only transport failures return an error.
func (c *Client) Call(ctx context.Context, method string, payload any) (*Response, error) {
	if !c.HasToken() {
		return nil, ErrNoToken
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrEncode, method, err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, c.scrub(err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, c.scrub(err))
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, c.scrub(err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}

// do calls method and decodes the Bot API envelope into T.
func do[T any](ctx context.Context, c *Client, method string, payload any) (*T, error) {
	resp, err := c.Call(ctx, method, payload)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse[T]
	if err := json.Unmarshal(resp.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !apiResp.OK {
		apiErr := &APIError{
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		return nil, apiErr
	}
	return &apiResp.Result, nil
}

// GetMe returns the bot's user information.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return do[User](ctx, c, "getMe", nil)
}

// scrub removes the token from URLs embedded in transport errors.
func (c *Client) scrub(err error) error {
	var uerr *url.Error
	if c.token != "" && errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, c.token, "<token>")
	}
	return err
}
