package vkapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vkarchiver/pkg/logger"
)

const (
	// BaseURL is the VK API endpoint root.
	BaseURL = "https://api.vk.com/method"
	// APIVersion is the VK API version every request is pinned to.
	APIVersion = "5.199"
)

// Client talks HTTP to the VK API. It implements Caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    string
	logger     logger.Logger
}

// NewClient creates a VK API client authenticated with the given access token.
func NewClient(token string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    BaseURL,
		token:      token,
		version:    APIVersion,
		logger:     log,
	}
}

// SetBaseURL overrides the API endpoint root. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// envelope is the VK API response wrapper: exactly one of Response or Error
// is populated.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// Call performs one VK API method call and returns the raw response payload.
// Timeouts and cancellation come from ctx; the caller owns retry policy.
func (c *Client) Call(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	form := url.Values{}
	for k, v := range params.encode() {
		form.Set(k, v)
	}
	form.Set("access_token", c.token)
	form.Set("v", c.version)

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	c.logger.DebugWithFields("calling vk api", map[string]interface{}{
		"method": method,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("vk api request failed", map[string]interface{}{
			"method": method,
			"error":  err.Error(),
		})
		return nil, fmt.Errorf("vk api request %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vk api response for %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vk api %s returned status %d", method, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode vk api response for %s: %w", method, err)
	}
	if env.Error != nil {
		env.Error.Method = method
		return nil, env.Error
	}

	c.logger.DebugWithFields("vk api call completed", map[string]interface{}{
		"method":   method,
		"duration": time.Since(start),
	})

	return env.Response, nil
}
