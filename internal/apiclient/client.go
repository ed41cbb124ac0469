// Package apiclient talks to the remote wishlist backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/Kerhoff/wishlist/internal/metrics"
	"github.com/Kerhoff/wishlist/internal/models"
)

// UserIDHeader carries the caller's user id on every request.
const UserIDHeader = "X-User-Id"

const maxBodyBytes = 4 << 20

// Config configures a Client.
type Config struct {
	BaseURL    string // e.g. https://wishlist-backend.example.com
	APIPath    string // prefix for every endpoint, e.g. /api
	HTTPClient *http.Client
	Timeout    time.Duration
	Session    models.Session
	Logger     *logrus.Logger

	// OnSessionExpired runs at most once, the first time the client sees
	// the session expire.
	OnSessionExpired func()

	// Now overrides the clock used to check token expiry.
	Now func() time.Time
}

// Client performs JSON requests against the backend for one session.
// It never retries and never substitutes data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    models.Session
	logger     *logrus.Logger
	onExpired  func()
	expired    atomic.Bool
	now        func() time.Time
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIPath, "/"),
		httpClient: httpClient,
		session:    cfg.Session,
		logger:     logger,
		onExpired:  cfg.OnSessionExpired,
		now:        now,
	}, nil
}

// Session returns the session the client authenticates as.
func (c *Client) Session() models.Session {
	return c.session
}

// Request sends a JSON request and returns the raw response body of a
// successful call.
func (c *Client) Request(ctx context.Context, method, path string, body any) ([]byte, error) {
	if c.session.Expired(c.now()) {
		c.expire()
		metrics.APIRequests.WithLabelValues(method, "session_expired").Inc()
		return nil, ErrSessionExpired
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.baseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.session.UserID != 0 {
		req.Header.Set(UserIDHeader, strconv.FormatInt(c.session.UserID, 10))
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "network_error").Inc()
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "network_error").Inc()
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}

	entry := c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	})

	if resp.StatusCode == http.StatusUnauthorized {
		entry.Warn("Backend rejected session")
		c.expire()
		metrics.APIRequests.WithLabelValues(method, "session_expired").Inc()
		return nil, ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(data, resp.StatusCode)
		entry.WithField("error", msg).Warn("Backend request failed")
		metrics.APIRequests.WithLabelValues(method, "request_failed").Inc()
		return nil, &RequestFailedError{Status: resp.StatusCode, Message: msg}
	}

	if success := gjson.GetBytes(data, "success"); success.Exists() && !success.Bool() {
		msg := errorMessage(data, resp.StatusCode)
		entry.WithField("error", msg).Warn("Backend reported failure")
		metrics.APIRequests.WithLabelValues(method, "request_failed").Inc()
		return nil, &RequestFailedError{Status: resp.StatusCode, Message: msg}
	}

	entry.Debug("Backend request succeeded")
	metrics.APIRequests.WithLabelValues(method, "ok").Inc()
	return data, nil
}

func (c *Client) expire() {
	if c.expired.CompareAndSwap(false, true) && c.onExpired != nil {
		c.onExpired()
	}
}

// errorMessage pulls the backend's error text out of a response body.
func errorMessage(data []byte, status int) string {
	if gjson.ValidBytes(data) {
		for _, field := range []string{"error", "message", "error.message"} {
			if v := gjson.GetBytes(data, field); v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	} else if text := strings.TrimSpace(string(data)); text != "" && len(text) <= 200 {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "HTTP " + strconv.Itoa(status)
}

// decodeField unmarshals the value at field of a successful body into dst.
func decodeField(data []byte, field string, dst any, wantArray bool) error {
	v := gjson.GetBytes(data, field)
	if !v.Exists() || (wantArray && !v.IsArray()) || (!wantArray && !v.IsObject()) {
		return fmt.Errorf("%w: missing %q", ErrMalformedResponse, field)
	}
	if err := json.Unmarshal([]byte(v.Raw), dst); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformedResponse, field, err)
	}
	return nil
}
