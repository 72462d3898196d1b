package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/muurk/zoothing/internal/identity"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second
)

// ClientError reports a failed portal request
type ClientError struct {
	Op         string // "ping" or "push"
	StatusCode int    // HTTP status, 0 when no response arrived
	Body       string // Response body of a non-200 reply
	Err        error  // Transport error, nil when a response arrived
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap returns the transport error
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed. Transport
// failures are retryable; HTTP error replies are not.
func (e *ClientError) Retryable() bool {
	return e.Err != nil && !errors.Is(e.Err, context.Canceled)
}

// Client submits settings to a device portal
type Client struct {
	// BaseURL is the base URL of the portal (e.g., "http://192.168.4.1")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts, doubled per retry
	RetryDelay time.Duration

	// MaxRetryDelay caps the retry delay
	MaxRetryDelay time.Duration
}

// NewClient creates a client for the portal at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// SetURL builds the submission URL for sub
func (c *Client) SetURL(sub identity.Submission) string {
	q := url.Values{}
	q.Set(ParamThing, sub.Name)
	q.Set(ParamSSID, sub.SSID)
	q.Set(ParamPass, sub.Passphrase)
	q.Set(ParamAPPass, sub.APPassphrase)
	return c.BaseURL + "/set?" + q.Encode()
}

// Ping checks that the portal serves its settings form
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", c.BaseURL+"/")
	return err
}

// Push submits sub and returns the portal response text, retrying transport
// failures with exponential backoff.
func (c *Client) Push(ctx context.Context, sub identity.Submission) (string, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(currentDelay):
			}

			currentDelay *= 2
			if currentDelay > c.MaxRetryDelay {
				currentDelay = c.MaxRetryDelay
			}
		}

		body, err := c.get(ctx, "push", c.SetURL(sub))
		if err == nil {
			return body, nil
		}
		lastErr = err

		var cErr *ClientError
		if !errors.As(err, &cErr) || !cErr.Retryable() {
			return "", err
		}
	}

	return "", lastErr
}

func (c *Client) get(ctx context.Context, op, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create %s request: %w", op, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &ClientError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ClientError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ClientError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}
