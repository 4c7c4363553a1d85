// Package client is a typed HTTP client for the legal case API. It is what the
// intake wizard, the case list view and the settings context talk to.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/models"
)

// DefaultTimeout bounds every request made by a Client
const DefaultTimeout = 30 * time.Second

// Codes the API attaches to 400 responses
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeDuplicateCaseNumber = "DUPLICATE_CASE_NUMBER"
	CodeEmailTaken          = "EMAIL_TAKEN"
)

// ErrUnavailable wraps transport failures: the API could not be reached or
// did not answer in time
var ErrUnavailable = errors.New("legal case api unavailable")

// APIError is a non-2xx answer from the API
type APIError struct {
	Status  int
	Message string
	Detail  string
	Code    string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// IsNotFound reports a missing case, user or file
func (e *APIError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// IsUnauthorized reports a missing or rejected token, or bad credentials
func (e *APIError) IsUnauthorized() bool { return e.Status == http.StatusUnauthorized }

// IsDuplicate reports a uniqueness conflict. A duplicate case number is safe
// to retry as is.
func (e *APIError) IsDuplicate() bool {
	return e.Code == CodeDuplicateCaseNumber || e.Code == CodeEmailTaken
}

// IsValidation reports a rejected payload
func (e *APIError) IsValidation() bool {
	return e.Status == http.StatusBadRequest && !e.IsDuplicate()
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken starts the client with a session token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client talks to one API base URL
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for baseURL, e.g. "http://localhost:5000"
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Token returns the session token sent as a bearer credential
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token. An empty token signs the client out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// send performs req and returns the response when the status is 2xx. Any other
// status is decoded into an *APIError and the body is closed.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		zap.S().Debugw("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{Status: resp.StatusCode}

	var body models.ErrorMessageResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Response.Message != "" {
		apiErr.Message = body.Response.Message
		apiErr.Detail = body.Response.Error
		apiErr.Code = body.Response.Code
		apiErr.Fields = body.Response.Fields
		return apiErr
	}
	var msg models.MessageResponse
	if err := json.Unmarshal(raw, &msg); err == nil && msg.Message != "" {
		apiErr.Message = msg.Message
		return apiErr
	}
	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}

// doJSON sends in as a JSON body (when non-nil) and decodes the answer into
// out (when non-nil)
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.decode(req, out)
}

func (c *Client) decode(req *http.Request, out interface{}) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
