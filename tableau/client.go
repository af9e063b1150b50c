package tableau

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/internal/logging"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	headerAuth        = "X-Tableau-Auth"
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

var (
	_ sessions.Authenticator = (*Client)(nil)
	_ users.Directory        = (*Client)(nil)
)

// Client talks to the public, versioned Tableau REST API.
type Client struct {
	baseURL    string
	apiVersion string
	verify     bool
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client, for example to trust a test server.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a REST client for baseURL. verify controls TLS certificate checks.
func NewClient(baseURL, apiVersion string, verify bool, options ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("[NewClient] base URL is required")
	}
	if apiVersion == "" {
		return nil, errors.New("[NewClient] api version is required")
	}

	c := &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		verify:     verify,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}

	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !verify}
		c.httpClient = &http.Client{
			Transport: logging.NewTransport(transport, c.logger),
			Timeout:   c.timeout,
		}
	}
	return c, nil
}

// ServerAddress is the server base URL without a trailing slash.
func (c *Client) ServerAddress() string {
	return c.baseURL
}

func (c *Client) APIVersion() string {
	return c.apiVersion
}

func (c *Client) endpoint(format string, args ...any) string {
	return fmt.Sprintf("%s/api/%s/%s", c.baseURL, c.apiVersion, fmt.Sprintf(format, args...))
}

// do sends a JSON request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, url, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] marshal")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "[Client.do] new request")
	}
	req.Header.Set(headerAccept, contentTypeJSON)
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	if token != "" {
		req.Header.Set(headerAuth, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] %s %s", method, url)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] reading %s %s", method, url)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &apperrors.APIError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       describeError(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "[Client.do] decoding %s %s", method, url)
	}
	return nil
}

// describeError renders a REST error envelope as "code: summary: detail", falling back
// to the raw body.
func describeError(body []byte) string {
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return strings.TrimSpace(string(body))
	}
	return fmt.Sprintf("%s: %s: %s", envelope.Error.Code, envelope.Error.Summary, envelope.Error.Detail)
}
