// Package vizportal is an adapter for Tableau's undocumented internal web API. The contract
// is unstable and may change between Tableau releases, so nothing outside this package
// depends on its request or response shapes.
package vizportal

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
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	apiPath = "/vizportal/api/web/v1/"

	MethodCreatePersonalAccessToken = "createPersonalAccessToken"
)

// Client calls vizportal methods with a REST session's token as the workgroup session
// cookie. Certificate verification is always disabled for this client, independently of
// the REST client's setting.
type Client struct {
	serverAddress string
	timeout       time.Duration
	transport     http.RoundTripper
	httpClient    *http.Client
	logger        zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a vizportal client for serverAddress.
func NewClient(serverAddress string, options ...ClientOption) (*Client, error) {
	serverAddress = strings.TrimRight(strings.TrimSpace(serverAddress), "/")
	if serverAddress == "" {
		return nil, errors.New("[vizportal.NewClient] server address is required")
	}

	c := &Client{
		serverAddress: serverAddress,
		logger:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	c.transport = transport
	c.httpClient = &http.Client{
		Transport: logging.NewTransport(transport, c.logger),
		Timeout:   c.timeout,
	}
	return c, nil
}

// VerifiesCertificates reports whether TLS certificates are checked. It is always false.
func (c *Client) VerifiesCertificates() bool {
	t, ok := c.transport.(*http.Transport)
	return ok && t.TLSClientConfig != nil && !t.TLSClientConfig.InsecureSkipVerify
}

// CreatePersonalAccessToken asks the server to mint a PAT named clientID for the identity
// the session acts as, and returns the secret token value.
func (c *Client) CreatePersonalAccessToken(ctx context.Context, session *sessions.Session, clientID string) (string, error) {
	if clientID == "" {
		return "", errors.Wrap(apperrors.ErrInvalidRequest, "[Client.CreatePersonalAccessToken] client id is required")
	}

	request := createPATRequest{
		Method: MethodCreatePersonalAccessToken,
		Params: createPATParams{ClientID: clientID},
	}
	var response createPATResponse
	if err := c.call(ctx, session, request.Method, request, &response); err != nil {
		return "", errors.Wrapf(err, "[Client.CreatePersonalAccessToken] %s", session.Identity)
	}
	if response.Result == "" {
		return "", errors.Wrapf(apperrors.ErrAPI, "[Client.CreatePersonalAccessToken] %s: empty result", session.Identity)
	}
	return response.Result, nil
}

// call POSTs payload to the vizportal method endpoint and decodes a 200 response into out.
func (c *Client) call(ctx context.Context, session *sessions.Session, method string, payload, out any) error {
	token := session.AuthToken()
	if token == "" {
		return errors.Wrap(apperrors.ErrSessionClosed, "[Client.call]")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "[Client.call] marshal")
	}
	url := c.serverAddress + apiPath + method
	c.logger.Debug().Str("url", url).Str("method", method).Msg("Sending vizportal request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "[Client.call] new request")
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("X-Xsrf-Token", "")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Cookie", fmt.Sprintf("workgroup_session_id=%s; XSRF-TOKEN=", token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[Client.call] POST %s", url)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "[Client.call] reading %s", url)
	}
	c.logger.Debug().Int("status", resp.StatusCode).Msg("Vizportal response")

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("Vizportal request failed")
		return &apperrors.APIError{
			Method:     http.MethodPost,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(apperrors.ErrAPI, "[Client.call] decoding %s: %v", url, err)
	}
	return nil
}
