package logging

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxLoggedBody caps how much of an error response body is written to the log.
const maxLoggedBody = 10000

// Transport wraps an http.RoundTripper and logs request and response metadata.
// Request bodies are never logged because sign-in requests carry passwords; response
// bodies are logged only for error statuses.
type Transport struct {
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// NewTransport creates a new logging transport wrapper
func NewTransport(transport http.RoundTripper, logger zerolog.Logger) *Transport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Transport{
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip executes a single HTTP transaction with logging
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	t.Logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dict("headers", headerDict(req.Header)).
		Msg("http request")

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		t.Logger.Error().Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Dur("duration", duration).
			Msg("http request failed")
		return nil, err
	}

	event := t.Logger.Debug()
	if resp.StatusCode >= http.StatusBadRequest {
		event = t.Logger.Error()
		if body, ok := peekBody(resp); ok {
			event = event.Str("body", body)
		}
	}
	event.
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("http response")

	return resp, nil
}

// peekBody reads the response body and restores it for the caller.
func peekBody(resp *http.Response) (string, bool) {
	if resp.Body == nil {
		return "", false
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err != nil || len(bodyBytes) == 0 {
		return "", false
	}
	if len(bodyBytes) > maxLoggedBody {
		bodyBytes = bodyBytes[:maxLoggedBody]
	}
	return string(bodyBytes), true
}

func headerDict(h http.Header) *zerolog.Event {
	dict := zerolog.Dict()
	for name, values := range h {
		if IsSensitiveHeader(name) {
			dict = dict.Str(name, "[REDACTED]")
			continue
		}
		dict = dict.Str(name, strings.Join(values, ", "))
	}
	return dict
}

// IsSensitiveHeader reports whether a header carries credentials.
func IsSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "x-tableau-auth", "x-xsrf-token", "cookie", "set-cookie":
		return true
	}
	return false
}
