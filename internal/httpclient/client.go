// Package httpclient builds the outbound HTTP clients used for backend and
// chat-platform calls, with request logging and bounded response reads.
package httpclient

import (
	"net/http"
	"time"

	"ombridge/internal/logging"
)

// DefaultTimeout bounds every outbound call. There is no retry layer; the
// caller surfaces the error text to the user instead.
const DefaultTimeout = 15 * time.Second

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger logging.Logger
	name   string
}

// New builds an HTTP client with the given timeout and debug request logging.
func New(timeout time.Duration, logger logging.Logger, name string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingRoundTripper{
			base:   http.DefaultTransport,
			logger: logging.OrNop(logger),
			name:   name,
		},
	}
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		t.logger.Debug("%s %s %s failed after %s: %v", t.name, req.Method, req.URL.Path, elapsed, err)
		return nil, err
	}
	t.logger.Debug("%s %s %s -> %d in %s", t.name, req.Method, req.URL.Path, resp.StatusCode, elapsed)
	return resp, nil
}
