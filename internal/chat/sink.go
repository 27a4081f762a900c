package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"ombridge/internal/httpclient"
	"ombridge/internal/logging"
)

// Sink delivers a deferred message to the one-time response handle supplied
// with an interaction. Failures are logged, never retried and never surfaced
// back to the user: the interaction already received its synchronous
// placeholder.
type Sink interface {
	Deliver(ctx context.Context, responseURL string, msg Message) error
}

// HTTPSink posts the message JSON to the response handle.
type HTTPSink struct {
	client *http.Client
	logger logging.Logger
}

// NewHTTPSink builds the production response sink.
func NewHTTPSink(client *http.Client, logger logging.Logger) *HTTPSink {
	if client == nil {
		client = httpclient.New(httpclient.DefaultTimeout, logger, "sink")
	}
	return &HTTPSink{client: client, logger: logging.OrNop(logger)}
}

func (s *HTTPSink) Deliver(ctx context.Context, responseURL string, msg Message) error {
	if responseURL == "" {
		return fmt.Errorf("empty response handle")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode response payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build response request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("deferred reply delivery failed: %v", err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		s.logger.Warn("deferred reply rejected: status %d", resp.StatusCode)
		return fmt.Errorf("response handle returned status %d", resp.StatusCode)
	}
	return nil
}

// SinkCall records a single delivery made through a RecordingSink.
type SinkCall struct {
	ResponseURL string
	Message     Message
}

// RecordingSink implements Sink by recording all deliveries for later
// assertion in tests.
type RecordingSink struct {
	mu    sync.Mutex
	calls []SinkCall

	// NextError, when set, is returned by the next Deliver and then cleared.
	NextError error
}

// NewRecordingSink creates a RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (r *RecordingSink) Deliver(_ context.Context, responseURL string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, SinkCall{ResponseURL: responseURL, Message: msg})
	if r.NextError != nil {
		err := r.NextError
		r.NextError = nil
		return err
	}
	return nil
}

// Calls returns a copy of the recorded deliveries.
func (r *RecordingSink) Calls() []SinkCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SinkCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Last returns the most recent delivery, or false when none happened.
func (r *RecordingSink) Last() (SinkCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return SinkCall{}, false
	}
	return r.calls[len(r.calls)-1], true
}
