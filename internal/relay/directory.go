package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ombridge/internal/httpclient"
	"ombridge/internal/logging"
)

// Directory resolves time-tracker user ids to account emails, which is what
// the backend keys its users by.
type Directory interface {
	LookupEmail(ctx context.Context, userID string) (string, error)
}

// HTTPDirectory queries the time tracker's user listing with an API key.
type HTTPDirectory struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  logging.Logger
}

// NewHTTPDirectory builds the production directory.
func NewHTTPDirectory(baseURL, apiKey string, client *http.Client, logger logging.Logger) *HTTPDirectory {
	if client == nil {
		client = httpclient.New(httpclient.DefaultTimeout, logger, "timetracker")
	}
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logging.OrNop(logger),
	}
}

func (d *HTTPDirectory) LookupEmail(ctx context.Context, userID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/users", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Api-Key", d.apiKey)
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tracker user listing: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("tracker user listing: status %d", resp.StatusCode)
	}
	body, err := httpclient.ReadAllWithLimit(resp.Body, 4<<20)
	if err != nil {
		return "", err
	}
	var users []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &users); err != nil {
		return "", fmt.Errorf("decode tracker user listing: %w", err)
	}
	for _, user := range users {
		if user.ID == userID {
			return user.Email, nil
		}
	}
	return "", fmt.Errorf("no tracker user with id %q", userID)
}
