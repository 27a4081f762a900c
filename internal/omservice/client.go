package omservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	relayerrors "ombridge/internal/errors"
	"ombridge/internal/httpclient"
	"ombridge/internal/logging"
)

const maxResponseBytes = 8 << 20

// Config holds the backend connection settings.
type Config struct {
	BaseURL    string
	APIVersion string
	// AuthToken is the service-level credential used by relays.
	AuthToken string
	// AppToken signs per-user requests issued on behalf of a chat user.
	AppToken string
}

// LatencyRecorder observes the duration of backend calls. The observability
// collector implements it; nil disables recording.
type LatencyRecorder interface {
	RecordUpstreamLatency(ctx context.Context, op string, elapsed time.Duration)
}

// Client implements RelayService over HTTP.
type Client struct {
	cfg     Config
	client  *http.Client
	logger  logging.Logger
	metrics LatencyRecorder
	now     func() time.Time
}

// NewClient builds the production backend client.
func NewClient(cfg Config, client *http.Client, logger logging.Logger, metrics LatencyRecorder) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "1.0"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = httpclient.New(httpclient.DefaultTimeout, logger, "omservice")
	}
	return &Client{
		cfg:     cfg,
		client:  client,
		logger:  logging.OrNop(logger),
		metrics: metrics,
		now:     time.Now,
	}
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/api/%s%s", c.cfg.BaseURL, c.cfg.APIVersion, path)
}

// userAuth builds the per-user credential header value.
func (c *Client) userAuth(username string) string {
	return fmt.Sprintf("Slack: %s:%s", username, c.cfg.AppToken)
}

// do issues one request and maps failures onto the upstream error taxonomy.
func (c *Client) do(ctx context.Context, op, method, endpoint, auth string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.metrics != nil {
		c.metrics.RecordUpstreamLatency(ctx, op, time.Since(start))
	}
	if err != nil {
		return &relayerrors.UpstreamError{Kind: relayerrors.UpstreamNetwork, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := httpclient.ReadAllWithLimit(resp.Body, maxResponseBytes)
	if err != nil {
		return &relayerrors.UpstreamError{Kind: relayerrors.UpstreamNetwork, Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &relayerrors.UpstreamError{
			Kind:       relayerrors.UpstreamAuth,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "Your credential was rejected by the task service. Run the auth command to re-link your account.",
		}
	}
	if resp.StatusCode >= 400 {
		return &relayerrors.UpstreamError{
			Kind:       relayerrors.UpstreamDomain,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorBodyMessage(payload, resp.StatusCode),
		}
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return &relayerrors.UpstreamError{Kind: relayerrors.UpstreamDomain, Op: op, Err: fmt.Errorf("decode response: %w", err), Message: "The task service returned an unreadable response."}
		}
	}
	return nil
}

// errorBodyMessage extracts the human-readable message from an error body.
func errorBodyMessage(payload []byte, status int) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return fmt.Sprintf("The task service answered with status %d.", status)
}

// FetchObjectives retrieves the current day's objectives, grouped by level.
func (c *Client) FetchObjectives(ctx context.Context, username string) (ObjectiveLevels, error) {
	day := c.now().UTC()
	endpoint := c.endpoint(fmt.Sprintf("/objectives/%s/all", day.Format("2006/01/02")))
	var levels ObjectiveLevels
	if err := c.do(ctx, "fetch-objectives", http.MethodGet, endpoint, c.userAuth(username), nil, &levels); err != nil {
		return ObjectiveLevels{}, err
	}
	return levels, nil
}

// FetchProjects retrieves all projects visible to the user.
func (c *Client) FetchProjects(ctx context.Context, username string) ([]Project, error) {
	var body struct {
		Projects []Project `json:"projects"`
	}
	if err := c.do(ctx, "fetch-projects", http.MethodGet, c.endpoint("/projects"), c.userAuth(username), nil, &body); err != nil {
		return nil, err
	}
	return body.Projects, nil
}

// FetchTasksForProject retrieves the tasks of one project.
func (c *Client) FetchTasksForProject(ctx context.Context, projectID, username string) ([]Task, error) {
	endpoint := c.endpoint(fmt.Sprintf("/projects/%s/tasks", url.PathEscape(projectID)))
	var body struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.do(ctx, "fetch-tasks", http.MethodGet, endpoint, c.userAuth(username), nil, &body); err != nil {
		return nil, err
	}
	return body.Tasks, nil
}

// CreateWorkEntry posts a work entry scoped to an objective.
func (c *Client) CreateWorkEntry(ctx context.Context, objectiveID string, durationSeconds int, username string) (WorkEntry, error) {
	endpoint := c.endpoint(fmt.Sprintf("/objectives/%s/work-entries/add", url.PathEscape(objectiveID)))
	payload := map[string]any{"time": durationSeconds}
	var entry WorkEntry
	if err := c.do(ctx, "create-work-entry", http.MethodPost, endpoint, c.userAuth(username), payload, &entry); err != nil {
		return WorkEntry{}, err
	}
	if entry.ObjectiveID == "" {
		entry.ObjectiveID = objectiveID
	}
	return entry, nil
}

// DeleteWorkEntry removes a previously created work entry.
func (c *Client) DeleteWorkEntry(ctx context.Context, objectiveID, entryID, username string) error {
	endpoint := c.endpoint(fmt.Sprintf("/objectives/%s/work-entries/%s", url.PathEscape(objectiveID), url.PathEscape(entryID)))
	return c.do(ctx, "delete-work-entry", http.MethodDelete, endpoint, c.userAuth(username), nil, nil)
}

// CreateObjective creates a day-level objective referencing a task. The
// creation timestamp is assigned server-side.
func (c *Client) CreateObjective(ctx context.Context, taskID, username string) error {
	payload := map[string]any{
		"related_task": taskID,
		"level":        "day",
	}
	return c.do(ctx, "create-objective", http.MethodPost, c.endpoint("/objectives/add"), c.userAuth(username), payload, nil)
}

// CreateTask submits a task creation request.
func (c *Client) CreateTask(ctx context.Context, payload TaskPayload, username string) (Task, error) {
	auth := c.cfg.AuthToken
	if username != "" {
		auth = c.userAuth(username)
	}
	var task Task
	if err := c.do(ctx, "create-task", http.MethodPost, c.endpoint("/tasks/add"), auth, payload, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// FetchIntegrationConfig resolves one integration's configuration by id.
func (c *Client) FetchIntegrationConfig(ctx context.Context, integrationID, username string) (IntegrationConfig, error) {
	var body struct {
		Integrations []IntegrationConfig `json:"integrations"`
	}
	if err := c.do(ctx, "fetch-integrations", http.MethodGet, c.endpoint("/integrations"), c.userAuth(username), nil, &body); err != nil {
		return IntegrationConfig{}, err
	}
	for _, integration := range body.Integrations {
		if integration.ID == integrationID {
			return integration, nil
		}
	}
	return IntegrationConfig{}, &relayerrors.UpstreamError{
		Kind:    relayerrors.UpstreamDomain,
		Op:      "fetch-integrations",
		Message: fmt.Sprintf("No integration configured with id %q.", integrationID),
	}
}

// FetchAuthLink returns the account-linking URL for the user.
func (c *Client) FetchAuthLink(ctx context.Context, username string) (string, error) {
	var body struct {
		Link string `json:"link"`
	}
	if err := c.do(ctx, "fetch-auth-link", http.MethodGet, c.endpoint("/users/auth-link"), c.userAuth(username), nil, &body); err != nil {
		return "", err
	}
	return body.Link, nil
}

// FetchUsers lists backend users, authenticated with the git relay account.
func (c *Client) FetchUsers(ctx context.Context, gitAccount string) ([]User, error) {
	auth := fmt.Sprintf("Git: %s:%s", gitAccount, c.cfg.AppToken)
	var body struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, "fetch-users", http.MethodGet, c.endpoint("/users"), auth, nil, &body); err != nil {
		return nil, err
	}
	return body.Users, nil
}

// CreateTimeEntry relays a new time-tracker entry.
func (c *Client) CreateTimeEntry(ctx context.Context, entry TimeEntry) error {
	return c.do(ctx, "create-time-entry", http.MethodPost, c.endpoint("/time-entries"), c.cfg.AuthToken, entry, nil)
}

// UpdateTimeEntry relays an updated duration for an existing entry.
func (c *Client) UpdateTimeEntry(ctx context.Context, id string, seconds int) error {
	payload := map[string]any{"id": id, "time": seconds}
	return c.do(ctx, "update-time-entry", http.MethodPut, c.endpoint("/time-entries"), c.cfg.AuthToken, payload, nil)
}

// DeleteTimeEntry relays a deletion of an existing entry.
func (c *Client) DeleteTimeEntry(ctx context.Context, id string) error {
	payload := map[string]any{"id": id}
	return c.do(ctx, "delete-time-entry", http.MethodDelete, c.endpoint("/time-entries"), c.cfg.AuthToken, payload, nil)
}
