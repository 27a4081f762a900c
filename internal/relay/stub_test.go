package relay

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"ombridge/internal/chat"
	"ombridge/internal/omservice"
)

type durationUpdate struct {
	ID      string
	Seconds int
}

// stubBackend is a scriptable RelayService double recording mutating calls.
type stubBackend struct {
	users    []omservice.User
	usersErr error

	taskErr   error
	tasksMade []omservice.TaskPayload

	entryErr  error
	entries   []omservice.TimeEntry
	updates   []durationUpdate
	deletions []string
}

func (s *stubBackend) FetchObjectives(context.Context, string) (omservice.ObjectiveLevels, error) {
	return omservice.ObjectiveLevels{}, nil
}

func (s *stubBackend) FetchProjects(context.Context, string) ([]omservice.Project, error) {
	return nil, nil
}

func (s *stubBackend) FetchTasksForProject(context.Context, string, string) ([]omservice.Task, error) {
	return nil, nil
}

func (s *stubBackend) CreateWorkEntry(context.Context, string, int, string) (omservice.WorkEntry, error) {
	return omservice.WorkEntry{}, nil
}

func (s *stubBackend) DeleteWorkEntry(context.Context, string, string, string) error {
	return nil
}

func (s *stubBackend) CreateObjective(context.Context, string, string) error {
	return nil
}

func (s *stubBackend) CreateTask(_ context.Context, payload omservice.TaskPayload, _ string) (omservice.Task, error) {
	if s.taskErr != nil {
		return omservice.Task{}, s.taskErr
	}
	s.tasksMade = append(s.tasksMade, payload)
	return omservice.Task{ID: "task-new", Title: payload.Title}, nil
}

func (s *stubBackend) FetchIntegrationConfig(context.Context, string, string) (omservice.IntegrationConfig, error) {
	return omservice.IntegrationConfig{}, nil
}

func (s *stubBackend) FetchAuthLink(context.Context, string) (string, error) {
	return "", nil
}

func (s *stubBackend) FetchUsers(context.Context, string) ([]omservice.User, error) {
	if s.usersErr != nil {
		return nil, s.usersErr
	}
	return s.users, nil
}

func (s *stubBackend) CreateTimeEntry(_ context.Context, entry omservice.TimeEntry) error {
	if s.entryErr != nil {
		return s.entryErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubBackend) UpdateTimeEntry(_ context.Context, id string, seconds int) error {
	if s.entryErr != nil {
		return s.entryErr
	}
	s.updates = append(s.updates, durationUpdate{ID: id, Seconds: seconds})
	return nil
}

func (s *stubBackend) DeleteTimeEntry(_ context.Context, id string) error {
	if s.entryErr != nil {
		return s.entryErr
	}
	s.deletions = append(s.deletions, id)
	return nil
}

type stubDirectory struct {
	emails map[string]string
}

func (d *stubDirectory) LookupEmail(_ context.Context, userID string) (string, error) {
	if email, ok := d.emails[userID]; ok {
		return email, nil
	}
	return "", fmt.Errorf("no tracker user with id %q", userID)
}

func newTestRouter(r *Relay) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/git/push", r.GitPush)
	engine.POST("/board/cardcreated", r.BoardCardCreated)
	engine.POST("/tracker/taskcreated", r.TrackerTaskCreated)
	engine.POST("/email/newemail", r.EmailNewEmail)
	engine.POST("/timetracker/webhook", r.TimeTrackerWebhook)
	engine.PUT("/timetracker/webhook", r.TimeTrackerWebhook)
	engine.DELETE("/timetracker/webhook", r.TimeTrackerWebhook)
	return engine
}

func newTestRelay(svc omservice.RelayService, messenger chat.Messenger, directory Directory) *Relay {
	cfg := Config{ImportProject: "inbox", ImportUser: "importer"}
	return New(svc, messenger, directory, NewDedup(), cfg, nil, nil)
}

func doJSON(engine *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}
