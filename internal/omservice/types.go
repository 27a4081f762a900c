// Package omservice is the client for the backend task/time-tracking
// service. The wizard engine and the relays consume it through the Service
// interface so tests can substitute a stub.
package omservice

import "context"

// Objective is one objective row as returned by the backend.
type Objective struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// ObjectiveLevels groups the day's objectives by hierarchy level.
type ObjectiveLevels struct {
	Day   []Objective `json:"day"`
	Month []Objective `json:"month"`
	Year  []Objective `json:"year"`
}

// Project is one selectable project.
type Project struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Task is one selectable task.
type Task struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// WorkEntry is the backend's record of a logged work entry.
type WorkEntry struct {
	ID          string `json:"_id"`
	ObjectiveID string `json:"objective"`
	Time        int    `json:"time"` // seconds
}

// TaskPayload is the body of a task creation request.
type TaskPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Project     string   `json:"project,omitempty"`
	CreatedBy   string   `json:"created_by,omitempty"`
	Origin      string   `json:"origin"`
	ExternalURL string   `json:"external_url,omitempty"`
	ExternalID  string   `json:"external_id,omitempty"`
}

// User is a backend user row, used by the code-push relay to map git
// accounts to chat accounts.
type User struct {
	ID          string `json:"_id"`
	GitAccount  string `json:"git_account"`
	ChatAccount string `json:"slack_account"`
	Email       string `json:"email"`
}

// IntegrationConfig is the per-integration configuration resolved at task
// commit: tags applied automatically plus an optional project mapping.
type IntegrationConfig struct {
	ID       string         `json:"_id"`
	AutoTags []string       `json:"auto_tags"`
	Project  string         `json:"project"`
	Meta     map[string]any `json:"meta"`
}

// TimeEntry is a synced time-tracker entry.
type TimeEntry struct {
	ID      string `json:"id"`
	Project string `json:"project,omitempty"`
	User    string `json:"user,omitempty"`
	Title   string `json:"title,omitempty"`
	Time    int    `json:"time"`
}

// Service is the narrow backend contract consumed by the core.
type Service interface {
	FetchObjectives(ctx context.Context, username string) (ObjectiveLevels, error)
	FetchProjects(ctx context.Context, username string) ([]Project, error)
	FetchTasksForProject(ctx context.Context, projectID, username string) ([]Task, error)
	CreateWorkEntry(ctx context.Context, objectiveID string, durationSeconds int, username string) (WorkEntry, error)
	DeleteWorkEntry(ctx context.Context, objectiveID, entryID, username string) error
	CreateObjective(ctx context.Context, taskID, username string) error
	CreateTask(ctx context.Context, payload TaskPayload, username string) (Task, error)
	FetchIntegrationConfig(ctx context.Context, integrationID, username string) (IntegrationConfig, error)
	FetchAuthLink(ctx context.Context, username string) (string, error)
}

// RelayService extends Service with the operations only the one-shot relays
// use, authenticated with the service token instead of a user credential.
type RelayService interface {
	Service
	FetchUsers(ctx context.Context, gitAccount string) ([]User, error)
	CreateTimeEntry(ctx context.Context, entry TimeEntry) error
	UpdateTimeEntry(ctx context.Context, id string, seconds int) error
	DeleteTimeEntry(ctx context.Context, id string) error
}
