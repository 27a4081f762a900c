package wizard

import (
	"context"

	"ombridge/internal/chat"
	"ombridge/internal/omservice"
)

type workEntryCall struct {
	ObjectiveID string
	Seconds     int
	User        string
}

type deleteCall struct {
	ObjectiveID string
	EntryID     string
}

// stubService is a scriptable backend double recording every mutating call.
type stubService struct {
	objectives     omservice.ObjectiveLevels
	objectivesErr  error
	projects       []omservice.Project
	projectsErr    error
	tasks          map[string][]omservice.Task
	tasksErr       error
	integration    omservice.IntegrationConfig
	integrationErr error
	authLink       string
	authErr        error

	workEntryErr error
	objectiveErr error
	taskErr      error
	deleteErr    error

	objectiveFetches int
	taskFetches      []string
	workEntries      []workEntryCall
	deletes          []deleteCall
	objectivesMade   []string
	tasksMade        []omservice.TaskPayload
}

func (s *stubService) FetchObjectives(context.Context, string) (omservice.ObjectiveLevels, error) {
	s.objectiveFetches++
	if s.objectivesErr != nil {
		return omservice.ObjectiveLevels{}, s.objectivesErr
	}
	return s.objectives, nil
}

func (s *stubService) FetchProjects(context.Context, string) ([]omservice.Project, error) {
	if s.projectsErr != nil {
		return nil, s.projectsErr
	}
	return s.projects, nil
}

func (s *stubService) FetchTasksForProject(_ context.Context, projectID, _ string) ([]omservice.Task, error) {
	s.taskFetches = append(s.taskFetches, projectID)
	if s.tasksErr != nil {
		return nil, s.tasksErr
	}
	return s.tasks[projectID], nil
}

func (s *stubService) CreateWorkEntry(_ context.Context, objectiveID string, seconds int, user string) (omservice.WorkEntry, error) {
	if s.workEntryErr != nil {
		return omservice.WorkEntry{}, s.workEntryErr
	}
	s.workEntries = append(s.workEntries, workEntryCall{ObjectiveID: objectiveID, Seconds: seconds, User: user})
	return omservice.WorkEntry{ID: "we-1", ObjectiveID: objectiveID, Time: seconds}, nil
}

func (s *stubService) DeleteWorkEntry(_ context.Context, objectiveID, entryID, _ string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes = append(s.deletes, deleteCall{ObjectiveID: objectiveID, EntryID: entryID})
	return nil
}

func (s *stubService) CreateObjective(_ context.Context, taskID, _ string) error {
	if s.objectiveErr != nil {
		return s.objectiveErr
	}
	s.objectivesMade = append(s.objectivesMade, taskID)
	return nil
}

func (s *stubService) CreateTask(_ context.Context, payload omservice.TaskPayload, _ string) (omservice.Task, error) {
	if s.taskErr != nil {
		return omservice.Task{}, s.taskErr
	}
	s.tasksMade = append(s.tasksMade, payload)
	return omservice.Task{ID: "task-new", Title: payload.Title}, nil
}

func (s *stubService) FetchIntegrationConfig(context.Context, string, string) (omservice.IntegrationConfig, error) {
	if s.integrationErr != nil {
		return omservice.IntegrationConfig{}, s.integrationErr
	}
	return s.integration, nil
}

func (s *stubService) FetchAuthLink(context.Context, string) (string, error) {
	if s.authErr != nil {
		return "", s.authErr
	}
	return s.authLink, nil
}

// newEngine wires a dispatcher whose steps run inline on the caller's
// goroutine, so tests observe every delivery deterministically.
func newEngine(svc *stubService) (*Dispatcher, *chat.RecordingSink, *Store) {
	sink := chat.NewRecordingSink()
	store := NewStore(0, 0, nil)
	d := NewDispatcher(svc, sink, store, nil, nil)
	d.spawn = func(fn func()) { fn() }
	return d, sink, store
}
