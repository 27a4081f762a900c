package wizard

import (
	"context"
	"fmt"

	"ombridge/internal/chat"
	"ombridge/internal/logging"
	"ombridge/internal/observability"
	"ombridge/internal/omservice"
)

// ObjectiveCreateController runs the objective-creation wizard: pick a
// project, pick one of its tasks, then confirm with an explicit create
// button. Task options cascade from the project choice.
type ObjectiveCreateController struct {
	svc     omservice.Service
	sink    chat.Sink
	store   *Store
	logger  logging.Logger
	metrics *observability.Collector
}

// NewObjectiveCreateController wires the objective-creation wizard.
func NewObjectiveCreateController(svc omservice.Service, sink chat.Sink, store *Store, logger logging.Logger, metrics *observability.Collector) *ObjectiveCreateController {
	return &ObjectiveCreateController{
		svc:     svc,
		sink:    sink,
		store:   store,
		logger:  logging.OrNop(logger),
		metrics: metrics,
	}
}

// Start (re)initializes the wizard and renders the project selector.
func (c *ObjectiveCreateController) Start(ctx context.Context, user, responseURL string) {
	st := NewState(KindObjectiveCreate)
	c.store.Put(user, st)
	c.step(ctx, user, responseURL, st)
}

// HandleOption processes one selection or the create button.
func (c *ObjectiveCreateController) HandleOption(ctx context.Context, inv *chat.CallbackInvocation) {
	st, ok := c.store.Get(inv.UserName, KindObjectiveCreate)
	if !ok {
		send(ctx, c.sink, c.logger, inv.ResponseURL, restartReply())
		return
	}
	st.CaptureMessageRef(inv.MessageRef)

	switch inv.Field {
	case FieldProject:
		previous, had := st.Selected(FieldProject)
		st.Select(FieldProject, inv.Value)
		// A different project makes the cached task list meaningless.
		if !had || previous.Value != inv.Value {
			st.ClearField(FieldTask)
		}
	case FieldTask:
		st.Select(FieldTask, inv.Value)
	case "create":
		task, chosen := st.Selected(FieldTask)
		if !chosen {
			break
		}
		c.commit(ctx, inv.UserName, inv.ResponseURL, task)
		return
	}
	c.step(ctx, inv.UserName, inv.ResponseURL, st)
}

// step fetches whatever options are missing for the currently visible fields
// and renders the menu. The task selector appears only once a project is
// chosen; the create button only once a task is chosen.
func (c *ObjectiveCreateController) step(ctx context.Context, user, responseURL string, st *State) {
	if st.Options[FieldProject] == nil {
		projects, err := c.svc.FetchProjects(ctx, user)
		if err != nil {
			c.logger.Warn("project fetch failed for %s: %v", user, err)
			c.metrics.RecordUpstreamError(ctx, "fetch-projects")
			send(ctx, c.sink, c.logger, responseURL, errorReply(err))
			return
		}
		st.Options[FieldProject] = projectOptions(projects)
	}

	fields := []MenuField{
		{Name: FieldProject, Label: "Pick a project", Options: st.Options[FieldProject]},
	}
	var extras []chat.Attachment

	if project, chosen := st.Selected(FieldProject); chosen {
		fields[0].Selected = &project
		if st.Options[FieldTask] == nil {
			tasks, err := c.svc.FetchTasksForProject(ctx, project.Value, user)
			if err != nil {
				c.logger.Warn("task fetch failed for %s: %v", user, err)
				c.metrics.RecordUpstreamError(ctx, "fetch-tasks")
				send(ctx, c.sink, c.logger, responseURL, errorReply(err))
				return
			}
			st.Options[FieldTask] = taskOptions(tasks)
		}
		taskField := MenuField{Name: FieldTask, Label: "Pick a task", Options: st.Options[FieldTask]}
		if task, chosen := st.Selected(FieldTask); chosen {
			taskField.Selected = &task
			extras = append(extras, chat.Attachment{
				CallbackID: CallbackObjectiveOption,
				Color:      menuColor,
				Actions: []chat.Action{{
					Name:  "create",
					Text:  "Create objective",
					Type:  "button",
					Value: task.Value,
				}},
			})
		}
		fields = append(fields, taskField)
	}

	send(ctx, c.sink, c.logger, responseURL, RenderMenu("Add an objective to today's list.", CallbackObjectiveOption, fields, extras...))
}

func (c *ObjectiveCreateController) commit(ctx context.Context, user, responseURL string, task Selection) {
	if err := c.svc.CreateObjective(ctx, task.Value, user); err != nil {
		c.logger.Warn("objective creation failed for %s: %v", user, err)
		c.metrics.RecordUpstreamError(ctx, "create-objective")
		send(ctx, c.sink, c.logger, responseURL, errorReply(err))
		return
	}
	c.metrics.RecordWizardCommit(ctx, string(KindObjectiveCreate))
	c.logger.Info("objective created for %s from task %s", user, task.Value)
	send(ctx, c.sink, c.logger, responseURL, chat.Message{
		Text:            fmt.Sprintf("Objective for %q is on today's list.", task.Text),
		ReplaceOriginal: true,
	})
}

func projectOptions(projects []omservice.Project) []Option {
	out := make([]Option, 0, len(projects))
	for _, project := range projects {
		out = append(out, Option{Text: project.Name, Value: project.ID})
	}
	return out
}

func taskOptions(tasks []omservice.Task) []Option {
	out := make([]Option, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, Option{Text: task.Title, Value: task.ID})
	}
	return out
}
