package wizard

import (
	"context"
	"fmt"
	"strings"

	"ombridge/internal/chat"
	"ombridge/internal/logging"
	"ombridge/internal/observability"
	"ombridge/internal/omservice"
)

// TaskCreateController runs the task-creation wizard: the title and tags
// arrive inline with the command, so the only interactive step is picking
// the project, which also triggers the commit.
type TaskCreateController struct {
	svc     omservice.Service
	sink    chat.Sink
	store   *Store
	logger  logging.Logger
	metrics *observability.Collector
}

// NewTaskCreateController wires the task-creation wizard.
func NewTaskCreateController(svc omservice.Service, sink chat.Sink, store *Store, logger logging.Logger, metrics *observability.Collector) *TaskCreateController {
	return &TaskCreateController{
		svc:     svc,
		sink:    sink,
		store:   store,
		logger:  logging.OrNop(logger),
		metrics: metrics,
	}
}

// Start stages the parsed title and tags, acknowledges with a summary of
// what will be created, then fetches the project list and renders the
// selector.
func (c *TaskCreateController) Start(ctx context.Context, user, responseURL, integration, title string, tags []string) {
	st := NewState(KindTaskCreate)
	st.Draft = &TaskDraft{Title: title, Tags: tags, Origin: "chat", Integration: integration}
	c.store.Put(user, st)

	summary := fmt.Sprintf("Creating task %q for you.", title)
	if len(tags) > 0 {
		summary = fmt.Sprintf("Creating task %q tagged %s for you.", title, strings.Join(tags, ", "))
	}
	send(ctx, c.sink, c.logger, responseURL, chat.Message{Text: summary})

	projects, err := c.svc.FetchProjects(ctx, user)
	if err != nil {
		c.logger.Warn("project fetch failed for %s: %v", user, err)
		c.metrics.RecordUpstreamError(ctx, "fetch-projects")
		send(ctx, c.sink, c.logger, responseURL, errorReply(err))
		return
	}
	st.Options[FieldProject] = projectOptions(projects)

	fields := []MenuField{{Name: FieldProject, Label: "Which project does it belong to?", Options: st.Options[FieldProject]}}
	send(ctx, c.sink, c.logger, responseURL, RenderMenu("Almost there.", CallbackTaskProjectSelected, fields))
}

// HandleProjectSelected commits the staged task: integration auto-tags are
// merged into the draft's tag set, the chosen project attached, and the
// creation request submitted.
func (c *TaskCreateController) HandleProjectSelected(ctx context.Context, inv *chat.CallbackInvocation) {
	st, ok := c.store.Get(inv.UserName, KindTaskCreate)
	if !ok || st.Draft == nil {
		send(ctx, c.sink, c.logger, inv.ResponseURL, restartReply())
		return
	}
	st.CaptureMessageRef(inv.MessageRef)
	st.Select(FieldProject, inv.Value)

	tags := st.Draft.Tags
	if st.Draft.Integration != "" {
		cfg, err := c.svc.FetchIntegrationConfig(ctx, st.Draft.Integration, inv.UserName)
		if err != nil {
			c.logger.Warn("integration lookup failed for %s: %v", inv.UserName, err)
			c.metrics.RecordUpstreamError(ctx, "fetch-integrations")
			send(ctx, c.sink, c.logger, inv.ResponseURL, errorReply(err))
			return
		}
		tags = mergeTags(tags, cfg.AutoTags)
	}

	payload := omservice.TaskPayload{
		Title:     st.Draft.Title,
		Tags:      tags,
		Project:   inv.Value,
		CreatedBy: inv.UserName,
		Origin:    st.Draft.Origin,
	}
	task, err := c.svc.CreateTask(ctx, payload, inv.UserName)
	if err != nil {
		c.logger.Warn("task creation failed for %s: %v", inv.UserName, err)
		c.metrics.RecordUpstreamError(ctx, "create-task")
		send(ctx, c.sink, c.logger, inv.ResponseURL, errorReply(err))
		return
	}
	title := task.Title
	if title == "" {
		title = st.Draft.Title
	}
	c.metrics.RecordWizardCommit(ctx, string(KindTaskCreate))
	c.logger.Info("task %s created for %s", task.ID, inv.UserName)
	send(ctx, c.sink, c.logger, inv.ResponseURL, chat.Message{
		Text:            fmt.Sprintf("Done! Created task %q.", title),
		ReplaceOriginal: true,
	})
}

// mergeTags appends extras that are not already present, preserving order.
func mergeTags(tags, extras []string) []string {
	seen := make(map[string]bool, len(tags))
	merged := make([]string, 0, len(tags)+len(extras))
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	for _, tag := range extras {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}
