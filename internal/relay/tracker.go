package relay

import (
	"github.com/gin-gonic/gin"

	"ombridge/internal/omservice"
)

type trackerTaskPayload struct {
	Event string `json:"event"`
	Task  struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Project     string `json:"project"`
		List        string `json:"list"`
	} `json:"task"`
}

// TrackerTaskCreated mirrors a task created in the external tracker into the
// backend, carrying a p/<project> tag so the origin project stays visible.
func (r *Relay) TrackerTaskCreated(c *gin.Context) {
	if r.dropDuplicate(c, "tracker") {
		return
	}
	var payload trackerTaskPayload
	if !r.bind(c, &payload) {
		return
	}
	ctx := c.Request.Context()
	r.metrics.RecordRelayEvent(ctx, "tracker")

	tags := []string{"imported"}
	if project := tagify(payload.Task.Project); project != "" {
		tags = append(tags, "p/"+project)
	}
	if list := tagify(payload.Task.List); list != "" {
		tags = append(tags, list)
	}

	task := omservice.TaskPayload{
		Title:       payload.Task.Title,
		Description: payload.Task.Description,
		Tags:        tags,
		Project:     r.cfg.ImportProject,
		CreatedBy:   r.cfg.ImportUser,
		Origin:      "tracker",
		ExternalURL: payload.Task.URL,
		ExternalID:  payload.Task.ID,
	}
	if _, err := r.svc.CreateTask(ctx, task, ""); err != nil {
		r.fail(c, "create-task", err)
		return
	}
	r.logger.Info("mirrored tracker task %q", payload.Task.Title)
	r.ok(c)
}
