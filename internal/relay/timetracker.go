package relay

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ombridge/internal/omservice"
)

type timeTrackerEvent struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Project string `json:"project"`
	Seconds int    `json:"seconds"`
}

// TimeTrackerWebhook syncs time-tracker entries into the backend. The
// tracker sends the same route with POST for new entries, PUT for duration
// changes and DELETE for removals.
func (r *Relay) TimeTrackerWebhook(c *gin.Context) {
	if r.dropDuplicate(c, "timetracker") {
		return
	}
	var event timeTrackerEvent
	if !r.bind(c, &event) {
		return
	}
	if event.ID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "missing entry id"})
		return
	}
	ctx := c.Request.Context()
	r.metrics.RecordRelayEvent(ctx, "timetracker")

	switch c.Request.Method {
	case http.MethodPost:
		entry := omservice.TimeEntry{
			ID:      event.ID,
			Title:   event.Title,
			Project: event.Project,
			Time:    event.Seconds,
		}
		if event.UserID != "" && r.directory != nil {
			email, err := r.directory.LookupEmail(ctx, event.UserID)
			if err != nil {
				r.fail(c, "lookup-tracker-user", err)
				return
			}
			entry.User = email
		}
		if err := r.svc.CreateTimeEntry(ctx, entry); err != nil {
			r.fail(c, "create-time-entry", err)
			return
		}
	case http.MethodPut:
		if err := r.svc.UpdateTimeEntry(ctx, event.ID, event.Seconds); err != nil {
			r.fail(c, "update-time-entry", err)
			return
		}
	case http.MethodDelete:
		if err := r.svc.DeleteTimeEntry(ctx, event.ID); err != nil {
			r.fail(c, "delete-time-entry", err)
			return
		}
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "unsupported method"})
		return
	}
	r.ok(c)
}
