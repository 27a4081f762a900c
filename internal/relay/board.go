package relay

import (
	"github.com/gin-gonic/gin"

	"ombridge/internal/omservice"
)

type cardCreatedPayload struct {
	Action struct {
		Data struct {
			Card struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Desc     string `json:"desc"`
				ShortURL string `json:"shortUrl"`
			} `json:"card"`
			List struct {
				Name string `json:"name"`
			} `json:"list"`
			Board struct {
				Name string `json:"name"`
			} `json:"board"`
		} `json:"data"`
	} `json:"action"`
}

// BoardCardCreated imports a freshly created board card as a backend task,
// tagged with its board and list names.
func (r *Relay) BoardCardCreated(c *gin.Context) {
	if r.dropDuplicate(c, "board") {
		return
	}
	var payload cardCreatedPayload
	if !r.bind(c, &payload) {
		return
	}
	ctx := c.Request.Context()
	r.metrics.RecordRelayEvent(ctx, "board")

	card := payload.Action.Data.Card
	tags := []string{"imported"}
	if board := tagify(payload.Action.Data.Board.Name); board != "" {
		tags = append(tags, board)
	}
	if list := tagify(payload.Action.Data.List.Name); list != "" {
		tags = append(tags, list)
	}

	task := omservice.TaskPayload{
		Title:       card.Name,
		Description: card.Desc,
		Tags:        tags,
		Project:     r.cfg.ImportProject,
		CreatedBy:   r.cfg.ImportUser,
		Origin:      "board",
		ExternalURL: card.ShortURL,
		ExternalID:  card.ID,
	}
	if _, err := r.svc.CreateTask(ctx, task, ""); err != nil {
		r.fail(c, "create-task", err)
		return
	}
	r.logger.Info("imported board card %q", card.Name)
	r.ok(c)
}
