package relay

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"

	"ombridge/internal/omservice"
)

type emailPayload struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	Body    string `json:"body"`
}

var subjectPrefix = regexp.MustCompile(`(?i)^(re|fwd?|fw):\s*`)

// EmailNewEmail imports an inbound email as a backend task: the subject,
// cleaned of reply/forward prefixes, becomes the title and the body, with
// any HTML stripped, becomes the description.
func (r *Relay) EmailNewEmail(c *gin.Context) {
	if r.dropDuplicate(c, "email") {
		return
	}
	var payload emailPayload
	if !r.bind(c, &payload) {
		return
	}
	ctx := c.Request.Context()
	r.metrics.RecordRelayEvent(ctx, "email")

	title := cleanSubject(payload.Subject)
	if title == "" {
		title = fmt.Sprintf("Email from %s", payload.From)
	}
	description := stripHTML(payload.Body)
	if payload.From != "" {
		description = strings.TrimSpace(description + "\n\nFrom: " + payload.From)
	}

	task := omservice.TaskPayload{
		Title:       title,
		Description: description,
		Tags:        []string{"imported"},
		Project:     r.cfg.ImportProject,
		CreatedBy:   r.cfg.ImportUser,
		Origin:      "email",
	}
	if _, err := r.svc.CreateTask(ctx, task, ""); err != nil {
		r.fail(c, "create-task", err)
		return
	}
	r.logger.Info("imported email %q", title)
	r.ok(c)
}

// cleanSubject strips stacked Re:/Fwd: prefixes.
func cleanSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for {
		stripped := subjectPrefix.ReplaceAllString(subject, "")
		if stripped == subject {
			return subject
		}
		subject = stripped
	}
}

// stripHTML extracts the text content of an HTML body. Plain-text bodies
// pass through with whitespace normalized.
func stripHTML(body string) string {
	if strings.Contains(body, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
			doc.Find("script, style").Remove()
			body = doc.Text()
		}
	}
	return strings.Join(strings.Fields(body), " ")
}
