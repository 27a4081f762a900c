package relay

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ombridge/internal/chat"
	"ombridge/internal/wizard"
)

const maxSummaryCommits = 5

type gitPushPayload struct {
	Ref        string `json:"ref"`
	Repository struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"repository"`
	Pusher struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"pusher"`
	Commits []struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	} `json:"commits"`
}

// GitPush turns a code-push event into a direct message nudging the pusher
// to log the time, with a work-entry call-to-action button attached. The
// git server always gets a 200: a missing account mapping or an undeliverable
// message is our problem, not the webhook sender's.
func (r *Relay) GitPush(c *gin.Context) {
	if r.dropDuplicate(c, "git") {
		return
	}
	var payload gitPushPayload
	if !r.bind(c, &payload) {
		return
	}
	ctx := c.Request.Context()
	r.metrics.RecordRelayEvent(ctx, "git")

	pusher := payload.Pusher.Username
	if pusher == "" {
		pusher = payload.Pusher.Name
	}
	if pusher == "" || len(payload.Commits) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	users, err := r.svc.FetchUsers(ctx, pusher)
	if err != nil {
		r.fail(c, "fetch-users", err)
		return
	}
	var chatAccount string
	for _, user := range users {
		if user.GitAccount == pusher {
			chatAccount = user.ChatAccount
			break
		}
	}
	if chatAccount == "" {
		r.logger.Info("no chat account mapped to git user %q", pusher)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	userID, err := r.messenger.LookupUserID(ctx, chatAccount)
	if err != nil {
		r.logger.Warn("chat lookup for %q failed: %v", chatAccount, err)
		c.JSON(http.StatusOK, gin.H{"status": "undelivered"})
		return
	}
	msg := pushMessage(payload)
	if err := r.messenger.SendDirectMessage(ctx, userID, msg); err != nil {
		r.logger.Warn("push notification to %q failed: %v", chatAccount, err)
		c.JSON(http.StatusOK, gin.H{"status": "undelivered"})
		return
	}
	r.ok(c)
}

// pushMessage renders the commit summary with the log-time button.
func pushMessage(payload gitPushPayload) chat.Message {
	repo := payload.Repository.FullName
	if repo == "" {
		repo = payload.Repository.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You pushed %d commit(s) to %s:", len(payload.Commits), repo)
	for i, commit := range payload.Commits {
		if i == maxSummaryCommits {
			fmt.Fprintf(&b, "\n… and %d more", len(payload.Commits)-maxSummaryCommits)
			break
		}
		subject, _, _ := strings.Cut(commit.Message, "\n")
		b.WriteString("\n• ")
		b.WriteString(strings.TrimSpace(subject))
	}
	return chat.Message{
		Text: b.String(),
		Attachments: []chat.Attachment{{
			Text:       "Want to log the time you spent?",
			CallbackID: wizard.CallbackWorkEntryCTA,
			Actions: []chat.Action{{
				Name:  "log_time",
				Text:  "Log time",
				Type:  "button",
				Value: "start",
			}},
		}},
	}
}
