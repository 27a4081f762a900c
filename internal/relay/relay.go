// Package relay implements the one-shot webhook endpoints: receive an event
// from a collaboration tool, reshape it, forward it to the backend, answer
// 200. No conversation state is involved; the wizard engine handles that.
package relay

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ombridge/internal/chat"
	relayerrors "ombridge/internal/errors"
	"ombridge/internal/logging"
	"ombridge/internal/observability"
	"ombridge/internal/omservice"
)

// Config carries the defaults applied to imported tasks.
type Config struct {
	// ImportProject receives tasks created from board, tracker and email
	// events when the event itself names no project.
	ImportProject string
	// ImportUser is recorded as the creator of imported tasks.
	ImportUser string
}

// Relay bundles the webhook handlers and their collaborators.
type Relay struct {
	svc       omservice.RelayService
	messenger chat.Messenger
	directory Directory
	dedup     *Dedup
	cfg       Config
	logger    logging.Logger
	metrics   *observability.Collector
}

// New wires the relay handlers. messenger may be nil when the code-push
// route is not mounted, directory may be nil when no time tracker is
// configured.
func New(svc omservice.RelayService, messenger chat.Messenger, directory Directory, dedup *Dedup, cfg Config, logger logging.Logger, metrics *observability.Collector) *Relay {
	return &Relay{
		svc:       svc,
		messenger: messenger,
		directory: directory,
		dedup:     dedup,
		cfg:       cfg,
		logger:    logging.OrNop(logger),
		metrics:   metrics,
	}
}

// deliveryIDHeaders are checked in order for a redelivery-stable event id.
var deliveryIDHeaders = []string{"X-Delivery-Id", "X-GitHub-Delivery", "X-Gitea-Delivery", "X-Webhook-Id"}

// dropDuplicate answers redelivered events with 200 without forwarding them.
func (r *Relay) dropDuplicate(c *gin.Context, source string) bool {
	var id string
	for _, header := range deliveryIDHeaders {
		if id = c.GetHeader(header); id != "" {
			break
		}
	}
	if id == "" || r.dedup == nil || !r.dedup.Seen(id) {
		return false
	}
	r.logger.Info("dropping redelivered %s event %s", source, id)
	c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	return true
}

// bind decodes the JSON payload, rejecting malformed bodies with 422.
func (r *Relay) bind(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		r.logger.Warn("malformed webhook payload: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "malformed payload"})
		return false
	}
	return true
}

// fail translates an upstream failure into the response status.
func (r *Relay) fail(c *gin.Context, op string, err error) {
	r.logger.Warn("%s failed: %v", op, err)
	r.metrics.RecordUpstreamError(c.Request.Context(), op)
	status := http.StatusBadGateway
	switch {
	case relayerrors.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case relayerrors.IsUpstreamNetwork(err):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": relayerrors.UserMessage(err)})
}

func (r *Relay) ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// tagify normalizes a board/list/project name into a tag.
func tagify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
