// Package server mounts the HTTP surface: the slash-command and interactive
// callback endpoints feeding the wizard engine, the webhook relay routes,
// and health.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ombridge/internal/chat"
	"ombridge/internal/config"
	relayerrors "ombridge/internal/errors"
	"ombridge/internal/httpclient"
	"ombridge/internal/logging"
	"ombridge/internal/relay"
	"ombridge/internal/wizard"
)

const maxCallbackBytes = 1 << 20

// Server is the relay's HTTP front.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	dispatcher *wizard.Dispatcher
	relay      *relay.Relay
	logger     logging.Logger
}

// New assembles the router. The dispatcher handles the interactive chat
// surface, the relay handles the one-shot webhooks.
func New(cfg *config.Config, dispatcher *wizard.Dispatcher, rel *relay.Relay, logger logging.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:        cfg,
		engine:     gin.New(),
		dispatcher: dispatcher,
		relay:      rel,
		logger:     logging.OrNop(logger),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger(), cors.Default())
	s.routes()
	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	// The chat platform authenticates with a token inside the request body,
	// so these two verify in the handler instead of a middleware.
	s.engine.POST("/command", s.handleCommand)
	s.engine.POST("/command/:integration", s.handleCommand)
	s.engine.POST("/interactive", s.handleCallback)

	git := s.engine.Group("/git", s.sharedSecret(s.cfg.Secrets.Git))
	git.POST("/push", s.relay.GitPush)

	board := s.engine.Group("/board", s.sharedSecret(s.cfg.Secrets.Board))
	board.POST("/cardcreated", s.relay.BoardCardCreated)

	tracker := s.engine.Group("/tracker", s.sharedSecret(s.cfg.Secrets.Tracker))
	tracker.POST("/taskcreated", s.relay.TrackerTaskCreated)

	email := s.engine.Group("/email", s.sharedSecret(s.cfg.Secrets.Email))
	email.POST("/newemail", s.relay.EmailNewEmail)

	timetracker := s.engine.Group("/timetracker", s.sharedSecret(s.cfg.Secrets.TimeTracker))
	timetracker.POST("/webhook", s.relay.TimeTrackerWebhook)
	timetracker.PUT("/webhook", s.relay.TimeTrackerWebhook)
	timetracker.DELETE("/webhook", s.relay.TimeTrackerWebhook)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC().Format(time.RFC3339)})
}

// reject maps a boundary error onto its status code: bad credentials get a
// 403, malformed payloads a 422, anything else a 400.
func (s *Server) reject(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case relayerrors.IsAuth(err):
		status = http.StatusForbidden
	case relayerrors.IsValidation(err):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// sharedSecret gates a webhook group on its configured token, taken from
// the X-Webhook-Token header or a token query parameter. An unset secret
// closes the route entirely.
func (s *Server) sharedSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Webhook-Token")
		if token == "" {
			token = c.Query("token")
		}
		if secret == "" || token != secret {
			s.logger.Warn("rejected %s: bad webhook token", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// handleCommand decodes a slash-command form post and returns the
// dispatcher's synchronous acknowledgment.
func (s *Server) handleCommand(c *gin.Context) {
	if c.PostForm("token") != s.cfg.Secrets.Command {
		s.logger.Warn("rejected command: bad verification token")
		s.reject(c, &relayerrors.AuthError{Message: "forbidden"})
		return
	}
	inv := &chat.CommandInvocation{
		Text:        c.PostForm("text"),
		UserName:    c.PostForm("user_name"),
		ResponseURL: c.PostForm("response_url"),
		Token:       c.PostForm("token"),
		Integration: c.Param("integration"),
	}
	if inv.UserName == "" {
		s.reject(c, &relayerrors.ValidationError{Field: "user_name", Message: "missing user identity"})
		return
	}
	c.JSON(http.StatusOK, s.dispatcher.HandleCommand(inv))
}

// handleCallback decodes an interactive callback. The platform wraps the
// JSON payload in a form field.
func (s *Server) handleCallback(c *gin.Context) {
	raw := c.PostForm("payload")
	if raw == "" {
		body, err := httpclient.ReadAllWithLimit(c.Request.Body, maxCallbackBytes)
		if err != nil {
			s.reject(c, &relayerrors.ValidationError{Field: "payload", Message: "unreadable payload"})
			return
		}
		raw = string(body)
	}
	inv, err := chat.ParseCallback([]byte(raw))
	if err != nil {
		s.reject(c, err)
		return
	}
	if inv.Token != s.cfg.Secrets.Command {
		s.logger.Warn("rejected callback: bad verification token")
		s.reject(c, &relayerrors.AuthError{Message: "forbidden"})
		return
	}
	if reply := s.dispatcher.HandleCallback(inv); reply != nil {
		c.JSON(http.StatusOK, reply)
		return
	}
	c.Status(http.StatusOK)
}

// requestLogger debug-logs every request with its status and duration.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
