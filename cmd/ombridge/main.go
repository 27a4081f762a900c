// Command ombridge runs the webhook relay between collaboration tools and
// the backend task/time-tracking service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ombridge/internal/chat"
	"ombridge/internal/config"
	"ombridge/internal/logging"
	"ombridge/internal/observability"
	"ombridge/internal/omservice"
	"ombridge/internal/relay"
	"ombridge/internal/server"
	"ombridge/internal/wizard"
)

var version = "0.3.0"

func main() {
	root := &cobra.Command{
		Use:           "ombridge",
		Short:         "Relay between collaboration tools and the task service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCommand(), versionCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("ombridge %s\n", version)
		},
	}
}

func serveCommand() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(logLevel)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	return cmd
}

func runServe(logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := logging.ParseLevel(logLevel)
	logger := componentLogger("ombridge", level)
	banner(cfg)

	collector, err := observability.NewCollector(observability.Config{
		Enabled: cfg.MetricsEnabled,
		Port:    cfg.MetricsPort,
	})
	if err != nil {
		return fmt.Errorf("metrics setup: %w", err)
	}
	collector.Start(componentLogger("metrics", level))

	backend := omservice.NewClient(omservice.Config{
		BaseURL:    cfg.BackendBaseURL,
		APIVersion: cfg.BackendAPIVersion,
		AuthToken:  cfg.BackendAuthToken,
		AppToken:   cfg.BackendAppToken,
	}, nil, componentLogger("omservice", level), collector)

	sink := chat.NewHTTPSink(nil, componentLogger("sink", level))
	messenger := chat.NewAPIMessenger(cfg.ChatAPIBaseURL, cfg.ChatBotToken, nil, componentLogger("chat", level))

	store := wizard.NewStore(cfg.SessionCapacity, cfg.SessionTTL, func(delta int64) {
		collector.AddActiveSessions(context.Background(), delta)
	})
	dispatcher := wizard.NewDispatcher(backend, sink, store, componentLogger("wizard", level), collector)

	var directory relay.Directory
	if cfg.TimeTrackerAPIBaseURL != "" {
		directory = relay.NewHTTPDirectory(cfg.TimeTrackerAPIBaseURL, cfg.TimeTrackerAPIKey, nil, componentLogger("timetracker", level))
	}
	rel := relay.New(backend, messenger, directory, relay.NewDedup(), relay.Config{
		ImportProject: cfg.ImportProject,
		ImportUser:    cfg.ImportUser,
	}, componentLogger("relay", level), collector)

	srv := server.New(cfg, dispatcher, rel, componentLogger("server", level))

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		logger.Info("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown: %v", err)
	}
	if err := collector.Shutdown(ctx); err != nil {
		logger.Error("Metrics shutdown: %v", err)
	}
	logger.Info("Bye")
	return nil
}

func componentLogger(component string, level logging.Level) *logging.ComponentLogger {
	l := logging.NewComponentLogger(component)
	l.SetLevel(level)
	return l
}

func banner(cfg *config.Config) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	title.Printf("ombridge %s\n", version)
	dim.Printf("env=%s port=%s backend=%s\n", cfg.Environment, cfg.Port, cfg.BackendBaseURL)
}
