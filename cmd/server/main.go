// Command server runs the qwenrelay gateway: an OpenAI-compatible facade
// over the Tongyi/Qwen web backends.
//
// Configuration is layered: built-in defaults, an optional YAML file
// (-config flag, QWENRELAY_CONFIG env var, ./config.yaml, or
// /etc/qwenrelay/config.yaml), then QWENRELAY_* environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
	"github.com/qwenrelay/qwenrelay/pkg/auth"
	"github.com/qwenrelay/qwenrelay/pkg/config"
	"github.com/qwenrelay/qwenrelay/pkg/debug"
	"github.com/qwenrelay/qwenrelay/pkg/gateway"
	"github.com/qwenrelay/qwenrelay/pkg/observability"
	transporthttp "github.com/qwenrelay/qwenrelay/pkg/transport/http"
	"github.com/qwenrelay/qwenrelay/pkg/upstream/qwen"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level := debug.Init(cfg.Observability.Debug, cfg.Observability.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Account table, optionally hot-reloaded from a dedicated file.
	table, err := cfg.BuildTable()
	if err != nil {
		return fmt.Errorf("building account table: %w", err)
	}
	store := accounts.NewStore(table, logger)
	logger.Info("accounts loaded", "cn_accounts", fmt.Sprint(table.CNIDs()))

	ctx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if cfg.Accounts.Watch && cfg.Accounts.File != "" {
		watcher, err := accounts.NewWatcher(store, cfg.Accounts.File, 0, logger)
		if err != nil {
			return fmt.Errorf("starting accounts watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("accounts watcher stopped", "error", err)
			}
		}()
		logger.Info("accounts hot reload enabled", "file", cfg.Accounts.File)
	}

	// Upstream client and gateway core.
	client := qwen.New(qwen.Config{
		ConversationURL: cfg.Upstream.ConversationURL,
		PrewarmURL:      cfg.Upstream.PrewarmURL,
		CompletionsURL:  cfg.Upstream.CompletionsURL,
		TaskStatusURL:   cfg.Upstream.TaskStatusURL,
		ConnectTimeout:  cfg.Upstream.ConnectTimeout,
		PollInterval:    cfg.Upstream.PollInterval,
		PollMaxAttempts: cfg.Upstream.PollMaxAttempts,
	})
	defer client.Close()

	svc := gateway.New(client, store, logger)

	// Inbound authentication.
	chain := buildAuthChain(cfg, logger)

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithLogger(logger),
		transporthttp.WithModels(cfg.Models),
		transporthttp.WithVersion(version),
		transporthttp.WithHTTPMiddleware(
			observability.MetricsMiddleware,
			auth.Middleware(chain, auth.DefaultBypassEndpoints),
		),
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithExtraHandler("GET "+cfg.Observability.Metrics.Path, promhttp.Handler()))
	}

	srv := transporthttp.NewServer(svc, opts...)

	logger.Info("qwenrelay starting",
		"port", cfg.Server.Port,
		"models", len(cfg.Models),
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	return srv.ListenAndServe()
}

// buildAuthChain assembles the inbound authenticator chain from the
// configuration. With no credentials configured the gateway runs open
// and says so loudly.
func buildAuthChain(cfg *config.Config, logger *slog.Logger) *auth.AuthChain {
	var authenticators []auth.Authenticator
	if cfg.Auth.JWTSecret != "" {
		authenticators = append(authenticators, auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	}
	if cfg.Auth.MasterKey != "" {
		authenticators = append(authenticators, auth.NewMasterKey(cfg.Auth.MasterKey))
	}

	if len(authenticators) == 0 {
		logger.Warn("no master key or JWT secret configured, the gateway is open to all requests")
		return &auth.AuthChain{DefaultDecision: auth.Yes}
	}

	return &auth.AuthChain{
		Authenticators:  authenticators,
		DefaultDecision: auth.No,
	}
}
