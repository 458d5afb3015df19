package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/slack-go/slack"

	apiPkg "github.com/dupewatch-io/dupewatch/internal/api"
	"github.com/dupewatch-io/dupewatch/internal/assist"
	"github.com/dupewatch-io/dupewatch/internal/config"
	slackconn "github.com/dupewatch-io/dupewatch/internal/connector/slack"
	"github.com/dupewatch-io/dupewatch/internal/dedup"
	"github.com/dupewatch-io/dupewatch/internal/jira"
	"github.com/dupewatch-io/dupewatch/internal/logbuf"
	"github.com/dupewatch-io/dupewatch/internal/provider"
	"github.com/dupewatch-io/dupewatch/internal/search"
	"github.com/dupewatch-io/dupewatch/internal/triage"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("dupewatchd starting", "project", cfg.Jira.ProjectKey)

	// 1. Initialize LLM providers
	providers := make(map[string]provider.Provider)
	var embedder provider.Embedder
	for name, pcfg := range cfg.Providers {
		switch pcfg.Type {
		case "openai":
			var opts []provider.OpenAIOption
			if pcfg.BaseURL != "" {
				opts = append(opts, provider.WithBaseURL(pcfg.BaseURL))
			}
			if pcfg.Model != "" {
				opts = append(opts, provider.WithModel(pcfg.Model))
			}
			if cfg.Search.EmbedModel != "" {
				opts = append(opts, provider.WithEmbedModel(cfg.Search.EmbedModel))
			}
			p := provider.NewOpenAI(pcfg.APIKey, opts...)
			providers[name] = p
			if embedder == nil || name == "embeddings" {
				embedder = p
			}
		default: // "anthropic" or empty
			var opts []provider.AnthropicOption
			if pcfg.BaseURL != "" {
				opts = append(opts, provider.WithAnthropicBaseURL(pcfg.BaseURL))
			}
			if pcfg.Model != "" {
				opts = append(opts, provider.WithAnthropicModel(pcfg.Model))
			}
			providers[name] = provider.NewAnthropic(pcfg.APIKey, opts...)
		}
		logger.Info("provider initialized", "name", name, "type", pcfg.Type, "model", pcfg.Model)
	}

	defaultProv, ok := providers["default"]
	if !ok {
		logger.Error("no 'default' provider configured")
		os.Exit(1)
	}
	if embedder == nil {
		logger.Error("no embedding-capable provider configured; similarity search needs one openai provider")
		os.Exit(1)
	}

	// 2. Open the idempotency store
	os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755)
	store, err := dedup.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open event store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Domain clients
	searcher := search.New(search.Config{
		IndexURL:       cfg.Search.IndexURL,
		APIKey:         cfg.Search.APIKey,
		Namespace:      cfg.Search.Namespace,
		TopK:           cfg.Search.TopK,
		ScoreThreshold: cfg.Search.ScoreThreshold,
		BrowseURL:      cfg.Jira.BaseURL + "/browse",
	}, embedder)

	issues := jira.New(jira.Config{
		BaseURL:          cfg.Jira.BaseURL,
		Email:            cfg.Jira.Email,
		APIToken:         cfg.Jira.APIToken,
		ProjectKey:       cfg.Jira.ProjectKey,
		BrandField:       cfg.Jira.BrandField,
		EnvironmentField: cfg.Jira.EnvironmentField,
	})

	summarizer := &assist.Summarizer{Provider: defaultProv}
	drafter := &assist.Drafter{Provider: defaultProv}

	// 4. Slack surfaces + orchestrator
	poster := slackconn.NewPoster(slack.New(cfg.Slack.BotToken), logger.With("component", "poster"))
	triager := triage.New(store, searcher, issues, summarizer, drafter, poster,
		logger.With("component", "triage"))
	receiver := slackconn.NewReceiver(cfg.Slack.SigningSecret, cfg.Slack.BotUserID,
		triager.Handle, logger.With("component", "slack"))

	// 5. HTTP server (Slack endpoints + admin API)
	srv := apiPkg.NewServer(apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, receiver, store, logBuf, logger.With("component", "api"))

	go safeGo(logger, "http-server", func() { srv.Start(ctx) })
	logger.Info("http server started", "port", cfg.API.Port)

	// 6. Retention sweeper, only when a bound is configured
	if cfg.Store.RetentionDays > 0 {
		sweeper := dedup.NewSweeper(store,
			time.Duration(cfg.Store.RetentionDays)*24*time.Hour,
			logger.With("component", "retention"))
		if err := sweeper.Start(); err != nil {
			logger.Error("failed to start retention sweeper", "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
		logger.Info("retention sweeper started", "days", cfg.Store.RetentionDays)
	}

	// 7. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("dupewatchd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
