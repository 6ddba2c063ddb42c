package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/pmo-agent/internal/board"
	"github.com/p-blackswan/pmo-agent/internal/config"
	"github.com/p-blackswan/pmo-agent/internal/dedup"
	"github.com/p-blackswan/pmo-agent/internal/dispatch"
	ghclient "github.com/p-blackswan/pmo-agent/internal/github"
	"github.com/p-blackswan/pmo-agent/internal/health"
	"github.com/p-blackswan/pmo-agent/internal/intent"
	"github.com/p-blackswan/pmo-agent/internal/llm"
	"github.com/p-blackswan/pmo-agent/internal/metrics"
	"github.com/p-blackswan/pmo-agent/internal/mgmt"
	slackpkg "github.com/p-blackswan/pmo-agent/internal/slack"
	"github.com/p-blackswan/pmo-agent/internal/stats"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Str("mgmt_addr", cfg.MgmtListenAddr).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Bool("board_enabled", cfg.BoardEnabled()).
		Bool("github_enabled", cfg.GitHubEnabled()).
		Bool("model_enabled", cfg.ModelEnabled()).
		Msg("starting pmo agent")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Health checker and metrics
	checker := health.NewChecker(logger)
	m := metrics.New()

	// Board client (if configured)
	var boardClient *board.Client
	if cfg.BoardEnabled() {
		boardClient = board.NewClient(cfg.TrelloAPIKey, cfg.TrelloToken, cfg.TrelloBoardID, logger)
		checker.Register("board", func(ctx context.Context) health.Status {
			if _, err := boardClient.Lists(ctx); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
		logger.Info().Str("board_id", cfg.TrelloBoardID).Msg("board client initialized")
	} else {
		logger.Info().Msg("board not configured — skipping")
	}

	// GitHub client (if configured). App auth wins over token auth.
	var ghClient *ghclient.Client
	if cfg.GitHubEnabled() {
		owner, repo, repoErr := cfg.SplitRepo()
		if repoErr != nil {
			logger.Fatal().Err(repoErr).Msg("invalid GITHUB_REPO")
		}
		if cfg.GitHubAppEnabled() {
			ghClient, err = ghclient.NewAppClient(cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKeyPath, owner, repo, logger)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to init GitHub App client")
			}
			logger.Info().Int64("app_id", cfg.GitHubAppID).Msg("GitHub App client initialized")
		} else {
			ghClient = ghclient.NewClient(cfg.GitHubToken, owner, repo, logger)
			logger.Info().Msg("GitHub token client initialized")
		}
		checker.Register("github", func(ctx context.Context) health.Status {
			if _, err := ghClient.Info(ctx); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
	} else {
		logger.Info().Msg("GitHub not configured — skipping")
	}

	// Intent classification: rules always, model on top when configured.
	phrases, err := intent.LoadPhrases(cfg.PhrasesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.PhrasesPath).Msg("failed to load status phrases")
	}
	rules := intent.NewRuleClassifier(phrases)

	var completer intent.Completer
	if cfg.ModelEnabled() {
		completer = llm.NewClient(cfg.OpenAIAPIKey, llm.WithModel(cfg.OpenAIModel), llm.WithLogger(logger))
		logger.Info().Str("model", cfg.OpenAIModel).Msg("completion client initialized")
	} else {
		logger.Info().Msg("completion API not configured — rule-based classification only")
	}

	classifier := intent.NewModelClassifier(rules, completer, cfg.ClassifierTimeout, logger)
	classifier.OnFallback(m.RecordFallback)

	var planner slackpkg.Planner
	if cfg.PlannerEnabled && completer != nil {
		planner = intent.NewPlanner(completer, cfg.ClassifierTimeout, logger)
		logger.Info().Msg("action planner enabled")
	}

	// Dispatcher over whichever capabilities exist. Interface variables stay
	// nil unless the concrete client was built.
	var boardCap dispatch.Board
	var boardSrc stats.BoardSource
	if boardClient != nil {
		boardCap = boardClient
		boardSrc = boardClient
	}
	var repoCap dispatch.Repository
	var commitSrc stats.CommitSource
	if ghClient != nil {
		repoCap = ghClient
		commitSrc = ghClient
	}
	var statsCap dispatch.Stats
	if boardSrc != nil || commitSrc != nil {
		statsCap = stats.NewReporter(commitSrc, boardSrc, logger)
	}
	dispatcher := dispatch.New(boardCap, repoCap, statsCap, logger)

	// HTTP server: Slack webhook, probes and metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.LivenessHandler())
	mux.HandleFunc("/readyz", checker.ReadinessHandler())
	mux.Handle("/metrics", m.Handler())

	var webhook *slackpkg.Handler
	if cfg.SlackEnabled() {
		notifier := slackpkg.NewNotifier(cfg.SlackBotToken, logger)
		gate := dedup.NewGate(cfg.DedupCacheSize)
		webhook = slackpkg.NewHandler(cfg.SlackSigningSecret, gate, classifier, planner, dispatcher, notifier, cfg.BackendTimeout, logger)
		webhook.SetMetrics(m)
		mux.Handle("/slack/events", webhook)
		logger.Info().Msg("Slack webhook enabled")
	} else {
		logger.Info().Msg("Slack not configured — running in API-only mode")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	mgmtServer := mgmt.NewServer(mgmt.ServerConfig{
		ListenAddr: cfg.MgmtListenAddr,
		APIKey:     cfg.MgmtAPIKey,
	}, classifier, checker, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mgmtServer.Start(); err != nil {
			logger.Error().Err(err).Msg("operations API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := mgmtServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("operations API server shutdown error")
	}

	// Drain in-flight event processing started by the webhook.
	done := make(chan struct{})
	go func() {
		if webhook != nil {
			webhook.Wait()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("pmo agent stopped")
}
