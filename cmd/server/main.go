// Package main is the entry point for the routinekit server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/routinekit/routinekit/internal/chat"
	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/database"
	"github.com/routinekit/routinekit/internal/executor"
	"github.com/routinekit/routinekit/internal/logging"
	"github.com/routinekit/routinekit/internal/registry"
	"github.com/routinekit/routinekit/internal/router"
	"github.com/routinekit/routinekit/internal/services"
	"github.com/routinekit/routinekit/internal/version"
)

func printVersion() {
	fmt.Printf("routinekit %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		printVersion()
		os.Exit(0)
	}

	configPath := flag.String("config", "config.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
		logging.Setup(cfg.Log).Warn("could not load config, using defaults", "path", *configPath, "error", err)
	}
	logger := logging.Setup(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var cryptoService *services.CryptoService
	if cfg.Security.EncryptionKey != "" {
		cryptoService, err = services.NewCryptoServiceFromSecret(cfg.Security.EncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize crypto service: %w", err)
		}
		logger.Info("integration configs are encrypted at rest")
	} else {
		logger.Warn("security.encryption_key is not set; integration configs are stored in plain text")
	}

	executors := executor.NewRegistry(
		executor.NewGitHubActionExecutor(cfg.Executors.GitHubAction),
		executor.NewScriptExecutor(cfg.Executors.Script),
		executor.NewWebhookExecutor(cfg.Executors.Webhook),
	)

	routineService := services.NewRoutineService(db, cryptoService)
	goalService := services.NewGoalService(db)
	executorService := services.NewExecutorService(routineService, executors)

	chatClient, err := chat.NewClient(ctx, cfg.Chat)
	if err != nil {
		if !errors.Is(err, chat.ErrNotConfigured) {
			return fmt.Errorf("failed to initialize chat client: %w", err)
		}
		logger.Warn("chat is disabled", "provider", cfg.Chat.Provider, "error", err)
	}

	r := router.New(cfg, router.Deps{
		Logger:    logger,
		Routines:  routineService,
		Goals:     goalService,
		Runner:    executorService,
		Executors: executors,
		Chat:      chat.NewService(chatClient),
		Registry:  registry.NewClient(cfg.Registry),
	})

	for _, info := range executors.Describe(ctx) {
		logger.Info("executor registered", "type", info.Type, "available", info.Available)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("routinekit starting", "version", version.Version, "addr", addr, "prefix", cfg.Server.PathPrefix)

	return r.Run(addr)
}
