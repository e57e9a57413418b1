package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parsec/internal/api"
	"parsec/internal/config"
	"parsec/internal/db"
	"parsec/internal/economy"
	"parsec/internal/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, "parsec-api")
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.StartupMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
	}

	var notifier economy.Notifier = notify.NewLogNotifier(logger)
	if cfg.DiscordBotToken != "" && cfg.DiscordAlertChannel != "" {
		discord, err := notify.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordAlertChannel, logger)
		if err != nil {
			logger.Error("discord notifier init failed", "err", err)
			os.Exit(1)
		}
		defer discord.Close()
		notifier = discord
	}

	econ := economy.NewService(pool, logger, cfg.Engine, economy.Deps{
		Notifier: notifier,
		Corps:    economy.NewPgCorpDirectory(pool),
	})

	server := api.New(cfg, logger, econ)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("parsec api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
