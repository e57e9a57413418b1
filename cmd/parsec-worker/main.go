package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"parsec/internal/config"
	"parsec/internal/db"
	"parsec/internal/economy"
	"parsec/internal/notify"
)

// The worker owns the periodic jobs: settling declared dividends and the
// daily wealth tax sweep.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, "parsec-worker")
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

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("PARSEC_WORKER_RUN_ONCE")), "true")
	if runOnce {
		runDividends(ctx, logger, econ)
		runTax(ctx, logger, econ)
		logger.Info("worker run-once completed")
		return
	}

	dividendTicker := time.NewTicker(cfg.DividendPayoutEvery)
	defer dividendTicker.Stop()
	taxTicker := time.NewTicker(cfg.TaxSweepEvery)
	defer taxTicker.Stop()

	logger.Info("worker started",
		"dividends_every", cfg.DividendPayoutEvery.String(),
		"tax_every", cfg.TaxSweepEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-dividendTicker.C:
			runDividends(ctx, logger, econ)
		case <-taxTicker.C:
			runTax(ctx, logger, econ)
		}
	}
}

func runDividends(ctx context.Context, logger *slog.Logger, econ *economy.Service) {
	reports, err := econ.RunDividendPayout(ctx)
	if err != nil {
		logger.Error("dividend payout failed", "err", err)
		return
	}
	for _, r := range reports {
		logger.Info("dividend settled",
			"dividend_id", r.DividendID,
			"ticker", r.Ticker,
			"shareholders", r.Shareholders,
			"total_paid", r.TotalPaid)
	}
}

func runTax(ctx context.Context, logger *slog.Logger, econ *economy.Service) {
	report, err := econ.ApplyDailyTax(ctx)
	if err != nil {
		logger.Error("tax sweep failed", "err", err)
		return
	}
	logger.Info("tax sweep done", "accounts", report.AccountsTaxed, "collected", report.Collected)
}
