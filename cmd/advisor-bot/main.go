package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"estate-advisor/internal/analysis"
	"estate-advisor/internal/bot"
	"estate-advisor/internal/config"
	"estate-advisor/internal/observability"
	"estate-advisor/internal/report"
	"estate-advisor/internal/store"
	"estate-advisor/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := observability.NewLogger("prod")
		l.Fatal().Err(err).Msg("configuration error")
	}
	log := observability.NewLogger(cfg.AppEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	st, err := store.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database unavailable")
	}
	defer st.Close()

	caller, err := analysis.NewAnthropicCaller(cfg.AnthropicAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis client setup failed")
	}
	cache := analysis.NewMemoCache(cfg.CacheCapacity, cfg.CacheTTL)
	grader := analysis.Grader{RiskKeyword: cfg.RiskKeyword, PotentialKeyword: cfg.PotentialKeyword}
	client := analysis.NewClient(caller, cache, grader, cfg.AnalyzeTimeout, log)

	tg := telegram.NewClient(cfg.TelegramToken)
	b := bot.New(tg, client, st, report.NewRenderer(), bot.NewSessionStore(), log)

	if cfg.WebhookURL != "" {
		log.Info().Str("addr", cfg.WebhookAddr).Msg("starting in webhook mode")
		err = bot.ServeWebhook(ctx, tg, b, cfg.TelegramToken, cfg.WebhookURL, cfg.WebhookAddr, log)
	} else {
		log.Info().Msg("starting in polling mode")
		err = bot.RunPolling(ctx, tg, b, log)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("shutdown complete")
}
