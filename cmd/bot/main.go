package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subgate-bot/internal/bot"
	"subgate-bot/internal/common/config"
	"subgate-bot/internal/common/logger"
	payservice "subgate-bot/internal/features/payment/service"
	sqliterepo "subgate-bot/internal/features/subscriber/repository/sqlite"
	subservice "subgate-bot/internal/features/subscriber/service"
	opshttp "subgate-bot/internal/http"
	"subgate-bot/internal/platform/db"
	"subgate-bot/internal/platform/yoomoney"
	"subgate-bot/internal/service/gate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("subgate-bot", false)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("subgate-bot", cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("Starting subscription gate bot")

	gormDB, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}

	repo, err := sqliterepo.New(gormDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize subscriber repository")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}
	api.Debug = cfg.Debug
	logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	channelGate := gate.New(api, cfg.Telegram.ChannelID)
	notifier := bot.NewNotifier(api)

	subs := subservice.New(repo)

	wallet := yoomoney.NewClient(cfg.YooMoney.AccessToken)
	payments := payservice.New(wallet, subs, channelGate, notifier, cfg.YooMoney.Receiver)

	sweeper := subservice.NewSweeper(repo, channelGate, notifier, cfg.Sweep.Interval)
	sweeper.Start()

	opsServer := opshttp.NewServer(cfg.Server.Addr, gormDB, repo, cfg.Debug)
	opsServer.Start()

	b := bot.New(api, cfg, subs, payments, channelGate, wallet, repo, notifier)
	if err := b.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Bot loop terminated with error")
	}

	logger.Info().Msg("Shutting down")

	sweeper.Stop()
	payments.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ops server forced to shut down")
	}

	logger.Info().Msg("Stopped")
}
