package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Problepo/internal/app"
	"github.com/Alias1177/Problepo/internal/bot"
	"github.com/Alias1177/Problepo/internal/config"
	"github.com/Alias1177/Problepo/internal/pipeline"
	"github.com/Alias1177/Problepo/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	log.Info().Str("username", api.Self.UserName).Str("backend", a.Backend.Kind).Msg("Authorized on Telegram")

	b := bot.New(bot.Options{
		API:         api,
		Synthesizer: a.Synthesizer,
		Limiter:     a.Throttle,
		Pipeline:    pipeline.New(nil, nil),
		Usage:       a.UsageRecorder(),
		Timeout:     cfg.RequestTimeout,
	})

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	b.Run(ctx, updates)
	api.StopReceivingUpdates()
	log.Info().Msg("Bot stopped")
}
