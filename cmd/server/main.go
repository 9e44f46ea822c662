package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Problepo/internal/api"
	"github.com/Alias1177/Problepo/internal/app"
	"github.com/Alias1177/Problepo/internal/config"
	"github.com/Alias1177/Problepo/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	logConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	handler := api.NewHandler(api.HandlerOptions{
		Synthesizer: a.Synthesizer,
		Limiter:     a.Throttle,
		Speech:      a.Speech(),
		Status:      a.StatusChecker(),
		Analyzer:    a.Analyzer(),
		Usage:       a.UsageRecorder(),
		Timeout:     cfg.RequestTimeout,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("backend", a.Backend.Kind).
			Dur("rate_window", a.Throttle.Window()).
			Int("rate_max", a.Throttle.MaxRequests()).
			Msg("Problepo API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Server failed")
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// logConfig outputs the effective configuration with secrets masked
func logConfig(cfg *config.Config) {
	log.Info().
		Str("port", cfg.Port).
		Str("backend", cfg.PredictionBackend).
		Str("scoring", cfg.ScoringMode).
		Str("openai_key", maskSecret(cfg.OpenAIAPIKey)).
		Str("deepseek_key", maskSecret(cfg.DeepSeekAPIKey)).
		Str("huggingface_key", maskSecret(cfg.HuggingFaceAPIKey)).
		Str("voicerss_key", maskSecret(cfg.VoiceRSSAPIKey)).
		Str("alphavantage_key", maskSecret(cfg.AlphaVantageAPIKey)).
		Str("news_key", maskSecret(cfg.NewsAPIKey)).
		Bool("redis", cfg.RedisAddr != "").
		Bool("trust_proxy_headers", cfg.TrustProxyHeaders).
		Bool("usage_log", cfg.DB.Enabled()).
		Strs("cors_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded")
}

func maskSecret(secret string) string {
	if secret == "" {
		return "not set"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
