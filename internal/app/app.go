// Package app wires configuration into the components shared by every frontend.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Problepo/internal/config"
	"github.com/Alias1177/Problepo/internal/database"
	"github.com/Alias1177/Problepo/internal/llm"
	"github.com/Alias1177/Problepo/internal/llm/bedrock"
	"github.com/Alias1177/Problepo/internal/llm/huggingface"
	"github.com/Alias1177/Problepo/internal/llm/openai"
	"github.com/Alias1177/Problepo/internal/market"
	platformhttp "github.com/Alias1177/Problepo/internal/platform/http"
	"github.com/Alias1177/Problepo/internal/speech"
	"github.com/Alias1177/Problepo/internal/status"
	"github.com/Alias1177/Problepo/internal/synth"
	"github.com/Alias1177/Problepo/internal/throttle"
	"github.com/Alias1177/Problepo/models"
)

const dbConnectWait = 30 * time.Second

var errUnavailable = errors.New("unavailable since startup")

// App holds the long-lived components. Optional parts are nil when not configured.
type App struct {
	Config      *config.Config
	HTTPClient  *platformhttp.Client
	Synthesizer models.Synthesizer
	Backend     Backend
	Throttle    *throttle.Throttle
	Usage       *database.DB

	redisClient *redis.Client
	redisStore  *throttle.RedisStore
	logger      zerolog.Logger
}

// Backend describes the active prediction backend for the status report
type Backend struct {
	Kind  string
	Label string
	// Probe is nil when the backend has nothing to ping
	Probe status.Probe
}

// New builds the shared components. Redis and PostgreSQL are optional: when they cannot
// be reached the app logs the failure and runs without them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		HTTPClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:        cfg.RequestTimeout,
			RequestsPerSec: cfg.OutboundRPS,
		}),
		logger: log.With().Str("component", "app").Logger(),
	}

	synthesizer, backend, err := newSynthesizer(ctx, cfg, a.HTTPClient)
	if err != nil {
		return nil, err
	}
	a.Synthesizer = synthesizer
	a.Backend = backend
	a.logger.Info().Str("backend", backend.Kind).Str("scoring", cfg.ScoringMode).Msg("Prediction backend ready")

	var store throttle.Store
	if cfg.RedisAddr != "" {
		client, err := throttle.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			a.logger.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, throttling in memory")
		} else {
			a.redisClient = client
			a.redisStore = throttle.NewRedisStore(client, "")
			store = a.redisStore
		}
	}
	a.Throttle = throttle.New(throttle.Options{
		Window:      cfg.RateLimitWindow,
		MaxRequests: cfg.RateLimitMaxRequests,
		Store:       store,
	})

	if cfg.DB.Enabled() {
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			DBName:   cfg.DB.Name,
			SSLMode:  cfg.DB.SSLMode,
		}, dbConnectWait)
		if err != nil {
			a.logger.Error().Err(err).Msg("Usage log disabled")
		} else {
			a.Usage = db
		}
	}

	return a, nil
}

// UsageRecorder returns nil when the usage log is off
func (a *App) UsageRecorder() models.UsageRecorder {
	if a.Usage == nil {
		return nil
	}
	return a.Usage
}

// Speech returns the Voice RSS link builder
func (a *App) Speech() *speech.VoiceRSS {
	return speech.NewVoiceRSS(a.Config.VoiceRSSAPIKey, a.HTTPClient)
}

// Analyzer returns the legacy company analyzer with whichever market sources are configured
func (a *App) Analyzer() *market.Analyzer {
	opts := market.AnalyzerOptions{Picker: synth.NewPicker()}
	if a.Config.NewsAPIKey != "" {
		opts.News = market.NewNewsClient(a.Config.NewsAPIKey, a.HTTPClient)
	}
	if a.Config.AlphaVantageAPIKey != "" {
		opts.Quotes = market.NewAlphaVantageClient(a.Config.AlphaVantageAPIKey, a.HTTPClient)
	}
	return market.NewAnalyzer(opts)
}

// StatusChecker lists every dependency in report order
func (a *App) StatusChecker() *status.Checker {
	cfg := a.Config

	var newsProbe, openAIProbe, deepSeekProbe status.Probe
	if cfg.NewsAPIKey != "" {
		newsProbe = market.NewNewsClient(cfg.NewsAPIKey, a.HTTPClient).Ping
	}
	if cfg.OpenAIAPIKey != "" {
		openAIProbe = openai.NewClient(openai.Options{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel}).Ping
	}
	if cfg.DeepSeekAPIKey != "" {
		deepSeekProbe = openai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, stdClient(a.HTTPClient)).Ping
	}

	redisProbe := func(context.Context) error { return errUnavailable }
	if a.redisStore != nil {
		redisProbe = a.redisStore.Ping
	}
	dbProbe := func(context.Context) error { return errUnavailable }
	if a.Usage != nil {
		dbProbe = a.Usage.Ping
	}

	return status.NewChecker(status.DefaultProbeTimeout,
		status.Check{Name: "Prediction API", Configured: true},
		status.Check{Name: "Prediction backend: " + a.Backend.Label, Configured: true, Probe: a.Backend.Probe},
		status.Check{Name: "OpenAI", Configured: cfg.OpenAIAPIKey != "", DisabledMessage: "API key not configured", Probe: openAIProbe},
		status.Check{Name: "DeepSeek", Configured: cfg.DeepSeekAPIKey != "", DisabledMessage: "API key not configured", Probe: deepSeekProbe},
		status.Check{
			Name:            "Voice RSS TTS",
			Configured:      cfg.VoiceRSSAPIKey != "",
			DisabledMessage: "API key not configured",
			Probe:           a.Speech().Ping,
		},
		status.Check{Name: "Wit.ai Speech-to-Text", Configured: cfg.WitAIToken != "", DisabledMessage: "Token not configured"},
		status.Check{Name: "Alpha Vantage", Configured: cfg.AlphaVantageAPIKey != "", DisabledMessage: "API key not configured"},
		status.Check{Name: "News API", Configured: cfg.NewsAPIKey != "", DisabledMessage: "API key not configured", Probe: newsProbe},
		status.Check{
			Name:            "Redis throttle store",
			Configured:      cfg.RedisAddr != "",
			DisabledMessage: "Using in-memory store",
			Probe:           redisProbe,
			FailureMessage:  "Ping failed",
		},
		status.Check{
			Name:            "PostgreSQL usage log",
			Configured:      cfg.DB.Enabled(),
			DisabledMessage: "Database not configured",
			Probe:           dbProbe,
			FailureMessage:  "Ping failed",
		},
	)
}

// Close releases the optional connections
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Closing redis")
		}
	}
	if a.Usage != nil {
		if err := a.Usage.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Closing database")
		}
	}
}

func newSynthesizer(ctx context.Context, cfg *config.Config, httpClient *platformhttp.Client) (models.Synthesizer, Backend, error) {
	logger := log.With().Str("component", "app").Logger()
	scoring := synth.ScoreRandom
	if cfg.ScoringMode == config.ScoringClassify {
		scoring = synth.ScoreClassify
	}

	var client llm.CompletionClient
	var backend Backend

	switch cfg.PredictionBackend {
	case config.BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			logger.Warn().Msg("OPENAI_API_KEY not set, falling back to templates")
			break
		}
		c := openai.NewClient(openai.Options{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
		client = c
		backend = Backend{Kind: config.BackendOpenAI, Label: "OpenAI", Probe: c.Ping}

	case config.BackendDeepSeek:
		if cfg.DeepSeekAPIKey == "" {
			logger.Warn().Msg("DEEPSEEK_API_KEY not set, falling back to templates")
			break
		}
		c := openai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, stdClient(httpClient))
		client = c
		backend = Backend{Kind: config.BackendDeepSeek, Label: "DeepSeek", Probe: c.Ping}

	case config.BackendHuggingFace:
		if cfg.HuggingFaceAPIKey == "" {
			logger.Warn().Msg("HUGGINGFACE_API_KEY not set, falling back to templates")
			break
		}
		client = huggingface.NewClient(cfg.HuggingFaceAPIKey, cfg.HuggingFaceModel, httpClient)
		backend = Backend{Kind: config.BackendHuggingFace, Label: "Hugging Face Inference"}

	case config.BackendBedrock:
		if cfg.BedrockModelID == "" {
			logger.Warn().Msg("BEDROCK_MODEL_ID not set, falling back to templates")
			break
		}
		c, err := bedrock.NewClient(ctx, cfg.AWSRegion, cfg.BedrockModelID)
		if err != nil {
			return nil, Backend{}, fmt.Errorf("bedrock client: %w", err)
		}
		client = c
		backend = Backend{Kind: config.BackendBedrock, Label: "AWS Bedrock"}

	case config.BackendTemplate, "":
	default:
		logger.Warn().Str("backend", cfg.PredictionBackend).Msg("Unknown prediction backend, using templates")
	}

	if client != nil {
		return synth.NewRemoteSynthesizer(client, scoring, synth.NewPicker()), backend, nil
	}

	catalog, err := synth.DefaultCatalog()
	if err != nil {
		return nil, Backend{}, fmt.Errorf("loading templates: %w", err)
	}
	return synth.NewTemplateSynthesizer(catalog, synth.NewPicker()),
		Backend{Kind: config.BackendTemplate, Label: "Local prediction templates"}, nil
}

// stdClient unwraps the shared client for libraries that take a plain *http.Client
func stdClient(c *platformhttp.Client) *http.Client {
	if c == nil {
		return nil
	}
	return c.HTTPClient
}
