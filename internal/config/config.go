package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Prediction backends
const (
	BackendTemplate    = "template"
	BackendOpenAI      = "openai"
	BackendDeepSeek    = "deepseek"
	BackendHuggingFace = "huggingface"
	BackendBedrock     = "bedrock"
)

// Scoring modes for remote backends
const (
	ScoringRandom   = "random"
	ScoringClassify = "classify"
)

// Config holds all application configuration
type Config struct {
	Port           string   `env:"PORT" envDefault:"3001"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"json"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	// TrustProxyHeaders keys the HTTP throttle on X-Forwarded-For instead of the peer address
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	PredictionBackend string `env:"PREDICTION_BACKEND" envDefault:"template"`
	ScoringMode       string `env:"SCORING_MODE" envDefault:"random"`

	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel       string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	DeepSeekAPIKey    string `env:"DEEPSEEK_API_KEY"`
	DeepSeekModel     string `env:"DEEPSEEK_MODEL" envDefault:"deepseek-chat"`
	HuggingFaceAPIKey string `env:"HUGGINGFACE_API_KEY"`
	HuggingFaceModel  string `env:"HUGGINGFACE_MODEL" envDefault:"mistralai/Mistral-7B-Instruct-v0.2"`
	AWSRegion         string `env:"AWS_REGION" envDefault:"us-east-1"`
	BedrockModelID    string `env:"BEDROCK_MODEL_ID"`

	VoiceRSSAPIKey     string `env:"VOICERSS_API_KEY"`
	WitAIToken         string `env:"WIT_AI_TOKEN"`
	AlphaVantageAPIKey string `env:"ALPHAVANTAGE_API_KEY"`
	NewsAPIKey         string `env:"NEWS_API_KEY"`
	TelegramBotToken   string `env:"TELEGRAM_BOT_TOKEN"`

	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW_MS" envDefault:"60000"`
	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"10"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`

	DB DBConfig

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	OutboundRPS    int           `env:"OUTBOUND_RPS" envDefault:"5"`
}

// DBConfig holds PostgreSQL connection parameters for the usage log
type DBConfig struct {
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// Enabled reports whether a database was configured at all
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.Port = getEnvWithDefault("PORT", "3001")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", "json")
	cfg.AllowedOrigins = getEnvListWithDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	cfg.TrustProxyHeaders = getEnvBoolWithDefault("TRUST_PROXY_HEADERS", false)

	cfg.PredictionBackend = strings.ToLower(getEnvWithDefault("PREDICTION_BACKEND", BackendTemplate))
	cfg.ScoringMode = strings.ToLower(getEnvWithDefault("SCORING_MODE", ScoringRandom))

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini")
	cfg.DeepSeekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	cfg.DeepSeekModel = getEnvWithDefault("DEEPSEEK_MODEL", "deepseek-chat")
	cfg.HuggingFaceAPIKey = os.Getenv("HUGGINGFACE_API_KEY")
	cfg.HuggingFaceModel = getEnvWithDefault("HUGGINGFACE_MODEL", "mistralai/Mistral-7B-Instruct-v0.2")
	cfg.AWSRegion = getEnvWithDefault("AWS_REGION", "us-east-1")
	cfg.BedrockModelID = os.Getenv("BEDROCK_MODEL_ID")

	cfg.VoiceRSSAPIKey = os.Getenv("VOICERSS_API_KEY")
	cfg.WitAIToken = os.Getenv("WIT_AI_TOKEN")
	cfg.AlphaVantageAPIKey = os.Getenv("ALPHAVANTAGE_API_KEY")
	cfg.NewsAPIKey = os.Getenv("NEWS_API_KEY")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	cfg.RateLimitWindow = time.Duration(getEnvIntWithDefault("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond
	cfg.RateLimitMaxRequests = getEnvIntWithDefault("RATE_LIMIT_MAX_REQUESTS", 10)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.DB = DBConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	cfg.RequestTimeout = time.Duration(getEnvIntWithDefault("REQUEST_TIMEOUT", 30)) * time.Second
	cfg.OutboundRPS = getEnvIntWithDefault("OUTBOUND_RPS", 5)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
