package models

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

var (
	ErrTopicRequired   = errors.New("topic is required")
	ErrTextRequired    = errors.New("text is required")
	ErrCompanyRequired = errors.New("company name is required")
)

// Category of a prediction topic
type Category string

const (
	CategoryFinance       Category = "finance"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryGlobal        Category = "global"
	CategoryEnvironment   Category = "environment"
	CategoryTechnology    Category = "technology"
)

// Categories lists every category with its own template set
var Categories = []Category{
	CategoryFinance,
	CategorySports,
	CategoryEntertainment,
	CategoryGlobal,
	CategoryEnvironment,
	CategoryTechnology,
}

// Known reports whether the category has a dedicated template set
func (c Category) Known() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Trend is the predicted direction
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// Trends is ordered; random draws index into it
var Trends = []Trend{TrendUp, TrendDown, TrendNeutral}

var trendWords = map[string]Trend{
	"up": TrendUp, "upward": TrendUp, "rise": TrendUp, "rising": TrendUp, "bullish": TrendUp,
	"down": TrendDown, "downward": TrendDown, "decline": TrendDown, "falling": TrendDown, "bearish": TrendDown,
	"neutral": TrendNeutral, "stable": TrendNeutral, "flat": TrendNeutral, "sideways": TrendNeutral,
}

// ParseTrend finds the first trend word in free-form text. ok is false when none matched.
func ParseTrend(s string) (Trend, bool) {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if t, ok := trendWords[w]; ok {
			return t, true
		}
	}
	return "", false
}

const (
	MinConfidence = 50
	MaxConfidence = 95
)

// PredictionRequest is what a client submits
type PredictionRequest struct {
	Topic     string    `json:"topic"`
	Category  Category  `json:"category"`
	Timeframe Timeframe `json:"timeframe"`
	Context   string    `json:"context,omitempty"`
}

// Validate trims the topic and fills the default timeframe
func (r *PredictionRequest) Validate() error {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return ErrTopicRequired
	}
	if r.Timeframe == "" {
		r.Timeframe = Timeframe1Month
	}
	return nil
}

// PredictionResult is built fresh for every request and never stored
type PredictionResult struct {
	Topic                string    `json:"topic"`
	Category             Category  `json:"category"`
	Timeframe            Timeframe `json:"timeframe"`
	Prediction           string    `json:"prediction"`
	Confidence           int       `json:"confidence"`
	Trend                Trend     `json:"trend"`
	DataPoints           []string  `json:"dataPoints"`
	Variables            []string  `json:"variables"`
	HistoricalPatterns   []string  `json:"historicalPatterns"`
	AlternativeScenarios []string  `json:"alternativeScenarios"`
	LastUpdated          string    `json:"lastUpdated"`
}

// ServiceState of an external dependency
type ServiceState string

const (
	StateConnected ServiceState = "connected"
	StateError     ServiceState = "error"
	StateDisabled  ServiceState = "disabled"
	StateUnknown   ServiceState = "unknown"
)

// ServiceStatus is one entry of the /api/status report
type ServiceStatus struct {
	Name    string       `json:"name"`
	Status  ServiceState `json:"status"`
	Message string       `json:"message,omitempty"`
}

// SpeechRequest asks for a spoken rendition of text
type SpeechRequest struct {
	Text string `json:"text"`
}

// SpeechResponse points the client at playable audio
type SpeechResponse struct {
	AudioURL string `json:"audioUrl"`
	Format   string `json:"format"`
}

// AnalyzeRequest is the legacy company analysis input
type AnalyzeRequest struct {
	Company string `json:"company"`
}

// Sentiment summarizes headline polarity
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Price is a quote snapshot
type Price struct {
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// FinancialData is optional; every field is omitted when no market data was available
type FinancialData struct {
	Price     *Price `json:"price,omitempty"`
	Volume    *int64 `json:"volume,omitempty"`
	MarketCap string `json:"marketCap,omitempty"`
}

// AnalyzeResult is the legacy "mystical" company prediction
type AnalyzeResult struct {
	Company   string    `json:"company"`
	Ticker    string    `json:"ticker"`
	Sentiment Sentiment `json:"sentiment"`
	FinancialData
	Prediction  string `json:"prediction"`
	LastUpdated string `json:"lastUpdated"`
}

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// UsageEvent records request metadata for the optional usage log
type UsageEvent struct {
	ClientID  string
	Source    string
	Topic     string
	Category  Category
	Timeframe Timeframe
	Outcome   string
	CreatedAt time.Time
}

const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
	OutcomeFailed      = "failed"
)
