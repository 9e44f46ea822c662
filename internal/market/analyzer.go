package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Problepo/models"
)

// HeadlineSource supplies news titles for a company
type HeadlineSource interface {
	Headlines(ctx context.Context, query string) ([]string, error)
}

// QuoteSource supplies market data for a ticker
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Price, int64, error)
	MarketCap(ctx context.Context, symbol string) (string, error)
}

type picker interface {
	Intn(n int) int
}

// AnalyzerOptions wires optional sources; a nil source is skipped
type AnalyzerOptions struct {
	News   HeadlineSource
	Quotes QuoteSource
	Picker picker
	Now    func() time.Time
}

// Analyzer produces the legacy sentiment-driven company prediction
type Analyzer struct {
	news   HeadlineSource
	quotes QuoteSource
	picker picker
	now    func() time.Time
	logger zerolog.Logger
}

var predictions = map[string][]string{
	LabelPositive: {
		"The outlook for %s is bright with significant growth expected.",
		"%s is poised for success with positive market momentum.",
	},
	LabelNeutral: {
		"%s is expected to remain stable with moderate changes.",
		"Balanced conditions suggest steady performance for %s.",
	},
	LabelNegative: {
		"Challenges lie ahead for %s, with a potential decline in performance.",
		"%s may face setbacks and downturns in the near future.",
	},
}

func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{
		news:   opts.News,
		quotes: opts.Quotes,
		picker: opts.Picker,
		now:    opts.Now,
		logger: log.With().Str("component", "market_analyzer").Logger(),
	}
}

// Ticker guesses a symbol from the first four letters of the company
func Ticker(company string) string {
	runes := []rune(strings.TrimSpace(company))
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return strings.ToUpper(string(runes))
}

// Analyze never fails on upstream errors; missing data is simply left out
func (a *Analyzer) Analyze(ctx context.Context, company string) (*models.AnalyzeResult, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, models.ErrCompanyRequired
	}

	headlines := a.headlines(ctx, company)
	score := AverageScore(headlines)
	label := Label(score)
	ticker := Ticker(company)

	result := &models.AnalyzeResult{
		Company:     company,
		Ticker:      ticker,
		Sentiment:   models.Sentiment{Score: score, Label: label},
		Prediction:  a.prediction(label, company),
		LastUpdated: models.FormatLastUpdated(a.now()),
	}
	if a.quotes != nil {
		result.FinancialData = a.financialData(ctx, ticker)
	}
	return result, nil
}

func (a *Analyzer) headlines(ctx context.Context, company string) []string {
	if a.news != nil {
		titles, err := a.news.Headlines(ctx, company)
		if err != nil {
			a.logger.Warn().Err(err).Str("company", company).Msg("Headline fetch failed, using fallback")
		} else if len(titles) > 0 {
			return titles
		}
	}
	return []string{
		fmt.Sprintf("%s announces new developments", company),
		fmt.Sprintf("Latest update on %s", company),
	}
}

func (a *Analyzer) financialData(ctx context.Context, ticker string) models.FinancialData {
	var data models.FinancialData

	price, volume, err := a.quotes.Quote(ctx, ticker)
	if err != nil {
		a.logger.Warn().Err(err).Str("ticker", ticker).Msg("Quote fetch failed")
	} else if price != nil {
		data.Price = price
		data.Volume = &volume
		data.MarketCap = "N/A"
	}

	marketCap, err := a.quotes.MarketCap(ctx, ticker)
	if err != nil {
		a.logger.Warn().Err(err).Str("ticker", ticker).Msg("Overview fetch failed")
	} else if marketCap != "" {
		data.MarketCap = marketCap
	}
	return data
}

func (a *Analyzer) prediction(label, company string) string {
	options := predictions[label]
	i := 0
	if a.picker != nil {
		i = a.picker.Intn(len(options))
	}
	return fmt.Sprintf(options[i], company)
}
