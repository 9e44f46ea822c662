package market

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/Alias1177/Problepo/internal/platform/http"
	"github.com/Alias1177/Problepo/models"
)

// AlphaVantageClient is the Alpha Vantage API client
type AlphaVantageClient struct {
	apiKey     string
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

type globalQuoteResponse struct {
	Quote map[string]string `json:"Global Quote"`
	// Note is set instead of data when the free-tier quota is exhausted
	Note string `json:"Note"`
}

type overviewResponse struct {
	MarketCapitalization string `json:"MarketCapitalization"`
}

func NewAlphaVantageClient(apiKey string, httpClient *platformhttp.Client) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:     apiKey,
		baseURL:    "https://www.alphavantage.co",
		httpClient: httpClient,
		logger:     log.With().Str("component", "alphavantage_client").Logger(),
	}
}

// WithBaseURL overrides the endpoint, used by tests
func (c *AlphaVantageClient) WithBaseURL(u string) *AlphaVantageClient {
	c.baseURL = u
	return c
}

func (c *AlphaVantageClient) queryURL(function, symbol string) string {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)
	return c.baseURL + "/query?" + params.Encode()
}

// Quote fetches GLOBAL_QUOTE. Unparseable numbers become zero. A nil price means no quote.
func (c *AlphaVantageClient) Quote(ctx context.Context, symbol string) (*models.Price, int64, error) {
	var data globalQuoteResponse
	if err := c.httpClient.GetJSON(ctx, c.queryURL("GLOBAL_QUOTE", symbol), &data); err != nil {
		return nil, 0, fmt.Errorf("global quote: %w", err)
	}
	if data.Note != "" {
		c.logger.Warn().Str("note", data.Note).Msg("Alpha Vantage quota message")
	}
	if len(data.Quote) == 0 {
		return nil, 0, nil
	}

	price := &models.Price{}
	var volume int64
	var err error
	price.Current, err = strconv.ParseFloat(data.Quote["05. price"], 64)
	if err == nil {
		price.Change, err = strconv.ParseFloat(data.Quote["09. change"], 64)
	}
	if err == nil {
		price.ChangePercent, err = strconv.ParseFloat(strings.TrimSuffix(data.Quote["10. change percent"], "%"), 64)
	}
	if err == nil {
		volume, err = strconv.ParseInt(data.Quote["06. volume"], 10, 64)
	}
	if err != nil {
		// A single malformed field zeroes the whole quote
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Malformed quote")
		return &models.Price{}, 0, nil
	}
	return price, volume, nil
}

// MarketCap fetches OVERVIEW and formats the capitalization as "$2.5B".
// It returns "" when the overview has no capitalization.
func (c *AlphaVantageClient) MarketCap(ctx context.Context, symbol string) (string, error) {
	var data overviewResponse
	if err := c.httpClient.GetJSON(ctx, c.queryURL("OVERVIEW", symbol), &data); err != nil {
		return "", fmt.Errorf("overview: %w", err)
	}
	return FormatMarketCap(data.MarketCapitalization), nil
}

// FormatMarketCap renders a raw capitalization in billions
func FormatMarketCap(raw string) string {
	if raw == "" {
		return ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "N/A"
	}
	return fmt.Sprintf("$%.1fB", v/1e9)
}
