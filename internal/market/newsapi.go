package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/Alias1177/Problepo/internal/platform/http"
)

// NewsClient fetches headlines from News API
type NewsClient struct {
	apiKey     string
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

type newsResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

func NewNewsClient(apiKey string, httpClient *platformhttp.Client) *NewsClient {
	return &NewsClient{
		apiKey:     apiKey,
		baseURL:    "https://newsapi.org",
		httpClient: httpClient,
		logger:     log.With().Str("component", "newsapi_client").Logger(),
	}
}

// WithBaseURL overrides the endpoint, used by tests
func (c *NewsClient) WithBaseURL(u string) *NewsClient {
	c.baseURL = u
	return c
}

// Headlines returns up to five article titles mentioning query
func (c *NewsClient) Headlines(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", "5")
	params.Set("apiKey", c.apiKey)

	var data newsResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/v2/everything?"+params.Encode(), &data); err != nil {
		return nil, fmt.Errorf("news api: %w", err)
	}

	var titles []string
	for _, a := range data.Articles {
		if t := strings.TrimSpace(a.Title); t != "" {
			titles = append(titles, t)
		}
	}
	c.logger.Debug().Str("query", query).Int("count", len(titles)).Msg("Fetched headlines")
	return titles, nil
}

// Ping checks the key against the top-headlines endpoint
func (c *NewsClient) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("country", "us")
	params.Set("pageSize", "1")
	params.Set("apiKey", c.apiKey)

	var data newsResponse
	return c.httpClient.GetJSON(ctx, c.baseURL+"/v2/top-headlines?"+params.Encode(), &data)
}
