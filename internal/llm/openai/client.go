package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// Client wraps the OpenAI API client. Any OpenAI-compatible endpoint works, DeepSeek included.
type Client struct {
	client *openai.Client
	model  string
	name   string
	logger zerolog.Logger
}

// Options for NewClient
type Options struct {
	APIKey string
	Model  string
	// BaseURL is empty for api.openai.com
	BaseURL    string
	Name       string
	HTTPClient *http.Client
}

// NewClient creates a new OpenAI client
func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.Name == "" {
		opts.Name = "openai"
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
		name:   opts.Name,
		logger: log.With().Str("component", opts.Name+"_client").Logger(),
	}
}

// NewDeepSeekClient points the OpenAI-compatible client at DeepSeek
func NewDeepSeekClient(apiKey, model string, httpClient *http.Client) *Client {
	if model == "" {
		model = "deepseek-chat"
	}
	return NewClient(Options{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    DeepSeekBaseURL,
		Name:       "deepseek",
		HTTPClient: httpClient,
	})
}

func (c *Client) Name() string {
	return c.name
}

// Complete sends a prompt and returns the first choice
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("prompt", prompt).Msg("Sending prompt")

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.7,
		},
	)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Error().Int("status", apiErr.HTTPStatusCode).Str("message", apiErr.Message).Msg("API error")
		} else {
			c.logger.Error().Err(err).Msg("Request failed")
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Ping lists models, which needs a valid key but no tokens
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.ListModels(ctx)
	return err
}
