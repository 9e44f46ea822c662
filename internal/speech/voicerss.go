// Package speech builds Voice RSS text-to-speech links.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/Alias1177/Problepo/internal/platform/http"
	"github.com/Alias1177/Problepo/models"
)

const (
	DefaultBaseURL = "http://api.voicerss.org/"
	Language       = "en-us"
	Format         = "mp3"
)

var ErrNotConfigured = errors.New("TTS API key not configured")

// VoiceRSS hands out audio URLs; the client fetches the audio itself
type VoiceRSS struct {
	apiKey     string
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

func NewVoiceRSS(apiKey string, httpClient *platformhttp.Client) *VoiceRSS {
	return &VoiceRSS{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: httpClient,
		logger:     log.With().Str("component", "voicerss").Logger(),
	}
}

// WithBaseURL overrides the endpoint, used by tests
func (v *VoiceRSS) WithBaseURL(u string) *VoiceRSS {
	v.baseURL = u
	return v
}

func (v *VoiceRSS) Configured() bool {
	return v.apiKey != ""
}

// AudioURL returns the link for text. The key travels in the URL, so the link is only
// handed to the caller, never logged.
func (v *VoiceRSS) AudioURL(text string) (*models.SpeechResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ErrTextRequired
	}
	if !v.Configured() {
		return nil, ErrNotConfigured
	}

	link := fmt.Sprintf("%s?key=%s&hl=%s&src=%s",
		v.baseURL, url.QueryEscape(v.apiKey), Language, escapeSource(text))
	return &models.SpeechResponse{AudioURL: link, Format: Format}, nil
}

// escapeSource percent-encodes spaces as %20 rather than "+"
func escapeSource(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// Ping synthesizes a short word. Voice RSS answers 200 with an "ERROR: ..." body on bad keys.
func (v *VoiceRSS) Ping(ctx context.Context) error {
	if !v.Configured() {
		return ErrNotConfigured
	}

	params := url.Values{}
	params.Set("key", v.apiKey)
	params.Set("hl", Language)
	params.Set("src", "test")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := v.httpClient.DoRequest(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if strings.Contains(string(body), "ERROR") {
		v.logger.Debug().Str("body", string(body)).Msg("Voice RSS probe rejected")
		return errors.New("test failed")
	}
	return nil
}
