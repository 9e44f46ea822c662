package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/Problepo/internal/llm"
	"github.com/Alias1177/Problepo/models"
)

// Scoring decides where confidence and trend come from
type Scoring int

const (
	// ScoreRandom draws both locally, like the template backend
	ScoreRandom Scoring = iota
	// ScoreClassify asks the model, in two parallel calls, to rate its own prediction
	ScoreClassify
)

// remoteReply is the JSON object the model is asked to produce
type remoteReply struct {
	Prediction           string   `json:"prediction"`
	DataPoints           []string `json:"dataPoints"`
	Variables            []string `json:"variables"`
	HistoricalPatterns   []string `json:"historicalPatterns"`
	AlternativeScenarios []string `json:"alternativeScenarios"`
}

// RemoteSynthesizer forwards requests to a completion model and parses its JSON reply
type RemoteSynthesizer struct {
	client  llm.CompletionClient
	scoring Scoring
	picker  *lockedPicker
	now     func() time.Time
	logger  zerolog.Logger
}

func NewRemoteSynthesizer(client llm.CompletionClient, scoring Scoring, picker Picker) *RemoteSynthesizer {
	return &RemoteSynthesizer{
		client:  client,
		scoring: scoring,
		picker:  newLockedPicker(picker),
		now:     time.Now,
		logger:  log.With().Str("component", "remote_synth").Str("provider", client.Name()).Logger(),
	}
}

func (s *RemoteSynthesizer) Synthesize(ctx context.Context, req models.PredictionRequest) (*models.PredictionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := s.client.Complete(ctx, BuildPredictionPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("%w: completion: %w", ErrGenerationFailed, err)
	}

	reply, err := parseReply(text)
	if err != nil {
		s.logger.Debug().Str("reply", text).Msg("Unparseable model reply")
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	confidence, trend, err := s.score(ctx, req.Topic, reply.Prediction)
	if err != nil {
		return nil, fmt.Errorf("%w: scoring: %w", ErrGenerationFailed, err)
	}

	s.logger.Debug().
		Dur("took", time.Since(start)).
		Int("confidence", confidence).
		Str("trend", string(trend)).
		Msg("Remote prediction generated")

	return &models.PredictionResult{
		Topic:                req.Topic,
		Category:             req.Category,
		Timeframe:            req.Timeframe,
		Prediction:           reply.Prediction,
		Confidence:           confidence,
		Trend:                trend,
		DataPoints:           reply.DataPoints,
		Variables:            reply.Variables,
		HistoricalPatterns:   reply.HistoricalPatterns,
		AlternativeScenarios: reply.AlternativeScenarios,
		LastUpdated:          models.FormatLastUpdated(s.now()),
	}, nil
}

func (s *RemoteSynthesizer) score(ctx context.Context, topic, prediction string) (int, models.Trend, error) {
	if s.scoring != ScoreClassify {
		return randomConfidence(s.picker), randomTrend(s.picker), nil
	}

	var confidenceText, trendText string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		confidenceText, err = s.client.Complete(gctx, BuildConfidencePrompt(topic, prediction))
		return err
	})
	g.Go(func() error {
		var err error
		trendText, err = s.client.Complete(gctx, BuildTrendPrompt(topic, prediction))
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, "", err
	}

	confidence, ok := parseConfidence(confidenceText)
	if !ok {
		s.logger.Warn().Str("reply", confidenceText).Msg("Confidence not classified, drawing at random")
		confidence = randomConfidence(s.picker)
	}
	trend, ok := models.ParseTrend(trendText)
	if !ok {
		s.logger.Warn().Str("reply", trendText).Msg("Trend not classified, drawing at random")
		trend = randomTrend(s.picker)
	}
	return confidence, trend, nil
}

var errNoJSON = errors.New("reply contains no JSON object")

// parseReply accepts a bare JSON object or one embedded in prose or code fences
func parseReply(text string) (*remoteReply, error) {
	var reply remoteReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, errNoJSON
		}
		reply = remoteReply{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
			return nil, fmt.Errorf("parsing reply JSON: %w", err)
		}
	}

	if strings.TrimSpace(reply.Prediction) == "" {
		return nil, errors.New("reply has no prediction")
	}
	// an empty list is fine, a missing key is not
	for key, items := range map[string][]string{
		"dataPoints":           reply.DataPoints,
		"variables":            reply.Variables,
		"historicalPatterns":   reply.HistoricalPatterns,
		"alternativeScenarios": reply.AlternativeScenarios,
	} {
		if items == nil {
			return nil, fmt.Errorf("reply has no %s", key)
		}
	}
	return &reply, nil
}

var integerPattern = regexp.MustCompile(`\d+`)

func parseConfidence(text string) (int, bool) {
	match := integerPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return clampConfidence(n), true
}
