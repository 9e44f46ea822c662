package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Problepo/internal/throttle"
	"github.com/Alias1177/Problepo/models"
)

const (
	msgInvalidBody       = "Invalid request body"
	msgTopicRequired     = "Topic is required"
	msgTextRequired      = "Text is required"
	msgCompanyRequired   = "Company name is required"
	msgRateLimited       = "Too many requests, please try again later"
	msgPredictionFailed  = "Failed to generate prediction"
	msgSpeechUnavailable = "TTS API key not configured"
	msgAnalyzeFailed     = "Failed to analyze company"

	// SourceHTTP tags usage rows written by this API
	SourceHTTP = "http"

	maxBodyBytes = 64 << 10
)

// Limiter is satisfied by *throttle.Throttle
type Limiter interface {
	CheckAndConsume(ctx context.Context, identifier string) (throttle.Decision, error)
}

type SpeechService interface {
	AudioURL(text string) (*models.SpeechResponse, error)
}

type StatusReporter interface {
	Report(ctx context.Context) []models.ServiceStatus
}

type CompanyAnalyzer interface {
	Analyze(ctx context.Context, company string) (*models.AnalyzeResult, error)
}

// HandlerOptions wires the handler; Usage may be nil
type HandlerOptions struct {
	Synthesizer models.Synthesizer
	Limiter     Limiter
	Speech      SpeechService
	Status      StatusReporter
	Analyzer    CompanyAnalyzer
	Usage       models.UsageRecorder
	// Timeout bounds a single synthesis call
	Timeout time.Duration
	// TrustProxyHeaders keys the throttle on X-Forwarded-For. Enable only behind a proxy that sets it.
	TrustProxyHeaders bool
	Logger            *zerolog.Logger
}

type Handler struct {
	synth    models.Synthesizer
	limiter  Limiter
	speech   SpeechService
	status   StatusReporter
	analyzer CompanyAnalyzer
	usage    models.UsageRecorder
	timeout  time.Duration
	trustFwd bool
	logger   zerolog.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	logger := log.With().Str("component", "api").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Handler{
		synth:    opts.Synthesizer,
		limiter:  opts.Limiter,
		speech:   opts.Speech,
		status:   opts.Status,
		analyzer: opts.Analyzer,
		usage:    opts.Usage,
		timeout:  opts.Timeout,
		trustFwd: opts.TrustProxyHeaders,
		logger:   logger,
	}
}

// Predict handles POST /api/predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := ClientIP(r, h.trustFwd)
	logger := h.logger.With().
		Str("request_id", requestIDFromContext(ctx)).
		Str("client", clientID).
		Logger()

	var req models.PredictionRequest
	if err := decodeBody(w, r, &req); err != nil {
		logger.Debug().Err(err).Msg("Failed to parse request body")
		h.recordUsage(ctx, clientID, req, models.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		h.recordUsage(ctx, clientID, req, models.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, msgTopicRequired)
		return
	}

	decision, err := h.limiter.CheckAndConsume(ctx, clientID)
	if err != nil {
		logger.Warn().Err(err).Msg("Throttle store unavailable, allowing request")
	} else if !decision.Allowed {
		logger.Info().Int("retry_after", decision.RetryAfter).Msg("Rate limit exceeded")
		h.recordUsage(ctx, clientID, req, models.OutcomeRateLimited)
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Error:      msgRateLimited,
			RetryAfter: decision.RetryAfter,
		})
		return
	}

	synthCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.synth.Synthesize(synthCtx, req)
	if err != nil {
		logger.Error().Err(err).Str("topic", req.Topic).Msg("Prediction failed")
		h.recordUsage(ctx, clientID, req, models.OutcomeFailed)
		writeError(w, http.StatusInternalServerError, msgPredictionFailed)
		return
	}

	logger.Info().
		Str("category", string(req.Category)).
		Str("timeframe", string(req.Timeframe)).
		Str("trend", string(result.Trend)).
		Int("confidence", result.Confidence).
		Dur("took", time.Since(start)).
		Msg("Prediction generated")
	h.recordUsage(ctx, clientID, req, models.OutcomeOK)
	writeJSON(w, http.StatusOK, result)
}

// TextToSpeech handles POST /api/text-to-speech
func (h *Handler) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req models.SpeechRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	resp, err := h.speech.AudioURL(req.Text)
	switch {
	case errors.Is(err, models.ErrTextRequired):
		writeError(w, http.StatusBadRequest, msgTextRequired)
	case err != nil:
		h.logger.Error().Err(err).Str("request_id", requestIDFromContext(r.Context())).Msg("Speech link failed")
		writeError(w, http.StatusInternalServerError, msgSpeechUnavailable)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Report(r.Context()))
}

// Analyze handles POST /api/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.Company)
	switch {
	case errors.Is(err, models.ErrCompanyRequired):
		writeError(w, http.StatusBadRequest, msgCompanyRequired)
	case err != nil:
		h.logger.Error().Err(err).Str("company", req.Company).Msg("Analysis failed")
		writeError(w, http.StatusInternalServerError, msgAnalyzeFailed)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) recordUsage(ctx context.Context, clientID string, req models.PredictionRequest, outcome string) {
	if h.usage == nil {
		return
	}
	// the row outlives the request if the client disconnects
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	h.usage.RecordUsage(ctx, models.UsageEvent{
		ClientID:  clientID,
		Source:    SourceHTTP,
		Topic:     req.Topic,
		Category:  req.Category,
		Timeframe: req.Timeframe,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	})
}

// decodeBody reads at most maxBodyBytes of JSON into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// ClientIP is the remote address without port. With trustForwarded set, the first
// X-Forwarded-For hop wins.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustForwarded && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
