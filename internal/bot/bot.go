// Package bot is the Telegram chat frontend.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Problepo/internal/pipeline"
	"github.com/Alias1177/Problepo/internal/throttle"
	"github.com/Alias1177/Problepo/models"
)

// Source tags usage rows written by the bot
const Source = "telegram"

const (
	cmdStart   = "/start"
	cmdHelp    = "/help"
	cmdPredict = "/predict"

	btnCategory   = "Select Category"
	btnTimeframe  = "Select Timeframe"
	btnPredict    = "Make Prediction"
	btnMainMenu   = "Main Menu"
	cbCategory    = "category_"
	cbTimeframe   = "timeframe_"
	cbMainMenu    = "main_menu"
	welcomeText   = "Welcome to Problepo! Pick a category and timeframe, then tell me what to predict."
	helpText      = "Use the menu, or send /predict <topic> to get a prediction right away."
	failedText    = "Failed to generate prediction. Please try again later."
	askTopicText  = "What should I predict? Send me a topic, e.g. \"Bitcoin price\"."
	emptyTopicMsg = "Please send a topic to predict."
)

// User state stages
const (
	stageInitial = iota
	stageAwaitingTopic
)

// Chats idle longer than stateIdleTTL lose their selections
const (
	stateIdleTTL  = 24 * time.Hour
	pruneInterval = time.Hour
)

type userState struct {
	stage        int
	category     models.Category
	timeframe    models.Timeframe
	lastActivity time.Time
}

// Sender is the part of *tgbotapi.BotAPI the bot uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Limiter is satisfied by *throttle.Throttle
type Limiter interface {
	CheckAndConsume(ctx context.Context, identifier string) (throttle.Decision, error)
}

// Options wires the bot; Usage may be nil
type Options struct {
	API         Sender
	Synthesizer models.Synthesizer
	Limiter     Limiter
	Pipeline    *pipeline.Pipeline
	Usage       models.UsageRecorder
	Timeout     time.Duration
}

type Bot struct {
	api      Sender
	synth    models.Synthesizer
	limiter  Limiter
	pipeline *pipeline.Pipeline
	usage    models.UsageRecorder
	timeout  time.Duration

	mu     sync.Mutex
	states map[int64]*userState
	logger zerolog.Logger
}

func New(opts Options) *Bot {
	if opts.Pipeline == nil {
		opts.Pipeline = pipeline.New(nil, nil)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Bot{
		api:      opts.API,
		synth:    opts.Synthesizer,
		limiter:  opts.Limiter,
		pipeline: opts.Pipeline,
		usage:    opts.Usage,
		timeout:  opts.Timeout,
		states:   make(map[int64]*userState),
		logger:   log.With().Str("component", "tgbot").Logger(),
	}
}

// Run handles updates until ctx is done. Each update gets its own goroutine so one slow
// prediction does not hold up other chats.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := b.pruneIdle(now); n > 0 {
				b.logger.Debug().Int("chats", n).Msg("Dropped idle chat state")
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// state returns a copy so callers never touch the map entry without the lock
func (b *Bot) state(chatID int64) userState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[chatID]
	if !ok {
		s = &userState{timeframe: models.Timeframe1Month}
		b.states[chatID] = s
	}
	s.lastActivity = time.Now()
	return *s
}

func (b *Bot) updateState(chatID int64, fn func(s *userState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[chatID]
	if !ok {
		s = &userState{timeframe: models.Timeframe1Month}
		b.states[chatID] = s
	}
	fn(s)
	s.lastActivity = time.Now()
}

// pruneIdle forgets chats with no activity for stateIdleTTL and returns how many went
func (b *Bot) pruneIdle(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	pruned := 0
	for chatID, s := range b.states {
		if now.Sub(s.lastActivity) > stateIdleTTL {
			delete(b.states, chatID)
			pruned++
		}
	}
	return pruned
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)
	state := b.state(chatID)

	switch {
	case text == cmdStart || text == btnMainMenu:
		b.updateState(chatID, func(s *userState) { s.stage = stageInitial })
		b.sendMenu(chatID, welcomeText)
	case text == cmdHelp:
		b.sendText(chatID, helpText)
	case text == btnCategory:
		b.sendCategoryMenu(chatID)
	case text == btnTimeframe:
		b.sendTimeframeMenu(chatID)
	case text == btnPredict:
		b.updateState(chatID, func(s *userState) { s.stage = stageAwaitingTopic })
		b.sendText(chatID, askTopicText)
	case strings.HasPrefix(text, cmdPredict):
		topic := strings.TrimSpace(strings.TrimPrefix(text, cmdPredict))
		b.runPrediction(ctx, chatID, state, topic)
	case state.stage == stageAwaitingTopic:
		b.updateState(chatID, func(s *userState) { s.stage = stageInitial })
		b.runPrediction(ctx, chatID, state, text)
	default:
		b.sendMenu(chatID, helpText)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug().Err(err).Msg("Callback ack failed")
	}
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	switch {
	case strings.HasPrefix(data, cbCategory):
		category := models.Category(strings.TrimPrefix(data, cbCategory))
		if !category.Known() {
			return
		}
		b.updateState(chatID, func(s *userState) { s.category = category })
		b.sendMenu(chatID, fmt.Sprintf("Category set to %s.", category))
	case strings.HasPrefix(data, cbTimeframe):
		timeframe := models.Timeframe(strings.TrimPrefix(data, cbTimeframe))
		b.updateState(chatID, func(s *userState) { s.timeframe = timeframe })
		b.sendMenu(chatID, fmt.Sprintf("Timeframe set to %s.", timeframe.Label()))
	case data == cbMainMenu:
		b.sendMenu(chatID, welcomeText)
	}
}

func (b *Bot) runPrediction(ctx context.Context, chatID int64, state userState, topic string) {
	clientID := strconv.FormatInt(chatID, 10)
	req := models.PredictionRequest{Topic: topic, Category: state.category, Timeframe: state.timeframe}
	logger := b.logger.With().Int64("chat_id", chatID).Logger()

	if err := req.Validate(); err != nil {
		b.record(ctx, clientID, req, models.OutcomeInvalid)
		b.sendText(chatID, emptyTopicMsg)
		return
	}

	decision, err := b.limiter.CheckAndConsume(ctx, clientID)
	if err != nil {
		logger.Warn().Err(err).Msg("Throttle store unavailable, allowing request")
	} else if !decision.Allowed {
		b.record(ctx, clientID, req, models.OutcomeRateLimited)
		b.sendText(chatID, fmt.Sprintf("Too many predictions. Please try again in %d seconds.", decision.RetryAfter))
		return
	}

	board := newProgressBoard(b.pipeline.Stages())
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, board.String()))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send progress message")
		return
	}

	var result *models.PredictionResult
	err = b.pipeline.Accompany(ctx, func(u pipeline.Update) {
		board.apply(u)
		// one edit per stage transition keeps us under Telegram's edit rate limit
		if u.Progress == 0 || u.Status == pipeline.StatusCompleted {
			b.edit(chatID, sent.MessageID, board.String())
		}
	}, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		var err error
		result, err = b.synth.Synthesize(ctx, req)
		return err
	})

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Str("topic", req.Topic).Msg("Prediction failed")
		}
		b.record(ctx, clientID, req, models.OutcomeFailed)
		b.edit(chatID, sent.MessageID, failedText)
		return
	}

	logger.Info().
		Str("trend", string(result.Trend)).
		Int("confidence", result.Confidence).
		Msg("Prediction delivered")
	b.record(ctx, clientID, req, models.OutcomeOK)
	b.edit(chatID, sent.MessageID, FormatResult(result))
}

func (b *Bot) record(ctx context.Context, clientID string, req models.PredictionRequest, outcome string) {
	if b.usage == nil {
		return
	}
	b.usage.RecordUsage(context.WithoutCancel(ctx), models.UsageEvent{
		ClientID:  clientID,
		Source:    Source,
		Topic:     req.Topic,
		Category:  req.Category,
		Timeframe: req.Timeframe,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	})
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to edit message")
	}
}

func (b *Bot) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send menu")
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCategory),
			tgbotapi.NewKeyboardButton(btnTimeframe),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPredict),
		),
	)
}

func (b *Bot) sendCategoryMenu(chatID int64) {
	labels := make([]string, len(models.Categories))
	data := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		labels[i] = string(c)
		data[i] = cbCategory + string(c)
	}
	msg := tgbotapi.NewMessage(chatID, "Select a category:")
	msg.ReplyMarkup = inlineGrid(labels, data)
	b.send(msg)
}

func (b *Bot) sendTimeframeMenu(chatID int64) {
	labels := make([]string, len(models.Timeframes))
	data := make([]string, len(models.Timeframes))
	for i, tf := range models.Timeframes {
		labels[i] = tf.Label()
		data[i] = cbTimeframe + string(tf)
	}
	msg := tgbotapi.NewMessage(chatID, "Select a timeframe:")
	msg.ReplyMarkup = inlineGrid(labels, data)
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Failed to send message")
	}
}

// inlineGrid lays buttons out two per row with a back button at the end
func inlineGrid(labels, data []string) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for i := range labels {
		if i%2 == 0 && i > 0 {
			keyboard = append(keyboard, row)
			row = []tgbotapi.InlineKeyboardButton{}
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(labels[i], data[i]))
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("← Back to Main Menu", cbMainMenu)))

	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}
