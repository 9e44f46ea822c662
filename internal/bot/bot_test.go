package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Alias1177/Problepo/internal/pipeline"
	"github.com/Alias1177/Problepo/internal/throttle"
	"github.com/Alias1177/Problepo/models"
)

type fakeSender struct {
	mu       sync.Mutex
	nextID   int
	sent     []string
	edits    []string
	requests int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.nextID++
		f.sent = append(f.sent, m.Text)
		return tgbotapi.Message{MessageID: f.nextID}, nil
	case tgbotapi.EditMessageTextConfig:
		f.edits = append(f.edits, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) lastEdit() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return ""
	}
	return f.edits[len(f.edits)-1]
}

type fakeSynth struct {
	mu   sync.Mutex
	reqs []models.PredictionRequest
	err  error
}

func (f *fakeSynth) Synthesize(_ context.Context, req models.PredictionRequest) (*models.PredictionResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &models.PredictionResult{
		Topic:                req.Topic,
		Category:             req.Category,
		Timeframe:            req.Timeframe,
		Prediction:           "Expect a steady climb.",
		Confidence:           81,
		Trend:                models.TrendUp,
		DataPoints:           []string{"volume rising"},
		AlternativeScenarios: []string{"regulatory shock"},
		LastUpdated:          "Mar 14, 2025, 09:30 AM",
	}, nil
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestBot(synthErr error) (*Bot, *fakeSender, *fakeSynth) {
	sender := &fakeSender{}
	s := &fakeSynth{err: synthErr}
	b := New(Options{
		API:         sender,
		Synthesizer: s,
		Limiter:     throttle.New(throttle.Options{Window: time.Minute, MaxRequests: 2}),
		Pipeline:    pipeline.New(nil, noSleep),
	})
	return b, sender, s
}

func message(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestPredictCommand(t *testing.T) {
	b, sender, s := newTestBot(nil)

	b.HandleUpdate(context.Background(), message(42, "/predict Bitcoin price"))

	if len(s.reqs) != 1 || s.reqs[0].Topic != "Bitcoin price" {
		t.Fatalf("unexpected synth requests %+v", s.reqs)
	}
	if s.reqs[0].Timeframe != models.Timeframe1Month {
		t.Errorf("Expected default timeframe, got %s", s.reqs[0].Timeframe)
	}
	if !strings.HasPrefix(sender.lastSent(), "Analyzing...") {
		t.Errorf("Expected a progress message, got %q", sender.lastSent())
	}
	final := sender.lastEdit()
	if !strings.Contains(final, "Expect a steady climb.") || !strings.Contains(final, "Confidence: 81%") {
		t.Errorf("final edit is not the result: %q", final)
	}
}

func TestMenuSelectionsApplyToPrediction(t *testing.T) {
	b, sender, s := newTestBot(nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, callback(7, "category_sports"))
	b.HandleUpdate(ctx, callback(7, "timeframe_1year"))
	b.HandleUpdate(ctx, message(7, "Make Prediction"))
	if sender.lastSent() != askTopicText {
		t.Fatalf("Expected topic prompt, got %q", sender.lastSent())
	}
	b.HandleUpdate(ctx, message(7, "World Cup winner"))

	if len(s.reqs) != 1 {
		t.Fatalf("Expected one prediction, got %d", len(s.reqs))
	}
	got := s.reqs[0]
	if got.Category != models.CategorySports || got.Timeframe != models.Timeframe1Year || got.Topic != "World Cup winner" {
		t.Errorf("unexpected request %+v", got)
	}
	if sender.requests != 2 {
		t.Errorf("Expected both callbacks acknowledged, got %d", sender.requests)
	}

	// back to the initial stage: free text no longer triggers a prediction
	b.HandleUpdate(ctx, message(7, "hello"))
	if len(s.reqs) != 1 {
		t.Error("free text outside the topic prompt must not predict")
	}
}

func TestPredictEmptyTopic(t *testing.T) {
	b, sender, s := newTestBot(nil)

	b.HandleUpdate(context.Background(), message(1, "/predict   "))
	if len(s.reqs) != 0 {
		t.Error("synthesizer must not be invoked for an empty topic")
	}
	if sender.lastSent() != emptyTopicMsg {
		t.Errorf("unexpected reply %q", sender.lastSent())
	}
}

func TestPredictThrottledPerChat(t *testing.T) {
	b, sender, s := newTestBot(nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, message(5, "/predict a"))
	b.HandleUpdate(ctx, message(5, "/predict b"))
	b.HandleUpdate(ctx, message(5, "/predict c"))

	if len(s.reqs) != 2 {
		t.Errorf("Expected 2 predictions before throttling, got %d", len(s.reqs))
	}
	if !strings.HasPrefix(sender.lastSent(), "Too many predictions") {
		t.Errorf("Expected throttle message, got %q", sender.lastSent())
	}

	b.HandleUpdate(ctx, message(6, "/predict d"))
	if len(s.reqs) != 3 {
		t.Error("another chat must not be throttled")
	}
}

func TestPredictFailure(t *testing.T) {
	b, sender, _ := newTestBot(errors.New("upstream down"))

	b.HandleUpdate(context.Background(), message(9, "/predict Bitcoin"))
	if sender.lastEdit() != failedText {
		t.Errorf("Expected failure text, got %q", sender.lastEdit())
	}
}

func TestProgressBoard(t *testing.T) {
	board := newProgressBoard(pipeline.DefaultStages)
	board.apply(pipeline.Update{Index: 0, Name: "Voice Recognition", Status: pipeline.StatusCompleted, Progress: 100})
	board.apply(pipeline.Update{Index: 1, Name: "Natural Language Processing", Status: pipeline.StatusProcessing, Progress: 40})

	text := board.String()
	for _, want := range []string{"✅ Voice Recognition", "⏳ Natural Language Processing 40%", "▫️ Prediction Generation"} {
		if !strings.Contains(text, want) {
			t.Errorf("board missing %q:\n%s", want, text)
		}
	}
}

func TestFormatResultSkipsEmptyLists(t *testing.T) {
	text := FormatResult(&models.PredictionResult{
		Topic:      "Oil",
		Timeframe:  models.Timeframe6Months,
		Prediction: "Flat.",
		Trend:      models.TrendNeutral,
		Confidence: 55,
		DataPoints: []string{"inventory"},
	})
	if !strings.Contains(text, "Timeframe: 6 months") || !strings.Contains(text, "• inventory") {
		t.Errorf("unexpected text:\n%s", text)
	}
	if strings.Contains(text, "Variables to watch") {
		t.Error("empty lists must be omitted")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	b, _, _ := newTestBot(nil)
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan tgbotapi.Update)

	done := make(chan struct{})
	go func() {
		b.Run(ctx, updates)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPruneIdleDropsStaleChats(t *testing.T) {
	b, _, _ := newTestBot(nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, callback(1, "category_finance"))
	b.HandleUpdate(ctx, callback(2, "category_sports"))

	b.mu.Lock()
	b.states[1].lastActivity = time.Now().Add(-stateIdleTTL - time.Minute)
	b.mu.Unlock()

	if n := b.pruneIdle(time.Now()); n != 1 {
		t.Fatalf("Expected 1 pruned chat, got %d", n)
	}
	b.mu.Lock()
	_, stale := b.states[1]
	_, fresh := b.states[2]
	b.mu.Unlock()
	if stale || !fresh {
		t.Errorf("unexpected states after prune: stale=%v fresh=%v", stale, fresh)
	}

	// a pruned chat starts over with defaults
	if st := b.state(1); st.category != "" || st.timeframe != models.Timeframe1Month {
		t.Errorf("Expected default state, got %+v", st)
	}
}
