package synth

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/Alias1177/Problepo/models"
)

// fakeCompletion answers by prompt kind
type fakeCompletion struct {
	mu         sync.Mutex
	prediction string
	confidence string
	trend      string
	err        error
	prompts    []string
}

func (f *fakeCompletion) Name() string { return "fake" }

func (f *fakeCompletion) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.Contains(prompt, "single integer"):
		return f.confidence, nil
	case strings.Contains(prompt, "exactly one word"):
		return f.trend, nil
	default:
		return f.prediction, nil
	}
}

const validReply = `{
  "prediction": "Bitcoin will climb steadily.",
  "dataPoints": ["a", "b", "c", "d", "e"],
  "variables": ["v1", "v2"],
  "historicalPatterns": ["h1", "h2", "h3"],
  "alternativeScenarios": ["s1", "s2", "s3"]
}`

func TestRemoteSynthesizerParsesJSON(t *testing.T) {
	client := &fakeCompletion{prediction: validReply}
	s := NewRemoteSynthesizer(client, ScoreRandom, constPicker(2))

	res, err := s.Synthesize(context.Background(), models.PredictionRequest{
		Topic:     "Bitcoin price",
		Category:  models.CategoryFinance,
		Timeframe: models.Timeframe3Months,
		Context:   "post-halving",
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if res.Prediction != "Bitcoin will climb steadily." {
		t.Errorf("unexpected prediction %q", res.Prediction)
	}
	if len(res.DataPoints) != 5 || len(res.HistoricalPatterns) != 3 {
		t.Errorf("unexpected list sizes: %+v", res)
	}
	if res.Trend != models.TrendNeutral || res.Confidence != 52 {
		t.Errorf("Expected random scoring from picker, got %s/%d", res.Trend, res.Confidence)
	}
	if len(client.prompts) != 1 {
		t.Fatalf("Expected one completion call, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	for _, want := range []string{"Bitcoin price", "finance", "3 months", "post-halving"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt does not mention %q", want)
		}
	}
}

func TestRemoteSynthesizerExtractsEmbeddedJSON(t *testing.T) {
	client := &fakeCompletion{prediction: "Sure! Here you go:\n```json\n" + validReply + "\n```\nHope this helps."}
	s := NewRemoteSynthesizer(client, ScoreRandom, nil)

	res, err := s.Synthesize(context.Background(), models.PredictionRequest{Topic: "Bitcoin"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Prediction == "" {
		t.Error("Expected prediction from embedded JSON")
	}
}

func TestRemoteSynthesizerFailures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeCompletion
	}{
		{"transport error", &fakeCompletion{err: errors.New("dial tcp: connection refused")}},
		{"no json", &fakeCompletion{prediction: "I cannot predict the future."}},
		{"broken json", &fakeCompletion{prediction: `{"prediction": "x", "dataPoints": [}`}},
		{"missing prediction", &fakeCompletion{prediction: `{"dataPoints": ["a"], "variables": [], "historicalPatterns": [], "alternativeScenarios": []}`}},
		{"missing list", &fakeCompletion{prediction: `{"prediction": "x", "dataPoints": ["a"], "variables": ["v"], "historicalPatterns": ["h"]}`}},
		{"null list", &fakeCompletion{prediction: `{"prediction": "x", "dataPoints": null, "variables": [], "historicalPatterns": [], "alternativeScenarios": []}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRemoteSynthesizer(tt.client, ScoreRandom, nil)
			_, err := s.Synthesize(context.Background(), models.PredictionRequest{Topic: "x"})
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("Expected ErrGenerationFailed, got %v", err)
			}
		})
	}
}

func TestRemoteSynthesizerClassifyScoring(t *testing.T) {
	client := &fakeCompletion{prediction: validReply, confidence: "I'd say 88.", trend: "Up."}
	s := NewRemoteSynthesizer(client, ScoreClassify, nil)

	res, err := s.Synthesize(context.Background(), models.PredictionRequest{Topic: "Bitcoin"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Confidence != 88 {
		t.Errorf("Expected confidence 88, got %d", res.Confidence)
	}
	if res.Trend != models.TrendUp {
		t.Errorf("Expected trend up, got %s", res.Trend)
	}
	if len(client.prompts) != 3 {
		t.Errorf("Expected 3 completion calls, got %d", len(client.prompts))
	}
}

func TestRemoteSynthesizerClassifyFallsBackToRandom(t *testing.T) {
	client := &fakeCompletion{prediction: validReply, confidence: "very", trend: "unclear"}
	s := NewRemoteSynthesizer(client, ScoreClassify, constPicker(1))

	res, err := s.Synthesize(context.Background(), models.PredictionRequest{Topic: "Bitcoin"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Confidence != 51 {
		t.Errorf("Expected random confidence 51, got %d", res.Confidence)
	}
	if res.Trend != models.TrendDown {
		t.Errorf("Expected random trend down, got %s", res.Trend)
	}
}

func TestRemoteSynthesizerAcceptsEmptyLists(t *testing.T) {
	client := &fakeCompletion{prediction: `{"prediction": "Flat.", "dataPoints": [], "variables": [], "historicalPatterns": [], "alternativeScenarios": []}`}
	s := NewRemoteSynthesizer(client, ScoreRandom, nil)

	res, err := s.Synthesize(context.Background(), models.PredictionRequest{Topic: "Bitcoin"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.DataPoints == nil || len(res.DataPoints) != 0 {
		t.Errorf("Expected an empty, non-nil list, got %#v", res.DataPoints)
	}
}

func TestParseConfidenceClamps(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"75", 75, true},
		{"Confidence: 99%", 95, true},
		{"10", 50, true},
		{"none", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseConfidence(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseConfidence(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPredictionResultJSONRoundTrip(t *testing.T) {
	s := NewTemplateSynthesizer(mustCatalog(t), nil)
	res, err := s.Synthesize(context.Background(), models.PredictionRequest{
		Topic:     `Quotes "and" <html> & unicode ✓`,
		Category:  models.CategoryTechnology,
		Timeframe: models.Timeframe5Years,
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back models.PredictionResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(*res, back) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, *res)
	}
}
