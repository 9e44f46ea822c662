package synth

import (
	"fmt"
	"strings"

	"github.com/Alias1177/Problepo/models"
)

// BuildPredictionPrompt asks the model for the JSON body of a prediction
func BuildPredictionPrompt(req models.PredictionRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an analyst producing short, plausible forecasts.\n\n")
	sb.WriteString(fmt.Sprintf("Topic: %s\n", req.Topic))
	if req.Category != "" {
		sb.WriteString(fmt.Sprintf("Category: %s\n", req.Category))
	}
	sb.WriteString(fmt.Sprintf("Timeframe: %s\n", req.Timeframe.Label()))
	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		sb.WriteString(fmt.Sprintf("Additional context: %s\n", ctx))
	}

	sb.WriteString(`
Predict what is likely to happen with this topic over the timeframe.
Respond with a single JSON object and nothing else, using exactly these keys:
{
  "prediction": "<one or two sentences>",
  "dataPoints": ["<5 supporting data points>"],
  "variables": ["<5 key variables that could change the outcome>"],
  "historicalPatterns": ["<3 relevant historical patterns>"],
  "alternativeScenarios": ["<3 alternative scenarios>"]
}
`)
	return sb.String()
}

// BuildConfidencePrompt asks the model to rate its own prediction
func BuildConfidencePrompt(topic, prediction string) string {
	return fmt.Sprintf(`Given this prediction about "%s":

%s

How confident would a careful analyst be in it? Answer with a single integer between %d and %d and nothing else.`,
		topic, prediction, models.MinConfidence, models.MaxConfidence)
}

// BuildTrendPrompt asks the model to classify the direction of its own prediction
func BuildTrendPrompt(topic, prediction string) string {
	return fmt.Sprintf(`Given this prediction about "%s":

%s

Is the predicted direction up, down or neutral? Answer with exactly one word: up, down or neutral.`,
		topic, prediction)
}
