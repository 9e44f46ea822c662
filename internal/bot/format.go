package bot

import (
	"fmt"
	"strings"

	"github.com/Alias1177/Problepo/internal/pipeline"
	"github.com/Alias1177/Problepo/models"
)

var trendArrows = map[models.Trend]string{
	models.TrendUp:      "📈",
	models.TrendDown:    "📉",
	models.TrendNeutral: "➡️",
}

// FormatResult renders a prediction as a plain-text chat message
func FormatResult(res *models.PredictionResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🔮 Prediction: %s\n", res.Topic))
	if res.Category != "" {
		sb.WriteString(fmt.Sprintf("Category: %s\n", res.Category))
	}
	sb.WriteString(fmt.Sprintf("Timeframe: %s\n", res.Timeframe.Label()))
	sb.WriteString(fmt.Sprintf("Trend: %s %s | Confidence: %d%%\n\n", trendArrows[res.Trend], res.Trend, res.Confidence))
	sb.WriteString(res.Prediction)
	sb.WriteString("\n")

	writeList(&sb, "Key data points", res.DataPoints)
	writeList(&sb, "Variables to watch", res.Variables)
	writeList(&sb, "Historical patterns", res.HistoricalPatterns)
	writeList(&sb, "Alternative scenarios", res.AlternativeScenarios)

	sb.WriteString(fmt.Sprintf("\nLast updated: %s", res.LastUpdated))
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s:\n", title))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("• %s\n", item))
	}
}

// progressBoard tracks every stage so each edit shows the whole pipeline
type progressBoard struct {
	stages []pipeline.Stage
	states []pipeline.Update
}

func newProgressBoard(stages []pipeline.Stage) *progressBoard {
	states := make([]pipeline.Update, len(stages))
	for i, s := range stages {
		states[i] = pipeline.Update{Index: i, Name: s.Name, Status: pipeline.StatusPending}
	}
	return &progressBoard{stages: stages, states: states}
}

func (b *progressBoard) apply(u pipeline.Update) {
	if u.Index >= 0 && u.Index < len(b.states) {
		b.states[u.Index] = u
	}
}

func (b *progressBoard) String() string {
	var sb strings.Builder
	sb.WriteString("Analyzing...\n\n")
	for _, s := range b.states {
		switch s.Status {
		case pipeline.StatusCompleted:
			sb.WriteString(fmt.Sprintf("✅ %s\n", s.Name))
		case pipeline.StatusProcessing:
			sb.WriteString(fmt.Sprintf("⏳ %s %d%%\n", s.Name, s.Progress))
		default:
			sb.WriteString(fmt.Sprintf("▫️ %s\n", s.Name))
		}
	}
	return sb.String()
}
