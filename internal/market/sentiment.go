package market

import (
	"sync"

	"github.com/jonreiter/govader"
)

var vader = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// CompoundScore is the VADER compound polarity of text, in [-1, 1]
func CompoundScore(text string) float64 {
	return vader().PolarityScores(text).Compound
}

// Sentiment labels
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// Label buckets an average compound score
func Label(score float64) string {
	switch {
	case score > 0.2:
		return LabelPositive
	case score < -0.2:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// AverageScore is the mean compound score of the headlines
func AverageScore(headlines []string) float64 {
	if len(headlines) == 0 {
		return 0
	}
	var total float64
	for _, h := range headlines {
		total += CompoundScore(h)
	}
	return total / float64(len(headlines))
}
