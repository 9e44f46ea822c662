package models

import "context"

// Synthesizer turns a request into a prediction
type Synthesizer interface {
	Synthesize(ctx context.Context, req PredictionRequest) (*PredictionResult, error)
}

// UsageRecorder persists request metadata; implementations must not fail the caller
type UsageRecorder interface {
	RecordUsage(ctx context.Context, event UsageEvent)
}
