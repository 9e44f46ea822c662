package synth

import (
	"context"
	"slices"
	"time"

	"github.com/Alias1177/Problepo/models"
)

// TemplateSynthesizer fills category templates locally; it never fails for a valid request
type TemplateSynthesizer struct {
	catalog *Catalog
	picker  *lockedPicker
	now     func() time.Time
}

// NewTemplateSynthesizer uses the given catalog and random source.
// A nil picker gets a time-seeded one.
func NewTemplateSynthesizer(catalog *Catalog, picker Picker) *TemplateSynthesizer {
	return &TemplateSynthesizer{
		catalog: catalog,
		picker:  newLockedPicker(picker),
		now:     time.Now,
	}
}

func (s *TemplateSynthesizer) Synthesize(ctx context.Context, req models.PredictionRequest) (*models.PredictionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ct := s.catalog.Lookup(req.Category)

	trend := randomTrend(s.picker)
	confidence := randomConfidence(s.picker)
	set := ct.Templates[trend]
	template := set[s.picker.Intn(len(set))]

	return &models.PredictionResult{
		Topic:                req.Topic,
		Category:             req.Category,
		Timeframe:            req.Timeframe,
		Prediction:           Render(template, req.Topic, req.Timeframe),
		Confidence:           confidence,
		Trend:                trend,
		DataPoints:           slices.Clone(ct.DataPoints),
		Variables:            slices.Clone(ct.Variables),
		HistoricalPatterns:   slices.Clone(ct.HistoricalPatterns),
		AlternativeScenarios: slices.Clone(ct.AlternativeScenarios),
		LastUpdated:          models.FormatLastUpdated(s.now()),
	}, nil
}
