// Package synth produces predictions, either from canned templates or from a text-generation model.
package synth

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Alias1177/Problepo/models"
)

// ErrGenerationFailed covers every remote failure: transport, status and unparseable replies
var ErrGenerationFailed = errors.New("failed to generate prediction")

// Picker is the random source; *rand.Rand satisfies it
type Picker interface {
	Intn(n int) int
}

// NewPicker returns a time-seeded source that is safe for concurrent use
func NewPicker() Picker {
	return &lockedPicker{p: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// lockedPicker serializes access to a Picker that is not safe for concurrent use
type lockedPicker struct {
	mu sync.Mutex
	p  Picker
}

func (l *lockedPicker) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Intn(n)
}

func newLockedPicker(p Picker) *lockedPicker {
	if p == nil {
		return NewPicker().(*lockedPicker)
	}
	return &lockedPicker{p: p}
}

// randomTrend draws uniformly from up, down, neutral
func randomTrend(p Picker) models.Trend {
	return models.Trends[p.Intn(len(models.Trends))]
}

// randomConfidence draws uniformly from [50, 95]
func randomConfidence(p Picker) int {
	return models.MinConfidence + p.Intn(models.MaxConfidence-models.MinConfidence+1)
}

func clampConfidence(c int) int {
	if c < models.MinConfidence {
		return models.MinConfidence
	}
	if c > models.MaxConfidence {
		return models.MaxConfidence
	}
	return c
}
