// Package pipeline plays the cosmetic processing stages shown while a prediction is generated.
// No work is tracked: each stage just steps its progress on a fixed timer.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status of a stage
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Stage is one named step with its per-increment delay
type Stage struct {
	Name  string
	Delay time.Duration
}

// DefaultStages are played in order
var DefaultStages = []Stage{
	{Name: "Voice Recognition", Delay: 80 * time.Millisecond},
	{Name: "Natural Language Processing", Delay: 120 * time.Millisecond},
	{Name: "Data Collection", Delay: 150 * time.Millisecond},
	{Name: "Pattern Analysis", Delay: 130 * time.Millisecond},
	{Name: "Prediction Generation", Delay: 100 * time.Millisecond},
}

const (
	increments = 10
	step       = 100 / increments
)

// Update is a snapshot of one stage
type Update struct {
	Index    int
	Name     string
	Status   Status
	Progress int
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pipeline walks its stages sequentially
type Pipeline struct {
	stages []Stage
	sleep  Sleeper
}

// New builds a pipeline; nil stages mean DefaultStages, nil sleep means real time
func New(stages []Stage, sleep Sleeper) *Pipeline {
	if stages == nil {
		stages = DefaultStages
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Pipeline{stages: stages, sleep: sleep}
}

// Stages returns the configured stages
func (p *Pipeline) Stages() []Stage {
	return p.stages
}

// Run marks each stage processing, steps it 10%..100%, marks it completed and moves on.
// onUpdate is called synchronously. A cancelled ctx stops the run with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, onUpdate func(Update)) error {
	if onUpdate == nil {
		onUpdate = func(Update) {}
	}

	for i, stage := range p.stages {
		onUpdate(Update{Index: i, Name: stage.Name, Status: StatusProcessing, Progress: 0})

		for progress := step; progress <= 100; progress += step {
			if err := p.sleep(ctx, stage.Delay); err != nil {
				return err
			}
			onUpdate(Update{Index: i, Name: stage.Name, Status: StatusProcessing, Progress: progress})
		}

		onUpdate(Update{Index: i, Name: stage.Name, Status: StatusCompleted, Progress: 100})
	}
	return nil
}

// Accompany plays the stages while work runs and returns once both are done.
// The animation does not wait on work. A failed work cuts the animation short.
func (p *Pipeline) Accompany(ctx context.Context, onUpdate func(Update), work func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return work(gctx)
	})
	g.Go(func() error {
		if err := p.Run(gctx, onUpdate); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	return g.Wait()
}

// Total is the wall time a full run takes with the real sleeper
func (p *Pipeline) Total() time.Duration {
	var total time.Duration
	for _, s := range p.stages {
		total += s.Delay * increments
	}
	return total
}
