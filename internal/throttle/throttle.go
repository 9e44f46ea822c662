// Package throttle bounds how many predictions a client may request per fixed window.
//
// The window is global: when it elapses every client's count is cleared at once.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultWindow      = time.Minute
	DefaultMaxRequests = 10
)

// Decision is the outcome of one CheckAndConsume call
type Decision struct {
	Allowed bool
	// RetryAfter is whole seconds until the window resets, rounded up and at least 1 when
	// denied. Zero when allowed.
	RetryAfter int
	ResetAt    time.Time
}

// Store keeps the per-window counters
type Store interface {
	// Consume resets the window if now is past it, then increments id's count unless it
	// already reached max. It returns whether the call was counted and the window reset time.
	Consume(ctx context.Context, id string, now time.Time, window time.Duration, max int) (bool, time.Time, error)
}

// Throttle is constructed once at startup and shared by every frontend
type Throttle struct {
	store       Store
	window      time.Duration
	maxRequests int
	now         func() time.Time
	logger      zerolog.Logger
}

// Options for New
type Options struct {
	Window      time.Duration
	MaxRequests int
	Store       Store
	// Now overrides the clock in tests
	Now func() time.Time
}

// New creates a throttle; zero options fall back to 10 requests per minute in memory
func New(opts Options) *Throttle {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MaxRequests <= 0 {
		opts.MaxRequests = DefaultMaxRequests
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Throttle{
		store:       opts.Store,
		window:      opts.Window,
		maxRequests: opts.MaxRequests,
		now:         opts.Now,
		logger:      log.With().Str("component", "throttle").Logger(),
	}
}

// CheckAndConsume counts one request for identifier if it is still under the limit
func (t *Throttle) CheckAndConsume(ctx context.Context, identifier string) (Decision, error) {
	now := t.now()

	allowed, resetAt, err := t.store.Consume(ctx, identifier, now, t.window, t.maxRequests)
	if err != nil {
		return Decision{}, fmt.Errorf("throttle store: %w", err)
	}

	decision := Decision{Allowed: allowed, ResetAt: resetAt}
	if !allowed {
		// a denial at the reset instant still has to wait for the next tick
		decision.RetryAfter = max(1, retryAfterSeconds(resetAt.Sub(now)))
		t.logger.Debug().
			Str("client", identifier).
			Int("retry_after", decision.RetryAfter).
			Msg("Rate limit exceeded")
	}
	return decision, nil
}

// Window returns the configured window length
func (t *Throttle) Window() time.Duration {
	return t.window
}

// MaxRequests returns the per-window limit
func (t *Throttle) MaxRequests() int {
	return t.maxRequests
}

// retryAfterSeconds is ceil(remaining / 1s)
func retryAfterSeconds(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	secs := int(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}
