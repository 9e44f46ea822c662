// Package status reports the health of the service's external dependencies.
package status

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/Problepo/models"
)

const DefaultProbeTimeout = 5 * time.Second

// Probe returns nil when the dependency answered correctly
type Probe func(ctx context.Context) error

// Check describes one line of the report. An unconfigured check is reported disabled
// without probing; a configured check with no probe is reported connected.
type Check struct {
	Name            string
	Configured      bool
	DisabledMessage string
	Probe           Probe
	// FailureMessage replaces the probe error in the report; upstream details stay in the log
	FailureMessage string
}

type Checker struct {
	checks  []Check
	timeout time.Duration
	logger  zerolog.Logger
}

func NewChecker(timeout time.Duration, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Checker{
		checks:  checks,
		timeout: timeout,
		logger:  log.With().Str("component", "status").Logger(),
	}
}

// Report runs every probe concurrently and returns the entries in registration order
func (c *Checker) Report(ctx context.Context) []models.ServiceStatus {
	statuses := make([]models.ServiceStatus, len(c.checks))

	var g errgroup.Group
	for i, check := range c.checks {
		statuses[i] = models.ServiceStatus{Name: check.Name}

		if !check.Configured {
			statuses[i].Status = models.StateDisabled
			statuses[i].Message = check.DisabledMessage
			if statuses[i].Message == "" {
				statuses[i].Message = "Not configured"
			}
			continue
		}
		if check.Probe == nil {
			statuses[i].Status = models.StateConnected
			continue
		}

		g.Go(func() error {
			statuses[i] = c.probe(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

func (c *Checker) probe(ctx context.Context, check Check) models.ServiceStatus {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check.Probe(ctx)
	if err == nil {
		return models.ServiceStatus{Name: check.Name, Status: models.StateConnected}
	}

	c.logger.Warn().
		Err(err).
		Str("service", check.Name).
		Dur("took", time.Since(start)).
		Msg("Status probe failed")

	msg := check.FailureMessage
	if msg == "" {
		msg = "Test failed"
	}
	return models.ServiceStatus{Name: check.Name, Status: models.StateError, Message: msg}
}
