package status

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alias1177/Problepo/models"
)

func TestReportOrderAndStates(t *testing.T) {
	var probes atomic.Int32
	ok := func(context.Context) error {
		probes.Add(1)
		return nil
	}
	failing := func(context.Context) error {
		probes.Add(1)
		return errors.New("connection refused")
	}

	c := NewChecker(time.Second,
		Check{Name: "Prediction API", Configured: true},
		Check{Name: "Voice RSS TTS", Configured: false, DisabledMessage: "API key not configured", Probe: ok},
		Check{Name: "News API", Configured: true, Probe: failing},
		Check{Name: "Redis throttle store", Configured: true, Probe: ok},
		Check{Name: "Wit.ai Speech-to-Text", Configured: false},
	)

	got := c.Report(context.Background())
	want := []models.ServiceStatus{
		{Name: "Prediction API", Status: models.StateConnected},
		{Name: "Voice RSS TTS", Status: models.StateDisabled, Message: "API key not configured"},
		{Name: "News API", Status: models.StateError, Message: "Test failed"},
		{Name: "Redis throttle store", Status: models.StateConnected},
		{Name: "Wit.ai Speech-to-Text", Status: models.StateDisabled, Message: "Not configured"},
	}

	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if n := probes.Load(); n != 2 {
		t.Errorf("Expected 2 probes, got %d", n)
	}
}

func TestReportProbeTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	c := NewChecker(20*time.Millisecond,
		Check{Name: "a", Configured: true, Probe: slow},
		Check{Name: "b", Configured: true, Probe: slow, FailureMessage: "Ping failed"},
	)

	start := time.Now()
	got := c.Report(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("probes should run concurrently and time out, took %v", elapsed)
	}
	if got[0].Status != models.StateError || got[1].Message != "Ping failed" {
		t.Errorf("unexpected report %+v", got)
	}
}
