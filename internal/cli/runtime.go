package cli

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/me/timingbelt/internal/config"
	"github.com/me/timingbelt/internal/demo"
	"github.com/me/timingbelt/internal/metrics"
	"github.com/me/timingbelt/internal/timer"
	"github.com/me/timingbelt/pkg/belt"
	"github.com/me/timingbelt/pkg/model"
)

// runtime is a timing belt wired to a timer loop, a stats collector and a
// demo harness. Nothing runs until loop.Start is called.
type runtime struct {
	session string
	loop    *timer.Loop
	belt    *belt.TimingBelt
	harness *demo.Harness
	stats   *metrics.Collector
}

// newRuntime builds a runtime from bc. Every cycle trace goes to the stats
// collector and then to observers.
func newRuntime(bc config.BeltConfig, logger *slog.Logger, observers ...func(model.CycleTrace)) (*runtime, error) {
	rt := &runtime{session: "ses_" + uuid.New().String()[:8]}
	rt.stats = metrics.NewCollector(rt.session)
	rt.loop = timer.NewLoop(timer.Config{FramePeriod: bc.FramePeriod()}, logger)

	tb, err := belt.New(rt.loop.FrameTimer(), rt.loop.IdleTimer(),
		belt.WithLogger(logger),
		belt.WithSessionID(rt.session),
		belt.WithInterval(bc.Interval),
		belt.WithObserver(metrics.Fanout(append([]func(model.CycleTrace){rt.stats.Observe}, observers...)...)),
	)
	if err != nil {
		return nil, fmt.Errorf("create timing belt: %w", err)
	}
	if err := bc.Apply(tb); err != nil {
		return nil, fmt.Errorf("apply belt config: %w", err)
	}
	rt.belt = tb
	rt.harness = demo.NewHarness(tb, logger)
	return rt, nil
}

// loadScenario reads path, or returns the default scenario when path is empty.
func loadScenario(path string) (demo.Scenario, error) {
	if path == "" {
		return demo.DefaultScenario(), nil
	}
	return demo.LoadScenario(path)
}
