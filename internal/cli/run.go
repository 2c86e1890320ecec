package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/timingbelt/internal/demo"
	"github.com/me/timingbelt/internal/metrics"
	"github.com/me/timingbelt/internal/store"
	"github.com/me/timingbelt/pkg/model"
)

const defaultRunDuration = 2 * time.Second

func newRunCmd() *cobra.Command {
	var (
		scenarioPath string
		duration     time.Duration
		dbPath       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a scenario headless and print a summary",
		Long: "Run creates the scenario's renderables and jobs, drives the belt for the " +
			"scenario duration and prints what the scheduler did.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("duration") {
				sc.Duration = duration
			}
			if sc.Duration <= 0 {
				sc.Duration = defaultRunDuration
			}

			var rec *store.Recorder
			var st *store.SQLiteStore
			var observers []func(model.CycleTrace)
			if dbPath != "" {
				st, err = openStore(cmd.Context(), dbPath)
				if err != nil {
					return err
				}
				defer st.Close()
				rec = store.NewRecorder(st, store.RecorderConfig{}, logger)
				observers = append(observers, rec.Observe)
			}

			rt, err := newRuntime(cfg.Belt, logger, observers...)
			if err != nil {
				return err
			}
			if err := sc.Apply(rt.harness); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), sc.Duration)
			defer cancel()

			if rec != nil {
				go rec.Start(ctx)
			}
			logger.Info("running scenario", "scenario", sc.Name, "duration", sc.Duration, "session_id", rt.session)

			start := time.Now()
			if err := rt.loop.Start(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("timer loop: %w", err)
			}
			elapsed := time.Since(start)
			if rec != nil {
				rec.Stop()
			}

			printSummary(cmd.OutOrStdout(), sc, rt, elapsed)
			if rec != nil {
				printRecorder(cmd.OutOrStdout(), rec, dbPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (default: built-in demo)")
	cmd.Flags().DurationVar(&duration, "duration", defaultRunDuration, "How long to drive the belt (overrides the scenario)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Record cycle traces to this SQLite database")
	return cmd
}

// printSummary writes the end-of-run report. It must only be called once
// the loop has exited.
func printSummary(w io.Writer, sc demo.Scenario, rt *runtime, elapsed time.Duration) {
	s := rt.stats.Snapshot()
	jobs := countJobs(rt.harness.Jobs())
	secs := elapsed.Seconds()

	fmt.Fprintf(w, "Scenario: %s\n", sc.Name)
	fmt.Fprintf(w, "  Session:       %s\n", rt.session)
	fmt.Fprintf(w, "  Elapsed:       %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Frames:        %s ticks fired\n", humanize.Comma(rt.loop.Frames()))
	fmt.Fprintf(w, "  Render cycles: %s (%s/s)\n", humanize.Comma(s.RenderCycles), rate(s.RenderCycles, secs))
	fmt.Fprintf(w, "  Idle cycles:   %s (%s/s)\n", humanize.Comma(s.IdleCycles), rate(s.IdleCycles, secs))
	fmt.Fprintf(w, "  Job steps:     %s\n", humanize.Comma(s.JobSteps))
	fmt.Fprintf(w, "  Jobs:          %d done, %d failed, %d queued\n",
		jobs[model.JobStateDone], jobs[model.JobStateFailed], jobs[model.JobStateQueued])
	fmt.Fprintf(w, "  Renderables:   %d\n", len(rt.harness.Renderables()))
	if s.RenderCycles > 0 {
		fmt.Fprintf(w, "  Render time:   avg %s, max %s\n", s.AvgRenderDuration, s.MaxRenderDuration)
	}
	if n := s.RateLimited + s.Throttled + s.BudgetExhausted + s.Overruns; n > 0 {
		fmt.Fprintf(w, "  Pressure:      %d rate limited, %d throttled, %d budget exhausted, %d overruns\n",
			s.RateLimited, s.Throttled, s.BudgetExhausted, s.Overruns)
	}
	if s.JobFailures > 0 {
		fmt.Fprintf(w, "  Failure rate:  %s%%\n", humanize.FormatFloat("#,###.##", 100*metrics.FailureRate(s)))
	}
}

func printRecorder(w io.Writer, rec *store.Recorder, dbPath string) {
	fmt.Fprintf(w, "  Traces:        %s recorded, %s dropped",
		humanize.Comma(rec.Recorded()), humanize.Comma(rec.Dropped()))
	if fi, err := os.Stat(dbPath); err == nil {
		fmt.Fprintf(w, " (%s on disk)", humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Fprintln(w)
}

func countJobs(jobs []model.JobInfo) map[model.JobState]int {
	out := make(map[model.JobState]int)
	for _, j := range jobs {
		out[j.State]++
	}
	return out
}

func rate(n int64, secs float64) string {
	if secs <= 0 {
		return "0"
	}
	return humanize.FormatFloat("#,###.#", float64(n)/secs)
}
