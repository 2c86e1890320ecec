package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/timingbelt/internal/metrics"
	"github.com/me/timingbelt/pkg/model"
)

func newStatsCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cycle statistics from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp *apiResponse
			var err error
			if reset {
				resp, err = client.Delete(cmd.Context(), "/stats")
			} else {
				resp, err = client.Get(cmd.Context(), "/stats", nil)
			}
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			var s model.Stats
			if err := resp.decode(&s); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Session: %s\n", s.SessionID)
			fmt.Fprintf(w, "  State:            %s\n", s.State)
			fmt.Fprintf(w, "  Render cycles:    %s\n", humanize.Comma(s.RenderCycles))
			fmt.Fprintf(w, "  Idle cycles:      %s\n", humanize.Comma(s.IdleCycles))
			fmt.Fprintf(w, "  Job steps:        %s\n", humanize.Comma(s.JobSteps))
			fmt.Fprintf(w, "  Jobs remaining:   %d\n", s.JobsRemaining)
			fmt.Fprintf(w, "  Rate limited:     %s\n", humanize.Comma(s.RateLimited))
			fmt.Fprintf(w, "  Throttled:        %s\n", humanize.Comma(s.Throttled))
			fmt.Fprintf(w, "  Budget exhausted: %s\n", humanize.Comma(s.BudgetExhausted))
			fmt.Fprintf(w, "  Overruns:         %s\n", humanize.Comma(s.Overruns))
			if s.JobFailures > 0 {
				fmt.Fprintf(w, "  Job failures:     %s (%s%% of idle cycles)\n",
					humanize.Comma(s.JobFailures), humanize.FormatFloat("#,###.##", 100*metrics.FailureRate(s)))
			}
			if s.RenderCycles > 0 {
				fmt.Fprintf(w, "  Render time:      avg %s, max %s\n",
					s.AvgRenderDuration.Round(time.Microsecond), s.MaxRenderDuration.Round(time.Microsecond))
			}
			if s.IdleCycles > 0 {
				fmt.Fprintf(w, "  Idle time:        avg %s\n", s.AvgIdleDuration.Round(time.Microsecond))
			}
			if s.LastCycleAt != nil {
				fmt.Fprintf(w, "  Last cycle:       %s\n", humanize.Time(*s.LastCycleAt))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Zero the counters before showing them")
	return cmd
}
