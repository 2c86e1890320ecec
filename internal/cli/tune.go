package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/timingbelt/pkg/model"
)

func newTuneCmd() *cobra.Command {
	var (
		interval   time.Duration
		maxCycles  int
		governor   bool
		burstIdle  bool
		autorender bool
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Change belt settings on a running server",
		Long:  "Tune sends only the flags given on the command line; other settings keep their live values.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("interval") {
				ms := float64(interval) / float64(time.Millisecond)
				patch.IntervalMS = &ms
			}
			if flags.Changed("max-cycles-per-second") {
				patch.MaxCyclesPerSecond = &maxCycles
			}
			if flags.Changed("governor") {
				patch.Governor = &governor
			}
			if flags.Changed("burst-idle") {
				patch.BurstIdle = &burstIdle
			}
			if flags.Changed("autorender") {
				patch.Autorender = &autorender
			}
			if patch == (model.SettingsPatch{}) {
				return errors.New("nothing to change; pass at least one setting flag")
			}

			resp, err := client.Put(cmd.Context(), "/config", patch)
			if err != nil {
				return fmt.Errorf("update settings: %w", err)
			}
			var s model.Settings
			if err := resp.decode(&s); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Interval:              %s\n", s.Interval)
			fmt.Fprintf(w, "Governor:              %t\n", s.Governor)
			fmt.Fprintf(w, "Burst idle:            %t\n", s.BurstIdle)
			fmt.Fprintf(w, "Max cycles per second: %d\n", s.MaxCyclesPerSecond)
			fmt.Fprintf(w, "Autorender:            %t\n", s.Autorender)
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Per-cycle budget")
	cmd.Flags().IntVar(&maxCycles, "max-cycles-per-second", 0, "Frame rate limit (0 = unlimited)")
	cmd.Flags().BoolVar(&governor, "governor", false, "Throttle idle cycles closer than the interval")
	cmd.Flags().BoolVar(&burstIdle, "burst-idle", false, "Drain jobs until the budget runs out")
	cmd.Flags().BoolVar(&autorender, "autorender", false, "Request a frame after every frame")
	return cmd
}
