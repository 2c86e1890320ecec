package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/timingbelt/pkg/model"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and queue synthetic jobs on a running server",
	}
	cmd.AddCommand(newJobsListCmd(), newJobsAddCmd(), newJobsCancelCmd())
	return cmd
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued and recently finished jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get(cmd.Context(), "/jobs", nil)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			var jobs []model.JobInfo
			if err := resp.decode(&jobs); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(w, "No jobs.")
				return nil
			}
			fmt.Fprintf(w, "%-12s  %-20s  %-9s  %-7s  %s\n", "ID", "NAME", "STATE", "STEPS", "QUEUED")
			fmt.Fprintf(w, "%-12s  %-20s  %-9s  %-7s  %s\n", "--", "----", "-----", "-----", "------")
			for _, j := range jobs {
				fmt.Fprintf(w, "%-12s  %-20s  %-9s  %-7s  %s\n",
					j.ID, j.Name, j.State, fmt.Sprintf("%d/%d", j.StepsRun, j.Steps), humanize.Time(j.QueuedAt))
				if j.Error != "" {
					fmt.Fprintf(w, "    error: %s\n", j.Error)
				}
			}
			return nil
		},
	}
}

func newJobsAddCmd() *cobra.Command {
	var req model.JobRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a synthetic job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post(cmd.Context(), "/jobs", req)
			if err != nil {
				return fmt.Errorf("queue job: %w", err)
			}
			var job model.JobInfo
			if err := resp.decode(&job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job queued: %s (%s, %d steps)\n", job.ID, job.Name, job.Steps)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Job name (default: its id)")
	cmd.Flags().IntVar(&req.Steps, "steps", 1, "Number of steps")
	cmd.Flags().Float64Var(&req.StepCostMS, "step-cost-ms", 0, "Simulated cost of each step in milliseconds")
	cmd.Flags().IntVar(&req.FailAt, "fail-at", 0, "Fail at this step (0 never fails)")
	return cmd
}

func newJobsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job_id>",
		Short: "Cancel a queued job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Delete(cmd.Context(), "/jobs/"+args[0])
			if err != nil {
				return fmt.Errorf("cancel job: %w", err)
			}
			var job model.JobInfo
			if err := resp.decode(&job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s: %s after %d of %d steps\n", job.ID, job.State, job.StepsRun, job.Steps)
			return nil
		},
	}
}
