package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/timingbelt/pkg/model"
)

func newCyclesCmd() *cobra.Command {
	var (
		kind    string
		session string
		limit   int
		offset  int
	)

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List recorded cycle traces, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if kind != "" {
				q.Set("kind", kind)
			}
			if session != "" {
				q.Set("session", session)
			}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			resp, err := client.Get(cmd.Context(), "/cycles", q)
			if err != nil {
				return fmt.Errorf("list cycles: %w", err)
			}
			var cycles []model.CycleTrace
			if err := resp.decode(&cycles); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(cycles) == 0 {
				fmt.Fprintln(w, "No cycles recorded.")
				return nil
			}

			fmt.Fprintf(w, "%-14s  %-6s  %-16s  %-10s  %-8s  %s\n", "ID", "KIND", "STARTED", "DURATION", "WORK", "NOTES")
			fmt.Fprintf(w, "%-14s  %-6s  %-16s  %-10s  %-8s  %s\n", "--", "----", "-------", "--------", "----", "-----")
			for _, c := range cycles {
				fmt.Fprintf(w, "%-14s  %-6s  %-16s  %-10s  %-8s  %s\n",
					c.ID, c.Kind, humanize.Time(c.StartedAt), c.Duration.Round(time.Microsecond), work(c), notes(c))
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Fprintf(w, "\n(%d of %s shown)\n", len(cycles), humanize.Comma(int64(resp.Pagination.Total)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only show render or idle cycles")
	cmd.Flags().StringVar(&session, "session", "", "Only show cycles from this session")
	cmd.Flags().IntVar(&limit, "limit", model.DefaultListLimit, fmt.Sprintf("Maximum cycles to show (max %d)", model.MaxListLimit))
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many cycles")
	return cmd
}

// work is the renderables visited by a frame cycle or the steps run by an
// idle cycle.
func work(c model.CycleTrace) string {
	if c.Kind == model.CycleKindIdle {
		return fmt.Sprintf("%d steps", c.JobsStepped)
	}
	return fmt.Sprintf("%d/%d", c.Visited, c.Renderables)
}

func notes(c model.CycleTrace) string {
	var out []string
	if c.RateLimited {
		out = append(out, "rate-limited")
	}
	if c.Throttled {
		out = append(out, "throttled")
	}
	if c.BudgetExhausted {
		out = append(out, "budget")
	}
	if c.Overran() {
		out = append(out, "overrun")
	}
	if c.Error != "" {
		out = append(out, "error: "+c.Error)
	}
	return strings.Join(out, ",")
}
