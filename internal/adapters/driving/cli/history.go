package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policywatch/internal/logger"
)

var (
	historyLimit int
	historyTicks bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent monitoring events",
	Long: `Show how recently detected additions and removals were handled, or with
--ticks the outcome of recent polling ticks.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyTicks, "ticks", false, "show polling ticks instead of events")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	events, closeEvents, err := newEventStore(subDir("data"))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() {
		if err := closeEvents(); err != nil {
			logger.Warn("history: close: %v", err)
		}
	}()

	out := cmd.OutOrStdout()

	if historyTicks {
		ticks, err := events.RecentTicks(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("read ticks: %w", err)
		}
		if len(ticks) == 0 {
			cmd.Println("No ticks recorded.")
			return nil
		}
		cmd.Println(styled(out, headingStyle, "Recent ticks:"))
		for _, t := range ticks {
			cmd.Printf("  %s  +%d -%d  failures=%d conflicts=%d  (%s)\n",
				t.StartedAt.Local().Format(time.DateTime), t.Added, t.Removed,
				t.Failures, t.Conflicts, t.EndedAt.Sub(t.StartedAt).Round(time.Millisecond))
		}
		return nil
	}

	outcomes, err := events.RecentEvents(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	if len(outcomes) == 0 {
		cmd.Println("No events recorded.")
		return nil
	}

	cmd.Println(styled(out, headingStyle, "Recent events:"))
	for i := range outcomes {
		o := &outcomes[i]
		status := styled(out, okStyle, "ok")
		if !o.Success {
			status = styled(out, warnStyle, "failed")
		}
		cmd.Printf("  %s  %-7s %s/%s  %s\n",
			o.Event.DetectedAt.Local().Format(time.DateTime), o.Event.Type,
			o.Event.Collection, o.Event.Key, status)
		if o.Error != "" {
			cmd.Printf("      %s\n", styled(out, dimStyle, o.Error))
		}
		if len(o.Conflicts) > 0 {
			cmd.Printf("      conflicts with: %s\n", strings.Join(o.Conflicts, ", "))
		}
	}
	return nil
}
