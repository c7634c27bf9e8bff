package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const highLatency = 600 * time.Millisecond

func newPingCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Measure average API latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.log.Info("testing_latency", "url", a.cfg.Settings.BaseURL, "requests", count)

			latency, err := a.publicClient().GetAverageLatency(cmd.Context(), count)
			if err != nil {
				return fmt.Errorf("failed to get latency: %w", err)
			}

			label := green(latency.Round(time.Millisecond).String())
			if latency > highLatency {
				label = yellow(latency.Round(time.Millisecond).String())
				a.log.Warn("latency_high", "latency", latency)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "average latency: %s\n", label)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of pings")
	return cmd
}
