package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price SYMBOL",
		Short: "Show the latest price for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ticker, err := a.publicClient().GetTickerPrice(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", bold(ticker.Symbol), ticker.Price.String(), faint(ticker.Time.Time().Format(time.DateTime)))
			return nil
		},
	}
}
