package commands

import (
	"asterctl/client"
	"asterctl/config"
	service "asterctl/services"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newBalanceCmd() *cobra.Command {
	var showZero bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show per-asset balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			return forEachAccount(cmd, a, func(ctx context.Context, svc *service.AccountService, id string) ([]client.Balance, error) {
				return svc.Balance(ctx, id)
			}, func(acct config.Account, balances []client.Balance) {
				printHeader(w, fmt.Sprintf("%s balances", acct.DisplayName()))
				fmt.Fprintf(w, "  %-8s %16s %16s %14s\n", "ASSET", "BALANCE", "AVAILABLE", "UNREALIZED")
				for _, b := range balances {
					if b.Balance.IsZero() && !showZero {
						continue
					}
					fmt.Fprintf(w, "  %-8s %16s %16s %14s\n", b.Asset, b.Balance.String(), b.AvailableBalance.String(), pnl(b.CrossUnPnl))
				}
			})
		},
	}

	cmd.Flags().BoolVar(&showZero, "all", false, "include assets with a zero balance")
	return cmd
}
