package commands

import (
	"asterctl/client"
	"asterctl/config"
	service "asterctl/services"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show wallet and margin balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			return forEachAccount(cmd, a, func(ctx context.Context, svc *service.AccountService, id string) (*client.AccountInfo, error) {
				return svc.Account(ctx, id)
			}, func(acct config.Account, info *client.AccountInfo) {
				printHeader(w, fmt.Sprintf("%s account", acct.DisplayName()))
				fmt.Fprintf(w, "  Wallet balance:    %s\n", money(info.TotalWalletBalance))
				fmt.Fprintf(w, "  Margin balance:    %s\n", money(info.TotalMarginBalance))
				fmt.Fprintf(w, "  Available:         %s\n", money(info.AvailableBalance))
				fmt.Fprintf(w, "  Unrealized PnL:    %s\n", pnl(info.TotalUnrealizedProfit))
				fmt.Fprintf(w, "  Initial margin:    %s\n", money(info.TotalInitialMargin))
				fmt.Fprintf(w, "  Maint. margin:     %s\n", money(info.TotalMaintMargin))
				fmt.Fprintf(w, "  Can trade:         %t\n", info.CanTrade)
				fmt.Fprintf(w, "  User:              %s\n", faint(acct.UserAddress))
			})
		},
	}
}
