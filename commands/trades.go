package commands

import (
	"asterctl/client"
	"asterctl/config"
	service "asterctl/services"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newTradesCmd() *cobra.Command {
	var (
		symbol string
		limit  int
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show trade history and realized PnL statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.cfg.Account(accountID)
			if err != nil {
				return err
			}
			acct.Enabled = nil

			q := client.TradesQuery{Symbol: symbol, Limit: limit}
			if since > 0 {
				q.StartTime = time.Now().Add(-since)
			}

			svc := service.NewAccountService([]config.Account{acct}, a.accountClient, service.Options{
				Cache:  a.cache,
				Logger: a.log.With("component", "accounts"),
			})
			trades, err := svc.Trades(cmd.Context(), acct.ID, q)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTrades(w, acct, trades)
			printStats(w, trades)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "only this symbol, e.g. BTCUSDT")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of trades")
	cmd.Flags().DurationVar(&since, "since", 0, "only trades newer than this, e.g. 24h")
	return cmd
}

func printTrades(w io.Writer, acct config.Account, trades []client.Trade) {
	printHeader(w, fmt.Sprintf("%s trades", acct.DisplayName()))
	if len(trades) == 0 {
		fmt.Fprintf(w, "  %s\n", faint("no trades"))
		return
	}

	fmt.Fprintf(w, "  %-19s %-12s %-5s %14s %12s %12s\n", "TIME", "SYMBOL", "SIDE", "PRICE", "QTY", "PNL")
	for _, t := range trades {
		fmt.Fprintf(w, "  %-19s %-12s %-5s %14s %12s %12s\n",
			t.Time.Time().Format(time.DateTime), t.Symbol, sideLabel(t.Side), t.Price.String(), t.Qty.String(), pnl(t.RealizedPnl))
	}
}

func printStats(w io.Writer, trades []client.Trade) {
	stats := service.CalculateTradingStats(trades)

	ratio := stats.ProfitLossRatio.String()
	if stats.NoLosses {
		ratio = "∞"
	}

	printHeader(w, "Statistics")
	fmt.Fprintf(w, "  Trades:            %d (%d long / %d short)\n", stats.TotalTrades, stats.LongTrades, stats.ShortTrades)
	fmt.Fprintf(w, "  Win rate:          %s%% (%d won / %d lost)\n", stats.WinRate.String(), stats.WinTrades, stats.LossTrades)
	fmt.Fprintf(w, "  Total profit:      %s\n", pnl(stats.TotalProfit))
	fmt.Fprintf(w, "  Total loss:        %s\n", pnl(stats.TotalLoss.Neg()))
	fmt.Fprintf(w, "  Biggest win/loss:  %s / %s\n", pnl(stats.BiggestWin), pnl(stats.BiggestLoss))
	fmt.Fprintf(w, "  Average win/loss:  %s / %s\n", money(stats.AverageWin), money(stats.AverageLoss))
	fmt.Fprintf(w, "  Profit/loss ratio: %s\n", ratio)
	fmt.Fprintf(w, "  Commission:        %s\n", money(stats.TotalCommission))
	fmt.Fprintf(w, "  Sharpe ratio:      %.2f\n", service.SharpeRatio(trades))
	fmt.Fprintf(w, "  Max drawdown:      %s%%\n", service.MaxDrawdown(trades).String())
}
