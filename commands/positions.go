package commands

import (
	"asterctl/client"
	"asterctl/config"
	service "asterctl/services"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPositionsCmd() *cobra.Command {
	var (
		symbol   string
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Show open positions and unrealized PnL",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if watch {
				return watchPositions(cmd, a, symbol, interval)
			}

			w := cmd.OutOrStdout()
			return forEachAccount(cmd, a, func(ctx context.Context, svc *service.AccountService, id string) (service.PositionSummary, error) {
				rows, err := svc.Positions(ctx, id, symbol)
				if err != nil {
					return service.PositionSummary{}, err
				}
				return service.SummarizePositions(rows), nil
			}, func(acct config.Account, summary service.PositionSummary) {
				printPositions(w, acct, summary)
			})
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "only this symbol, e.g. BTCUSDT")
	cmd.Flags().BoolVar(&watch, "watch", false, "stream mark prices and refresh unrealized PnL")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval with --watch")
	return cmd
}

func printPositions(w io.Writer, acct config.Account, summary service.PositionSummary) {
	printHeader(w, fmt.Sprintf("%s positions", acct.DisplayName()))
	if len(summary.Positions) == 0 {
		fmt.Fprintf(w, "  %s\n", faint("no open positions"))
		return
	}

	fmt.Fprintf(w, "  %-12s %-6s %14s %14s %14s %14s %6s\n", "SYMBOL", "SIDE", "SIZE", "ENTRY", "MARK", "PNL", "LEV")
	for _, p := range summary.Positions {
		fmt.Fprintf(w, "  %-12s %-6s %14s %14s %14s %14s %6s\n",
			p.Symbol, sideLabel(p.Side), p.Size.String(), p.EntryPrice.String(), p.MarkPrice.String(), pnl(p.UnrealizedPnl), p.Leverage+"x")
	}
	fmt.Fprintf(w, "  %s\n", rule)
	fmt.Fprintf(w, "  Long: %d  Short: %d  Unrealized PnL: %s\n", summary.LongCount, summary.ShortCount, pnl(summary.TotalUnrealizedPnl))
}

func printTracked(w io.Writer, name string, positions []service.TrackedPosition, at time.Time) {
	printHeader(w, fmt.Sprintf("%s live positions  %s", name, faint(at.Format(time.TimeOnly))))

	total := decimal.Zero
	fmt.Fprintf(w, "  %-12s %-6s %14s %14s %14s %14s\n", "SYMBOL", "SIDE", "AMOUNT", "ENTRY", "MARK", "PNL")
	for _, p := range positions {
		fmt.Fprintf(w, "  %-12s %-6s %14s %14s %14s %14s\n",
			p.Symbol, sideLabel(p.Side), p.Amount.Abs().String(), p.EntryPrice.String(), p.MarkPrice.String(), pnl(p.UnrealizedPnl))
		total = total.Add(p.UnrealizedPnl)
	}
	fmt.Fprintf(w, "  %s\n", rule)
	fmt.Fprintf(w, "  Unrealized PnL: %s\n", pnl(total))
}

// watchPositions loads one account's positions, then revalues them from the
// mark price stream until interrupted.
func watchPositions(cmd *cobra.Command, a *app, symbol string, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	acct, err := a.cfg.Account(accountID)
	if err != nil {
		return err
	}
	api, err := a.accountClient(acct)
	if err != nil {
		return err
	}
	rows, err := api.GetPositions(ctx, symbol)
	if err != nil {
		return fmt.Errorf("loading positions: %w", err)
	}

	tracker := service.NewPositionTracker(a.log.With("component", "tracker"))
	tracker.Load(rows)

	w := cmd.OutOrStdout()
	symbols := tracker.Symbols()
	if len(symbols) == 0 {
		printPositions(w, acct, service.SummarizePositions(nil))
		return nil
	}

	ws := client.NewWSMarketClient(a.cfg.Settings.WSURL, client.WSMarketCallbacks{
		OnMarkPrice: func(e client.MarkPriceEvent) { tracker.OnMarkPrice(e) },
	}, a.log.With("component", "ws"))
	if err := ws.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to market stream: %w", err)
	}
	defer ws.Close()

	if err := ws.SubscribeMarkPrice(symbols); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- ws.Listen(ctx) }()

	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	printTracked(w, acct.DisplayName(), tracker.GetAll(), time.Now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("market stream: %w", err)
		case now := <-ticker.C:
			printTracked(w, acct.DisplayName(), tracker.GetAll(), now)
		}
	}
}
