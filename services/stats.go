package service

import (
	"asterctl/client"
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// round2 rounds to two places with ties going towards positive infinity, so
// -1.005 becomes -1 and 1.005 becomes 1.01.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(half).Floor().Shift(-2)
}

// TradingStats summarises realized PnL over a trade history. Money values are
// rounded to two places, WinRate is a percentage.
type TradingStats struct {
	TotalTrades     int
	WinTrades       int
	LossTrades      int
	LongTrades      int
	ShortTrades     int
	WinRate         decimal.Decimal
	BiggestWin      decimal.Decimal
	BiggestLoss     decimal.Decimal // negative or zero
	TotalProfit     decimal.Decimal
	TotalLoss       decimal.Decimal // absolute
	AverageWin      decimal.Decimal
	AverageLoss     decimal.Decimal // absolute
	ProfitLossRatio decimal.Decimal
	// NoLosses is set when there were profits and no losses, so the ratio is unbounded.
	NoLosses        bool
	TotalCommission decimal.Decimal
}

// CalculateTradingStats counts BUY fills as long and SELL fills as short.
// Fills with zero realized PnL count towards the total only.
func CalculateTradingStats(trades []client.Trade) TradingStats {
	var stats TradingStats
	if len(trades) == 0 {
		return stats
	}

	stats.TotalTrades = len(trades)
	for _, t := range trades {
		pnl := t.RealizedPnl
		switch {
		case pnl.IsPositive():
			stats.WinTrades++
			stats.TotalProfit = stats.TotalProfit.Add(pnl)
			if pnl.GreaterThan(stats.BiggestWin) {
				stats.BiggestWin = pnl
			}
		case pnl.IsNegative():
			stats.LossTrades++
			stats.TotalLoss = stats.TotalLoss.Add(pnl.Abs())
			if pnl.LessThan(stats.BiggestLoss) {
				stats.BiggestLoss = pnl
			}
		}

		switch t.Side {
		case "BUY":
			stats.LongTrades++
		case "SELL":
			stats.ShortTrades++
		}

		stats.TotalCommission = stats.TotalCommission.Add(t.Commission)
	}

	stats.WinRate = decimal.NewFromInt(int64(stats.WinTrades)).Mul(hundred).Div(decimal.NewFromInt(int64(stats.TotalTrades)))
	if stats.WinTrades > 0 {
		stats.AverageWin = stats.TotalProfit.Div(decimal.NewFromInt(int64(stats.WinTrades)))
	}
	if stats.LossTrades > 0 {
		stats.AverageLoss = stats.TotalLoss.Div(decimal.NewFromInt(int64(stats.LossTrades)))
	}
	switch {
	case stats.TotalLoss.IsPositive():
		stats.ProfitLossRatio = stats.TotalProfit.Div(stats.TotalLoss)
	case stats.TotalProfit.IsPositive():
		stats.NoLosses = true
	}

	stats.WinRate = round2(stats.WinRate)
	stats.BiggestWin = round2(stats.BiggestWin)
	stats.BiggestLoss = round2(stats.BiggestLoss)
	stats.TotalProfit = round2(stats.TotalProfit)
	stats.TotalLoss = round2(stats.TotalLoss)
	stats.AverageWin = round2(stats.AverageWin)
	stats.AverageLoss = round2(stats.AverageLoss)
	stats.ProfitLossRatio = round2(stats.ProfitLossRatio)
	stats.TotalCommission = round2(stats.TotalCommission)
	return stats
}

// SharpeRatio is mean realized PnL over its sample standard deviation, with a
// zero risk-free rate.
func SharpeRatio(trades []client.Trade) float64 {
	if len(trades) < 2 {
		return 0
	}

	n := decimal.NewFromInt(int64(len(trades)))
	sum := decimal.Zero
	for _, t := range trades {
		sum = sum.Add(t.RealizedPnl)
	}
	mean := sum.Div(n)

	variance := decimal.Zero
	for _, t := range trades {
		d := t.RealizedPnl.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}
	variance = variance.Div(n.Sub(decimal.NewFromInt(1)))

	stdDev := math.Sqrt(variance.InexactFloat64())
	if stdDev == 0 {
		return 0
	}
	return math.Floor(mean.InexactFloat64()/stdDev*100+0.5) / 100
}

// MaxDrawdown is the largest fall of cumulative realized PnL from its running
// peak, as a percentage of that peak.
func MaxDrawdown(trades []client.Trade) decimal.Decimal {
	cumulative := decimal.Zero
	peak := decimal.Zero
	maxDrawdown := decimal.Zero

	for _, t := range trades {
		cumulative = cumulative.Add(t.RealizedPnl)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if !peak.IsPositive() {
			continue
		}
		drawdown := peak.Sub(cumulative).Div(peak).Mul(hundred)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}
	return round2(maxDrawdown)
}
