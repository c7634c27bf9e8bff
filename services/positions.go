package service

import (
	"asterctl/client"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// PositionView is an open position in display form.
type PositionView struct {
	Symbol        string
	Side          string
	Size          decimal.Decimal
	EntryPrice    decimal.Decimal
	MarkPrice     decimal.Decimal
	UnrealizedPnl decimal.Decimal
	Notional      decimal.Decimal
	Leverage      string
	MarginType    string
}

type PositionSummary struct {
	Positions          []PositionView
	LongCount          int
	ShortCount         int
	TotalUnrealizedPnl decimal.Decimal
}

// positionSide resolves LONG or SHORT. Hedge-mode rows carry it explicitly,
// one-way rows ("BOTH") encode it in the sign of the amount.
func positionSide(p client.Position) string {
	switch p.PositionSide {
	case SideLong, SideShort:
		return p.PositionSide
	}
	if p.PositionAmt.IsNegative() {
		return SideShort
	}
	return SideLong
}

// SummarizePositions drops flat rows and totals unrealized PnL over the rest,
// ordered by symbol.
func SummarizePositions(positions []client.Position) PositionSummary {
	summary := PositionSummary{Positions: []PositionView{}}

	for _, p := range positions {
		if p.PositionAmt.IsZero() {
			continue
		}

		view := PositionView{
			Symbol:        p.Symbol,
			Side:          positionSide(p),
			Size:          p.PositionAmt.Abs(),
			EntryPrice:    p.EntryPrice,
			MarkPrice:     p.MarkPrice,
			UnrealizedPnl: p.UnRealizedProfit,
			Notional:      p.Notional.Abs(),
			Leverage:      p.Leverage,
			MarginType:    p.MarginType,
		}
		if view.Side == SideLong {
			summary.LongCount++
		} else {
			summary.ShortCount++
		}

		summary.TotalUnrealizedPnl = summary.TotalUnrealizedPnl.Add(p.UnRealizedProfit)
		summary.Positions = append(summary.Positions, view)
	}

	sort.SliceStable(summary.Positions, func(i, j int) bool {
		return summary.Positions[i].Symbol < summary.Positions[j].Symbol
	})
	return summary
}
