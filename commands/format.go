package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

const rule = "────────────────────────────────────────────────────────────────────────"

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", bold(title))
	fmt.Fprintf(w, "  %s\n", rule)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// pnl renders a signed amount, green for gains and red for losses.
func pnl(d decimal.Decimal) string {
	s := d.StringFixed(2)
	switch {
	case d.IsPositive():
		return green("+" + s)
	case d.IsNegative():
		return red(s)
	}
	return s
}

func sideLabel(side string) string {
	switch strings.ToUpper(side) {
	case "LONG", "BUY":
		return green(side)
	case "SHORT", "SELL":
		return red(side)
	}
	return side
}
