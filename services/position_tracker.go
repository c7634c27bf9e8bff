package service

import (
	"asterctl/client"
	"asterctl/logger"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// TrackedPosition is an open position revalued at the latest mark price.
type TrackedPosition struct {
	Symbol        string
	Side          string
	Amount        decimal.Decimal // signed, negative for shorts
	EntryPrice    decimal.Decimal
	MarkPrice     decimal.Decimal
	UnrealizedPnl decimal.Decimal
	UpdatedAt     time.Time
}

func (p *TrackedPosition) revalue(mark decimal.Decimal, at time.Time) {
	p.MarkPrice = mark
	p.UnrealizedPnl = p.Amount.Mul(mark.Sub(p.EntryPrice))
	p.UpdatedAt = at
}

// PositionTracker keeps a live view of open positions fed by mark price events.
type PositionTracker struct {
	positions map[string][]*TrackedPosition

	logger *logger.Logger

	updates int

	mu sync.RWMutex
}

func NewPositionTracker(log *logger.Logger) *PositionTracker {
	if log == nil {
		log = logger.Nop()
	}
	return &PositionTracker{
		positions: make(map[string][]*TrackedPosition),
		logger:    log,
	}
}

// Load replaces the tracked set with the open positions in rows.
func (pt *PositionTracker) Load(rows []client.Position) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.positions = make(map[string][]*TrackedPosition)
	for _, p := range rows {
		if p.PositionAmt.IsZero() {
			continue
		}
		pt.positions[p.Symbol] = append(pt.positions[p.Symbol], &TrackedPosition{
			Symbol:        p.Symbol,
			Side:          positionSide(p),
			Amount:        p.PositionAmt,
			EntryPrice:    p.EntryPrice,
			MarkPrice:     p.MarkPrice,
			UnrealizedPnl: p.UnRealizedProfit,
			UpdatedAt:     p.UpdateTime.Time(),
		})
	}

	pt.logger.Info("positions_loaded", "symbols", len(pt.positions))
}

// OnMarkPrice revalues every position in the event's symbol. It reports
// whether anything was tracked for that symbol.
func (pt *PositionTracker) OnMarkPrice(e client.MarkPriceEvent) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	tracked, ok := pt.positions[e.Symbol]
	if !ok {
		return false
	}

	at := e.EventTime.Time()
	if at.IsZero() {
		at = time.Now()
	}
	for _, p := range tracked {
		p.revalue(e.MarkPrice, at)
	}
	pt.updates++
	return true
}

// Symbols lists tracked symbols in order.
func (pt *PositionTracker) Symbols() []string {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	symbols := make([]string, 0, len(pt.positions))
	for s := range pt.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// GetAll returns copies of every tracked position ordered by symbol.
func (pt *PositionTracker) GetAll() []TrackedPosition {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	all := make([]TrackedPosition, 0, len(pt.positions))
	for _, tracked := range pt.positions {
		for _, p := range tracked {
			all = append(all, *p)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Symbol != all[j].Symbol {
			return all[i].Symbol < all[j].Symbol
		}
		return all[i].Side < all[j].Side
	})
	return all
}

func (pt *PositionTracker) GetStats() (positions, updates int, totalPnl decimal.Decimal) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	for _, tracked := range pt.positions {
		for _, p := range tracked {
			positions++
			totalPnl = totalPnl.Add(p.UnrealizedPnl)
		}
	}
	updates = pt.updates
	return
}
