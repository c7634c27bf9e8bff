package client

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnixMillis is a millisecond epoch timestamp, encoded either as a number or
// as a quoted number.
type UnixMillis time.Time

// =============================
// REST Types
// =============================

type Position struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	UnRealizedProfit decimal.Decimal `json:"unRealizedProfit"`
	LiquidationPrice decimal.Decimal `json:"liquidationPrice"`
	Leverage         string          `json:"leverage"`
	MaxNotionalValue decimal.Decimal `json:"maxNotionalValue"`
	MarginType       string          `json:"marginType"`
	IsolatedMargin   decimal.Decimal `json:"isolatedMargin"`
	PositionSide     string          `json:"positionSide"` // BOTH, LONG or SHORT
	Notional         decimal.Decimal `json:"notional"`
	UpdateTime       UnixMillis      `json:"updateTime"`
}

type AccountAsset struct {
	Asset                  string          `json:"asset"`
	WalletBalance          decimal.Decimal `json:"walletBalance"`
	UnrealizedProfit       decimal.Decimal `json:"unrealizedProfit"`
	MarginBalance          decimal.Decimal `json:"marginBalance"`
	MaintMargin            decimal.Decimal `json:"maintMargin"`
	InitialMargin          decimal.Decimal `json:"initialMargin"`
	PositionInitialMargin  decimal.Decimal `json:"positionInitialMargin"`
	OpenOrderInitialMargin decimal.Decimal `json:"openOrderInitialMargin"`
	CrossWalletBalance     decimal.Decimal `json:"crossWalletBalance"`
	CrossUnPnl             decimal.Decimal `json:"crossUnPnl"`
	AvailableBalance       decimal.Decimal `json:"availableBalance"`
	MaxWithdrawAmount      decimal.Decimal `json:"maxWithdrawAmount"`
	MarginAvailable        bool            `json:"marginAvailable"`
	UpdateTime             UnixMillis      `json:"updateTime"`
}

type AccountPosition struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	InitialMargin    decimal.Decimal `json:"initialMargin"`
	MaintMargin      decimal.Decimal `json:"maintMargin"`
	Leverage         string          `json:"leverage"`
	Isolated         bool            `json:"isolated"`
	PositionSide     string          `json:"positionSide"`
	UpdateTime       UnixMillis      `json:"updateTime"`
}

type AccountInfo struct {
	FeeTier                     int               `json:"feeTier"`
	CanTrade                    bool              `json:"canTrade"`
	CanDeposit                  bool              `json:"canDeposit"`
	CanWithdraw                 bool              `json:"canWithdraw"`
	TotalInitialMargin          decimal.Decimal   `json:"totalInitialMargin"`
	TotalMaintMargin            decimal.Decimal   `json:"totalMaintMargin"`
	TotalWalletBalance          decimal.Decimal   `json:"totalWalletBalance"`
	TotalUnrealizedProfit       decimal.Decimal   `json:"totalUnrealizedProfit"`
	TotalMarginBalance          decimal.Decimal   `json:"totalMarginBalance"`
	TotalPositionInitialMargin  decimal.Decimal   `json:"totalPositionInitialMargin"`
	TotalOpenOrderInitialMargin decimal.Decimal   `json:"totalOpenOrderInitialMargin"`
	TotalCrossWalletBalance     decimal.Decimal   `json:"totalCrossWalletBalance"`
	TotalCrossUnPnl             decimal.Decimal   `json:"totalCrossUnPnl"`
	AvailableBalance            decimal.Decimal   `json:"availableBalance"`
	MaxWithdrawAmount           decimal.Decimal   `json:"maxWithdrawAmount"`
	Assets                      []AccountAsset    `json:"assets"`
	Positions                   []AccountPosition `json:"positions"`
	UpdateTime                  UnixMillis        `json:"updateTime"`
}

type Balance struct {
	AccountAlias       string          `json:"accountAlias"`
	Asset              string          `json:"asset"`
	Balance            decimal.Decimal `json:"balance"`
	CrossWalletBalance decimal.Decimal `json:"crossWalletBalance"`
	CrossUnPnl         decimal.Decimal `json:"crossUnPnl"`
	AvailableBalance   decimal.Decimal `json:"availableBalance"`
	MaxWithdrawAmount  decimal.Decimal `json:"maxWithdrawAmount"`
	MarginAvailable    bool            `json:"marginAvailable"`
	UpdateTime         UnixMillis      `json:"updateTime"`
}

type Trade struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"orderId"`
	Symbol          string          `json:"symbol"`
	Side            string          `json:"side"` // BUY or SELL
	PositionSide    string          `json:"positionSide"`
	Price           decimal.Decimal `json:"price"`
	Qty             decimal.Decimal `json:"qty"`
	QuoteQty        decimal.Decimal `json:"quoteQty"`
	RealizedPnl     decimal.Decimal `json:"realizedPnl"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commissionAsset"`
	Buyer           bool            `json:"buyer"`
	Maker           bool            `json:"maker"`
	Time            UnixMillis      `json:"time"`
}

type TickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   UnixMillis      `json:"time"`
}

// TradesQuery filters /userTrades. Zero fields are omitted.
type TradesQuery struct {
	Symbol    string
	Limit     int
	StartTime time.Time
	EndTime   time.Time
	FromID    int64
}

// =============================
// WebSocket Types
// =============================

type WSSubscribeMessage struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// WSMessage peeks at the event type. EventTime is declared so the "E" key
// does not fall back to the case-insensitive match on "e".
type WSMessage struct {
	EventType string          `json:"e"`
	EventTime json.RawMessage `json:"E"`
}

type MarkPriceEvent struct {
	EventType            string          `json:"e"` // "markPriceUpdate"
	EventTime            UnixMillis      `json:"E"`
	Symbol               string          `json:"s"`
	MarkPrice            decimal.Decimal `json:"p"`
	IndexPrice           decimal.Decimal `json:"i"`
	EstimatedSettlePrice decimal.Decimal `json:"P"`
	FundingRate          decimal.Decimal `json:"r"`
	NextFundingTime      UnixMillis      `json:"T"`
}

// =============================
// JSON Unmarshal Methods
// =============================

func (ut *UnixMillis) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	if ms == 0 {
		*ut = UnixMillis{}
		return nil
	}
	*ut = UnixMillis(time.UnixMilli(ms))
	return nil
}

func (ut UnixMillis) MarshalJSON() ([]byte, error) {
	if ut.Time().IsZero() {
		return []byte("0"), nil
	}
	return []byte(strconv.FormatInt(ut.Time().UnixMilli(), 10)), nil
}

func (ut UnixMillis) Time() time.Time {
	return time.Time(ut)
}
