package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://fapi.asterdex.com"

// FuturesClient talks to the futures REST API. Account endpoints are signed
// with the configured AuthProvider; market endpoints are public.
type FuturesClient struct {
	*Client
}

func NewFuturesClient(baseUrl string, opts Options) *FuturesClient {
	if baseUrl == "" {
		baseUrl = DefaultBaseURL
	}
	return &FuturesClient{
		Client: NewClient(strings.TrimRight(baseUrl, "/"), opts),
	}
}

// GetPositions returns position risk for every symbol, or only symbol when set.
func (c *FuturesClient) GetPositions(ctx context.Context, symbol string) ([]Position, error) {
	endpoint := "/fapi/v3/positionRisk"
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	var response []Position
	if err := c.Client.signedGet(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *FuturesClient) GetAccount(ctx context.Context) (*AccountInfo, error) {
	endpoint := "/fapi/v3/account"

	response := &AccountInfo{}
	if err := c.Client.signedGet(ctx, endpoint, url.Values{}, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *FuturesClient) GetBalance(ctx context.Context) ([]Balance, error) {
	endpoint := "/fapi/v3/balance"

	var response []Balance
	if err := c.Client.signedGet(ctx, endpoint, url.Values{}, &response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *FuturesClient) GetUserTrades(ctx context.Context, q TradesQuery) ([]Trade, error) {
	endpoint := "/fapi/v3/userTrades"
	params := url.Values{}
	if q.Symbol != "" {
		params.Set("symbol", q.Symbol)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.StartTime.IsZero() {
		params.Set("startTime", strconv.FormatInt(q.StartTime.UnixMilli(), 10))
	}
	if !q.EndTime.IsZero() {
		params.Set("endTime", strconv.FormatInt(q.EndTime.UnixMilli(), 10))
	}
	if q.FromID > 0 {
		params.Set("fromId", strconv.FormatInt(q.FromID, 10))
	}

	var response []Trade
	if err := c.Client.signedGet(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *FuturesClient) GetTickerPrice(ctx context.Context, symbol string) (*TickerPrice, error) {
	endpoint := "/fapi/v3/ticker/price"
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))

	response := &TickerPrice{}
	if err := c.Client.get(ctx, endpoint, params, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *FuturesClient) Ping(ctx context.Context) error {
	return c.Client.get(ctx, "/fapi/v1/ping", nil, nil)
}

// GetAverageLatency pings the API numRequests times and averages the
// successful round trips.
func (c *FuturesClient) GetAverageLatency(ctx context.Context, numRequests int) (time.Duration, error) {
	if numRequests <= 0 {
		numRequests = 5
	}

	var totalLatency time.Duration
	successfulRequests := 0

	for i := 0; i < numRequests; i++ {
		start := time.Now()

		if err := c.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			continue
		}

		totalLatency += time.Since(start)
		successfulRequests++

		if i < numRequests-1 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	if successfulRequests == 0 {
		return 0, fmt.Errorf("all latency test requests failed")
	}

	return totalLatency / time.Duration(successfulRequests), nil
}
