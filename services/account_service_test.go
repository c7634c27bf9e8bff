package service

import (
	"asterctl/cache"
	"asterctl/client"
	"asterctl/config"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFutures struct {
	id     string
	err    error
	wallet string
	calls  atomic.Int32
}

func (f *fakeFutures) GetAccount(ctx context.Context) (*client.AccountInfo, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	wallet := f.wallet
	if wallet == "" {
		wallet = "1000.5"
	}
	return &client.AccountInfo{CanTrade: true, TotalWalletBalance: decimal.RequireFromString(wallet)}, nil
}

func (f *fakeFutures) GetPositions(ctx context.Context, symbol string) ([]client.Position, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []client.Position{{Symbol: "BTCUSDT", PositionAmt: decimal.RequireFromString("0.5")}}, nil
}

func (f *fakeFutures) GetBalance(ctx context.Context) ([]client.Balance, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []client.Balance{{Asset: "USDT", Balance: decimal.RequireFromString("12.5")}}, nil
}

func (f *fakeFutures) GetUserTrades(ctx context.Context, q client.TradesQuery) ([]client.Trade, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []client.Trade{{ID: 1, Symbol: q.Symbol, RealizedPnl: decimal.RequireFromString("3")}}, nil
}

func disabled() *bool {
	b := false
	return &b
}

func newTestService(t *testing.T, c cache.Cache, fakes map[string]*fakeFutures) *AccountService {
	t.Helper()
	accounts := []config.Account{
		{ID: "alpha"},
		{ID: "beta"},
		{ID: "gamma"},
		{ID: "off", Enabled: disabled()},
	}
	factory := func(acct config.Account) (FuturesAPI, error) {
		f, ok := fakes[acct.ID]
		if !ok {
			return nil, errors.New("no client")
		}
		return f, nil
	}
	return NewAccountService(accounts, factory, Options{Cache: c})
}

func TestAccountService_CachesResponses(t *testing.T) {
	alpha := &fakeFutures{id: "alpha"}
	svc := newTestService(t, cache.NewMemory(), map[string]*fakeFutures{"alpha": alpha})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		positions, err := svc.Positions(ctx, "alpha", "")
		require.NoError(t, err)
		require.Len(t, positions, 1)
		assert.True(t, positions[0].PositionAmt.Equal(decimal.RequireFromString("0.5")))
	}
	assert.Equal(t, int32(1), alpha.calls.Load())

	account, err := svc.Account(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, account.TotalWalletBalance.Equal(decimal.RequireFromString("1000.5")))
	_, err = svc.Account(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, int32(2), alpha.calls.Load())

	_, err = svc.Trades(ctx, "alpha", client.TradesQuery{Symbol: "BTCUSDT", Limit: 10})
	require.NoError(t, err)
	_, err = svc.Trades(ctx, "alpha", client.TradesQuery{Symbol: "ETHUSDT", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(4), alpha.calls.Load(), "different queries use different keys")
}

func TestAccountService_SharedCacheSeparatesUsers(t *testing.T) {
	shared := cache.NewMemory()
	ctx := context.Background()

	newService := func(user string, f *fakeFutures) *AccountService {
		accounts := []config.Account{{ID: "default", UserAddress: user}}
		return NewAccountService(accounts, func(config.Account) (FuturesAPI, error) { return f, nil }, Options{Cache: shared})
	}
	alice := &fakeFutures{wallet: "100"}
	bob := &fakeFutures{wallet: "250"}
	aliceSvc := newService("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", alice)
	bobSvc := newService("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", bob)

	a, err := aliceSvc.Account(ctx, "default")
	require.NoError(t, err)
	b, err := bobSvc.Account(ctx, "default")
	require.NoError(t, err)

	assert.Equal(t, "100", a.TotalWalletBalance.String())
	assert.Equal(t, "250", b.TotalWalletBalance.String())
	assert.Equal(t, int32(1), bob.calls.Load())

	_, err = aliceSvc.Balance(ctx, "default")
	require.NoError(t, err)
	_, err = bobSvc.Balance(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int32(2), bob.calls.Load())

	// Address case does not split the cache for the same user.
	again := newService("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", &fakeFutures{wallet: "999"})
	cachedAlice, err := again.Account(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "100", cachedAlice.TotalWalletBalance.String())
}

func TestAccountService_ErrorsAreNotCached(t *testing.T) {
	alpha := &fakeFutures{id: "alpha", err: errors.New("boom")}
	svc := newTestService(t, cache.NewMemory(), map[string]*fakeFutures{"alpha": alpha})
	ctx := context.Background()

	_, err := svc.Balance(ctx, "alpha")
	assert.EqualError(t, err, "boom")

	alpha.err = nil
	balances, err := svc.Balance(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, int32(2), alpha.calls.Load())
}

func TestAccountService_NopCacheAlwaysFetches(t *testing.T) {
	alpha := &fakeFutures{id: "alpha"}
	svc := newTestService(t, nil, map[string]*fakeFutures{"alpha": alpha})

	for i := 0; i < 2; i++ {
		_, err := svc.Balance(context.Background(), "alpha")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), alpha.calls.Load())
}

func TestAccountService_UnknownAccount(t *testing.T) {
	svc := newTestService(t, nil, map[string]*fakeFutures{})

	_, err := svc.Account(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.Account(context.Background(), "alpha")
	assert.ErrorContains(t, err, "no client")
}

func TestAllAccounts_Settled(t *testing.T) {
	fakes := map[string]*fakeFutures{
		"alpha": {id: "alpha"},
		"beta":  {id: "beta", err: errors.New("signature rejected")},
		"gamma": {id: "gamma"},
		"off":   {id: "off"},
	}
	svc := newTestService(t, cache.NewMemory(), fakes)

	settled, err := AllAccounts(context.Background(), svc, svc.Balance)
	require.NoError(t, err)

	require.Len(t, settled.Succeeded, 2)
	assert.Equal(t, "alpha", settled.Succeeded[0].Account.ID)
	assert.Equal(t, "gamma", settled.Succeeded[1].Account.ID)
	assert.Equal(t, "USDT", settled.Succeeded[0].Value[0].Asset)

	require.Len(t, settled.Failed, 1)
	assert.Equal(t, "beta", settled.Failed[0].Account.ID)
	assert.EqualError(t, settled.Failed[0].Err, "signature rejected")

	assert.Equal(t, int32(0), fakes["off"].calls.Load(), "disabled accounts are skipped")
}

func TestAllAccounts_RunsConcurrently(t *testing.T) {
	svc := NewAccountService([]config.Account{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil, Options{})

	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	settled, err := AllAccounts(context.Background(), svc, func(ctx context.Context, id string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return id, nil
	})
	require.NoError(t, err)
	assert.Len(t, settled.Succeeded, 3)
	assert.Equal(t, int32(3), peak.Load())
}

func TestAllAccounts_NoEnabledAccounts(t *testing.T) {
	svc := NewAccountService([]config.Account{{ID: "off", Enabled: disabled()}}, nil, Options{})

	_, err := AllAccounts(context.Background(), svc, func(ctx context.Context, id string) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, config.ErrNoAccounts)
}
