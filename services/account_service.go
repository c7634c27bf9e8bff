package service

import (
	"asterctl/cache"
	"asterctl/client"
	"asterctl/config"
	"asterctl/logger"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrAccountNotFound = errors.New("account not found")

// FuturesAPI is the part of the futures client the service needs.
type FuturesAPI interface {
	GetAccount(ctx context.Context) (*client.AccountInfo, error)
	GetPositions(ctx context.Context, symbol string) ([]client.Position, error)
	GetBalance(ctx context.Context) ([]client.Balance, error)
	GetUserTrades(ctx context.Context, q client.TradesQuery) ([]client.Trade, error)
}

// ClientFactory builds an authenticated client for one account.
type ClientFactory func(acct config.Account) (FuturesAPI, error)

type TTLs struct {
	Account   time.Duration
	Positions time.Duration
	Balance   time.Duration
	Trades    time.Duration
}

var DefaultTTLs = TTLs{
	Account:   15 * time.Second,
	Positions: 20 * time.Second,
	Balance:   15 * time.Second,
	Trades:    60 * time.Second,
}

type Options struct {
	Cache  cache.Cache
	TTLs   TTLs
	Logger *logger.Logger
	// MaxConcurrency bounds AllAccounts fan-out. Zero means one request per account at once.
	MaxConcurrency int
}

// AccountService reads account data for configured accounts, caching each
// response for a short time.
type AccountService struct {
	accounts  []config.Account
	newClient ClientFactory
	cache     cache.Cache
	ttl       TTLs
	log       *logger.Logger
	limit     int

	mu      sync.Mutex
	clients map[string]FuturesAPI
}

func NewAccountService(accounts []config.Account, newClient ClientFactory, opts Options) *AccountService {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.TTLs == (TTLs{}) {
		opts.TTLs = DefaultTTLs
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = len(accounts)
	}

	return &AccountService{
		accounts:  accounts,
		newClient: newClient,
		cache:     opts.Cache,
		ttl:       opts.TTLs,
		log:       opts.Logger,
		limit:     opts.MaxConcurrency,
		clients:   make(map[string]FuturesAPI),
	}
}

func (s *AccountService) Accounts() []config.Account {
	return s.accounts
}

func (s *AccountService) findAccount(id string) (config.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return config.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
}

func (s *AccountService) client(id string) (FuturesAPI, config.Account, error) {
	acct, err := s.findAccount(id)
	if err != nil {
		return nil, acct, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[id]; ok {
		return c, acct, nil
	}
	c, err := s.newClient(acct)
	if err != nil {
		return nil, acct, fmt.Errorf("account %s: %w", id, err)
	}
	s.clients[id] = c
	return c, acct, nil
}

// cacheKey scopes an entry to the account's user address as well as its id;
// ids are only unique within one accounts file while the cache may be shared.
func cacheKey(kind string, acct config.Account) string {
	return kind + ":" + strings.ToLower(acct.UserAddress) + ":" + acct.ID
}

// cached serves key from the cache, or calls fetch and stores its result.
// Cache failures are logged and otherwise ignored.
func cached[T any](ctx context.Context, s *AccountService, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	var out T
	ok, err := cache.GetJSON(ctx, s.cache, key, &out)
	if err != nil {
		s.log.Warn("cache_read_failed", "key", key, "err", err)
	}
	if ok {
		s.log.Debug("cache_hit", "key", key)
		return out, nil
	}

	out, err = fetch()
	if err != nil {
		return out, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, out, ttl); err != nil {
		s.log.Warn("cache_write_failed", "key", key, "err", err)
	}
	return out, nil
}

func (s *AccountService) Account(ctx context.Context, id string) (*client.AccountInfo, error) {
	c, acct, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("account", acct), s.ttl.Account, func() (*client.AccountInfo, error) {
		return c.GetAccount(ctx)
	})
}

// Positions returns the raw position risk rows for the account, optionally
// limited to one symbol.
func (s *AccountService) Positions(ctx context.Context, id, symbol string) ([]client.Position, error) {
	c, acct, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("positions", acct)+":"+symbol, s.ttl.Positions, func() ([]client.Position, error) {
		return c.GetPositions(ctx, symbol)
	})
}

func (s *AccountService) Balance(ctx context.Context, id string) ([]client.Balance, error) {
	c, acct, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("balance", acct), s.ttl.Balance, func() ([]client.Balance, error) {
		return c.GetBalance(ctx)
	})
}

func (s *AccountService) Trades(ctx context.Context, id string, q client.TradesQuery) ([]client.Trade, error) {
	c, acct, err := s.client(id)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s:%s:%d:%d:%d:%s",
		cacheKey("trades", acct), q.Symbol, q.Limit, millis(q.StartTime), millis(q.EndTime), strconv.FormatInt(q.FromID, 10))
	return cached(ctx, s, key, s.ttl.Trades, func() ([]client.Trade, error) {
		return c.GetUserTrades(ctx, q)
	})
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// AccountResult is the outcome of one account's request.
type AccountResult[T any] struct {
	Account config.Account
	Value   T
	Err     error
}

// Settled splits fan-out results by outcome. Both slices keep account order.
type Settled[T any] struct {
	Succeeded []AccountResult[T]
	Failed    []AccountResult[T]
}

// AllAccounts runs fn for every enabled account concurrently. One account
// failing does not cancel the others.
func AllAccounts[T any](ctx context.Context, s *AccountService, fn func(ctx context.Context, id string) (T, error)) (Settled[T], error) {
	var enabled []config.Account
	for _, a := range s.accounts {
		if a.IsEnabled() {
			enabled = append(enabled, a)
		}
	}
	if len(enabled) == 0 {
		return Settled[T]{}, config.ErrNoAccounts
	}

	results := make([]AccountResult[T], len(enabled))

	g := new(errgroup.Group)
	g.SetLimit(s.limit)
	for i, acct := range enabled {
		g.Go(func() error {
			v, err := fn(ctx, acct.ID)
			results[i] = AccountResult[T]{Account: acct, Value: v, Err: err}
			if err != nil {
				s.log.Warn("account_request_failed", "account", acct.ID, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var settled Settled[T]
	for _, r := range results {
		if r.Err != nil {
			settled.Failed = append(settled.Failed, r)
		} else {
			settled.Succeeded = append(settled.Succeeded, r)
		}
	}

	s.log.Info("accounts_settled", "succeeded", len(settled.Succeeded), "failed", len(settled.Failed))
	return settled, nil
}
