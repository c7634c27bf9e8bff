package commands

import (
	"asterctl/cache"
	"asterctl/client"
	"asterctl/config"
	"asterctl/logger"
	service "asterctl/services"
	"asterctl/signing"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// app is the per-invocation wiring shared by every command.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	signer *signing.Signer
	cache  cache.Cache
	// limiter is shared by every client so fan-out across accounts stays
	// within REQUESTS_PER_SECOND.
	limiter *rate.Limiter
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(envFile, cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Settings.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Settings.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Level:  level,
		Format: cfg.Settings.LogFormat,
		Writer: cmd.ErrOrStderr(),
	})

	a := &app{
		cfg: cfg,
		log: log,
		signer: signing.NewSigner(signing.Config{
			RecvWindow: cfg.Settings.RecvWindow,
			VOffset:    byte(cfg.Settings.VOffset),
			Logger:     log.With("component", "signer"),
		}),
	}
	a.limiter = client.NewLimiter(cfg.Settings.RequestsPerSecond)
	a.cache = a.openCache(cmd.Context())
	return a, nil
}

// openCache falls back to the in-process cache when Redis is unreachable.
func (a *app) openCache(ctx context.Context) cache.Cache {
	s := a.cfg.Settings
	if !s.CacheEnabled || s.CacheBackend == config.CacheNone {
		return cache.Nop{}
	}
	if s.CacheBackend == config.CacheRedis {
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Address:  s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		if err == nil {
			return r
		}
		a.log.Warn("redis_unavailable", "addr", s.RedisAddr, "err", err)
	}
	return cache.NewMemory()
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache_close_failed", "err", err)
	}
}

func (a *app) clientOptions() client.Options {
	return client.Options{
		Timeout:           a.cfg.Settings.HTTPTimeout,
		RequestsPerSecond: a.cfg.Settings.RequestsPerSecond,
		Limiter:           a.limiter,
		Logger:            a.log.With("component", "client"),
	}
}

// publicClient is an unauthenticated client for market endpoints.
func (a *app) publicClient() *client.FuturesClient {
	return client.NewFuturesClient(a.cfg.Settings.BaseURL, a.clientOptions())
}

func (a *app) accountClient(acct config.Account) (service.FuturesAPI, error) {
	c := client.NewFuturesClient(a.cfg.Settings.BaseURL, a.clientOptions())
	c.SetAuth(client.SignatureAuth{
		Signer:        a.signer,
		UserAddress:   acct.UserAddress,
		SignerAddress: acct.SignerAddress,
		Key:           acct.PrivateKey,
	})
	return c, nil
}

// targetAccounts is the --account selection, or every enabled account.
func (a *app) targetAccounts() ([]config.Account, error) {
	if accountID != "" {
		acct, err := a.cfg.Account(accountID)
		if err != nil {
			return nil, err
		}
		// An explicit selection is used even when the account is disabled.
		acct.Enabled = nil
		return []config.Account{acct}, nil
	}
	return a.cfg.EnabledAccounts()
}

// forEachAccount runs fn over the target accounts and reports failures
// without aborting. It errors only when every account failed.
func forEachAccount[T any](cmd *cobra.Command, a *app, fn func(ctx context.Context, svc *service.AccountService, id string) (T, error), print func(acct config.Account, v T)) error {
	targets, err := a.targetAccounts()
	if err != nil {
		return err
	}

	svc := service.NewAccountService(targets, a.accountClient, service.Options{
		Cache:  a.cache,
		Logger: a.log.With("component", "accounts"),
	})
	settled, err := service.AllAccounts(cmd.Context(), svc, func(ctx context.Context, id string) (T, error) {
		return fn(ctx, svc, id)
	})
	if err != nil {
		return err
	}

	for _, r := range settled.Succeeded {
		print(r.Account, r.Value)
	}
	w := cmd.OutOrStdout()
	for _, r := range settled.Failed {
		fmt.Fprintf(w, "  %s %s: %v\n", red("✗"), r.Account.DisplayName(), r.Err)
	}

	if len(settled.Succeeded) == 0 {
		return fmt.Errorf("all %d account requests failed", len(settled.Failed))
	}
	return nil
}
