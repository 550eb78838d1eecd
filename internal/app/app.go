// Package app wires configuration into the storage backend, remote clients
// and services shared by the CLI and the agent.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/and161185/suizk/internal/balance"
	"github.com/and161185/suizk/internal/busy"
	"github.com/and161185/suizk/internal/config"
	"github.com/and161185/suizk/internal/game"
	"github.com/and161185/suizk/internal/httpx"
	"github.com/and161185/suizk/internal/ledger"
	"github.com/and161185/suizk/internal/limiter"
	"github.com/and161185/suizk/internal/migrate"
	"github.com/and161185/suizk/internal/model"
	"github.com/and161185/suizk/internal/prover"
	"github.com/and161185/suizk/internal/repository"
	"github.com/and161185/suizk/internal/repository/file"
	"github.com/and161185/suizk/internal/repository/postgres"
	"github.com/and161185/suizk/internal/salt"
	"github.com/and161185/suizk/internal/service"
	"github.com/and161185/suizk/internal/session"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Store     *session.Store
	Ledger    *ledger.Client
	Refresher *balance.Refresher
	Login     *service.LoginServiceImpl
	Tx        *service.TxServiceImpl
	Game      *game.Game
	Faucet    *ledger.Faucet // nil when the network has no faucet

	closers []func()
}

// NewLogger returns the logger for the given verbosity: silent by default,
// a development console logger when verbose.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// Build wires every component for cfg. status receives busy messages; nil
// disables them.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, status io.Writer) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Log: log}

	repo, lim, err := a.storage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	hc := httpx.NewClient(cfg.HTTPTimeout)
	a.Store = session.NewStore(repo, log.Named("session"))
	a.Ledger = ledger.NewClient(cfg.RPCURL, hc)
	a.Refresher = balance.NewRefresher(a.Ledger, balance.NewCache(), cfg.RefreshInterval, log.Named("balance"))
	a.Game = game.New(a.Ledger, cfg.GamePackage, cfg.GameObject)
	if cfg.FaucetURL != "" {
		a.Faucet = ledger.NewFaucet(cfg.FaucetURL, hc, lim)
	}

	var ind busy.Indicator = busy.Nop{}
	if status != nil {
		ind = busy.NewWriter(status)
	}
	sr := salt.NewHTTPResolver(cfg.SaltURL, salt.ModeFor(cfg.SaltURL, cfg.SaltDevResource), hc)
	pr := prover.NewHTTPRequester(cfg.ProverURL, httpx.NewClient(cfg.ProverTimeout))

	a.Login = service.NewLoginService(a.Ledger, a.Store, sr, pr, ind, a.Refresher, service.LoginConfig{
		ClientIDs:      map[model.Provider]string{model.ProviderGoogle: cfg.GoogleClientID},
		RedirectURI:    cfg.RedirectURI,
		MaxEpochOffset: cfg.MaxEpochOffset,
	}, log.Named("login"))
	a.Tx = service.NewTxService(a.Ledger, ind, a.Refresher, log.Named("tx"))
	return a, nil
}

// storage picks PostgreSQL when a DSN is configured and the state directory
// otherwise. The faucet limiter follows the same choice.
func (a *App) storage(ctx context.Context) (repository.SlotRepository, limiter.Limiter, error) {
	cfg := a.Config
	if cfg.DSN == "" {
		r, err := file.NewSlotRepo(filepath.Join(cfg.StateDir, cfg.Namespace))
		if err != nil {
			return nil, nil, err
		}
		return r, limiter.NewRate(cfg.FaucetCooldown, 1), nil
	}

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return postgres.NewSlotRepo(db, cfg.Namespace), limiter.NewPGWithQuerier(db.Pool, cfg.FaucetCooldown), nil
}

// Addresses lists stored account addresses, newest first.
func (a *App) Addresses(ctx context.Context) ([]string, error) {
	l, err := a.Store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(l.Accounts))
	for _, acct := range l.Accounts {
		out = append(out, acct.UserAddr)
	}
	return out, nil
}

// Accounts loads the stored accounts.
func (a *App) Accounts(ctx context.Context) ([]model.Account, error) {
	l, err := a.Store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return l.Accounts, nil
}

// Account resolves addr, or the newest account when addr is empty.
func (a *App) Account(ctx context.Context, addr string) (model.Account, error) {
	if addr != "" {
		return a.Store.Account(ctx, addr)
	}
	list, err := a.Accounts(ctx)
	if err != nil {
		return model.Account{}, err
	}
	if len(list) == 0 {
		return model.Account{}, errors.New("no accounts; run 'login begin' first")
	}
	return list[0], nil
}

// Close releases the storage backend.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
