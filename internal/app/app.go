// Package app wires venues, storage and observability around the hedge
// cycle controller.
package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"dual-dex-bot/internal/alerts"
	"dual-dex-bot/internal/config"
	"dual-dex-bot/internal/exec"
	"dual-dex-bot/internal/hl/exchange"
	"dual-dex-bot/internal/hl/rest"
	"dual-dex-bot/internal/httpx"
	"dual-dex-bot/internal/market"
	"dual-dex-bot/internal/metrics"
	pacrest "dual-dex-bot/internal/pacifica/rest"
	pacws "dual-dex-bot/internal/pacifica/ws"
	"dual-dex-bot/internal/state"
	"dual-dex-bot/internal/state/sqlite"
	"dual-dex-bot/internal/timescale"
	"dual-dex-bot/internal/venue"
	"dual-dex-bot/internal/venue/hyperliquid"
	"dual-dex-bot/internal/venue/pacifica"

	"go.uber.org/zap"
)

const (
	cloidPrefix    = "cloid:"
	cloidRetention = 24 * time.Hour
)

type App struct {
	cfg        *config.Config
	log        *zap.Logger
	store      state.PrunableStore
	exchange   *exchange.Client
	venues     []venue.Client
	prom       *metrics.Prometheus
	journal    *timescale.Writer
	controller *Controller
}

func New(cfg *config.Config, secrets config.Secrets, log *zap.Logger) (*App, error) {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	app, err := build(cfg, secrets, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func build(cfg *config.Config, secrets config.Secrets, store state.PrunableStore, log *zap.Logger) (*App, error) {
	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	hlHTTP, err := httpx.NewHTTPClient(cfg.Hyperliquid.Timeout, cfg.Network.ProxyURL)
	if err != nil {
		return nil, err
	}
	hlRequester := &httpx.Requester{HTTP: hlHTTP, Limiter: httpx.NewLimiter(cfg.Hyperliquid.RequestsPerSecond)}
	isMainnet := !strings.Contains(strings.ToLower(cfg.Hyperliquid.BaseURL), "testnet")
	signer, err := exchange.NewSigner(secrets.HLPrivateKey, isMainnet)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(secrets.HLWalletAddress, signer.Address().Hex()) {
		return nil, fmt.Errorf("wallet address does not match private key: got %s expected %s", secrets.HLWalletAddress, signer.Address().Hex())
	}
	exClient, err := exchange.NewClient(cfg.Hyperliquid.BaseURL, hlRequester, signer, secrets.HLVaultAddress, log)
	if err != nil {
		return nil, err
	}
	hlUser := secrets.HLAccountAddress
	if secrets.HLVaultAddress != "" {
		hlUser = secrets.HLVaultAddress
	}
	hlVenue := hyperliquid.New(rest.New(cfg.Hyperliquid.BaseURL, hlRequester, log), exClient, hlUser, cfg.Hyperliquid.LotSizes, log)

	pacHTTP, err := httpx.NewHTTPClient(cfg.Pacifica.Timeout, cfg.Network.ProxyURL)
	if err != nil {
		return nil, err
	}
	pacSigner, err := pacrest.NewSigner(secrets.PacificaPrivateKey)
	if err != nil {
		return nil, err
	}
	pacRequester := &httpx.Requester{HTTP: pacHTTP, Limiter: httpx.NewLimiter(cfg.Pacifica.RequestsPerSecond)}
	pacREST, err := pacrest.New(cfg.Pacifica.BaseURL, pacRequester, pacSigner, cfg.Pacifica.ExpiryWindow, log)
	if err != nil {
		return nil, err
	}
	pacVenue := pacifica.New(pacREST, pacws.New(cfg.Pacifica.WSURL, pacHTTP, log), cfg.Pacifica.LotSizes, cfg.Pacifica.SlippagePercent, log)

	provider := market.NewProvider(cfg.Strategy.Slippage, m, log)
	provider.Register(hlVenue, market.FeedOptions{Timeout: cfg.Hyperliquid.Timeout})
	provider.Register(pacVenue, market.FeedOptions{Timeout: cfg.Pacifica.PriceTimeout, Fallback: cfg.Pacifica.FallbackPrices})

	retrier := exec.NewRetrier(provider, exec.RetrierConfig{
		Retries:     cfg.Verification.Retries,
		Delay:       cfg.Verification.Delay,
		Epsilon:     cfg.Verification.Epsilon,
		CloseBuffer: cfg.Verification.CloseBuffer,
	}, log)

	alertHTTP, err := httpx.NewHTTPClient(10*time.Second, cfg.Network.ProxyURL)
	if err != nil {
		return nil, err
	}
	journal, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		return nil, fmt.Errorf("timescale: %w", err)
	}

	venueA := exec.New(hlVenue, store, m, log)
	venueB := exec.New(pacVenue, store, m, log)
	deps := Deps{
		VenueA:  venueA,
		VenueB:  venueB,
		Prices:  provider,
		Closer:  retrier,
		Store:   store,
		Metrics: m,
		Alerts:  alerts.NewTelegram(cfg.Telegram, alertHTTP, log),
		Rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	if journal != nil {
		deps.Journal = journal
	}
	return &App{
		cfg:        cfg,
		log:        log,
		store:      store,
		exchange:   exClient,
		venues:     []venue.Client{venueA, venueB},
		prom:       prom,
		journal:    journal,
		controller: NewController(cfg.Strategy, maxProbeSize(cfg.Pacifica.ProbeSizes), deps, log),
	}, nil
}

// Init prepares state and checks both venues are reachable. Any error is
// fatal to startup.
func (a *App) Init(ctx context.Context) error {
	if err := a.exchange.InitNonceStore(ctx, a.store); err != nil {
		a.log.Warn("nonce store init failed", zap.Error(err))
	}
	if removed, err := a.store.Prune(ctx, cloidPrefix, time.Now().Add(-cloidRetention)); err != nil {
		a.log.Warn("failed to prune order id cache", zap.Error(err))
	} else if removed > 0 {
		a.log.Info("pruned order id cache", zap.Int64("removed", removed))
	}
	if last, ok, err := state.LoadLastCycle(ctx, a.store); err != nil {
		a.log.Warn("failed to load last cycle", zap.Error(err))
	} else if ok {
		a.log.Info("last recorded cycle",
			zap.String("cycle_id", last.ID),
			zap.String("symbol", last.Symbol),
			zap.String("outcome", last.Outcome),
			zap.Int64("finished_at_ms", last.FinishedAtMS),
		)
	}
	for _, v := range a.venues {
		if err := v.Init(ctx); err != nil {
			return fmt.Errorf("%s init: %w", v.ID(), err)
		}
	}
	return nil
}

// Run blocks until ctx is cancelled. The cycle in flight when that happens
// finishes before Run returns.
func (a *App) Run(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	if a.prom != nil {
		a.prom.Serve(ctx, a.cfg.Metrics.Address, a.cfg.Metrics.Path, a.log)
	}
	journalCtx, stopJournal := context.WithCancel(context.WithoutCancel(ctx))
	defer stopJournal()
	a.journal.Start(journalCtx)

	if a.cfg.Strategy.SweepOnStart() {
		a.controller.Sweep(context.WithoutCancel(ctx))
	}
	err := a.controller.Run(ctx)
	a.log.Info("shutting down\n" + a.controller.Stats().Summary())
	stopJournal()
	return err
}

// Flatten closes every position found on either venue and returns without
// trading.
func (a *App) Flatten(ctx context.Context) (SweepResult, error) {
	if err := a.Init(ctx); err != nil {
		return SweepResult{}, err
	}
	return a.controller.Sweep(ctx), nil
}

func (a *App) Close() error {
	var firstErr error
	for _, v := range a.venues {
		if err := v.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.journal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func maxProbeSize(sizes []float64) float64 {
	largest := 0.0
	for _, s := range sizes {
		largest = max(largest, s)
	}
	return largest
}
