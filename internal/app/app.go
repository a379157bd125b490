package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"platform-pulse/internal/alerting"
	"platform-pulse/internal/cache"
	"platform-pulse/internal/config"
	"platform-pulse/internal/feed"
	"platform-pulse/internal/metrics"
	"platform-pulse/internal/plays"
	"platform-pulse/internal/probe"
	"platform-pulse/internal/server"
	"platform-pulse/internal/service"
	"platform-pulse/internal/status"
	"platform-pulse/internal/storage"
	"platform-pulse/internal/ticker"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newMonitor(m *metrics.Metrics) (*status.Monitor, error) {
	health := probe.NewHealth(probe.HealthOptions{
		RPCURL:  a.Config.RPC.URL,
		Timeout: a.Config.RPC.RequestTimeout,
	}, m, a.Logger)

	var creator solana.PublicKey
	if addr := a.Config.Helius.CreatorAddress; addr != "" {
		parsed, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("parse helius.creator_address: %w", err)
		}
		creator = parsed
	}

	tx := probe.NewTransactions(probe.TransactionsOptions{
		BaseURL:   a.Config.Helius.BaseURL,
		APIKey:    a.Config.Helius.APIKey,
		Creator:   creator,
		Timeout:   a.Config.Helius.RequestTimeout,
		UserAgent: a.Config.Helius.UserAgent,
	}, m, a.Logger)

	return status.NewMonitor(status.Options{
		PollInterval: a.Config.Status.PollInterval,
		Throttle:     a.Config.Status.Throttle,
		IdleTimeout:  a.Config.Status.IdleTimeout,
		PoolAddress:  a.Config.Status.PoolAddress,
		TokenName:    a.Config.Status.TokenName,
	}, health, tx, m, a.Logger), nil
}

func (a *App) newTracker(m *metrics.Metrics) *ticker.Tracker {
	return ticker.NewTracker(ticker.Options{
		RecentWindow:    a.Config.Ticker.RecentWindow,
		SignificantPct:  a.Config.Ticker.SignificantPct,
		EvictAfterPolls: a.Config.Ticker.EvictAfterPolls,
	}, m, a.Logger)
}

func (a *App) newQueue(m *metrics.Metrics) *plays.Queue {
	return plays.NewQueue(plays.QueueOptions{
		DisplayDuration: a.Config.Plays.DisplayDuration,
		MaxEntries:      a.Config.Plays.MaxEntries,
		TokenDecimals:   a.Config.Plays.TokenDecimals,
		TokenSymbol:     a.Config.Plays.TokenSymbol,
	}, m, a.Logger)
}

func (a *App) newRelay() alerting.Notifier {
	if a.Config.Relay.Telegram.Enabled {
		cfg := a.Config.Relay.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) openCache(ctx context.Context) *cache.SnapshotCache {
	if a.Config.Redis.Addr == "" {
		return nil
	}

	snapshots := cache.New(cache.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
		TTL:      a.Config.Redis.TTL,
	}, a.Logger)

	if err := snapshots.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("redis unreachable; snapshot cache disabled")
		_ = snapshots.Close()
		return nil
	}
	return snapshots
}

// Run executes the long-running monitoring service and status API.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	snapshots := a.openCache(ctx)
	if snapshots != nil {
		defer snapshots.Close()
	}

	monitor, err := a.newMonitor(m)
	if err != nil {
		return err
	}
	tracker := a.newTracker(m)
	queue := a.newQueue(m)
	relay := a.newRelay()

	var prices feed.PriceFeed
	if a.Config.Ticker.FeedURL != "" {
		prices = feed.NewHTTPFeed(feed.HTTPOptions{
			URL:       a.Config.Ticker.FeedURL,
			Timeout:   a.Config.Ticker.RequestTimeout,
			UserAgent: a.Config.Helius.UserAgent,
		}, a.Logger)
	} else {
		a.Logger.Warn().Msg("ticker.feed_url not configured; price tracking disabled")
	}

	var stream *plays.HTTPStream
	if a.Config.Plays.StreamURL != "" {
		stream = plays.NewHTTPStream(plays.HTTPStreamOptions{
			URL:          a.Config.Plays.StreamURL,
			PollInterval: a.Config.Plays.PollInterval,
			Timeout:      a.Config.Plays.RequestTimeout,
			UserAgent:    a.Config.Helius.UserAgent,
		}, a.Logger)
	} else {
		a.Logger.Warn().Msg("plays.stream_url not configured; settlement feed disabled")
	}

	var priceStore storage.PriceChangeStore
	var playStore storage.PlayStore
	if store != nil {
		priceStore = store
		playStore = store
	}

	var streamIface plays.Stream
	if stream != nil {
		streamIface = stream
	}

	svc := service.New(a.Config, monitor, tracker, queue, prices, streamIface, priceStore, playStore, snapshots, relay, m, a.Logger)

	srv := server.New(server.Options{
		Addr:         a.Config.Server.Addr,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}, monitor, tracker, queue, registry, a.Logger)

	a.Logger.Info().Msg("starting monitoring service")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return svc.Run(groupCtx)
	})
	group.Go(func() error {
		return srv.Run(groupCtx)
	})
	if stream != nil {
		group.Go(func() error {
			stream.Run(groupCtx)
			return nil
		})
	}

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting price history.
type ExportOptions struct {
	Mint      string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions configure the simulate-play command.
type SimulateOptions struct {
	Wager      float64
	Multiplier float64
	GameName   string
	Jackpot    float64
}
