package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"platform-pulse/internal/alerting"
	"platform-pulse/internal/cache"
	"platform-pulse/internal/config"
	"platform-pulse/internal/feed"
	"platform-pulse/internal/metrics"
	"platform-pulse/internal/plays"
	"platform-pulse/internal/status"
	"platform-pulse/internal/storage"
	"platform-pulse/internal/ticker"
)

// Service orchestrates the monitoring loops: status polling, ticker feed
// sampling, settlement consumption, persistence, caching, and the big-win
// relay.
type Service struct {
	cfg    *config.Config
	logger zerolog.Logger

	monitor *status.Monitor
	tracker *ticker.Tracker
	queue   *plays.Queue
	prices  feed.PriceFeed
	stream  plays.Stream

	priceStore storage.PriceChangeStore
	playStore  storage.PlayStore
	locker     storage.AdvisoryLocker
	snapshots  *cache.SnapshotCache
	relay      alerting.Notifier
	metrics    *metrics.Metrics

	minProfit decimal.Decimal
	persist   bool
}

// New constructs the monitoring service. Store, cache, and relay may be
// nil; the corresponding concerns are skipped.
func New(cfg *config.Config, monitor *status.Monitor, tracker *ticker.Tracker, queue *plays.Queue, prices feed.PriceFeed, stream plays.Stream, priceStore storage.PriceChangeStore, playStore storage.PlayStore, snapshots *cache.SnapshotCache, relay alerting.Notifier, m *metrics.Metrics, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := priceStore.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		cfg:        cfg,
		logger:     logger.With().Str("component", "service").Logger(),
		monitor:    monitor,
		tracker:    tracker,
		queue:      queue,
		prices:     prices,
		stream:     stream,
		priceStore: priceStore,
		playStore:  playStore,
		locker:     locker,
		snapshots:  snapshots,
		relay:      relay,
		metrics:    m,
		minProfit:  decimal.NewFromFloat(cfg.Relay.MinProfit),
		persist:    priceStore != nil || playStore != nil,
	}
}

// Run drives all loops until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}

	s.monitor.Bind(ctx)
	defer s.monitor.Close()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.queue.RunJanitor(groupCtx)
		return nil
	})

	if s.prices != nil {
		group.Go(func() error {
			s.runTickerLoop(groupCtx)
			return nil
		})
	}

	if s.stream != nil {
		group.Go(func() error {
			s.runStreamLoop(groupCtx)
			return nil
		})
	}

	if s.snapshots != nil {
		group.Go(func() error {
			s.runCacheLoop(groupCtx)
			return nil
		})
	}

	return group.Wait()
}

// acquireLock takes the advisory lock when persistence is configured so
// only one live instance writes. Losing the race downgrades this instance
// to read-only monitoring rather than failing.
func (s *Service) acquireLock(ctx context.Context) (func(), error) {
	key := s.cfg.Database.AdvisoryLockKey
	if !s.persist || key == 0 || s.locker == nil {
		return nil, nil
	}

	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		s.logger.Warn().Int64("key", key).Msg("advisory lock held elsewhere; persistence disabled for this instance")
		s.priceStore = nil
		s.playStore = nil
		return nil, nil
	}
	return unlock, nil
}

func (s *Service) runTickerLoop(ctx context.Context) {
	s.pollPrices(ctx)

	interval := s.cfg.Ticker.PollInterval
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.pollPrices(ctx)
		}
	}
}

func (s *Service) pollPrices(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.PollTicks.WithLabelValues("ticker").Inc()
	}

	quotes, err := s.prices.FetchPrices(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("price feed poll failed")
		if s.metrics != nil {
			s.metrics.FetchFailures.WithLabelValues("ticker").Inc()
		}
		return
	}

	transitions := s.tracker.ObservePoll(quotes)
	if s.priceStore == nil {
		return
	}

	for _, tr := range transitions {
		change := storage.PriceChange{
			Mint:          tr.Mint.String(),
			Symbol:        tr.Symbol,
			Price:         tr.Price,
			PreviousPrice: tr.PreviousPrice,
			PercentChange: tr.PercentChange,
			ChangedAt:     tr.ChangedAt,
		}
		if err := s.priceStore.InsertPriceChange(ctx, change); err != nil {
			s.logger.Error().Err(err).Str("mint", change.Mint).Msg("failed to persist price change")
		}
	}
}

func (s *Service) runStreamLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-s.stream.Events():
			if !open {
				return
			}
			s.HandleSettlement(ctx, event)
		}
	}
}

// HandleSettlement pushes one settlement through the queue, persistence,
// and relay pipeline. Exposed for the simulate-play command.
func (s *Service) HandleSettlement(ctx context.Context, event plays.SettlementEvent) {
	if !s.queue.Push(event) {
		return
	}

	decimals := s.cfg.Plays.TokenDecimals
	profit := event.ScaledProfit(decimals)

	if s.playStore != nil {
		play := storage.SettledPlay{
			Signature:     event.Signature.String(),
			UserAddress:   event.User.String(),
			TokenMint:     event.TokenMint.String(),
			GameName:      event.GameName,
			Wager:         decimal.NewFromUint64(event.Wager).Shift(-decimals),
			Multiplier:    event.Multiplier(),
			Profit:        profit,
			JackpotPayout: decimal.NewFromUint64(event.JackpotPayout).Shift(-decimals),
			PlayedAt:      event.Time,
		}
		if _, err := s.playStore.InsertPlay(ctx, play); err != nil {
			s.logger.Error().Err(err).Str("signature", play.Signature).Msg("failed to persist settled play")
		}
	}

	s.maybeRelay(ctx, event, profit)
}

func (s *Service) maybeRelay(ctx context.Context, event plays.SettlementEvent, profit decimal.Decimal) {
	if s.relay == nil || !s.cfg.Relay.Enabled {
		return
	}

	jackpot := decimal.NewFromUint64(event.JackpotPayout).Shift(-s.cfg.Plays.TokenDecimals)
	if profit.LessThan(s.minProfit) && !jackpot.IsPositive() {
		return
	}

	win := alerting.BigWin{
		Signature: event.Signature.String(),
		User:      event.ShortUser(),
		GameName:  event.GameName,
		Profit:    profit,
		Jackpot:   jackpot,
		Symbol:    s.cfg.Plays.TokenSymbol,
		PlayedAt:  event.Time,
		Channels:  s.cfg.Relay.Channels,
	}
	if err := s.relay.Notify(ctx, win); err != nil {
		s.logger.Error().Err(err).Str("signature", win.Signature).Msg("failed to dispatch big-win relay")
	}
}

func (s *Service) runCacheLoop(ctx context.Context) {
	interval := s.cfg.Redis.TTL / 3
	if interval < time.Second {
		interval = time.Second
	}

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.snapshots.SetStatus(ctx, s.monitor.Snapshot())
			s.snapshots.SetTicker(ctx, s.tracker.Entries())
			s.snapshots.SetNotifications(ctx, s.queue.Snapshot())
		}
	}
}
