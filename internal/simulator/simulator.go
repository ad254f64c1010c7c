package simulator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eqt-market-sim/internal/metrics"
	"github.com/eqt-market-sim/internal/state"
)

// Market is the part of the state engine the tick driver needs.
type Market interface {
	Step() state.TickResult
	Snapshot() state.MarketSnapshot
}

// Simulator advances the market on a fixed interval until its context ends.
type Simulator struct {
	market   Market
	interval time.Duration
	metrics  *metrics.Recorder
	logger   *zap.Logger
	events   chan<- state.MarketSnapshot
}

func New(market Market, interval time.Duration, recorder *metrics.Recorder, logger *zap.Logger) *Simulator {
	return &Simulator{
		market:   market,
		interval: interval,
		metrics:  recorder,
		logger:   logger.With(zap.String("component", "simulator")),
	}
}

// PublishTo makes every tick send its post-tick snapshot to ch. Sends never
// block; a snapshot is dropped if ch is full.
func (s *Simulator) PublishTo(ch chan<- state.MarketSnapshot) {
	s.events = ch
}

func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("simulation started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the market once and reports the outcome.
func (s *Simulator) Tick() state.TickResult {
	res := s.market.Step()

	s.metrics.ObserveTick(res)
	snap := s.market.Snapshot()
	s.metrics.ObserveSnapshot(snap)
	if s.events != nil {
		select {
		case s.events <- snap:
		default:
			s.logger.Debug("snapshot dropped", zap.Uint64("tick", res.Tick))
		}
	}

	if res.Receipt != nil {
		s.logger.Info(res.Receipt.Message(),
			zap.Uint64("tick", res.Tick),
			zap.Float64("price", res.Price),
			zap.String("trade_id", res.Receipt.ID),
		)
	} else {
		s.logger.Debug("tick", zap.Uint64("tick", res.Tick), zap.Float64("price", res.Price))
	}
	return res
}
