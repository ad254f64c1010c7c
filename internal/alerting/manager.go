// Package alerting pushes large price moves to chat webhooks.
package alerting

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eqt-market-sim/internal/config"
	"github.com/eqt-market-sim/internal/state"
)

// Notifier delivers a rendered alert to one destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, message string) error
}

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Manager watches market snapshots and alerts when the 24h change crosses the
// configured threshold. Each direction has its own cooldown.
type Manager struct {
	config    config.AlertingConfig
	snapshots <-chan state.MarketSnapshot
	notifiers []Notifier
	symbols   state.Symbols
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	cooldown map[Direction]time.Time
	wg       sync.WaitGroup
}

func NewManager(cfg config.AlertingConfig, symbols state.Symbols, snapshots <-chan state.MarketSnapshot, logger *zap.Logger) *Manager {
	var notifiers []Notifier
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, NewSlackClient(cfg.SlackWebhookURL))
	}
	if cfg.DiscordWebhookURL != "" {
		notifiers = append(notifiers, NewDiscordClient(cfg.DiscordWebhookURL))
	}

	return &Manager{
		config:    cfg,
		snapshots: snapshots,
		notifiers: notifiers,
		symbols:   symbols,
		logger:    logger.With(zap.String("component", "alerting")),
		now:       time.Now,
		cooldown:  make(map[Direction]time.Time),
	}
}

func (m *Manager) Run(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}
	defer m.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-m.snapshots:
			if !ok {
				return nil
			}
			m.handleSnapshot(ctx, snap)
		}
	}
}

// handleSnapshot reports whether an alert was dispatched.
func (m *Manager) handleSnapshot(ctx context.Context, snap state.MarketSnapshot) bool {
	if math.Abs(snap.PriceChange24h) < m.config.MoveThresholdPct {
		return false
	}

	dir := DirectionUp
	if snap.PriceChange24h < 0 {
		dir = DirectionDown
	}

	now := m.now()
	m.mu.Lock()
	last, seen := m.cooldown[dir]
	if seen && now.Sub(last) < m.config.Cooldown() {
		m.mu.Unlock()
		return false
	}
	m.cooldown[dir] = now
	m.mu.Unlock()

	message := m.formatMessage(dir, snap)
	m.logger.Info("price alert", zap.String("direction", string(dir)), zap.Float64("change_pct", snap.PriceChange24h))

	for _, n := range m.notifiers {
		m.wg.Add(1)
		go func(n Notifier) {
			defer m.wg.Done()
			if err := n.Send(ctx, message); err != nil {
				m.logger.Warn("alert delivery failed", zap.String("notifier", n.Name()), zap.Error(err))
			}
		}(n)
	}
	return true
}

func (m *Manager) formatMessage(dir Direction, snap state.MarketSnapshot) string {
	icon := "📈"
	if dir == DirectionDown {
		icon = "📉"
	}
	return fmt.Sprintf("%s **%s/%s price move**\n"+
		"Price: %.2f\n"+
		"Change: %+.2f%%\n"+
		"Volume: %.4f",
		icon, m.symbols.Quote, m.symbols.Base,
		snap.Price,
		snap.PriceChange24h,
		snap.Volume24h,
	)
}
