package state

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Automatic trading behavior of a tick.
const (
	tradeProbability = 0.6
	buyProbability   = 0.5

	minBuyBalance  = 0.1 // base currency needed before a random buy is attempted
	minBuyAmount   = 0.1
	maxBuyAmount   = 2.0
	buyFraction    = 0.8
	minSellBalance = 0.001 // quote units needed before a random sell is attempted
	minSellAmount  = 0.001
	sellFraction   = 0.5
)

// TickResult describes what a single tick did.
type TickResult struct {
	Tick      uint64
	Price     float64
	Timestamp time.Time
	Receipt   *TradeReceipt // nil when no trade happened
}

// Engine is the market state shared by the tick driver and the API. A single
// lock guards price, balances and histories so readers never see a torn tick.
type Engine struct {
	mu      sync.RWMutex
	price   float64
	wallet  Wallet
	model   *PriceModel
	rng     RandomSource
	history *tickHistory
	symbols Symbols
	ticks   uint64
	now     func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(cfg MarketConfig, rng RandomSource, opts ...Option) (*Engine, error) {
	if !finite(cfg.InitialPrice) || cfg.InitialPrice <= 0 {
		return nil, fmt.Errorf("initial price must be positive, got %v", cfg.InitialPrice)
	}
	if !finite(cfg.InitialBase) || !finite(cfg.InitialQuote) || cfg.InitialBase < 0 || cfg.InitialQuote < 0 {
		return nil, fmt.Errorf("initial balances must be finite and not negative")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price parameters: %w", err)
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = DefaultHistoryCapacity
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	e := &Engine{
		price:   cfg.InitialPrice,
		wallet:  Wallet{Base: cfg.InitialBase, Quote: cfg.InitialQuote},
		model:   NewPriceModel(cfg.Params, rng),
		rng:     rng,
		history: newTickHistory(cfg.HistoryCapacity),
		symbols: cfg.Symbols,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.Prefill {
		start := e.now()
		for i := 0; i < cfg.HistoryCapacity; i++ {
			e.history.record(cfg.InitialPrice, 0, start)
		}
	}
	return e, nil
}

// AdvanceTick moves the market one step and returns the trade messages it produced.
func (e *Engine) AdvanceTick() []string {
	res := e.Step()
	if res.Receipt == nil {
		return nil
	}
	return []string{res.Receipt.Message()}
}

// Step generates a new price, maybe executes one random trade and appends
// the tick to the histories.
func (e *Engine) Step() TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.price = e.model.NextPrice(e.price)
	ts := e.now()

	var volume float64
	receipt := e.randomTrade()
	if receipt != nil {
		volume = receipt.Amount()
	}
	e.history.record(e.price, volume, ts)
	e.ticks++

	return TickResult{
		Tick:      e.ticks,
		Price:     e.price,
		Timestamp: ts,
		Receipt:   receipt,
	}
}

func (e *Engine) randomTrade() *TradeReceipt {
	if e.rng.Float64() >= tradeProbability {
		return nil
	}

	var (
		kind   TradeKind
		amount float64
	)
	// The buy coin is always flipped, even when the balance check fails.
	if e.rng.Float64() < buyProbability && e.wallet.Base > minBuyBalance {
		kind = TradeBuy
		amount = uniform(e.rng, minBuyAmount, math.Min(maxBuyAmount, e.wallet.Base*buyFraction))
	} else if e.wallet.Quote > minSellBalance {
		kind = TradeSell
		amount = uniform(e.rng, minSellAmount, e.wallet.Quote*sellFraction)
	} else {
		return nil
	}

	receipt, err := e.execute(kind, amount)
	if err != nil {
		return nil
	}
	return &receipt
}

func uniform(rng RandomSource, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// Trade executes a trade at the current price. Buy amounts are in base
// currency, sell amounts in quote units.
func (e *Engine) Trade(kind TradeKind, amount float64) (TradeReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execute(kind, amount)
}

func (e *Engine) execute(kind TradeKind, amount float64) (TradeReceipt, error) {
	receipt, err := e.wallet.Execute(kind, amount, e.price)
	if err != nil {
		return TradeReceipt{}, err
	}
	receipt.Timestamp = e.now()
	receipt.Symbols = e.symbols
	return receipt, nil
}

func (e *Engine) Snapshot() MarketSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var change float64
	if e.history.len() > 0 {
		if oldest := e.history.prices.At(0); oldest > 0 {
			change = (e.price - oldest) / oldest * 100
		}
	}

	var volume float64
	for _, v := range e.history.volumes.Last(volumeWindow) {
		volume += v
	}

	return MarketSnapshot{
		Timestamp:      e.now(),
		Price:          e.price,
		PriceChange24h: change,
		Volume24h:      volume,
		BalanceBase:    e.wallet.Base,
		BalanceQuote:   e.wallet.Quote,
		TotalValueBase: e.wallet.Base + e.wallet.Quote*e.price,
	}
}

func (e *Engine) History() History {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.snapshot()
}

func (e *Engine) Price() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.price
}

func (e *Engine) Wallet() Wallet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.wallet
}

// Ticks is the number of ticks since construction.
func (e *Engine) Ticks() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ticks
}

func (e *Engine) Symbols() Symbols { return e.symbols }

func (e *Engine) Params() PriceParams { return e.model.Params() }
