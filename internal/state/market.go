package state

import "time"

// volumeWindow is the number of recent volume samples summed into Volume24h.
// It counts samples, not wall-clock time.
const volumeWindow = 24

// MarketSnapshot is a point-in-time view of the market and the simulator's balances.
type MarketSnapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	Price          float64   `json:"price"`
	PriceChange24h float64   `json:"price_change_24h"` // percent since oldest retained price
	Volume24h      float64   `json:"volume_24h"`
	BalanceBase    float64   `json:"balance_base"`
	BalanceQuote   float64   `json:"balance_quote"`
	TotalValueBase float64   `json:"total_value_base"`
}

// MarketConfig is everything needed to construct an Engine.
type MarketConfig struct {
	InitialPrice    float64
	InitialBase     float64
	InitialQuote    float64
	Params          PriceParams
	HistoryCapacity int
	// Prefill fills the histories to capacity with the opening price so the
	// change figure has a stable reference from the first tick.
	Prefill bool
	Symbols Symbols
}

func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		InitialPrice:    700,
		InitialBase:     18,
		InitialQuote:    0,
		Params:          DefaultPriceParams(),
		HistoryCapacity: DefaultHistoryCapacity,
		Prefill:         true,
		Symbols:         DefaultSymbols(),
	}
}
