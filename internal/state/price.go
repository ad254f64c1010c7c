package state

import (
	"fmt"
	"math"
)

const (
	// MinPrice is the hard floor applied to every generated price.
	MinPrice = 0.01

	// eventProbability is the per-tick chance of a news shock.
	eventProbability = 0.02
)

// RandomSource is the subset of *rand.Rand used by the simulator.
type RandomSource interface {
	Float64() float64
	NormFloat64() float64
}

// PriceParams are the immutable parameters of the price model.
type PriceParams struct {
	Volatility      float64 `json:"volatility"`
	TrendBias       float64 `json:"trend_bias"`
	MeanReversion   float64 `json:"mean_reversion"`
	ReversionTarget float64 `json:"reversion_target"`
}

// DefaultPriceParams returns the parameters of the EQT/CELO market.
func DefaultPriceParams() PriceParams {
	return PriceParams{
		Volatility:      0.02,
		TrendBias:       0.001,
		MeanReversion:   0.1,
		ReversionTarget: 700,
	}
}

// Validate rejects parameters that would drive the price to infinity or pin
// it at the floor. A zero ReversionTarget disables mean reversion.
func (p PriceParams) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"volatility", p.Volatility},
		{"trend bias", p.TrendBias},
		{"mean reversion", p.MeanReversion},
		{"reversion target", p.ReversionTarget},
	}
	for _, f := range fields {
		if !finite(f.value) {
			return fmt.Errorf("%s must be finite, got %v", f.name, f.value)
		}
	}
	if p.Volatility < 0 {
		return fmt.Errorf("volatility must not be negative, got %v", p.Volatility)
	}
	if p.ReversionTarget < 0 {
		return fmt.Errorf("reversion target must not be negative, got %v", p.ReversionTarget)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PriceModel is a random walk with drift, mean reversion and rare event shocks.
type PriceModel struct {
	params PriceParams
	rng    RandomSource
}

func NewPriceModel(params PriceParams, rng RandomSource) *PriceModel {
	return &PriceModel{params: params, rng: rng}
}

func (m *PriceModel) Params() PriceParams { return m.params }

// NextPrice draws the next price from the current one. The result is never below MinPrice.
//
// Draw order is fixed (normal, uniform, optional normal) so seeded runs replay exactly.
func (m *PriceModel) NextPrice(current float64) float64 {
	p := m.params

	noise := m.rng.NormFloat64() * (p.Volatility / 10)
	trend := p.TrendBias / 100

	var reversion float64
	if p.ReversionTarget != 0 {
		reversion = -p.MeanReversion * (current - p.ReversionTarget) / p.ReversionTarget / 100
	}

	var shock float64
	if m.rng.Float64() < eventProbability {
		shock = m.rng.NormFloat64() * (p.Volatility * 3)
	}

	next := current * (1 + noise + trend + reversion + shock)
	if math.IsNaN(next) {
		return MinPrice
	}
	return math.Max(next, MinPrice)
}
