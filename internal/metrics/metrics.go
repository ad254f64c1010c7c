package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eqt-market-sim/internal/state"
)

// Trade origins.
const (
	OriginSimulator = "simulator"
	OriginAPI       = "api"
)

// Recorder owns the simulator's Prometheus collectors on a private registry.
type Recorder struct {
	registry      *prometheus.Registry
	ticks         prometheus.Counter
	trades        *prometheus.CounterVec
	tradeFailures *prometheus.CounterVec
	price         prometheus.Gauge
	balance       *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eqt_ticks_total",
			Help: "Number of simulation ticks.",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eqt_trades_total",
			Help: "Filled trades by kind and origin.",
		}, []string{"kind", "origin"}),
		tradeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eqt_trade_failures_total",
			Help: "Rejected trade requests by reason.",
		}, []string{"reason"}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eqt_price",
			Help: "Current simulated price.",
		}),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eqt_balance",
			Help: "Simulator balances by asset.",
		}, []string{"asset"}),
	}
	r.registry.MustRegister(r.ticks, r.trades, r.tradeFailures, r.price, r.balance)
	return r
}

// ObserveTick records a completed tick and any trade it executed.
func (r *Recorder) ObserveTick(res state.TickResult) {
	r.ticks.Inc()
	r.price.Set(res.Price)
	if res.Receipt != nil {
		r.ObserveTrade(*res.Receipt, OriginSimulator)
	}
}

func (r *Recorder) ObserveTrade(receipt state.TradeReceipt, origin string) {
	r.trades.WithLabelValues(string(receipt.Kind), origin).Inc()
}

func (r *Recorder) ObserveTradeFailure(err error) {
	r.tradeFailures.WithLabelValues(failureReason(err)).Inc()
}

func (r *Recorder) ObserveSnapshot(snap state.MarketSnapshot) {
	r.price.Set(snap.Price)
	r.balance.WithLabelValues("base").Set(snap.BalanceBase)
	r.balance.WithLabelValues("quote").Set(snap.BalanceQuote)
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, state.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, state.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, state.ErrInvalidTradeKind):
		return "invalid_kind"
	}
	return "other"
}
