package state

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned when a trade exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for zero, negative or non-finite trade amounts.
	ErrInvalidAmount = errors.New("invalid trade amount")

	// ErrInvalidTradeKind is returned when a trade kind is neither buy nor sell.
	ErrInvalidTradeKind = errors.New("invalid trade type")
)

type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

func ParseTradeKind(s string) (TradeKind, error) {
	switch TradeKind(strings.ToLower(strings.TrimSpace(s))) {
	case TradeBuy:
		return TradeBuy, nil
	case TradeSell:
		return TradeSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTradeKind, s)
}

// ValidateAmount rejects amounts that cannot be traded.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return nil
}

// Symbols names the two assets in user-facing messages.
type Symbols struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

func DefaultSymbols() Symbols {
	return Symbols{Base: "CELO", Quote: "EQT"}
}

// TradeReceipt records a filled trade. For a buy, Spent is base currency and
// Received is quote units; for a sell it is the other way round.
type TradeReceipt struct {
	ID        string    `json:"id"`
	Kind      TradeKind `json:"kind"`
	Price     float64   `json:"price"`
	Spent     float64   `json:"spent"`
	Received  float64   `json:"received"`
	Timestamp time.Time `json:"timestamp"`
	Symbols   Symbols   `json:"-"`
}

// Amount is the traded amount in the unit the trade was requested in.
func (r TradeReceipt) Amount() float64 { return r.Spent }

func (r TradeReceipt) Message() string {
	switch r.Kind {
	case TradeBuy:
		return fmt.Sprintf("Bought %s %s for %s %s",
			decimal.NewFromFloat(r.Received).StringFixed(4), r.Symbols.Quote,
			decimal.NewFromFloat(r.Spent).StringFixed(2), r.Symbols.Base)
	case TradeSell:
		return fmt.Sprintf("Sold %s %s for %s %s",
			decimal.NewFromFloat(r.Spent).StringFixed(4), r.Symbols.Quote,
			decimal.NewFromFloat(r.Received).StringFixed(2), r.Symbols.Base)
	}
	return ""
}

// FailureMessage is the user-facing text for a rejected trade.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "Trade failed: insufficient balance"
	case errors.Is(err, ErrInvalidTradeKind):
		return "Invalid trade type"
	case errors.Is(err, ErrInvalidAmount):
		return "Invalid trade amount"
	}
	return "Trade failed"
}

// Wallet holds the simulator's two balances.
type Wallet struct {
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Execute fills a trade against the wallet at the given price. On error the
// wallet is left untouched.
func (w *Wallet) Execute(kind TradeKind, amount, price float64) (TradeReceipt, error) {
	if err := ValidateAmount(amount); err != nil {
		return TradeReceipt{}, err
	}
	if math.IsNaN(price) || price <= 0 {
		return TradeReceipt{}, fmt.Errorf("invalid price %v", price)
	}

	receipt := TradeReceipt{Kind: kind, Price: price, Spent: amount}

	switch kind {
	case TradeBuy:
		if amount > w.Base {
			return TradeReceipt{}, ErrInsufficientBalance
		}
		received := amount / price
		w.Base -= amount
		w.Quote += received
		receipt.Received = received
	case TradeSell:
		if amount > w.Quote {
			return TradeReceipt{}, ErrInsufficientBalance
		}
		received := amount * price
		w.Quote -= amount
		w.Base += received
		receipt.Received = received
	default:
		return TradeReceipt{}, fmt.Errorf("%w: %q", ErrInvalidTradeKind, string(kind))
	}

	receipt.ID = uuid.NewString()
	return receipt, nil
}
