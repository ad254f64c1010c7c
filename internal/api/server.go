package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eqt-market-sim/internal/config"
	"github.com/eqt-market-sim/internal/metrics"
	"github.com/eqt-market-sim/internal/state"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	config  config.APIConfig
	state   *state.Engine
	metrics *metrics.Recorder
	logger  *zap.Logger
	limiter *rate.Limiter
	server  *http.Server
	done    chan struct{}
}

func NewServer(cfg config.APIConfig, stateEngine *state.Engine, recorder *metrics.Recorder, logger *zap.Logger) *Server {
	return &Server{
		config:  cfg,
		state:   stateEngine,
		metrics: recorder,
		logger:  logger.With(zap.String("component", "api")),
		limiter: rate.NewLimiter(rate.Limit(cfg.TradeRatePerSecond), cfg.TradeRatePerSecond),
		done:    make(chan struct{}),
	}
}

// Handler returns the routed, CORS-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/market-data", s.getMarketData).Methods("GET")
	api.HandleFunc("/price-history", s.getPriceHistory).Methods("GET")
	api.HandleFunc("/execute-trade/{kind}/{amount}", s.rateLimited(s.executeTradePath)).Methods("GET")
	api.HandleFunc("/trade", s.rateLimited(s.executeTradeJSON)).Methods("POST")
	api.HandleFunc("/stream", s.streamMarket).Methods("GET")
	api.HandleFunc("/health", s.getHealth).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	return c.Handler(router)
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.BindAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		close(s.done)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("API server starting", zap.String("address", s.config.BindAddress))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) getMarketData(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) getPriceHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.History())
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	symbols := s.state.Symbols()
	response := struct {
		Status    string            `json:"status"`
		Timestamp time.Time         `json:"timestamp"`
		Ticks     uint64            `json:"ticks"`
		Pair      string            `json:"pair"`
		Params    state.PriceParams `json:"params"`
	}{
		Status:    "healthy",
		Timestamp: time.Now(),
		Ticks:     s.state.Ticks(),
		Pair:      symbols.Quote + "/" + symbols.Base,
		Params:    s.state.Params(),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// TradeRequest is the body of POST /api/trade.
type TradeRequest struct {
	Kind   string  `json:"kind"`
	Amount float64 `json:"amount"`
}

// TradeResponse carries a human-readable outcome and the market after the trade.
type TradeResponse struct {
	Message string               `json:"message"`
	Receipt *state.TradeReceipt  `json:"receipt,omitempty"`
	Balance state.MarketSnapshot `json:"balance"`
}

func (s *Server) executeTradePath(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	amount, err := strconv.ParseFloat(vars["amount"], 64)
	if err != nil {
		amount = 0 // rejected as an invalid amount below
	}
	s.trade(w, vars["kind"], amount)
}

func (s *Server) executeTradeJSON(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "amount" {
			s.trade(w, req.Kind, math.NaN()) // rejected as an invalid amount
			return
		}
		s.writeJSON(w, http.StatusBadRequest, TradeResponse{
			Message: "Invalid request body",
			Balance: s.state.Snapshot(),
		})
		return
	}
	s.trade(w, req.Kind, req.Amount)
}

func (s *Server) trade(w http.ResponseWriter, rawKind string, amount float64) {
	receipt, err := s.executeTrade(rawKind, amount)
	resp := TradeResponse{Balance: s.state.Snapshot()}

	if err != nil {
		s.metrics.ObserveTradeFailure(err)
		s.logger.Info("trade rejected",
			zap.String("kind", rawKind),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
		resp.Message = state.FailureMessage(err)

		status := http.StatusOK
		if !errors.Is(err, state.ErrInsufficientBalance) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, resp)
		return
	}

	s.metrics.ObserveTrade(receipt, metrics.OriginAPI)
	s.metrics.ObserveSnapshot(resp.Balance)
	s.logger.Info(receipt.Message(),
		zap.String("trade_id", receipt.ID),
		zap.Float64("price", receipt.Price),
	)

	resp.Message = receipt.Message()
	resp.Receipt = &receipt
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) executeTrade(rawKind string, amount float64) (state.TradeReceipt, error) {
	kind, err := state.ParseTradeKind(rawKind)
	if err != nil {
		return state.TradeReceipt{}, err
	}
	if err := state.ValidateAmount(amount); err != nil {
		return state.TradeReceipt{}, err
	}
	return s.state.Trade(kind, amount)
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeJSON(w, http.StatusTooManyRequests, struct {
				Message string `json:"message"`
			}{Message: "Too many trade requests"})
			return
		}
		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, `{"message":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
