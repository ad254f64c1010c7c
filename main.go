package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eqt-market-sim/internal/alerting"
	"github.com/eqt-market-sim/internal/api"
	"github.com/eqt-market-sim/internal/config"
	"github.com/eqt-market-sim/internal/logging"
	"github.com/eqt-market-sim/internal/metrics"
	"github.com/eqt-market-sim/internal/simulator"
	"github.com/eqt-market-sim/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	seed := cfg.Market.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	stateEngine, err := state.NewEngine(cfg.Market.State(), rng)
	if err != nil {
		logger.Fatal("Failed to initialize market", zap.Error(err))
	}
	symbols := stateEngine.Symbols()
	logger.Info("Market initialized",
		zap.String("pair", symbols.Base+"/"+symbols.Quote),
		zap.Float64("initial_price", stateEngine.Price()),
		zap.Int64("seed", seed))

	recorder := metrics.NewRecorder()
	recorder.ObserveSnapshot(stateEngine.Snapshot())

	sim := simulator.New(stateEngine, cfg.Simulator.TickInterval(), recorder, logger)

	snapshots := make(chan state.MarketSnapshot, 16)
	alertManager := alerting.NewManager(cfg.Alerting, symbols, snapshots, logger)
	if cfg.Alerting.Enabled {
		sim.PublishTo(snapshots)
	}
	apiServer := api.NewServer(cfg.API, stateEngine, recorder, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sim.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Simulator error", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := alertManager.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Alert manager error", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Run(ctx); err != nil {
			logger.Error("API server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("All components started",
		zap.String("bind_address", cfg.API.BindAddress),
		zap.Strings("endpoints", []string{
			"GET /api/market-data",
			"GET /api/price-history",
			"GET /api/execute-trade/{kind}/{amount}",
			"POST /api/trade",
			"GET /api/stream",
			"GET /api/health",
			"GET /metrics",
		}),
		zap.Duration("tick_interval", cfg.Simulator.TickInterval()))

	<-ctx.Done()
	logger.Info("Shutting down...")

	wg.Wait()
	logger.Info("Shutdown complete", zap.Uint64("ticks", stateEngine.Ticks()))
}
