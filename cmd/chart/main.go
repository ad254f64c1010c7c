// Command chart renders the simulator's live price and volume stream in the
// terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/eqt-market-sim/internal/chart"
	"github.com/eqt-market-sim/internal/config"
	"github.com/eqt-market-sim/internal/logging"
)

func main() {
	url := flag.String("url", "", "websocket stream URL (overrides chart.stream_url)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.Chart.StreamURL = *url
	}

	logger, err := logging.NewFileOnly(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := chart.NewFeed(cfg.Chart, logger)
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("feed stopped", zap.Error(err))
		}
	}()

	title := cfg.Market.QuoteSymbol + "/" + cfg.Market.BaseSymbol
	if _, err := tea.NewProgram(chart.NewModel(title, feed.Updates()), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chart: %v\n", err)
		os.Exit(1)
	}
}
