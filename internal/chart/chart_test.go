package chart

import (
	"context"
	"errors"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eqt-market-sim/internal/api"
	"github.com/eqt-market-sim/internal/config"
	"github.com/eqt-market-sim/internal/metrics"
	"github.com/eqt-market-sim/internal/state"
)

func TestPriceLines(t *testing.T) {
	lines := PriceLines([]float64{1, 2, 3}, 10, 3)
	require.Len(t, lines, 3)
	assert.Equal(t, "  •", lines[0])
	assert.Equal(t, " • ", lines[1])
	assert.Equal(t, "•  ", lines[2])
}

func TestPriceLines_JoinsGaps(t *testing.T) {
	lines := PriceLines([]float64{0, 10}, 10, 5)
	require.Len(t, lines, 5)
	assert.Equal(t, " •", lines[0])
	for _, l := range lines[1:4] {
		assert.Equal(t, " │", l)
	}
	assert.Equal(t, "• ", lines[4])
}

func TestPriceLines_FlatAndTruncated(t *testing.T) {
	lines := PriceLines([]float64{5, 5, 5, 5, 5}, 3, 3)
	require.Len(t, lines, 3)
	assert.Equal(t, "•••", lines[1])
	assert.Equal(t, 3, utf8.RuneCountInString(lines[0]))

	assert.Nil(t, PriceLines(nil, 10, 3))
	assert.Nil(t, PriceLines([]float64{1}, 0, 3))
}

func TestVolumeBars(t *testing.T) {
	assert.Equal(t, " ▄█", VolumeBars([]float64{0, 1, 2}, 10))
	assert.Equal(t, "   ", VolumeBars([]float64{0, 0, 0}, 10))
	assert.Equal(t, "█", VolumeBars([]float64{0, 0, 3}, 1))
}

func TestModel_Update(t *testing.T) {
	updates := make(chan Update, 1)
	m := NewModel("EQT/CELO", updates)
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "connecting...")

	frame := &api.StreamFrame{
		Snapshot: state.MarketSnapshot{Price: 712.34, PriceChange24h: 1.5, BalanceBase: 18},
		History: state.History{
			Prices:  []float64{700, 705, 712.34},
			Volumes: []float64{0, 1.2, 0.5},
		},
	}
	next, cmd := m.Update(updateMsg(Update{Frame: frame}))
	assert.NotNil(t, cmd)
	m = next.(Model)

	next, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "712.34")
	assert.Contains(t, view, "+1.50%")
	assert.Contains(t, view, "volume")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestFeed_ReceivesFrames(t *testing.T) {
	engine, err := state.NewEngine(state.DefaultMarketConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	srv := api.NewServer(config.APIConfig{TradeRatePerSecond: 1, StreamIntervalSecs: 1}, engine, metrics.NewRecorder(), zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	feed := NewFeed(config.ChartConfig{
		StreamURL:          "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream",
		ReconnectDelaySecs: 1,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- feed.Run(ctx) }()

	var frame *api.StreamFrame
	timeout := time.After(3 * time.Second)
	for frame == nil {
		select {
		case u := <-feed.Updates():
			frame = u.Frame
		case <-timeout:
			t.Fatal("no frame received")
		}
	}
	assert.Equal(t, 700.0, frame.Snapshot.Price)
	assert.Len(t, frame.History.Prices, state.DefaultHistoryCapacity)

	cancel()
	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(3 * time.Second):
		t.Fatal("feed did not stop")
	}
}
