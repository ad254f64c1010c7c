package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eqt-market-sim/internal/api"
	"github.com/eqt-market-sim/internal/config"
)

const maxReconnectDelay = 60 * time.Second

// Update is either a new frame from the stream or a connection status change.
type Update struct {
	Frame  *api.StreamFrame
	Status string
}

// Feed keeps a websocket subscription to the market stream alive, reconnecting
// with exponential backoff.
type Feed struct {
	url            string
	reconnectDelay time.Duration
	updates        chan Update
	logger         *zap.Logger
}

func NewFeed(cfg config.ChartConfig, logger *zap.Logger) *Feed {
	delay := cfg.ReconnectDelay()
	if delay <= 0 {
		delay = time.Second
	}
	return &Feed{
		url:            cfg.StreamURL,
		reconnectDelay: delay,
		updates:        make(chan Update, 16),
		logger:         logger.With(zap.String("component", "chart-feed")),
	}
}

func (f *Feed) Updates() <-chan Update { return f.updates }

func (f *Feed) Run(ctx context.Context) error {
	delay := f.reconnectDelay

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		connected, err := f.connectAndListen(ctx)
		if connected {
			delay = f.reconnectDelay
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			f.logger.Warn("stream error", zap.Error(err), zap.Duration("retry_in", delay))
			f.publish(ctx, Update{Status: fmt.Sprintf("disconnected: %v (retry in %v)", err, delay)})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (f *Feed) connectAndListen(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	f.logger.Info("stream connected", zap.String("url", f.url))
	f.publish(ctx, Update{Status: "connected"})

	done := make(chan error, 1)
	go func() {
		for {
			var frame api.StreamFrame
			if err := conn.ReadJSON(&frame); err != nil {
				done <- err
				return
			}
			f.publish(ctx, Update{Frame: &frame})
		}
	}()

	select {
	case <-ctx.Done():
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return true, ctx.Err()
	case err := <-done:
		return true, err
	}
}

func (f *Feed) publish(ctx context.Context, u Update) {
	select {
	case f.updates <- u:
	case <-ctx.Done():
	}
}
