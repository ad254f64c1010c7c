package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eqt-market-sim/internal/state"
)

const writeWait = 10 * time.Second

// StreamFrame is pushed to websocket subscribers on every stream interval.
type StreamFrame struct {
	Snapshot state.MarketSnapshot `json:"snapshot"`
	History  state.History        `json:"history"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.config.CORSOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

func (s *Server) frame() StreamFrame {
	return StreamFrame{
		Snapshot: s.state.Snapshot(),
		History:  s.state.History(),
	}
}

func (s *Server) streamMarket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Info("stream subscriber connected", zap.String("remote", r.RemoteAddr))

	// Subscribers never send anything meaningful; reading detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.config.StreamInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	send := func() bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.frame()); err != nil {
			s.logger.Debug("stream write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-closed:
			s.logger.Info("stream subscriber disconnected", zap.String("remote", r.RemoteAddr))
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
