package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/tabforge/internal/logx"
	"pkt.systems/tabforge/schema"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 4096
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     sameOrigin,
}

func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return strings.HasSuffix(origin, "://"+strings.TrimSpace(r.Host))
}

// handleWS streams store events and UI state of the session. The first frame
// is always the current state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, sess *session) {
	log := logx.WithSession(r.Context(), sess.id)
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("http ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	ctx, cancel := context.WithCancel(sess.ctx)
	defer cancel()

	var events <-chan schema.StoreEvent
	if s.bus != nil {
		ch, unsubscribe := s.bus.Subscribe(sess.id)
		defer unsubscribe()
		events = ch
	}
	states, unsubscribe := s.hub.Subscribe(sess.id)
	defer unsubscribe()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	state := sess.ws.Mapper.UIState()
	if err := writeStream(conn, StreamEvent{Type: streamEventState, State: &state, Timestamp: time.Now()}); err != nil {
		log.Warn("http ws write failed", "err", err)
		return
	}
	log.Info("http ws opened")
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteTimeout))
			log.Info("http ws closed")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeStream(conn, StreamEvent{Type: streamEventStore, Event: &event, Timestamp: time.Now()}); err != nil {
				log.Debug("http ws write failed", "err", err)
				return
			}
		case event, ok := <-states:
			if !ok {
				return
			}
			if err := writeStream(conn, event); err != nil {
				log.Debug("http ws write failed", "err", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				log.Debug("http ws ping failed", "err", err)
				return
			}
		}
	}
}

func writeStream(conn *websocket.Conn, event StreamEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}
