package portal

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/zoothing/internal/logging"
	"github.com/muurk/zoothing/internal/zoo"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// EventTypeStatus is the type of every message on the status stream
const EventTypeStatus = "status"

// StatusEvent is one message on the /events stream.
type StatusEvent struct {
	Type      string     `json:"type"`
	Timestamp string     `json:"timestamp"`
	Status    zoo.Status `json:"status"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The portal is only reachable from the device AP network
		return true
	},
}

// handleEvents streams status snapshots to a websocket client until the
// client goes away or the portal closes.
func (h *handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	updates, cancel := h.events.Subscribe()
	defer cancel()

	// The client sends nothing; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	logging.Debug("Status stream opened", zap.String("remote_addr", r.RemoteAddr))
	for {
		select {
		case <-gone:
			return
		case <-h.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "portal closed"),
				time.Now().Add(wsWriteTimeout))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case status, ok := <-updates:
			if !ok {
				return
			}
			event := StatusEvent{
				Type:      EventTypeStatus,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Status:    status,
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				logging.Debug("Status stream write failed", zap.Error(err))
				return
			}
		}
	}
}
