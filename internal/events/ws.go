package events

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/seoulquant/autotrader/internal/logger"
)

const _writeWait = 5 * time.Second

// WSHandler streams hub events to websocket clients. Read-only: inbound
// messages are drained and discarded.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

func NewWSHandler(hub *Hub, logger logger.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// single-user app bound to localhost
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("can't upgrade websocket: %v", err)
		return
	}

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer conn.Close()
	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return
			}

			payload, err := sonic.Marshal(event)
			if err != nil {
				h.logger.Errorf("can't marshal event: %v", err)
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(_writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
