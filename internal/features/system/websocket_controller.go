package system

import (
	"encoding/json"

	"go-indexer/internal/events"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// WebSocketController streams collection status transitions to connected
// admin clients. Each connection gets its own bus subscription; the
// subscription is cancelled when the client disconnects.
type WebSocketController struct {
	bus *events.Bus
	log *zap.Logger
}

func NewWebSocketController(bus *events.Bus, log *zap.Logger) *WebSocketController {
	return &WebSocketController{bus: bus, log: log}
}

func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	updates := make(chan events.Event, 16)
	cancel := h.bus.Subscribe(events.TopicCollectionStatus, func(ev events.Event) {
		select {
		case updates <- ev:
		default:
			// slow client, drop rather than block the bus
		}
	})
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev := <-updates:
			payload, err := json.Marshal(ev.Record)
			if err != nil {
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
