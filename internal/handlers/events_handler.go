package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"harmonia/internal/deathpenalty"
	"harmonia/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 512
	// events queued per connection before new ones are dropped
	sendBuffer = 64
)

// EventsHandler streams a player's events over a websocket
type EventsHandler struct {
	bus      *events.Bus
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new events handler. checkOrigin may be nil to
// accept only same-origin browser connections.
func NewEventsHandler(bus *events.Bus, checkOrigin func(r *http.Request) bool) *EventsHandler {
	return &EventsHandler{
		bus:      bus,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// Stream upgrades the request and forwards every event concerning the caller
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())

	// subscribe before the handshake completes so no event is missed
	send := make(chan events.Event, sendBuffer)
	unsubscribe := h.bus.Subscribe(func(ev events.Event) {
		if !concerns(ev, player.ID) {
			return
		}
		select {
		case send <- ev:
		default:
			log.Printf("Warning: dropping %s event for slow client %s", ev.Type, player.ID)
		}
	})
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed for player %s: %v", player.ID, err)
		return
	}
	defer conn.Close()

	// The read loop only handles control frames; it ends when the client goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("Event stream opened for player %s", player.ID)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			log.Printf("Event stream closed for player %s", player.ID)
			return
		case <-r.Context().Done():
			return
		case ev := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("Event stream write failed for player %s: %v", player.ID, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// concerns reports whether ev should reach playerID: their own events, and
// recoveries they made from someone else's echo
func concerns(ev events.Event, playerID string) bool {
	if ev.PlayerID == playerID {
		return true
	}
	if rec, ok := ev.Payload.(deathpenalty.EchoRecovered); ok {
		return rec.Result.RecovererID == playerID
	}
	return false
}
