package ws

import (
	"context"
	"encoding/json"
	"log"

	"sulamboard/internal/service"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgError    MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection represents one watching client on a leaderboard.
type Connection struct {
	LeaderboardID string
	BackendToken  string
	Send          chan []byte
}

// Hub manages live leaderboard watchers. Each watched leaderboard gets one
// poll loop shared by all its connections: the first watcher starts it, the
// last watcher's exit cancels it. Every poll result is broadcast to the
// board's watchers.
type Hub struct {
	poller   *service.Poller
	watchers map[string]map[*Connection]struct{}
	cancels  map[string]context.CancelFunc

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *snapshotEvent
}

type snapshotEvent struct {
	leaderboardID string
	snapshot      *service.Snapshot
}

// NewHub creates a hub polling through the given poller.
func NewHub(poller *service.Poller) *Hub {
	h := &Hub{
		poller:     poller,
		watchers:   make(map[string]map[*Connection]struct{}),
		cancels:    make(map[string]context.CancelFunc),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *snapshotEvent, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			id := conn.LeaderboardID
			if h.watchers[id] == nil {
				h.watchers[id] = make(map[*Connection]struct{})
			}
			h.watchers[id][conn] = struct{}{}
			log.Printf("Watcher connected to leaderboard %s (%d total)", id, len(h.watchers[id]))

			if _, running := h.cancels[id]; !running {
				ctx, cancel := context.WithCancel(context.Background())
				h.cancels[id] = cancel
				go h.poller.Run(ctx, conn.BackendToken, id, func(snap *service.Snapshot) {
					h.broadcast <- &snapshotEvent{leaderboardID: id, snapshot: snap}
				})
				log.Printf("Started poll loop for leaderboard %s", id)
			}

		case conn := <-h.unregister:
			id := conn.LeaderboardID
			if conns, ok := h.watchers[id]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					log.Printf("Watcher disconnected from leaderboard %s (%d left)", id, len(conns))
				}
				if len(conns) == 0 {
					delete(h.watchers, id)
					if cancel, ok := h.cancels[id]; ok {
						cancel()
						delete(h.cancels, id)
						log.Printf("Stopped poll loop for leaderboard %s", id)
					}
				}
			}

		case evt := <-h.broadcast:
			payload, err := json.Marshal(evt.snapshot)
			if err != nil {
				log.Printf("snapshot marshal failed: %v", err)
				continue
			}
			data, _ := json.Marshal(&Message{Type: MsgSnapshot, Payload: payload})
			for conn := range h.watchers[evt.leaderboardID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}
