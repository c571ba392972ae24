package api

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tripleconfirm/internal/model"
	redisstore "tripleconfirm/internal/store/redis"
)

// Envelope is the WebSocket frame for one signal.
type Envelope struct {
	Type    string           `json:"type"` // "signal"
	Seq     int64            `json:"seq"`
	Symbol  string           `json:"symbol"`
	Signal  model.SignalView `json:"signal"`
	TS      string           `json:"ts"`
	Initial bool             `json:"initial,omitempty"`
}

// Hub fans new signals out to WebSocket clients. It keeps the latest
// signal per symbol for new clients and a replay buffer for reconnects.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]Envelope
	seq     int64
	replay  *ReplayBuffer

	// OnClientCount is called with the client count after every change.
	OnClientCount func(n int)
}

// NewHub creates a hub whose replay buffer keeps replaySize envelopes.
func NewHub(replaySize int) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]Envelope),
		replay:  NewReplayBuffer(replaySize),
	}
}

// Broadcast sends v to every client subscribed to symbol.
func (h *Hub) Broadcast(symbol string, v model.SignalView) {
	h.mu.Lock()
	h.seq++
	env := Envelope{
		Type:   "signal",
		Seq:    h.seq,
		Symbol: symbol,
		Signal: v,
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	h.latest[symbol] = env
	data, err := json.Marshal(env)
	if err != nil {
		h.mu.Unlock()
		slog.Error("ws envelope marshal failed", "symbol", symbol, "error", err)
		return
	}
	h.replay.Push(env.Seq, data)

	for client := range h.clients {
		if !client.wants(symbol) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Slow client; it can catch up from the replay buffer.
		}
	}
	h.mu.Unlock()
}

// Relay is a redis SubscribeSignals callback that rebroadcasts signals
// published by any scanner instance.
func (h *Hub) Relay(channel string, payload []byte) {
	var msg redisstore.SignalMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		slog.Warn("ws relay: bad payload", "channel", channel, "error", err)
		return
	}
	h.Broadcast(msg.Symbol, msg.Signal)
}

// Latest returns the latest signal per symbol, sorted by symbol.
func (h *Hub) Latest() []Envelope {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Envelope, 0, len(h.latest))
	for _, e := range h.latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register attaches conn as a client. lastSeq > 0 replays every envelope
// after it; otherwise the client receives the latest signal per symbol.
func (h *Hub) Register(conn *websocket.Conn, lastSeq int64, symbols []string) *Client {
	client := newClient(h, conn, symbols)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.sendInitialLocked(client, lastSeq)
	h.mu.Unlock()

	h.countChanged(count)
	slog.Info("ws client connected", "clients", count)

	go client.writePump()
	go client.readPump()
	return client
}

func (h *Hub) sendInitialLocked(c *Client, lastSeq int64) {
	var initial [][]byte
	if lastSeq > 0 {
		initial = h.replay.After(lastSeq)
	} else {
		for sym, e := range h.latest {
			if !c.wants(sym) {
				continue
			}
			e.Initial = true
			if data, err := json.Marshal(e); err == nil {
				initial = append(initial, data)
			}
		}
	}
	for _, data := range initial {
		select {
		case c.send <- data:
		default:
		}
	}
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	h.countChanged(count)
	slog.Info("ws client disconnected", "clients", count)
}

func (h *Hub) countChanged(n int) {
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
}
