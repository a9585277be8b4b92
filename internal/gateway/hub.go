// Package gateway streams signals to dashboard clients over WebSocket and
// serves the latest and journaled signals over REST.
package gateway

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ibrobot/internal/strategy"
)

// Hooks let the caller observe the hub, e.g. to update metrics.
type Hooks struct {
	OnClients func(n int)
	OnDrop    func()
}

// Hub manages WebSocket clients and fans signals out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	replay *ReplayBuffer
	hooks  Hooks
	now    func() time.Time
}

type latestEntry struct {
	Symbol string
	Data   json.RawMessage
	TS     time.Time
	Seq    int64
}

// NewHub creates a hub keeping replaySize envelopes for reconnecting clients.
func NewHub(replaySize int, hooks Hooks) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
		replay:  NewReplayBuffer(replaySize),
		hooks:   hooks,
		now:     time.Now,
	}
}

// PublishSignals broadcasts each signal on its symbol.
func (h *Hub) PublishSignals(signals []strategy.Signal) {
	for _, sig := range signals {
		data, err := json.Marshal(sig)
		if err != nil {
			log.Printf("[gateway] marshal signal %s: %v", sig.Symbol, err)
			continue
		}
		h.Broadcast(sig.Symbol, data)
	}
}

// Broadcast sends a signal payload to every client subscribed to symbol.
func (h *Hub) Broadcast(symbol string, data []byte) {
	now := h.now().UTC()

	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.latest[symbol] = latestEntry{Symbol: symbol, Data: data, TS: now, Seq: seq}
	h.mu.Unlock()

	buf := buildEnvelope(symbol, data, now, seq, false)
	h.replay.Push(seq, buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.matches(symbol) {
			continue
		}
		h.trySend(client, buf)
	}
}

// trySend never blocks the broadcaster; slow clients lose messages and can
// backfill from the replay buffer.
func (h *Hub) trySend(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		if h.hooks.OnDrop != nil {
			h.hooks.OnDrop()
		}
	}
}

// Register attaches an upgraded connection and starts its pumps. A positive
// sinceSeq replays buffered envelopes after that sequence; otherwise the
// latest signal per symbol is sent.
func (h *Hub) Register(conn *websocket.Conn, symbols []string, sinceSeq int64) *Client {
	client := newClient(conn, h, symbols)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.hooks.OnClients != nil {
		h.hooks.OnClients(count)
	}

	if sinceSeq > 0 {
		client.sendReplay(sinceSeq)
	} else {
		client.sendInitialState()
	}
	go client.writePump()
	go client.readPump()
	return client
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
	h.mu.Unlock()
	close(c.send)

	if h.hooks.OnClients != nil {
		h.hooks.OnClients(count)
	}
}

// LatestAll returns the latest signal payload per symbol.
func (h *Hub) LatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// Missed returns buffered envelopes with seq in [fromSeq, toSeq].
func (h *Hub) Missed(fromSeq, toSeq int64) [][]byte {
	entries := h.replay.Range(fromSeq, toSeq)
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Data
	}
	return out
}

// Seq returns the last broadcast sequence number.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) latestSorted() []latestEntry {
	h.mu.RLock()
	out := make([]latestEntry, 0, len(h.latest))
	for _, e := range h.latest {
		out = append(out, e)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
