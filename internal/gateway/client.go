package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Symbols this client follows; empty means all.
	subMu   sync.RWMutex
	symbols map[string]bool
}

// clientMsg is a control message from the client.
//
//	{"type":"SUBSCRIBE","symbols":["AAPL"]}
//	{"type":"UNSUBSCRIBE","symbols":["AAPL"]}
//	{"ping":1700000000000}
type clientMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
	Ping    int64    `json:"ping"`
}

func newClient(conn *websocket.Conn, hub *Hub, symbols []string) *Client {
	c := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     hub,
		symbols: make(map[string]bool),
	}
	for _, s := range symbols {
		c.symbols[s] = true
	}
	return c
}

// matches reports whether the client follows symbol.
func (c *Client) matches(symbol string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.symbols) == 0 || c.symbols[symbol]
}

func (c *Client) sendInitialState() {
	for _, entry := range c.hub.latestSorted() {
		if !c.matches(entry.Symbol) {
			continue
		}
		c.hub.trySend(c, buildEnvelope(entry.Symbol, entry.Data, entry.TS, entry.Seq, true))
	}
}

func (c *Client) sendReplay(sinceSeq int64) {
	for _, e := range c.hub.replay.Range(sinceSeq+1, 0) {
		c.hub.trySend(c, e.Data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg clientMsg
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}

		switch msg.Type {
		case "SUBSCRIBE":
			c.subMu.Lock()
			for _, s := range msg.Symbols {
				c.symbols[s] = true
			}
			c.subMu.Unlock()
			c.reply(map[string]interface{}{"type": "subscribed", "symbols": msg.Symbols})
		case "UNSUBSCRIBE":
			c.subMu.Lock()
			for _, s := range msg.Symbols {
				delete(c.symbols, s)
			}
			c.subMu.Unlock()
			c.reply(map[string]interface{}{"type": "unsubscribed", "symbols": msg.Symbols})
		default:
			if msg.Ping > 0 {
				c.reply(map[string]interface{}{
					"type":      "pong",
					"ping":      msg.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
			}
		}
	}
}

func (c *Client) reply(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.hub.trySend(c, data)
}
