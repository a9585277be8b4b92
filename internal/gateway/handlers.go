package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"ibrobot/internal/strategy"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SignalReader reads journaled signals.
type SignalReader interface {
	ReadSignals(symbol string, limit int) ([]strategy.Signal, error)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Mux is the subset of http.ServeMux the routes need.
type Mux interface {
	Handle(pattern string, h http.Handler)
}

// RegisterRoutes mounts the WebSocket stream and the signal REST endpoints.
// journal may be nil.
//
//	GET /ws?symbols=AAPL,MSFT&since_seq=N
//	GET /api/signals/latest
//	GET /api/signals?symbol=AAPL&limit=100
//	GET /api/signals/missed?from=N&to=M
func RegisterRoutes(mux Mux, hub *Hub, journal SignalReader) {
	mux.Handle("/ws", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		q := r.URL.Query()
		since, _ := strconv.ParseInt(q.Get("since_seq"), 10, 64)
		hub.Register(conn, splitSymbols(q.Get("symbols")), since)
	}))

	mux.Handle("/api/signals/latest", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.LatestAll())
	}))

	mux.Handle("/api/signals/missed", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := strconv.ParseInt(q.Get("from"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from is required"})
			return
		}
		to, _ := strconv.ParseInt(q.Get("to"), 10, 64)
		msgs := hub.Missed(from, to)
		out := make([]json.RawMessage, len(msgs))
		for i, m := range msgs {
			out[i] = m
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"seq": hub.Seq(), "envelopes": out})
	}))

	mux.Handle("/api/signals", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "signal journal disabled"})
			return
		}
		q := r.URL.Query()
		symbol := q.Get("symbol")
		if symbol == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
			return
		}
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil || limit <= 0 {
			limit = 100
		}
		sigs, err := journal.ReadSignals(symbol, limit)
		if err != nil {
			log.Printf("[gateway] read signals %s: %v", symbol, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "read failed"})
			return
		}
		writeJSON(w, http.StatusOK, sigs)
	}))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
