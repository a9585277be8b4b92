package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ibrobot/internal/execution"
	"ibrobot/internal/model"
	"ibrobot/internal/strategy"
)

func buySignal() strategy.Signal {
	return strategy.Signal{
		ID:           "sig-1",
		Symbol:       "AAPL",
		Timestamp:    1700000000,
		Action:       strategy.ActionBuy,
		Reason:       "rsi oversold, macd above signal",
		RSI:          24.5,
		MACD:         0.31,
		MACDSignal:   0.12,
		CurrentPrice: 142.5,
		BidPrice:     142.4,
		AskPrice:     142.6,
	}
}

func TestSignalAlert(t *testing.T) {
	a := SignalAlert(buySignal())
	if a.Title != "BUY AAPL" {
		t.Errorf("title=%q", a.Title)
	}
	if a.Symbol != "AAPL" || a.Signal == nil || a.Signal.ID != "sig-1" {
		t.Errorf("alert=%+v", a)
	}
	if !strings.Contains(a.Message, "rsi=24.50") {
		t.Errorf("message=%q", a.Message)
	}
}

func TestOrderAlert(t *testing.T) {
	order := model.Order{Symbol: "AAPL", Side: "BUY", Qty: 10, Price: 142.6}
	filled := OrderAlert(execution.OrderResult{
		Order:  order,
		Status: execution.StatusFilled,
		Fill:   &model.Fill{Symbol: "AAPL", Side: "BUY", Qty: 10, Price: 142.61},
	})
	if filled.Level != AlertInfo || !strings.Contains(filled.Message, "filled 10 @ 142.61") {
		t.Errorf("filled alert=%+v", filled)
	}

	rejected := OrderAlert(execution.OrderResult{Order: order, Status: execution.StatusRejected, Message: "max open positions"})
	if rejected.Level != AlertWarning || rejected.Message != "max open positions" {
		t.Errorf("rejected alert=%+v", rejected)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type=%s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	n.now = func() time.Time { return time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC) }

	if err := n.Send(context.Background(), SignalAlert(buySignal())); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Title != "BUY AAPL" || got.TS != "2026-03-10T14:30:00Z" {
		t.Errorf("payload=%+v", got)
	}
	if got.Signal == nil || got.Signal.RSI != 24.5 {
		t.Errorf("payload signal=%+v", got.Signal)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("err=%v, want status 502", err)
	}
}

func TestTelegramNotifier(t *testing.T) {
	var path string
	var msg telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &msg)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.apiBase = srv.URL
	if err := n.Send(context.Background(), SignalAlert(buySignal())); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path=%s", path)
	}
	if msg.ChatID != "42" || msg.ParseMode != "MarkdownV2" {
		t.Errorf("msg=%+v", msg)
	}
	if !strings.HasPrefix(msg.Text, "🟢 *BUY AAPL*") {
		t.Errorf("text=%q", msg.Text)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("rsi=24.5 (low)"); got != `rsi\=24\.5 \(low\)` {
		t.Errorf("escapeMarkdown=%q", got)
	}
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Send(context.Context, Alert) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &stubNotifier{}, &stubNotifier{err: boom}, &stubNotifier{}
	err := Multi{a, b, c}.Send(context.Background(), Alert{Title: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("err=%v, want boom", err)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls=%d,%d,%d", a.calls, b.calls, c.calls)
	}
	if err := (Multi{a}).Send(context.Background(), Alert{}); err != nil {
		t.Errorf("err=%v, want nil", err)
	}
}
