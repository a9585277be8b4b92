package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"ibrobot/internal/model"
	"ibrobot/internal/strategy"
)

func openPair(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "robot.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return w, r
}

func TestBars_WriteAndReadRecent(t *testing.T) {
	w, r := openPair(t)

	var bars []model.PriceTick
	for i := 9; i >= 0; i-- { // written newest first on purpose
		bars = append(bars, model.PriceTick{Symbol: "AAPL", Timestamp: int64(1000 + i*60), Close: 100 + float64(i)})
	}
	bars = append(bars, model.PriceTick{Symbol: "MSFT", Timestamp: 1000, Close: 300})
	if err := w.WriteBars(bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	// Replace one bar.
	if err := w.WriteBars([]model.PriceTick{{Symbol: "AAPL", Timestamp: 1000 + 9*60, Close: 250}}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := r.ReadBars("AAPL", 3)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	for i, want := range []float64{107, 108, 250} {
		if got[i].Close != want {
			t.Errorf("bar %d close=%f, want %f", i, got[i].Close, want)
		}
	}
	if got[0].Timestamp >= got[1].Timestamp {
		t.Error("bars not ordered oldest first")
	}

	all, err := r.ReadBars("AAPL", 0)
	if err != nil || len(all) != 10 {
		t.Fatalf("ReadBars(all): len=%d err=%v", len(all), err)
	}
	rng, err := r.ReadBarsRange("AAPL", 1060, 1180)
	if err != nil || len(rng) != 3 {
		t.Fatalf("ReadBarsRange: len=%d err=%v", len(rng), err)
	}

	syms, err := r.Symbols()
	if err != nil || fmt.Sprint(syms) != "[AAPL MSFT]" {
		t.Errorf("Symbols=%v err=%v", syms, err)
	}

	last, err := w.LastBarTimestamp("AAPL")
	if err != nil || last != 1000+9*60 {
		t.Errorf("LastBarTimestamp=%d err=%v", last, err)
	}
	last, err = w.LastBarTimestamp("NONE")
	if err != nil || last != 0 {
		t.Errorf("LastBarTimestamp(NONE)=%d err=%v", last, err)
	}
}

func TestSignals_WriteAndRead(t *testing.T) {
	w, r := openPair(t)

	sigs := []strategy.Signal{
		{ID: "a", Symbol: "AAPL", Timestamp: 100, Action: strategy.ActionNoSignal, Regime: strategy.RegimeNeutral, RSI: 45},
		{ID: "b", Symbol: "AAPL", Timestamp: 160, Action: strategy.ActionBuy, Regime: strategy.RegimeBuyBias, Reason: "oversold",
			RSI: 22.5, MACD: 0.3, MACDSignal: 0.1, AskPrice: 150.1, BidPrice: 149.9, CurrentPrice: 150},
		{ID: "c", Symbol: "MSFT", Timestamp: 160, Action: strategy.ActionSell, Regime: strategy.RegimeSellBias, InPortfolio: true, PurchasePrice: 280},
	}
	if err := w.WriteSignals(sigs); err != nil {
		t.Fatalf("WriteSignals: %v", err)
	}
	// Duplicate IDs are ignored.
	if err := w.WriteSignals(sigs[:1]); err != nil {
		t.Fatalf("WriteSignals dup: %v", err)
	}

	got, err := r.ReadSignals("AAPL", 10)
	if err != nil {
		t.Fatalf("ReadSignals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0] != sigs[1] {
		t.Errorf("newest signal: %+v, want %+v", got[0], sigs[1])
	}

	got, err = r.ReadSignals("MSFT", 10)
	if err != nil || len(got) != 1 || !got[0].InPortfolio || got[0].Action != strategy.ActionSell {
		t.Errorf("MSFT signals: %+v err=%v", got, err)
	}
}

func TestSnapshots_LatestAndPrune(t *testing.T) {
	w, _ := openPair(t)
	ctx := context.Background()

	data, err := w.ReadLatestSnapshotJSON(ctx)
	if err != nil || data != nil {
		t.Fatalf("empty: data=%q err=%v", data, err)
	}

	for i := 0; i < 15; i++ {
		if err := w.SaveSnapshotJSON(ctx, []byte(fmt.Sprintf(`{"n":%d}`, i))); err != nil {
			t.Fatalf("SaveSnapshotJSON: %v", err)
		}
	}
	data, err = w.ReadLatestSnapshotJSON(ctx)
	if err != nil || string(data) != `{"n":14}` {
		t.Errorf("latest=%q err=%v", data, err)
	}

	var n int
	if err := w.DB().QueryRow(`SELECT COUNT(*) FROM state_snapshots`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != snapshotsKept {
		t.Errorf("kept %d snapshots, want %d", n, snapshotsKept)
	}
}
