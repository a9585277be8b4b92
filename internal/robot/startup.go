package robot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
	"ibrobot/internal/portfolio"
)

// Start restores the latest checkpoint and seeds every watchlist symbol the
// checkpoint did not cover. Symbols without enough history are excluded.
func (r *Robot) Start(ctx context.Context) error {
	restored := r.restore(ctx)
	for _, sym := range restored {
		r.adoptRestored(sym)
	}

	limit := r.cfg.SeedBars
	if limit <= 0 {
		limit = r.container.Engine().Config().MinHistory * 5
	}
	for _, sym := range r.symbols {
		if _, ok := r.container.Get(sym); ok {
			continue
		}
		if err := r.seed(sym, limit); err != nil {
			r.excluded[sym] = err
			if m := r.deps.Metrics; m != nil {
				m.SeedFailures.Inc()
			}
			var ih *indicator.InsufficientHistoryError
			if errors.As(err, &ih) {
				r.log.Warn("symbol excluded: insufficient history", "symbol", sym, "have", ih.Have, "need", ih.Need)
			} else {
				r.log.Error("symbol excluded: seed failed", "symbol", sym, "error", err)
			}
		}
	}

	n := r.container.Len()
	if m := r.deps.Metrics; m != nil {
		m.SymbolsTracked.Set(float64(n))
	}
	if n == 0 {
		return errors.New("robot: no symbol could be seeded")
	}
	r.log.Info("state ready", "restored", len(restored), "seeded", n-len(restored), "excluded", len(r.excluded))
	return nil
}

// restore loads the first usable snapshot, trying stores in order.
func (r *Robot) restore(ctx context.Context) []string {
	keep := func(sym string) bool {
		_, ok := r.watchlist[sym]
		return ok
	}
	for _, store := range r.deps.Snapshots {
		data, err := store.ReadLatestSnapshotJSON(ctx)
		if err != nil {
			r.log.Warn("snapshot read failed", "store", store.Name, "error", err)
			continue
		}
		if data == nil {
			continue
		}
		restored, skipped, err := r.container.UnmarshalSnapshot(data, keep)
		if err != nil {
			r.log.Warn("snapshot restore failed", "store", store.Name, "error", err)
			continue
		}
		for _, sym := range skipped {
			r.log.Warn("snapshot slot not usable, reseeding", "store", store.Name, "symbol", sym)
		}
		if len(restored) > 0 {
			r.log.Info("restored from snapshot", "store", store.Name, "symbols", len(restored))
			return restored
		}
	}
	return nil
}

// adoptRestored refreshes sizing from the current watchlist while keeping
// the checkpointed position, and re-registers held positions.
func (r *Robot) adoptRestored(sym string) {
	slot, _ := r.container.Get(sym)
	in := r.watchlist[sym]
	facts := in.Facts()
	facts.InPortfolio = slot.Facts.InPortfolio
	facts.PurchasePrice = slot.Facts.PurchasePrice
	r.container.UpdateFacts(sym, facts)

	if facts.InPortfolio {
		qty := heldQuantity(facts)
		r.portfolio.Open(sym, qty, facts.PurchasePrice)
		// cost basis for realized P&L when the holding is sold
		r.pnl.RecordTrade(portfolio.Trade{Symbol: sym, Action: "BUY", Qty: qty, Price: facts.PurchasePrice, Timestamp: r.now()})
		r.log.Info("restored open position", "symbol", sym, "qty", qty, "purchase_price", facts.PurchasePrice)
	}
}

// heldQuantity reconstructs the size of a checkpointed holding from the
// same rule BUY orders are sized with.
func heldQuantity(f model.PortfolioFact) int64 {
	if f.Quantity > 0 {
		return f.Quantity
	}
	if f.PurchasePrice <= 0 {
		return 0
	}
	return int64(math.Floor(f.Capital / f.PurchasePrice))
}

func (r *Robot) seed(sym string, limit int) error {
	bars, err := r.deps.Bars.ReadBars(sym, limit)
	if err != nil {
		return fmt.Errorf("read bars %s: %w", sym, err)
	}
	return r.container.Seed(sym, bars, r.watchlist[sym].Facts())
}
