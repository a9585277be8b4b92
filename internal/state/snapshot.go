package state

import (
	"encoding/json"
	"fmt"
	"time"

	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
	"ibrobot/internal/ringbuf"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// SlotSnapshot is the serialised form of a Slot.
type SlotSnapshot struct {
	Indicators  indicator.State     `json:"indicators"`
	MACDHistory []float64           `json:"macd_history"`
	Facts       model.PortfolioFact `json:"facts"`
}

// Snapshot holds the full container state at a point in time.
type Snapshot struct {
	Version int            `json:"version"`
	TakenAt int64          `json:"taken_at"`
	Slots   []SlotSnapshot `json:"slots"`
}

// Snapshot captures every slot, sorted by symbol.
func (c *Container) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{Version: SnapshotVersion, TakenAt: now.Unix()}
	for _, sym := range c.Symbols() {
		s, ok := c.Get(sym)
		if !ok {
			continue
		}
		var hist []float64
		if s.History != nil {
			hist = s.History.Values()
		}
		snap.Slots = append(snap.Slots, SlotSnapshot{
			Indicators:  s.Indicators,
			MACDHistory: hist,
			Facts:       s.Facts,
		})
	}
	return snap
}

// MarshalSnapshot encodes the container state as JSON.
func (c *Container) MarshalSnapshot(now time.Time) ([]byte, error) {
	return json.Marshal(c.Snapshot(now))
}

// Restore installs the slots of snap for which keep returns true (all of
// them when keep is nil). It returns the restored symbols and the kept
// symbols whose indicator state was not usable.
func (c *Container) Restore(snap Snapshot, keep func(symbol string) bool) (restored, skipped []string, err error) {
	if snap.Version != SnapshotVersion {
		return nil, nil, fmt.Errorf("state: snapshot version %d, want %d", snap.Version, SnapshotVersion)
	}
	capacity := c.engine.Config().MACDHistory

	for _, ss := range snap.Slots {
		sym := ss.Indicators.Symbol
		if sym == "" || (keep != nil && !keep(sym)) {
			continue
		}
		if !ss.Indicators.Seeded() || !ss.Indicators.Valid() {
			skipped = append(skipped, sym)
			continue
		}
		c.Replace(sym, Slot{
			Indicators: ss.Indicators,
			History:    ringbuf.FromValues(capacity, ss.MACDHistory),
			Facts:      ss.Facts,
		})
		restored = append(restored, sym)
	}
	return restored, skipped, nil
}

// UnmarshalSnapshot decodes data and restores it. Empty data restores
// nothing.
func (c *Container) UnmarshalSnapshot(data []byte, keep func(symbol string) bool) (restored, skipped []string, err error) {
	if len(data) == 0 {
		return nil, nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("state: decode snapshot: %w", err)
	}
	return c.Restore(snap, keep)
}
