package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the trading loop from concrete storage
// implementations (Redis, SQLite).

// BarReader reads stored closes used to seed indicator state.
type BarReader interface {
	// ReadBars returns up to limit most recent bars for symbol, oldest first.
	ReadBars(symbol string, limit int) ([]PriceTick, error)
}

// BarWriter appends closes to the bar history.
type BarWriter interface {
	WriteBars(ticks []PriceTick) error
}

// SnapshotStore reads and writes per-symbol state snapshots as raw JSON.
// Using []byte avoids a model→state import cycle.
type SnapshotStore interface {
	// SaveSnapshotJSON persists a JSON-encoded snapshot.
	SaveSnapshotJSON(ctx context.Context, data []byte) error

	// ReadLatestSnapshotJSON loads the most recent snapshot as raw JSON.
	// Returns nil, nil if no snapshot exists.
	ReadLatestSnapshotJSON(ctx context.Context) ([]byte, error)
}

// QuoteSource supplies the current quote for each requested symbol.
// Symbols without a fresh quote are omitted from the result.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) ([]Quote, error)
}
