package execution

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal persists trade fills to SQLite for analysis and audit.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		action      TEXT NOT NULL,
		qty         INTEGER NOT NULL,
		limit_price REAL NOT NULL,
		fill_price  REAL NOT NULL,
		realized    REAL DEFAULT 0,
		reason      TEXT,
		filled_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_filled_at ON trades(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// TradeEntry is what the robot records per fill.
type TradeEntry struct {
	Result   OrderResult
	Realized float64
	Reason   string
}

// Record persists a filled order.
func (j *Journal) Record(e TradeEntry) error {
	if e.Result.Fill == nil {
		return fmt.Errorf("journal: order %s has no fill", e.Result.Order.OrderID)
	}
	f := e.Result.Fill

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (order_id, symbol, action, qty, limit_price, fill_price, realized, reason, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.OrderID,
		f.Symbol,
		f.Side,
		f.Qty,
		e.Result.Order.Price,
		f.Price,
		e.Realized,
		e.Reason,
		f.FilledAt.UTC().Format(time.RFC3339),
	)
	return err
}

// TradeRecord represents a row from the trades table.
type TradeRecord struct {
	ID         int64   `json:"id"`
	OrderID    string  `json:"order_id"`
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Qty        int64   `json:"qty"`
	LimitPrice float64 `json:"limit_price"`
	FillPrice  float64 `json:"fill_price"`
	Realized   float64 `json:"realized"`
	Reason     string  `json:"reason"`
	FilledAt   string  `json:"filled_at"`
}

// GetTrades returns the last N trades, newest first.
func (j *Journal) GetTrades(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, order_id, symbol, action, qty, limit_price, fill_price, realized, reason, filled_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var reason sql.NullString
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Action, &t.Qty,
			&t.LimitPrice, &t.FillPrice, &t.Realized, &reason, &t.FilledAt); err != nil {
			continue
		}
		t.Reason = reason.String
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
