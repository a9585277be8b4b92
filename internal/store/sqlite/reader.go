package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	"ibrobot/internal/model"
	"ibrobot/internal/strategy"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for seeding and backtests.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadBars returns the limit most recent bars for symbol, oldest first.
// limit <= 0 returns every bar.
func (r *Reader) ReadBars(symbol string, limit int) ([]model.PriceTick, error) {
	if limit <= 0 {
		return r.ReadBarsRange(symbol, 0, 0)
	}
	rows, err := r.db.Query(`
		SELECT symbol, ts, close FROM (
			SELECT symbol, ts, close FROM bars
			WHERE symbol = ?
			ORDER BY ts DESC
			LIMIT ?
		) ORDER BY ts ASC
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	return scanBars(rows)
}

// ReadBarsRange returns bars for symbol with from <= ts <= to, oldest first.
// A zero bound is open.
func (r *Reader) ReadBarsRange(symbol string, from, to int64) ([]model.PriceTick, error) {
	if to <= 0 {
		to = 1<<63 - 1
	}
	rows, err := r.db.Query(`
		SELECT symbol, ts, close FROM bars
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	return scanBars(rows)
}

func scanBars(rows *sql.Rows) ([]model.PriceTick, error) {
	defer rows.Close()
	var bars []model.PriceTick
	for rows.Next() {
		var b model.PriceTick
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Symbols lists every symbol with stored bars.
func (r *Reader) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReadSignals returns the last limit signals for symbol, newest first.
func (r *Reader) ReadSignals(symbol string, limit int) ([]strategy.Signal, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, ts, action, regime, reason, rsi, macd, macd_signal, ema_short, ema_long,
			avg_gain, avg_loss, current_price, bid_price, ask_price, purchase_price, in_portfolio
		FROM signals
		WHERE symbol = ?
		ORDER BY ts DESC, rowid DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []strategy.Signal
	for rows.Next() {
		var s strategy.Signal
		var action, regime string
		var reason sql.NullString
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Timestamp, &action, &regime, &reason,
			&s.RSI, &s.MACD, &s.MACDSignal, &s.EMAShort, &s.EMALong, &s.AvgGain, &s.AvgLoss,
			&s.CurrentPrice, &s.BidPrice, &s.AskPrice, &s.PurchasePrice, &s.InPortfolio); err != nil {
			return nil, fmt.Errorf("sqlite scan signals: %w", err)
		}
		s.Action = strategy.Action(action)
		s.Regime = strategy.Regime(regime)
		s.Reason = reason.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
