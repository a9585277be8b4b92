// Package sqlite stores bar history, the signal log and state snapshots in a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"ibrobot/internal/model"
	"ibrobot/internal/strategy"

	_ "github.com/mattn/go-sqlite3"
)

// snapshotsKept is how many state snapshots survive pruning.
const snapshotsKept = 10

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/robot.db"
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			close  REAL    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id             TEXT PRIMARY KEY,
			symbol         TEXT    NOT NULL,
			ts             INTEGER NOT NULL,
			action         TEXT    NOT NULL,
			regime         TEXT    NOT NULL,
			reason         TEXT,
			rsi            REAL,
			macd           REAL,
			macd_signal    REAL,
			ema_short      REAL,
			ema_long       REAL,
			avg_gain       REAL,
			avg_loss       REAL,
			current_price  REAL,
			bid_price      REAL,
			ask_price      REAL,
			purchase_price REAL,
			in_portfolio   INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, ts);

		CREATE TABLE IF NOT EXISTS state_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}

// WriteBars inserts closes in a single transaction. A bar already stored
// for the same symbol and timestamp is replaced.
func (w *Writer) WriteBars(bars []model.PriceTick) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO bars (symbol, ts, close) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Symbol, b.Timestamp, b.Close); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar %s@%d: %w", b.Symbol, b.Timestamp, err)
		}
	}
	return tx.Commit()
}

// WriteSignals appends signals to the signal log in a single transaction.
func (w *Writer) WriteSignals(signals []strategy.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO signals (id, symbol, ts, action, regime, reason, rsi, macd, macd_signal,
			ema_short, ema_long, avg_gain, avg_loss, current_price, bid_price, ask_price, purchase_price, in_portfolio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range signals {
		_, err := stmt.Exec(s.ID, s.Symbol, s.Timestamp, string(s.Action), string(s.Regime), s.Reason,
			s.RSI, s.MACD, s.MACDSignal, s.EMAShort, s.EMALong, s.AvgGain, s.AvgLoss,
			s.CurrentPrice, s.BidPrice, s.AskPrice, s.PurchasePrice, s.InPortfolio)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert signal %s: %w", s.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] committed %d signals in %v", len(signals), time.Since(start))
	return nil
}

// LastBarTimestamp returns the newest stored bar timestamp for symbol, or 0.
func (w *Writer) LastBarTimestamp(symbol string) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(`SELECT MAX(ts) FROM bars WHERE symbol = ?`, symbol).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SaveSnapshotJSON stores a state snapshot and prunes old ones.
func (w *Writer) SaveSnapshotJSON(ctx context.Context, data []byte) error {
	_, err := w.db.ExecContext(ctx, `INSERT INTO state_snapshots (data, created_at) VALUES (?, ?)`,
		string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert snapshot: %w", err)
	}

	_, err = w.db.ExecContext(ctx, `DELETE FROM state_snapshots WHERE id NOT IN (SELECT id FROM state_snapshots ORDER BY id DESC LIMIT ?)`, snapshotsKept)
	if err != nil {
		log.Printf("[sqlite] prune snapshots warning: %v", err)
	}
	return nil
}

// ReadLatestSnapshotJSON returns the newest snapshot, or nil when none exists.
func (w *Writer) ReadLatestSnapshotJSON(ctx context.Context) ([]byte, error) {
	var data string
	err := w.db.QueryRowContext(ctx, `SELECT data FROM state_snapshots ORDER BY id DESC LIMIT 1`).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read snapshot: %w", err)
	}
	return []byte(data), nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
