// cmd/backtest replays stored bars from SQLite through the indicator engine,
// the decision rules and the paper executor, then prints per-symbol results.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/robot.db --watchlist=watchlist.yaml
//	go run ./cmd/backtest --symbols=AAPL,MSFT --qty=10 --spread-bps=5
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ibrobot/config"
	"ibrobot/internal/backtest"
	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
	sqlitestore "ibrobot/internal/store/sqlite"
	"ibrobot/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	dbPath := flag.String("db", "data/robot.db", "Path to SQLite database")
	watchlist := flag.String("watchlist", "", "YAML watchlist supplying sizing and margins")
	symbolsStr := flag.String("symbols", "", "Comma-separated symbols (default: the watchlist, else every symbol with bars)")
	qty := flag.Int64("qty", 10, "Order quantity when --symbols is used")
	margin := flag.Float64("margin", 1.05, "Profit margin threshold when --symbols is used")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start replay from (0=all)")
	toTS := flag.Int64("to", 0, "Unix timestamp to stop replay at (0=all)")
	warmup := flag.Int("warmup", 52, "Bars used to seed indicators")
	spread := flag.Float64("spread-bps", 0, "Synthetic bid/ask spread in basis points")
	slippage := flag.Float64("slippage-bps", 0, "Paper fill slippage in basis points")
	rsiBuy := flag.Float64("rsi-buy", 30, "RSI at or below which the regime is BUY_BIAS")
	rsiSell := flag.Float64("rsi-sell", 60, "RSI at or above which the regime is SELL_BIAS")
	skipProfit := flag.Bool("skip-profit-check", false, "Drop the profit conditions from SELL")
	flag.Parse()

	reader, err := sqlitestore.NewReader(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer reader.Close()

	instruments, err := loadInstruments(reader, *watchlist, *symbolsStr, *qty, *margin)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	if len(instruments) == 0 {
		log.Fatal("[backtest] no symbols to replay")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ic := indicator.DefaultConfig()
	ic.MinHistory = *warmup
	opts := backtest.Options{
		Indicator: ic,
		Strategy: strategy.Config{
			RSIBuyThreshold:  *rsiBuy,
			RSISellThreshold: *rsiSell,
			SkipProfitCheck:  *skipProfit,
		},
		From:        *fromTS,
		To:          *toTS,
		SpreadBps:   *spread,
		SlippageBps: *slippage,
	}

	results, err := backtest.Run(ctx, opts, reader, instruments)
	if err != nil {
		log.Printf("[backtest] stopped early: %v", err)
	}
	render(results)
}

func loadInstruments(reader *sqlitestore.Reader, watchlist, symbols string, qty int64, margin float64) ([]model.Instrument, error) {
	var names []string
	for _, s := range strings.Split(symbols, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			names = append(names, s)
		}
	}

	if watchlist != "" {
		wl, err := config.LoadWatchlist(watchlist)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return wl.Symbols, nil
		}
		out := make([]model.Instrument, 0, len(names))
		for _, n := range names {
			in, ok := wl.Lookup(n)
			if !ok {
				return nil, fmt.Errorf("%s is not in %s", n, watchlist)
			}
			out = append(out, in)
		}
		return out, nil
	}

	if len(names) == 0 {
		all, err := reader.Symbols()
		if err != nil {
			return nil, err
		}
		names = all
	}
	out := make([]model.Instrument, len(names))
	for i, n := range names {
		out[i] = model.Instrument{Symbol: n, Quantity: qty, ProfitMargin: margin}
	}
	return out, nil
}

func render(results []backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Bars", "Replayed", "BUY", "SELL", "Fills", "Realized", "Unrealized", "W/L", "Note"})

	var realized, unrealized float64
	var fills int
	for _, r := range results {
		note := ""
		if r.Err != nil {
			note = r.Err.Error()
		} else if r.Summary.OpenPositions > 0 {
			note = fmt.Sprintf("open @ %.2f", r.LastClose)
		}
		t.AppendRow(table.Row{
			r.Symbol,
			r.Bars,
			r.Replayed,
			r.Signals[strategy.ActionBuy],
			r.Signals[strategy.ActionSell],
			len(r.Fills),
			fmt.Sprintf("%.2f", r.Summary.RealizedPnL),
			fmt.Sprintf("%.2f", r.Summary.UnrealizedPnL),
			fmt.Sprintf("%d/%d", r.Summary.Wins, r.Summary.Losses),
			note,
		})
		realized += r.Summary.RealizedPnL
		unrealized += r.Summary.UnrealizedPnL
		fills += len(r.Fills)
	}
	t.AppendFooter(table.Row{"TOTAL", "", "", "", "", fills,
		fmt.Sprintf("%.2f", realized), fmt.Sprintf("%.2f", unrealized), "", ""})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 10, WidthMax: 40},
	})
	t.Render()
}
