// Package backtest replays stored bars through the same seed, update,
// evaluate and paper-fill path the live robot uses.
package backtest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ibrobot/internal/execution"
	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
	"ibrobot/internal/notification"
	"ibrobot/internal/portfolio"
	"ibrobot/internal/robot"
	"ibrobot/internal/strategy"
)

// RangeReader reads stored bars in a time range, oldest first.
type RangeReader interface {
	ReadBarsRange(symbol string, from, to int64) ([]model.PriceTick, error)
}

// Options configures a replay.
type Options struct {
	Indicator   indicator.Config
	Strategy    strategy.Config
	From, To    int64   // unix seconds; zero is open
	SpreadBps   float64 // synthetic bid/ask spread around each close
	SlippageBps float64
	Logger      *slog.Logger
}

// Result is the outcome for one symbol.
type Result struct {
	Symbol    string
	Bars      int
	Replayed  int
	Signals   map[strategy.Action]int
	Fills     []model.Fill
	Summary   portfolio.PnLSummary
	LastClose float64
	Err       error
}

// Run replays every instrument independently. A symbol that cannot be
// replayed carries its error in Result.Err.
func Run(ctx context.Context, opts Options, reader RangeReader, instruments []model.Instrument) ([]Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	results := make([]Result, 0, len(instruments))
	for _, in := range instruments {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, runSymbol(ctx, opts, reader, in))
	}
	return results, nil
}

func runSymbol(ctx context.Context, opts Options, reader RangeReader, in model.Instrument) Result {
	res := Result{Symbol: in.Symbol, Signals: make(map[strategy.Action]int)}

	bars, err := reader.ReadBarsRange(in.Symbol, opts.From, opts.To)
	if err != nil {
		res.Err = fmt.Errorf("read bars: %w", err)
		return res
	}
	res.Bars = len(bars)

	warmup := opts.Indicator.MinHistory
	if warmup < 2 {
		warmup = 2
	}
	if len(bars) <= warmup {
		res.Err = &indicator.InsufficientHistoryError{Symbol: in.Symbol, Have: len(bars), Need: warmup + 1}
		return res
	}

	feed := &replayFeed{spread: opts.SpreadBps / 10000}
	clock := func() time.Time { return feed.now() }
	paper := execution.NewPaperExecutor(opts.SlippageBps).WithClock(clock)
	sink := &signalCounter{counts: res.Signals}

	bot, err := robot.New(robot.Config{
		Indicator: opts.Indicator,
		Strategy:  opts.Strategy,
		SeedBars:  warmup,
	}, []model.Instrument{in}, robot.Deps{
		Quotes:   feed,
		Bars:     seedBars(bars[:warmup]),
		Signals:  sink,
		Notifier: notification.Multi{},
		Executor: paper,
		Logger:   opts.Logger,
		Now:      clock,
	})
	if err != nil {
		res.Err = err
		return res
	}
	if err := bot.Start(ctx); err != nil {
		res.Err = err
		return res
	}

	for _, bar := range bars[warmup:] {
		feed.bar = bar
		if _, err := bot.Cycle(ctx); err != nil {
			res.Err = err
			break
		}
		res.Replayed++
		res.LastClose = bar.Close
	}

	res.Fills = paper.GetFills()
	res.Summary = bot.PnL().GetSummary(map[string]float64{in.Symbol: res.LastClose})
	return res
}

// replayFeed serves the current bar as the only quote.
type replayFeed struct {
	bar    model.PriceTick
	spread float64
}

func (f *replayFeed) Quotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	half := f.bar.Close * f.spread / 2
	return []model.Quote{{
		Symbol:    f.bar.Symbol,
		Timestamp: f.bar.Timestamp,
		Last:      f.bar.Close,
		Bid:       f.bar.Close - half,
		Ask:       f.bar.Close + half,
	}}, nil
}

func (f *replayFeed) now() time.Time {
	if f.bar.Timestamp == 0 {
		return time.Unix(0, 0).UTC()
	}
	return f.bar.Time()
}

type seedBars []model.PriceTick

func (s seedBars) ReadBars(symbol string, limit int) ([]model.PriceTick, error) {
	return s, nil
}

type signalCounter struct {
	counts map[strategy.Action]int
}

func (c *signalCounter) WriteSignals(signals []strategy.Signal) error {
	for _, s := range signals {
		c.counts[s.Action]++
	}
	return nil
}
