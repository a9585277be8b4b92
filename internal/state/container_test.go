package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
	"ibrobot/internal/strategy"
)

const t0 = int64(1_700_000_000)

func newContainer(t *testing.T) *Container {
	t.Helper()
	eng, err := indicator.NewEngine(indicator.DefaultConfig(), indicator.WithWarningHook(func(indicator.DivisionAmbiguityWarning) {}))
	require.NoError(t, err)
	ev, err := strategy.NewEvaluator(strategy.DefaultConfig(), func() string { return "id" })
	require.NoError(t, err)
	return NewContainer(eng, ev)
}

func rising(symbol string, n int, start float64) []model.PriceTick {
	out := make([]model.PriceTick, n)
	for i := range out {
		out[i] = model.PriceTick{Symbol: symbol, Timestamp: t0 + int64(i)*60, Close: start + float64(i)}
	}
	return out
}

func TestSeedAndGet(t *testing.T) {
	c := newContainer(t)
	facts := model.PortfolioFact{ProfitMarginThreshold: 1.05, Quantity: 5}
	require.NoError(t, c.Seed("AAPL", rising("AAPL", 60, 100), facts))

	s, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 60, s.Indicators.Bars)
	assert.Equal(t, facts, s.Facts)
	assert.Equal(t, 9, s.History.Len())

	_, ok = c.Get("MSFT")
	assert.False(t, ok)
	assert.Equal(t, []string{"AAPL"}, c.Symbols())
}

func TestSeed_InsufficientHistoryLeavesNoSlot(t *testing.T) {
	c := newContainer(t)
	err := c.Seed("AAPL", rising("AAPL", 10, 100), model.PortfolioFact{})
	assert.True(t, errors.Is(err, indicator.ErrInsufficientHistory))
	assert.Equal(t, 0, c.Len())
}

func TestGetReturnsDeepCopy(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.Seed("AAPL", rising("AAPL", 60, 100), model.PortfolioFact{}))

	s, _ := c.Get("AAPL")
	s.History.Push(12345)
	s.Indicators.RSI = -1
	s.Facts.InPortfolio = true

	again, _ := c.Get("AAPL")
	last, _ := again.History.Last()
	assert.NotEqual(t, 12345.0, last)
	assert.NotEqual(t, -1.0, again.Indicators.RSI)
	assert.False(t, again.Facts.InPortfolio)
}

func TestStep(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.Seed("AAPL", rising("AAPL", 60, 100), model.PortfolioFact{
		InPortfolio: true, PurchasePrice: 100, ProfitMarginThreshold: 1.05,
	}))

	sig, err := c.Step("AAPL", model.Quote{Symbol: "AAPL", Timestamp: t0 + 60*60, Last: 157, Bid: 156.9, Ask: 157.1})
	require.NoError(t, err)
	assert.Equal(t, strategy.ActionSell, sig.Action)

	s, _ := c.Get("AAPL")
	assert.Equal(t, 61, s.Indicators.Bars)
	assert.Equal(t, 157.0, s.Indicators.PrevClose)
	last, _ := s.History.Last()
	assert.Equal(t, s.Indicators.MACD, last)
}

func TestStep_RepeatedBarIsNotFolded(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.Seed("AAPL", rising("AAPL", 60, 100), model.PortfolioFact{}))

	q := model.Quote{Symbol: "AAPL", Timestamp: t0 + 60*60, Last: 157, Bid: 156.9, Ask: 157.1}
	_, err := c.Step("AAPL", q)
	require.NoError(t, err)
	once, _ := c.Get("AAPL")

	_, err = c.Step("AAPL", q)
	require.ErrorIs(t, err, ErrUnchangedQuote)
	again, _ := c.Get("AAPL")
	assert.Equal(t, once.Indicators, again.Indicators)
	assert.Equal(t, once.History.Values(), again.History.Values())

	// Same timestamp with a new close is still a valid tick.
	q.Last = 158
	_, err = c.Step("AAPL", q)
	require.NoError(t, err)
	moved, _ := c.Get("AAPL")
	assert.Equal(t, 62, moved.Indicators.Bars)
}

func TestStep_OutOfOrderDoesNotCommit(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.Seed("AAPL", rising("AAPL", 60, 100), model.PortfolioFact{}))
	before, _ := c.Get("AAPL")

	_, err := c.Step("AAPL", model.Quote{Symbol: "AAPL", Timestamp: t0, Last: 1})
	require.ErrorIs(t, err, indicator.ErrOutOfOrderTick)

	after, _ := c.Get("AAPL")
	assert.Equal(t, before.Indicators, after.Indicators)
	assert.Equal(t, before.History.Values(), after.History.Values())
}

func TestStep_UnknownSymbol(t *testing.T) {
	c := newContainer(t)
	_, err := c.Step("NOPE", model.Quote{Symbol: "NOPE"})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.ErrorIs(t, c.UpdateFacts("NOPE", model.PortfolioFact{}), ErrUnknownSymbol)
}

func TestUpdateFactsKeepsIndicators(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.Seed("AAPL", rising("AAPL", 60, 100), model.PortfolioFact{}))
	before, _ := c.Get("AAPL")

	require.NoError(t, c.UpdateFacts("AAPL", model.PortfolioFact{InPortfolio: true, PurchasePrice: 150}))
	after, _ := c.Get("AAPL")
	assert.Equal(t, before.Indicators, after.Indicators)
	assert.True(t, after.Facts.InPortfolio)
	assert.Equal(t, 150.0, after.Facts.PurchasePrice)
}

func TestConcurrentStepsOnDisjointSymbols(t *testing.T) {
	c := newContainer(t)
	symbols := []string{"A", "B", "C", "D", "E", "F"}
	for _, s := range symbols {
		require.NoError(t, c.Seed(s, rising(s, 60, 50), model.PortfolioFact{}))
	}

	var wg sync.WaitGroup
	for _, s := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := c.Step(sym, model.Quote{Symbol: sym, Timestamp: t0 + int64(60+i)*60, Last: 100 + float64(i%5)})
				assert.NoError(t, err)
				_ = c.UpdateFacts(sym, model.PortfolioFact{Quantity: int64(i)})
			}
		}(s)
	}
	wg.Wait()

	for _, s := range symbols {
		slot, ok := c.Get(s)
		require.True(t, ok)
		assert.Equal(t, 110, slot.Indicators.Bars)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.Seed("AAPL", rising("AAPL", 60, 100), model.PortfolioFact{InPortfolio: true, PurchasePrice: 120}))
	require.NoError(t, c.Seed("MSFT", rising("MSFT", 70, 300), model.PortfolioFact{}))

	data, err := c.MarshalSnapshot(time.Unix(t0, 0))
	require.NoError(t, err)

	restored := newContainer(t)
	syms, skipped, err := restored.UnmarshalSnapshot(data, func(s string) bool { return s != "MSFT" })
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, syms)
	assert.Empty(t, skipped)

	orig, _ := c.Get("AAPL")
	got, ok := restored.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, orig.Indicators, got.Indicators)
	assert.Equal(t, orig.History.Values(), got.History.Values())
	assert.Equal(t, orig.Facts, got.Facts)

	// Restored and original slots advance identically.
	q := model.Quote{Symbol: "AAPL", Timestamp: t0 + 3600, Last: 158, Bid: 157.9, Ask: 158.1}
	a, err := c.Step("AAPL", q)
	require.NoError(t, err)
	b, err := restored.Step("AAPL", q)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRestore_RejectsBadInput(t *testing.T) {
	c := newContainer(t)
	_, _, err := c.Restore(Snapshot{Version: 99}, nil)
	assert.Error(t, err)

	_, _, err = c.UnmarshalSnapshot([]byte("{not json"), nil)
	assert.Error(t, err)

	syms, _, err := c.UnmarshalSnapshot(nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, syms)

	syms, skipped, err := c.Restore(Snapshot{Version: SnapshotVersion, Slots: []SlotSnapshot{
		{Indicators: indicator.State{Symbol: "X", Bars: 60, RSI: 140}},
		{Indicators: indicator.State{Symbol: "Y"}},
	}}, nil)
	require.NoError(t, err)
	assert.Empty(t, syms)
	assert.Equal(t, []string{"X", "Y"}, skipped)
}
