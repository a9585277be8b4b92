package indicator

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrOutOfOrderTick      = errors.New("out-of-order tick")
	ErrSymbolMismatch      = errors.New("symbol mismatch")
)

// InsufficientHistoryError is returned by Seed when fewer than
// Config.MinHistory bars are supplied.
type InsufficientHistoryError struct {
	Symbol string
	Have   int
	Need   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("indicator: %s: insufficient history: have %d bars, need %d", e.Symbol, e.Have, e.Need)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }

// OutOfOrderTickError is returned when a tick is older than the last bar
// folded into the state. The state is left untouched.
type OutOfOrderTickError struct {
	Symbol string
	Last   int64
	Got    int64
}

func (e *OutOfOrderTickError) Error() string {
	return fmt.Sprintf("indicator: %s: out-of-order tick: last=%d got=%d", e.Symbol, e.Last, e.Got)
}

func (e *OutOfOrderTickError) Unwrap() error { return ErrOutOfOrderTick }

// SymbolMismatchError is returned when a tick does not belong to the state
// it is applied to.
type SymbolMismatchError struct {
	Want string
	Got  string
}

func (e *SymbolMismatchError) Error() string {
	return fmt.Sprintf("indicator: symbol mismatch: state=%s tick=%s", e.Want, e.Got)
}

func (e *SymbolMismatchError) Unwrap() error { return ErrSymbolMismatch }

// DivisionAmbiguityWarning is raised when the RSI ratio is undefined because
// the average loss is zero. Applied is the RSI that was substituted.
// It is reported through the engine's warning hook and never fails a step.
type DivisionAmbiguityWarning struct {
	Symbol    string
	Timestamp int64
	AvgGain   float64
	AvgLoss   float64
	Applied   float64
}

func (w DivisionAmbiguityWarning) Error() string {
	return fmt.Sprintf("indicator: %s: rsi undefined (avg_gain=%g avg_loss=%g), applied %g",
		w.Symbol, w.AvgGain, w.AvgLoss, w.Applied)
}
