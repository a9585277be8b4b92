package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ibrobot/internal/model"
)

// Watchlist is the set of instruments the robot trades.
//
//	account: DU1234567
//	symbols:
//	  - symbol: AAPL
//	    capital: 5000
//	    quantity: 10
//	    profit_margin: 1.05
type Watchlist struct {
	Account string             `yaml:"account"`
	Symbols []model.Instrument `yaml:"symbols"`
}

// DefaultProfitMargin applies when an entry omits profit_margin.
const DefaultProfitMargin = 1.0

// LoadWatchlist reads and validates a YAML watchlist.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return ParseWatchlist(data)
}

// ParseWatchlist decodes a YAML watchlist. Symbols are upper-cased and
// must be unique.
func ParseWatchlist(data []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	if err := wl.normalize(); err != nil {
		return nil, err
	}
	return &wl, nil
}

func (w *Watchlist) normalize() error {
	if len(w.Symbols) == 0 {
		return errors.New("watchlist: no symbols")
	}
	seen := make(map[string]bool, len(w.Symbols))
	var errs []error
	for i := range w.Symbols {
		in := &w.Symbols[i]
		in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
		switch {
		case in.Symbol == "":
			errs = append(errs, fmt.Errorf("watchlist entry %d: empty symbol", i))
			continue
		case seen[in.Symbol]:
			errs = append(errs, fmt.Errorf("watchlist: duplicate symbol %s", in.Symbol))
		}
		seen[in.Symbol] = true
		if in.Quantity < 0 || in.Capital < 0 {
			errs = append(errs, fmt.Errorf("watchlist %s: negative quantity or capital", in.Symbol))
		}
		if in.Quantity == 0 && in.Capital == 0 {
			errs = append(errs, fmt.Errorf("watchlist %s: needs quantity or capital", in.Symbol))
		}
		if in.ProfitMargin == 0 {
			in.ProfitMargin = DefaultProfitMargin
		}
		if in.ProfitMargin < 0 {
			errs = append(errs, fmt.Errorf("watchlist %s: negative profit_margin", in.Symbol))
		}
	}
	return errors.Join(errs...)
}

// SymbolNames returns the watchlist symbols in file order.
func (w *Watchlist) SymbolNames() []string {
	out := make([]string, len(w.Symbols))
	for i, in := range w.Symbols {
		out[i] = in.Symbol
	}
	return out
}

// Lookup returns the instrument for symbol.
func (w *Watchlist) Lookup(symbol string) (model.Instrument, bool) {
	for _, in := range w.Symbols {
		if in.Symbol == symbol {
			return in, true
		}
	}
	return model.Instrument{}, false
}
