package redis

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"ibrobot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// QuoteSource reads the latest quote of each symbol from its quote hash.
type QuoteSource struct {
	client *goredis.Client
	maxAge time.Duration
	now    func() time.Time
}

// NewQuoteSource creates a QuoteSource. Quotes older than maxAge are
// skipped; zero accepts any age.
func NewQuoteSource(client *goredis.Client, maxAge time.Duration) *QuoteSource {
	return &QuoteSource{client: client, maxAge: maxAge, now: time.Now}
}

// Quotes fetches every symbol in one pipeline. Symbols with no hash, an
// incomplete hash or a stale timestamp are omitted.
func (s *QuoteSource) Quotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.StringStringMapCmd, len(symbols))
	for i, sym := range symbols {
		cmds[i] = pipe.HGetAll(ctx, QuoteKey(sym))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return nil, fmt.Errorf("redis quotes pipeline: %w", err)
	}

	now := s.now()
	out := make([]model.Quote, 0, len(symbols))
	for i, sym := range symbols {
		fields, err := cmds[i].Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		q, err := ParseQuote(sym, fields)
		if err != nil {
			log.Printf("[redis-quotes] %s: %v", sym, err)
			continue
		}
		if s.maxAge > 0 && now.Sub(time.Unix(q.Timestamp, 0)) > s.maxAge {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// ParseQuote converts a quote hash into a Quote. last and ts are required;
// a missing bid or ask falls back to last.
func ParseQuote(symbol string, fields map[string]string) (model.Quote, error) {
	q := model.Quote{Symbol: symbol}

	last, ok := fields["last"]
	if !ok {
		return q, fmt.Errorf("quote hash missing last")
	}
	var err error
	if q.Last, err = strconv.ParseFloat(last, 64); err != nil {
		return q, fmt.Errorf("bad last %q: %w", last, err)
	}
	ts, ok := fields["ts"]
	if !ok {
		return q, fmt.Errorf("quote hash missing ts")
	}
	if q.Timestamp, err = strconv.ParseInt(ts, 10, 64); err != nil {
		return q, fmt.Errorf("bad ts %q: %w", ts, err)
	}

	q.Bid, q.Ask = q.Last, q.Last
	if v, ok := fields["bid"]; ok {
		if q.Bid, err = strconv.ParseFloat(v, 64); err != nil {
			return q, fmt.Errorf("bad bid %q: %w", v, err)
		}
	}
	if v, ok := fields["ask"]; ok {
		if q.Ask, err = strconv.ParseFloat(v, 64); err != nil {
			return q, fmt.Errorf("bad ask %q: %w", v, err)
		}
	}
	return q, nil
}

// QuoteFields is the hash form of q, as written by a feed.
func QuoteFields(q model.Quote) map[string]interface{} {
	return map[string]interface{}{
		"last": strconv.FormatFloat(q.Last, 'f', -1, 64),
		"bid":  strconv.FormatFloat(q.Bid, 'f', -1, 64),
		"ask":  strconv.FormatFloat(q.Ask, 'f', -1, 64),
		"ts":   strconv.FormatInt(q.Timestamp, 10),
	}
}
