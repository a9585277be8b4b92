package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"ibrobot/internal/strategy"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultStreamMaxLen = 5000
	defaultLatestTTL    = 24 * time.Hour
	defaultMaxBuffered  = 10000
)

// PublisherConfig configures the signal publisher.
type PublisherConfig struct {
	StreamMaxLen int64
	LatestTTL    time.Duration
	MaxBuffered  int // signals kept while Redis is unavailable
}

// SignalPublisher fans signals out to Redis: XADD to the symbol stream,
// SET of the latest signal, and PUBLISH for live subscribers. Writes go
// through a circuit breaker; signals that cannot be written are buffered
// and sent ahead of the next batch.
type SignalPublisher struct {
	client *goredis.Client
	cb     *CircuitBreaker
	cfg    PublisherConfig
	send   func(ctx context.Context, batch []strategy.Signal) error

	mu     sync.Mutex
	buffer []strategy.Signal

	// Callbacks (optional)
	OnBuffer func(pending int)
	OnFlush  func(count int)
}

// NewSignalPublisher creates a publisher writing through cb.
func NewSignalPublisher(client *goredis.Client, cb *CircuitBreaker, cfg PublisherConfig) *SignalPublisher {
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = defaultStreamMaxLen
	}
	if cfg.LatestTTL <= 0 {
		cfg.LatestTTL = defaultLatestTTL
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = defaultMaxBuffered
	}
	p := &SignalPublisher{client: client, cb: cb, cfg: cfg}
	p.send = p.writePipeline
	return p
}

// Publish writes signals, preceded by anything buffered from earlier
// failures. On failure the whole batch is buffered; ErrCircuitOpen is
// swallowed since the breaker already reported the outage.
func (p *SignalPublisher) Publish(ctx context.Context, signals []strategy.Signal) error {
	p.mu.Lock()
	pending := p.buffer
	p.buffer = nil
	p.mu.Unlock()

	batch := append(pending, signals...)
	if len(batch) == 0 {
		return nil
	}

	err := p.cb.Execute(func() error { return p.send(ctx, batch) })
	if err != nil {
		p.bufferBatch(batch)
		if errors.Is(err, ErrCircuitOpen) {
			return nil
		}
		return err
	}

	if len(pending) > 0 {
		log.Printf("[redis-signals] flushed %d buffered signals", len(pending))
		if p.OnFlush != nil {
			p.OnFlush(len(pending))
		}
	}
	return nil
}

// PendingCount returns the number of buffered signals.
func (p *SignalPublisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

func (p *SignalPublisher) bufferBatch(batch []strategy.Signal) {
	p.mu.Lock()
	// Signals published while this batch was in flight go after it.
	p.buffer = append(batch, p.buffer...)
	if over := len(p.buffer) - p.cfg.MaxBuffered; over > 0 {
		p.buffer = p.buffer[over:] // drop oldest
	}
	n := len(p.buffer)
	p.mu.Unlock()

	if p.OnBuffer != nil {
		p.OnBuffer(n)
	}
}

func (p *SignalPublisher) writePipeline(ctx context.Context, batch []strategy.Signal) error {
	pipe := p.client.Pipeline()
	for i := range batch {
		sig := &batch[i]
		data, err := json.Marshal(sig)
		if err != nil {
			log.Printf("[redis-signals] marshal %s: %v", sig.ID, err)
			continue
		}
		jsonData := string(data)

		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: SignalStream(sig.Symbol),
			MaxLen: p.cfg.StreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Set(ctx, SignalLatestKey(sig.Symbol), jsonData, p.cfg.LatestTTL)
		pipe.Publish(ctx, SignalChannel(sig.Symbol), jsonData)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// LatestSignal reads the last published signal of symbol.
// Returns nil, nil when none is stored.
func (p *SignalPublisher) LatestSignal(ctx context.Context, symbol string) (*strategy.Signal, error) {
	data, err := p.client.Get(ctx, SignalLatestKey(symbol)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var sig strategy.Signal
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}
