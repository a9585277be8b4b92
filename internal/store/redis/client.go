// Package redis connects the robot to Redis: the quote feed it polls, the
// signal streams it publishes, and the state checkpoint it keeps.
//
// Key layout:
//
//	quote:{symbol}          hash  last, bid, ask, ts (written by the feed)
//	signals:{symbol}        stream of signal JSON
//	signal:latest:{symbol}  latest signal JSON, with TTL
//	pub:signal:{symbol}     pub/sub channel of signal JSON
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Dial creates a client and pings the server.
func Dial(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return client, nil
}

func QuoteKey(symbol string) string        { return "quote:" + symbol }
func SignalStream(symbol string) string    { return "signals:" + symbol }
func SignalLatestKey(symbol string) string { return "signal:latest:" + symbol }
func SignalChannel(symbol string) string   { return "pub:signal:" + symbol }

// SignalChannelPattern matches every per-symbol signal channel.
const SignalChannelPattern = "pub:signal:*"

// SymbolFromChannel extracts the symbol from a signal channel name.
func SymbolFromChannel(channel string) (string, bool) {
	const prefix = "pub:signal:"
	if len(channel) <= len(prefix) || channel[:len(prefix)] != prefix {
		return "", false
	}
	return channel[len(prefix):], true
}
