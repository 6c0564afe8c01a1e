// Package redis serves latest-price lookups and fans signals out to
// live subscribers over pubsub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"quant-corev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const defaultLatestTTL = 30 * time.Minute

// Config configures the Redis store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Store reads latest prices and publishes signals.
type Store struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// New creates a Store and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Store{client: client}, nil
}

func priceKey(symbol string) string { return "price:latest:" + symbol }

// GetCurrentPrice returns the latest published price for symbol.
// A missing key maps to ErrMarketDataUnavailable so callers treat a
// cold cache like any other quote outage.
func (s *Store) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := s.client.Get(ctx, priceKey(symbol)).Float64()
	if err == goredis.Nil {
		return 0, fmt.Errorf("%w: no quote for %s", model.ErrMarketDataUnavailable, symbol)
	}
	if err != nil {
		return 0, fmt.Errorf("redis GET %s: %w", priceKey(symbol), err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: stale quote %.6f for %s", model.ErrMarketDataUnavailable, price, symbol)
	}
	return price, nil
}

// SetPrice publishes the latest price for symbol with a freshness TTL.
func (s *Store) SetPrice(ctx context.Context, symbol string, price float64) error {
	if err := s.client.Set(ctx, priceKey(symbol), price, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", priceKey(symbol), err)
	}
	return nil
}

// SetVolatility publishes the symbol's recent return volatility so
// risk scoring downstream can use it without refetching the series.
func (s *Store) SetVolatility(ctx context.Context, symbol string, vol float64) error {
	if err := s.client.Set(ctx, "vol:latest:"+symbol, vol, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis SET vol:latest:%s: %w", symbol, err)
	}
	return nil
}

// GetVolatility returns the latest published volatility for symbol, or
// 0 when none is known. Unlike prices, a missing volatility is soft:
// scoring degrades instead of failing.
func (s *Store) GetVolatility(ctx context.Context, symbol string) (float64, error) {
	vol, err := s.client.Get(ctx, "vol:latest:"+symbol).Float64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis GET vol:latest:%s: %w", symbol, err)
	}
	return vol, nil
}

// PublishSignal pushes one strategy signal: SET latest + PUBLISH, one
// roundtrip.
func (s *Store) PublishSignal(ctx context.Context, sig model.Signal) error {
	data := string(sig.JSON())
	latestKey := "signal:latest:" + sig.Symbol + ":" + sig.Strategy
	pubsubCh := "pub:signal:" + sig.Symbol

	pipe := s.client.Pipeline()
	pipe.Set(ctx, latestKey, data, defaultLatestTTL)
	pipe.Publish(ctx, pubsubCh, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis signal pipeline for %s: %w", sig.Symbol, err)
	}
	return nil
}

// PublishAggregate pushes one combined per-symbol signal.
func (s *Store) PublishAggregate(ctx context.Context, agg model.AggregatedSignal) error {
	data := string(agg.JSON())
	latestKey := "signal:aggregate:latest:" + agg.Symbol
	pubsubCh := "pub:signal:aggregate:" + agg.Symbol

	pipe := s.client.Pipeline()
	pipe.Set(ctx, latestKey, data, defaultLatestTTL)
	pipe.Publish(ctx, pubsubCh, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis aggregate pipeline for %s: %w", agg.Symbol, err)
	}
	return nil
}

// SubscribeAggregates streams combined signals published by the
// engine. The returned channel closes when ctx is cancelled. Messages
// that fail to decode are dropped with a log line.
func (s *Store) SubscribeAggregates(ctx context.Context) <-chan model.AggregatedSignal {
	sub := s.client.PSubscribe(ctx, "pub:signal:aggregate:*")
	out := make(chan model.AggregatedSignal, 64)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var agg model.AggregatedSignal
				if err := json.Unmarshal([]byte(msg.Payload), &agg); err != nil {
					log.Printf("[redis] bad aggregate payload on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- agg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
