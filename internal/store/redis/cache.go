package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tripleconfirm/internal/model"
)

const defaultReportTTL = 15 * time.Minute

// Config configures the Redis report cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // lifetime of report:{symbol}; 0 means 15m
}

// Key helpers. Reports are cached under report:{symbol}; every newly fired
// signal is published on pub:signal:{symbol}.
func ReportKey(symbol string) string     { return "report:" + symbol }
func SignalChannel(symbol string) string { return "pub:signal:" + symbol }

// SignalPattern matches every signal channel.
const SignalPattern = "pub:signal:*"

// Cache stores the latest report per symbol and fans signals out over
// Redis PubSub.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates a Cache and pings the server.
func New(cfg Config) (*Cache, error) {
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

	slog.Info("redis connected", "addr", cfg.Addr)
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// SaveReport stores rep under report:{symbol} with the configured TTL.
func (c *Cache) SaveReport(ctx context.Context, rep model.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", rep.Symbol, err)
	}
	if err := c.client.Set(ctx, ReportKey(rep.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", ReportKey(rep.Symbol), err)
	}
	return nil
}

// LatestReport returns the cached report for symbol, or nil when there is
// none (never cached or expired).
func (c *Cache) LatestReport(ctx context.Context, symbol string) (*model.Report, error) {
	data, err := c.client.Get(ctx, ReportKey(symbol)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", ReportKey(symbol), err)
	}
	var rep model.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", symbol, err)
	}
	return &rep, nil
}

// PublishSignal publishes v on pub:signal:{symbol}.
func (c *Cache) PublishSignal(ctx context.Context, symbol string, v model.SignalView) error {
	data, err := encodeSignal(symbol, v)
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, SignalChannel(symbol), data).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", SignalChannel(symbol), err)
	}
	return nil
}

// SignalMessage is the PubSub payload for a published signal.
type SignalMessage struct {
	Symbol string           `json:"symbol"`
	Signal model.SignalView `json:"signal"`
}

func encodeSignal(symbol string, v model.SignalView) ([]byte, error) {
	data, err := json.Marshal(SignalMessage{Symbol: symbol, Signal: v})
	if err != nil {
		return nil, fmt.Errorf("marshal signal %s: %w", symbol, err)
	}
	return data, nil
}

// SubscribeSignals delivers every message published on pub:signal:* to fn
// until ctx is cancelled.
func (c *Cache) SubscribeSignals(ctx context.Context, fn func(channel string, payload []byte)) {
	pubsub := c.client.PSubscribe(ctx, SignalPattern)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fn(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
