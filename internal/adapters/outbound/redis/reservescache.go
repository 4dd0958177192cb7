// Package redis provides an optional distributed implementation of the
// ReservesCache and RouterQuoteCache ports, for running
// several liquidator processes against a shared freshness view instead of
// each holding its own in-memory cache. A short TTL stands in for
// EvictBelow's block-height-driven eviction, since Redis has no notion of
// chain height.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// Compile-time checks that ReservesCache and RouterQuoteCache implement
// their respective outbound ports.
var (
	_ outbound.ReservesCache    = (*ReservesCache)(nil)
	_ outbound.RouterQuoteCache = (*RouterQuoteCache)(nil)
)

// Config holds Redis connection and freshness configuration shared by both
// caches.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// TTL is how long an entry lives before expiring, standing in for
	// EvictBelow's per-block eviction.
	TTL time.Duration
	// KeyPrefix is prepended to all cache keys.
	KeyPrefix string
}

// ConfigDefaults returns sensible defaults for Redis cache configuration.
func ConfigDefaults() Config {
	return Config{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		TTL:       2 * time.Minute, // about 60 Polygon blocks at ~2s each
		KeyPrefix: "liqsentinel",
	}
}

func newClient(cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

type reservesEntry struct {
	PairAddress string `json:"pair_address"`
	ReserveIn   string `json:"reserve_in"`
	ReserveOut  string `json:"reserve_out"`
	BlockNumber int64  `json:"block_number"`
}

// ReservesCache is a Redis implementation of outbound.ReservesCache.
type ReservesCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// NewReservesCache creates a new Redis-backed reserves cache.
func NewReservesCache(cfg Config, logger *slog.Logger) (*ReservesCache, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservesCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With("component", "redis-reserves-cache"),
	}, nil
}

func (c *ReservesCache) key(pair domain.Address) string {
	return fmt.Sprintf("%s:reserves:%s", c.keyPrefix, pair.Hex())
}

// Get satisfies outbound.ReservesCache. A miss (including an expired
// entry) is reported as (zero, false), never an error — callers fall back
// to an on-chain read.
func (c *ReservesCache) Get(pair domain.Address, block int64) (domain.PairReserves, bool) {
	ctx := context.Background()
	raw, err := c.client.Get(ctx, c.key(pair)).Bytes()
	if err != nil {
		return domain.PairReserves{}, false
	}
	var entry reservesEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("corrupt reserves cache entry", "pair", pair.Hex(), "error", err)
		return domain.PairReserves{}, false
	}
	if entry.BlockNumber < block {
		return domain.PairReserves{}, false
	}
	pairAddr, err := domain.ParseAddress(entry.PairAddress)
	if err != nil {
		return domain.PairReserves{}, false
	}
	reserveIn, ok1 := new(big.Int).SetString(entry.ReserveIn, 10)
	reserveOut, ok2 := new(big.Int).SetString(entry.ReserveOut, 10)
	if !ok1 || !ok2 {
		return domain.PairReserves{}, false
	}
	return domain.PairReserves{
		PairAddress: pairAddr,
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
		BlockNumber: entry.BlockNumber,
	}, true
}

// Put stores the newest-known reserves for a pair, overwriting any older
// entry regardless of block number — callers only Put what they just read.
func (c *ReservesCache) Put(pair domain.Address, reserves domain.PairReserves) {
	ctx := context.Background()
	entry := reservesEntry{
		PairAddress: reserves.PairAddress.Hex(),
		ReserveIn:   reserves.ReserveIn.String(),
		ReserveOut:  reserves.ReserveOut.String(),
		BlockNumber: reserves.BlockNumber,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("failed to marshal reserves entry", "pair", pair.Hex(), "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(pair), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache reserves", "pair", pair.Hex(), "error", err)
	}
}

// EvictBelow is a no-op: staleness is bounded by TTL here, not tracked per
// entry, since Redis has no index over the block-number field to scan.
func (c *ReservesCache) EvictBelow(newestBlock int64) {}

// Close closes the underlying Redis connection.
func (c *ReservesCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection.
func (c *ReservesCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// RouterQuoteCache is a Redis implementation of outbound.RouterQuoteCache,
// memoizing on-chain getAmountsOut fallback results across processes.
type RouterQuoteCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// NewRouterQuoteCache creates a new Redis-backed router quote cache.
func NewRouterQuoteCache(cfg Config, logger *slog.Logger) (*RouterQuoteCache, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RouterQuoteCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With("component", "redis-router-quote-cache"),
	}, nil
}

func (c *RouterQuoteCache) key(key outbound.QuoteKey) string {
	return fmt.Sprintf("%s:quote:%s:%s:%s:%d", c.keyPrefix, key.Router.Hex(), key.Path, key.AmountIn, key.Block)
}

// Get satisfies outbound.RouterQuoteCache.
func (c *RouterQuoteCache) Get(key outbound.QuoteKey) (*big.Int, bool) {
	ctx := context.Background()
	raw, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		return nil, false
	}
	amountOut, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, false
	}
	return amountOut, true
}

// Put stores a router quote result.
func (c *RouterQuoteCache) Put(key outbound.QuoteKey, amountOut *big.Int) {
	ctx := context.Background()
	if err := c.client.Set(ctx, c.key(key), amountOut.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache router quote", "router", key.Router.Hex(), "error", err)
	}
}

// EvictBelow is a no-op for the same reason as ReservesCache.EvictBelow.
func (c *RouterQuoteCache) EvictBelow(newestBlock int64) {}

// Close closes the underlying Redis connection.
func (c *RouterQuoteCache) Close() error {
	return c.client.Close()
}
