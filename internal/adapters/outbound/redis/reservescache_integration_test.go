//go:build integration

package redis

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

func setupRedisConfig(t *testing.T, ttl time.Duration) (Config, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cfg := Config{Addr: fmt.Sprintf("%s:%s", host, port.Port()), TTL: ttl, KeyPrefix: "test"}
	cleanup := func() { container.Terminate(ctx) }
	return cfg, cleanup
}

func TestReservesCache_PutGet_RoundTrip(t *testing.T) {
	cfg, cleanup := setupRedisConfig(t, 1*time.Hour)
	defer cleanup()

	cache, err := NewReservesCache(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cache.Close()

	pair := domain.MustParseAddress("0x0000000000000000000000000000000000000001")
	reserves := domain.PairReserves{
		PairAddress: pair,
		ReserveIn:   big.NewInt(1_000_000),
		ReserveOut:  big.NewInt(2_000_000),
		BlockNumber: 100,
	}
	cache.Put(pair, reserves)

	got, ok := cache.Get(pair, 100)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.ReserveIn.Cmp(reserves.ReserveIn) != 0 || got.ReserveOut.Cmp(reserves.ReserveOut) != 0 {
		t.Errorf("got %+v, want %+v", got, reserves)
	}
}

func TestReservesCache_GetStaleBlockIsAMiss(t *testing.T) {
	cfg, cleanup := setupRedisConfig(t, 1*time.Hour)
	defer cleanup()

	cache, err := NewReservesCache(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cache.Close()

	pair := domain.MustParseAddress("0x0000000000000000000000000000000000000001")
	cache.Put(pair, domain.PairReserves{PairAddress: pair, ReserveIn: big.NewInt(1), ReserveOut: big.NewInt(1), BlockNumber: 100})

	if _, ok := cache.Get(pair, 101); ok {
		t.Error("expected a miss when the cached block is older than requested")
	}
}

func TestRouterQuoteCache_PutGet_RoundTrip(t *testing.T) {
	cfg, cleanup := setupRedisConfig(t, 1*time.Hour)
	defer cleanup()

	cache, err := NewRouterQuoteCache(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cache.Close()

	key := outbound.QuoteKey{
		Router:   domain.MustParseAddress("0x0000000000000000000000000000000000000001"),
		Path:     "a-b",
		AmountIn: "1000",
		Block:    10,
	}
	cache.Put(key, big.NewInt(987))

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Cmp(big.NewInt(987)) != 0 {
		t.Errorf("got %s, want 987", got)
	}
}
