package opportunity

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/memcache"
	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
	"github.com/nodies-labs/liqsentinel/internal/routeengine"
)

func addr(t *testing.T, s string) domain.Address {
	t.Helper()
	a, err := domain.ParseAddress(s)
	if err != nil {
		t.Fatalf("bad address: %v", err)
	}
	return a
}

var selectorGetPair = abi.Selector("getPair(address,address)")
var selectorGetReserves = abi.Selector("getReserves()")

// fakeRPC answers decimals()/getPair/getReserves calls from a fixed script,
// enough to drive the evaluator without a real network.
type fakeRPC struct {
	decimals map[domain.Address]uint8
	pair     domain.Address
	reserve0 *big.Int
	reserve1 *big.Int
}

func hexResult(b []byte) json.RawMessage {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	enc, _ := json.Marshal("0x" + string(out))
	return enc
}

func (f *fakeRPC) Call(ctx context.Context, to string, data []byte, blockTag string) (json.RawMessage, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("short calldata")
	}
	var selector [4]byte
	copy(selector[:], data[:4])

	switch selector {
	case selectorDecimals:
		a, err := domain.ParseAddress(to)
		if err != nil {
			return nil, err
		}
		d, ok := f.decimals[a]
		if !ok {
			d = 18
		}
		return hexResult(abi.EncodeUint256(big.NewInt(int64(d)))), nil
	case selectorGetPair:
		return hexResult(abi.EncodeAddress(f.pair)), nil
	case selectorGetReserves:
		out := append(abi.EncodeUint256(f.reserve0), abi.EncodeUint256(f.reserve1)...)
		return hexResult(out), nil
	default:
		return nil, fmt.Errorf("unexpected selector %x", selector)
	}
}

func (f *fakeRPC) BatchCall(ctx context.Context, reqs []outbound.BatchCallRequest) ([]outbound.BatchCallResult, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeRPC) SendRawPublic(ctx context.Context, rawTxHex string) (string, error)  { return "", nil }
func (f *fakeRPC) SendRawPrivate(ctx context.Context, rawTxHex string) (string, error) { return "", nil }
func (f *fakeRPC) GetBlockByNumber(ctx context.Context, tag string, fullTx bool) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeRPC) BlockNumber(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRPC) TransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeRPC) TransactionCount(ctx context.Context, address, tag string) (uint64, error) {
	return 0, nil
}
func (f *fakeRPC) MaxPriorityFeePerGas(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRPC) NewBlockFilter(ctx context.Context) (string, error)      { return "", nil }
func (f *fakeRPC) GetFilterChanges(ctx context.Context, filterID string) ([]json.RawMessage, error) {
	return nil, nil
}
func (f *fakeRPC) UninstallFilter(ctx context.Context, filterID string) error { return nil }

var _ outbound.RPCClient = (*fakeRPC)(nil)

type fakePriceOracle struct {
	prices map[domain.Address]float64
}

func (f *fakePriceOracle) PriceUSD(ctx context.Context, token domain.Address) (float64, error) {
	if v, ok := f.prices[token]; ok {
		return v, nil
	}
	return 1.0, nil
}

func newTestEvaluator(t *testing.T, rpc outbound.RPCClient, prices outbound.PriceOracle, cfg Config) *Evaluator {
	t.Helper()
	route := routeengine.New(rpc, memcache.NewPairs(), memcache.NewReserves(), memcache.NewRouterQuotes())
	exA := routeengine.Exchange{Name: "a", Factory: addr(t, "0x0000000000000000000000000000000000000009"), Router: addr(t, "0x000000000000000000000000000000000000000b")}
	exB := routeengine.Exchange{Name: "b", Factory: addr(t, "0x0000000000000000000000000000000000000009"), Router: addr(t, "0x000000000000000000000000000000000000000b")}
	return New(cfg, rpc, memcache.NewDecimals(), nil, prices, route, exA, exB, domain.ZeroAddress, domain.ZeroAddress)
}

func TestEvaluateSkipsBelowMinLiquidationUSD(t *testing.T) {
	rpc := &fakeRPC{pair: addr(t, "0x00000000000000000000000000000000000000aa"), reserve0: big.NewInt(1_000_000_000), reserve1: big.NewInt(1_000_000_000)}
	cfg := Config{
		MinLiquidationUSD:   1_000,
		MaxLiquidationUSD:   100_000,
		MaxSlippageBps:      500,
		DefaultReserveParams: domain.ReserveParams{CloseFactorBps: 5_000, LiquidationBonusBps: 10_500},
	}
	e := newTestEvaluator(t, rpc, &fakePriceOracle{}, cfg)

	target := domain.LiquidationTarget{
		User:              addr(t, "0x0000000000000000000000000000000000000001"),
		DebtAsset:         addr(t, "0x0000000000000000000000000000000000000002"),
		CollateralAsset:   addr(t, "0x0000000000000000000000000000000000000003"),
		EstimatedUSDValue: 100, // capped_repay = 5000bps*100/10000 = 50, below MinLiquidationUSD
	}

	out, err := e.Evaluate(context.Background(), target, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SkipReason != domain.SkipBelowMinLiquidationUSD {
		t.Errorf("got skip reason %q, want %q", out.SkipReason, domain.SkipBelowMinLiquidationUSD)
	}
}

func TestEvaluateClampsToMaxLiquidationUSD(t *testing.T) {
	deepReserve := new(big.Int).Exp(big.NewInt(10), big.NewInt(25), nil) // 10M tokens at 18 decimals
	rpc := &fakeRPC{pair: addr(t, "0x00000000000000000000000000000000000000aa"), reserve0: deepReserve, reserve1: deepReserve}
	cfg := Config{
		MinLiquidationUSD:   10,
		MaxLiquidationUSD:   1_000,
		SplitTriggerUSD:     1_000_000,
		MaxSlippageBps:      100,
		DefaultReserveParams: domain.ReserveParams{CloseFactorBps: 10_000, LiquidationBonusBps: 10_500},
	}
	e := newTestEvaluator(t, rpc, &fakePriceOracle{}, cfg)

	target := domain.LiquidationTarget{
		User:              addr(t, "0x0000000000000000000000000000000000000001"),
		DebtAsset:         addr(t, "0x0000000000000000000000000000000000000002"),
		CollateralAsset:   addr(t, "0x0000000000000000000000000000000000000003"),
		EstimatedUSDValue: 50_000, // capped_repay = 50000, clamped to 1000
	}

	out, err := e.Evaluate(context.Background(), target, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SkipReason != "" {
		t.Fatalf("unexpected skip: %v", out.SkipReason)
	}
	if out.Params == nil {
		t.Fatalf("expected params")
	}
	// debt_units = capped_repay_usd / price(1.0) * 10^18 = 1000e18
	want := new(big.Int).Mul(big.NewInt(1000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	if out.Params.DebtToCover.Cmp(want) != 0 {
		t.Errorf("got debt_to_cover %s, want %s", out.Params.DebtToCover, want)
	}
}

func TestEvaluateSkipsProfitGuardWhenOutputBelowRequired(t *testing.T) {
	// Thin reserves make the swap leg's output collapse well below the
	// notional amount needed to cover debt + premium + gas.
	rpc := &fakeRPC{pair: addr(t, "0x00000000000000000000000000000000000000aa"), reserve0: big.NewInt(1_000), reserve1: big.NewInt(1_000)}
	cfg := Config{
		MinLiquidationUSD:   1,
		MaxLiquidationUSD:   1_000_000,
		SplitTriggerUSD:     1_000_000,
		MaxSlippageBps:      500,
		DefaultReserveParams: domain.ReserveParams{CloseFactorBps: 10_000, LiquidationBonusBps: 10_500},
	}
	e := newTestEvaluator(t, rpc, &fakePriceOracle{}, cfg)

	target := domain.LiquidationTarget{
		User:              addr(t, "0x0000000000000000000000000000000000000001"),
		DebtAsset:         addr(t, "0x0000000000000000000000000000000000000002"),
		CollateralAsset:   addr(t, "0x0000000000000000000000000000000000000003"),
		EstimatedUSDValue: 100_000,
	}

	out, err := e.Evaluate(context.Background(), target, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SkipReason != domain.SkipProfitGuard {
		t.Errorf("got skip reason %q, want %q", out.SkipReason, domain.SkipProfitGuard)
	}
}

func TestEvaluateSingleRouteWhenBelowSplitTrigger(t *testing.T) {
	deepReserve := new(big.Int).Exp(big.NewInt(10), big.NewInt(25), nil) // 10M tokens at 18 decimals
	rpc := &fakeRPC{pair: addr(t, "0x00000000000000000000000000000000000000aa"), reserve0: deepReserve, reserve1: deepReserve}
	cfg := Config{
		MinLiquidationUSD:   1,
		MaxLiquidationUSD:   1_000_000,
		SplitTriggerUSD:     100, // well above this opportunity's size
		MaxSlippageBps:      100,
		DefaultReserveParams: domain.ReserveParams{CloseFactorBps: 10_000, LiquidationBonusBps: 10_500},
	}
	e := newTestEvaluator(t, rpc, &fakePriceOracle{}, cfg)

	target := domain.LiquidationTarget{
		User:              addr(t, "0x0000000000000000000000000000000000000001"),
		DebtAsset:         addr(t, "0x0000000000000000000000000000000000000002"),
		CollateralAsset:   addr(t, "0x0000000000000000000000000000000000000003"),
		EstimatedUSDValue: 10,
	}

	out, err := e.Evaluate(context.Background(), target, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SkipReason != "" {
		t.Fatalf("unexpected skip: %v", out.SkipReason)
	}
	if len(out.Params.Swaps) != 1 {
		t.Errorf("got %d swap legs, want 1 (below split trigger)", len(out.Params.Swaps))
	}
}
