package txbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

func addr(t *testing.T, s string) domain.Address {
	t.Helper()
	a, err := domain.ParseAddress(s)
	if err != nil {
		t.Fatalf("bad address: %v", err)
	}
	return a
}

type fakeRPC struct {
	baseFeeHex       string
	priorityFee      int64
	priorityFeeErr   error
	nonce            uint64
}

func (f *fakeRPC) Call(ctx context.Context, to string, data []byte, blockTag string) (json.RawMessage, error) {
	return nil, fmt.Errorf("not used")
}
func (f *fakeRPC) BatchCall(ctx context.Context, reqs []outbound.BatchCallRequest) ([]outbound.BatchCallResult, error) {
	return nil, fmt.Errorf("not used")
}
func (f *fakeRPC) SendRawPublic(ctx context.Context, rawTxHex string) (string, error)  { return "0xabc", nil }
func (f *fakeRPC) SendRawPrivate(ctx context.Context, rawTxHex string) (string, error) { return "0xabc", nil }
func (f *fakeRPC) GetBlockByNumber(ctx context.Context, tag string, fullTx bool) (json.RawMessage, error) {
	body := fmt.Sprintf(`{"baseFeePerGas":%q}`, f.baseFeeHex)
	return json.RawMessage(body), nil
}
func (f *fakeRPC) BlockNumber(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRPC) TransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeRPC) TransactionCount(ctx context.Context, address, tag string) (uint64, error) {
	return f.nonce, nil
}
func (f *fakeRPC) MaxPriorityFeePerGas(ctx context.Context) (int64, error) {
	return f.priorityFee, f.priorityFeeErr
}
func (f *fakeRPC) NewBlockFilter(ctx context.Context) (string, error) { return "", nil }
func (f *fakeRPC) GetFilterChanges(ctx context.Context, filterID string) ([]json.RawMessage, error) {
	return nil, nil
}
func (f *fakeRPC) UninstallFilter(ctx context.Context, filterID string) error { return nil }

var _ outbound.RPCClient = (*fakeRPC)(nil)

func TestBuildUsesFeeMarketWithFloor(t *testing.T) {
	rpc := &fakeRPC{baseFeeHex: "0x3b9aca00", priorityFee: 2_000_000_000, nonce: 5} // baseFee=1 gwei
	ctx := context.Background()
	counter, err := NewNonceCounter(ctx, rpc, addr(t, "0x0000000000000000000000000000000000000001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.ChainID = 137
	b := New(cfg, rpc, counter)

	fields, err := b.Build(ctx, addr(t, "0x0000000000000000000000000000000000000002"), []byte{0xde, 0xad}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.Nonce != 5 {
		t.Errorf("got nonce %d, want 5", fields.Nonce)
	}
	wantMaxFee := big.NewInt(2*1_000_000_000 + 2_000_000_000) // 2*baseFee+priorityFee
	if fields.MaxFeePerGas.Cmp(wantMaxFee) != 0 {
		t.Errorf("got max_fee_per_gas %s, want %s", fields.MaxFeePerGas, wantMaxFee)
	}
	if fields.MaxPriorityFeePerGas.Cmp(big.NewInt(2_000_000_000)) != 0 {
		t.Errorf("got priority fee %s, want 2000000000", fields.MaxPriorityFeePerGas)
	}
}

func TestBuildFloorsPriorityFeeWhenRPCSuggestsLess(t *testing.T) {
	rpc := &fakeRPC{baseFeeHex: "0x3b9aca00", priorityFee: 100, nonce: 0} // far below floor
	ctx := context.Background()
	counter, _ := NewNonceCounter(ctx, rpc, addr(t, "0x0000000000000000000000000000000000000001"))
	b := New(DefaultConfig(), rpc, counter)

	fields, err := b.Build(ctx, addr(t, "0x0000000000000000000000000000000000000002"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.MaxPriorityFeePerGas.Cmp(big.NewInt(DefaultConfig().MinPriorityFeeWei)) != 0 {
		t.Errorf("expected priority fee floored to %d, got %s", DefaultConfig().MinPriorityFeeWei, fields.MaxPriorityFeePerGas)
	}
}

func TestNonceCounterIsStrictlyIncreasingAcrossCalls(t *testing.T) {
	rpc := &fakeRPC{nonce: 10}
	ctx := context.Background()
	counter, err := NewNonceCounter(ctx, rpc, addr(t, "0x0000000000000000000000000000000000000001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := counter.Next()
	second := counter.Next()
	third := counter.Next()
	if first != 10 || second != 11 || third != 12 {
		t.Errorf("got %d,%d,%d, want 10,11,12", first, second, third)
	}
}

func TestRebuildBumpsBothFeeFieldsKeepingNonce(t *testing.T) {
	prev := domain.TransactionFields{
		ChainID:              137,
		Nonce:                7,
		MaxFeePerGas:         big.NewInt(1_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(500_000_000),
	}
	b := New(DefaultConfig(), &fakeRPC{}, &NonceCounter{})
	bumped, err := b.Rebuild(context.Background(), prev, 1.20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bumped.Nonce != 7 {
		t.Errorf("nonce changed across rbf bump: got %d, want 7", bumped.Nonce)
	}
	if bumped.MaxFeePerGas.Cmp(big.NewInt(1_200_000_000)) != 0 {
		t.Errorf("got max_fee_per_gas %s, want 1200000000", bumped.MaxFeePerGas)
	}
	if bumped.MaxPriorityFeePerGas.Cmp(big.NewInt(600_000_000)) != 0 {
		t.Errorf("got priority fee %s, want 600000000", bumped.MaxPriorityFeePerGas)
	}
}
