package multicall

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
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

// fakeRPC echoes back a tryAggregate response encoding exactly the given
// per-call (success, returnData) results, regardless of request contents.
type fakeRPC struct {
	lastCalldata []byte
	encoded      []byte
}

func (f *fakeRPC) Call(ctx context.Context, to string, data []byte, blockTag string) (json.RawMessage, error) {
	f.lastCalldata = data
	enc, _ := json.Marshal("0x" + hexEncode(f.encoded))
	return enc, nil
}
func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
func (f *fakeRPC) BatchCall(ctx context.Context, reqs []outbound.BatchCallRequest) ([]outbound.BatchCallResult, error) {
	return nil, nil
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

// buildTryAggregateResponse hand-encodes a `(bool,bytes)[]` return value
// with the given entries, independent of the production encoder, so the
// test does not just check the encoder against itself.
func buildTryAggregateResponse(entries []outbound.Result) []byte {
	elems := make([][]byte, len(entries))
	for i, e := range entries {
		var elem []byte
		success := int64(0)
		if e.Success {
			success = 1
		}
		elem = append(elem, abi.EncodeUint256(big.NewInt(success))...)
		elem = append(elem, abi.EncodeUint256(big.NewInt(64))...)
		elem = append(elem, abi.EncodeBytes(e.ReturnData)...)
		elems[i] = elem
	}
	headSize := len(entries) * 32
	var heads, tails []byte
	running := 0
	for _, e := range elems {
		heads = append(heads, abi.EncodeUint256(big.NewInt(int64(headSize+running)))...)
		tails = append(tails, e...)
		running += len(e)
	}
	array := append(abi.EncodeUint256(big.NewInt(int64(len(entries)))), heads...)
	array = append(array, tails...)

	out := abi.EncodeUint256(big.NewInt(32))
	out = append(out, array...)
	return out
}

func TestExecuteDecodesSuccessAndReturnData(t *testing.T) {
	want := []outbound.Result{
		{Success: true, ReturnData: []byte{0xAA, 0xBB}},
		{Success: false, ReturnData: nil},
	}
	rpc := &fakeRPC{encoded: buildTryAggregateResponse(want)}
	c := New(addr(t, "0x0000000000000000000000000000000000000009"), rpc)

	got, err := c.Execute(context.Background(), []outbound.Call{
		{Target: addr(t, "0x0000000000000000000000000000000000000001"), CallData: []byte{0x01}},
		{Target: addr(t, "0x0000000000000000000000000000000000000002"), CallData: []byte{0x02}},
	}, "latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Success != true || !bytes.Equal(got[0].ReturnData, []byte{0xAA, 0xBB}) {
		t.Errorf("got[0] = %+v, want success=true data=AABB", got[0])
	}
	if got[1].Success != false {
		t.Errorf("got[1].Success = true, want false")
	}
	if !bytes.HasPrefix(rpc.lastCalldata, selectorTryAggregate[:]) {
		t.Errorf("calldata should start with tryAggregate selector")
	}
}
