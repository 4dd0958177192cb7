package httprpc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

type fakeDoer struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

func (f *fakeDoer) Post(ctx context.Context, url string, body []byte, headers map[string]string, timeout time.Duration) (int, []byte, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		return 0, nil, fmt.Errorf("fakeDoer: no response configured for call %d", idx)
	}
	r := f.responses[idx]
	if r.err != nil {
		return 0, nil, r.err
	}
	return r.status, []byte(r.body), nil
}

func newTestClient(t *testing.T, doer *fakeDoer) *Client {
	t.Helper()
	cfg := ConfigDefaults()
	cfg.Public = Endpoint{URL: "https://rpc.example/public"}
	cfg.Retry.MaxRetries = 2
	cfg.Retry.InitialBackoff = time.Millisecond
	cfg.Retry.MaxBackoff = 2 * time.Millisecond
	c, err := New(cfg, doer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresPublicEndpoint(t *testing.T) {
	_, err := New(Config{}, &fakeDoer{})
	if err == nil {
		t.Fatalf("expected error for missing public endpoint")
	}
	if !errkind.Is(err, errkind.Config) {
		t.Errorf("expected Config kind error, got %v", err)
	}
}

func TestCallReturnsResult(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"result":"0xdeadbeef"}`},
	}}
	c := newTestClient(t, doer)

	raw, err := c.Call(context.Background(), "0x0000000000000000000000000000000000000001", []byte{0x01, 0x02}, "latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != "0xdeadbeef" {
		t.Errorf("got %q, want 0xdeadbeef", s)
	}
}

func TestCallRetriesOnServerErrorThenSucceeds(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 503, body: ""},
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"result":"0x01"}`},
	}}
	c := newTestClient(t, doer)

	_, err := c.Call(context.Background(), "0x01", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doer.calls != 2 {
		t.Errorf("expected 2 calls (1 retry), got %d", doer.calls)
	}
}

func TestCallSurfacesRPCErrorAsRPCKind(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`},
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`},
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`},
	}}
	c := newTestClient(t, doer)

	_, err := c.Call(context.Background(), "0x01", nil, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errkind.Is(err, errkind.RPC) {
		t.Errorf("expected RPC kind error, got %v", err)
	}
}

func TestBatchCallReassemblesOutOfOrderResponses(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 200, body: `[{"jsonrpc":"2.0","id":2,"result":"0xbb"},{"jsonrpc":"2.0","id":1,"result":"0xaa"}]`},
	}}
	c := newTestClient(t, doer)

	results, err := c.BatchCall(context.Background(), []outbound.BatchCallRequest{
		{ID: 1, To: "0x01", Data: []byte{0x01}},
		{ID: 2, To: "0x02", Data: []byte{0x02}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	var r1 string
	json.Unmarshal(results[0].Result, &r1)
	if r1 != "0xaa" {
		t.Errorf("result[0] = %q, want 0xaa (reassembled by id, not position)", r1)
	}
	var r2 string
	json.Unmarshal(results[1].Result, &r2)
	if r2 != "0xbb" {
		t.Errorf("result[1] = %q, want 0xbb", r2)
	}
}

func TestBatchCallMissingResponseBecomesDecodeError(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 200, body: `[{"jsonrpc":"2.0","id":1,"result":"0xaa"}]`},
	}}
	c := newTestClient(t, doer)

	results, err := c.BatchCall(context.Background(), []outbound.BatchCallRequest{
		{ID: 1, To: "0x01"},
		{ID: 2, To: "0x02"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[1].Err == nil || !errkind.Is(results[1].Err, errkind.Decode) {
		t.Errorf("expected Decode kind error for missing id 2, got %v", results[1].Err)
	}
}

func TestSendRawPrivateFailsWithoutPrivateEndpoint(t *testing.T) {
	c := newTestClient(t, &fakeDoer{})
	_, err := c.SendRawPrivate(context.Background(), "0xdead")
	if err == nil || !errkind.Is(err, errkind.Config) {
		t.Errorf("expected Config kind error, got %v", err)
	}
}

func TestSendRawPrivateUsesPrivateEndpoint(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"result":"0xhash123"}`},
	}}
	cfg := ConfigDefaults()
	cfg.Public = Endpoint{URL: "https://rpc.example/public"}
	cfg.Private = &Endpoint{URL: "https://rpc.example/private", AuthHeaderValue: "Bearer secret"}
	c, err := New(cfg, doer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	hash, err := c.SendRawPrivate(context.Background(), "0xdeadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "0xhash123" {
		t.Errorf("got %q, want 0xhash123", hash)
	}
}

func TestBlockNumberDecodesHexQuantity(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"result":"0x10"}`},
	}}
	c := newTestClient(t, doer)

	n, err := c.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 16 {
		t.Errorf("got %d, want 16", n)
	}
}

func TestTransactionCountDefaultsToPendingTag(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 200, body: `{"jsonrpc":"2.0","id":1,"result":"0x5"}`},
	}}
	c := newTestClient(t, doer)

	n, err := c.TransactionCount(context.Background(), "0x01", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("got %d, want 5", n)
	}
}
