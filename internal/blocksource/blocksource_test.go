package blocksource

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	waitutil "github.com/nodies-labs/liqsentinel/internal/pkg/testutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
	"github.com/nodies-labs/liqsentinel/internal/testutil"
)

// fakeRPC implements outbound.RPCClient with only BlockNumber, NewBlockFilter,
// GetFilterChanges and UninstallFilter behaving; every other method panics if
// called, since no strategy under test exercises them.
type fakeRPC struct {
	mu sync.Mutex

	blockNumbers    []int64
	blockNumberErrs []error
	callIndex       int

	filterChangesQueue [][]json.RawMessage
	filterErr          error
	filterInstalled    bool
	uninstallCalled    bool
}

func (f *fakeRPC) BlockNumber(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callIndex >= len(f.blockNumbers) {
		return f.blockNumbers[len(f.blockNumbers)-1], f.blockNumberErrs[len(f.blockNumberErrs)-1]
	}
	i := f.callIndex
	f.callIndex++
	var err error
	if i < len(f.blockNumberErrs) {
		err = f.blockNumberErrs[i]
	}
	return f.blockNumbers[i], err
}

func (f *fakeRPC) NewBlockFilter(ctx context.Context) (string, error) {
	if f.filterErr != nil {
		return "", f.filterErr
	}
	f.filterInstalled = true
	return "0xfilter1", nil
}

func (f *fakeRPC) GetFilterChanges(ctx context.Context, filterID string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.filterChangesQueue) == 0 {
		return nil, nil
	}
	next := f.filterChangesQueue[0]
	f.filterChangesQueue = f.filterChangesQueue[1:]
	return next, nil
}

func (f *fakeRPC) UninstallFilter(ctx context.Context, filterID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninstallCalled = true
	return nil
}

func (f *fakeRPC) Call(ctx context.Context, to string, data []byte, blockTag string) (json.RawMessage, error) {
	panic("not used by blocksource tests")
}
func (f *fakeRPC) BatchCall(ctx context.Context, reqs []outbound.BatchCallRequest) ([]outbound.BatchCallResult, error) {
	panic("not used by blocksource tests")
}
func (f *fakeRPC) SendRawPublic(ctx context.Context, rawTxHex string) (string, error) {
	panic("not used by blocksource tests")
}
func (f *fakeRPC) SendRawPrivate(ctx context.Context, rawTxHex string) (string, error) {
	panic("not used by blocksource tests")
}
func (f *fakeRPC) GetBlockByNumber(ctx context.Context, tag string, fullTx bool) (json.RawMessage, error) {
	panic("not used by blocksource tests")
}
func (f *fakeRPC) TransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error) {
	panic("not used by blocksource tests")
}
func (f *fakeRPC) TransactionCount(ctx context.Context, address string, tag string) (uint64, error) {
	panic("not used by blocksource tests")
}
func (f *fakeRPC) MaxPriorityFeePerGas(ctx context.Context) (int64, error) {
	panic("not used by blocksource tests")
}

var _ outbound.RPCClient = (*fakeRPC)(nil)

func collectN(t *testing.T, n int, timeout time.Duration, run func(ctx context.Context, onBlock func(int64)) error) []int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var mu sync.Mutex
	var got []int64
	done := make(chan struct{})

	go func() {
		run(ctx, func(height int64) {
			mu.Lock()
			got = append(got, height)
			reached := len(got) >= n
			mu.Unlock()
			if reached {
				select {
				case <-done:
				default:
					close(done)
				}
			}
		})
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	mu.Lock()
	defer mu.Unlock()
	return append([]int64(nil), got...)
}

func TestGate_DedupesAndOrdersHeights(t *testing.T) {
	g := &gate{}
	heights := []int64{100, 100, 99, 101, 101, 102}
	var admitted []int64
	for _, h := range heights {
		if g.admit(h) {
			admitted = append(admitted, h)
		}
	}
	want := []int64{100, 101, 102}
	if len(admitted) != len(want) {
		t.Fatalf("admitted %v, want %v", admitted, want)
	}
	for i := range want {
		if admitted[i] != want[i] {
			t.Fatalf("admitted %v, want %v", admitted, want)
		}
	}
}

func TestSource_Subscription_DedupesAcrossHeaders(t *testing.T) {
	sub := testutil.NewMockSubscriber()
	src, err := New(Config{
		Subscriber:   sub,
		StallTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	go func() {
		for _, h := range []string{"0x64", "0x64", "0x63", "0x65", "0x65", "0x66"} {
			sub.SendHeader(outbound.BlockHeader{Number: h})
			time.Sleep(time.Millisecond)
		}
	}()

	got := collectN(t, 3, 2*time.Second, src.Run)
	want := []int64{100, 101, 102}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSource_FallsBackFromSubscriptionToHTTPFilter(t *testing.T) {
	sub := testutil.NewMockSubscriber()
	sub.Unsubscribe() // Subscribe still succeeds but the channel is already closed, forcing an immediate fallback.

	rpc := &fakeRPC{
		blockNumbers: []int64{50},
	}
	rpc.filterChangesQueue = [][]json.RawMessage{{json.RawMessage(`"0x1"`)}}

	src, err := New(Config{
		Subscriber:         sub,
		RPC:                rpc,
		StallTimeout:        50 * time.Millisecond,
		FilterPollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got := collectN(t, 1, 2*time.Second, src.Run)
	if len(got) != 1 || got[0] != 50 {
		t.Fatalf("got %v, want [50]", got)
	}
	uninstalled := waitutil.WaitFor(t, time.Second, 5*time.Millisecond, func() bool {
		rpc.mu.Lock()
		defer rpc.mu.Unlock()
		return rpc.uninstallCalled
	})
	if !uninstalled {
		t.Error("expected filter to be uninstalled eventually")
	}
}

func TestSource_HTTPFilter_SkipsEmptyChangeBatches(t *testing.T) {
	rpc := &fakeRPC{
		blockNumbers: []int64{200},
	}
	rpc.filterChangesQueue = [][]json.RawMessage{
		nil,
		nil,
		{json.RawMessage(`"0x1"`)},
	}
	forced := StrategyHTTPFilter
	src, err := New(Config{
		RPC:                rpc,
		FilterPollInterval: 5 * time.Millisecond,
		ForceStrategy:      &forced,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got := collectN(t, 1, time.Second, src.Run)
	if len(got) != 1 || got[0] != 200 {
		t.Fatalf("got %v, want [200]", got)
	}
}

func TestSource_Polling_BacksOffOnErrorAndResetsOnSuccess(t *testing.T) {
	rpc := &fakeRPC{
		blockNumbers: []int64{0, 0, 0, 300, 301},
		blockNumberErrs: []error{
			errors.New("rpc down"),
			errors.New("rpc down"),
			errors.New("rpc down"),
			nil,
			nil,
		},
	}
	forced := StrategyPolling
	src, err := New(Config{
		RPC:                rpc,
		ForceStrategy:      &forced,
		PollInitialBackoff: time.Millisecond,
		PollMaxBackoff:     4 * time.Millisecond,
		PollBackoffFactor:  2,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got := collectN(t, 2, time.Second, src.Run)
	want := []int64{300, 301}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSource_Polling_IgnoresDecreasingHeight(t *testing.T) {
	rpc := &fakeRPC{
		blockNumbers: []int64{102, 100, 103},
	}
	forced := StrategyPolling
	src, err := New(Config{
		RPC:                rpc,
		ForceStrategy:      &forced,
		PollInitialBackoff: time.Millisecond,
		PollMaxBackoff:     time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got := collectN(t, 2, time.Second, src.Run)
	want := []int64{102, 103}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNew_RequiresSubscriberOrRPC(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error when neither Subscriber nor RPC is set")
	}
}

func TestSource_RunRespectsContextCancellation(t *testing.T) {
	rpc := &fakeRPC{blockNumbers: []int64{1}}
	forced := StrategyPolling
	src, err := New(Config{
		RPC:                rpc,
		ForceStrategy:      &forced,
		PollInitialBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(ctx, func(int64) {}) }()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
