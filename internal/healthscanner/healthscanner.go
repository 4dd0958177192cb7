// Package healthscanner resolves each watched user's current health
// factor via the lending pool's getUserAccountData(address), preferring
// a single multicall aggregator call and falling back to a batched
// JSON-RPC request reassembled by numeric id.
package healthscanner

import (
	"context"
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/hexutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

var selectorGetUserAccountData = abi.Selector("getUserAccountData(address)")

// healthFactorScale is the 10^18 fixed-point scale getUserAccountData's
// sixth return word uses.
var healthFactorScale = new(big.Float).SetFloat64(1e18)

// Scanner resolves health factors for a batch of users against one
// lending pool.
type Scanner struct {
	pool       domain.Address
	multicall  outbound.Multicaller // may be nil: fallback-only deployments
	rpc        outbound.RPCClient
}

func New(pool domain.Address, multicall outbound.Multicaller, rpc outbound.RPCClient) *Scanner {
	return &Scanner{pool: pool, multicall: multicall, rpc: rpc}
}

// Result is one user's scanned health factor. HealthFactor is 0 when the
// pool returned a non-numeric or missing value.
type Result struct {
	User         domain.Address
	HealthFactor float64
}

// Scan resolves health factors for every user, preferring the multicall
// aggregator and falling back to a batched JSON-RPC request on any
// aggregator-level failure (not individual call reverts, which are
// reported per-user as HealthFactor=0).
func (s *Scanner) Scan(ctx context.Context, users []domain.Address, blockTag string) ([]Result, error) {
	if len(users) == 0 {
		return nil, nil
	}

	if s.multicall != nil {
		results, err := s.scanViaMulticall(ctx, users, blockTag)
		if err == nil {
			return results, nil
		}
	}
	return s.scanViaBatch(ctx, users, blockTag)
}

func (s *Scanner) buildCalldata(user domain.Address) []byte {
	return append(append([]byte{}, selectorGetUserAccountData[:]...), abi.EncodeAddress(user)...)
}

func (s *Scanner) scanViaMulticall(ctx context.Context, users []domain.Address, blockTag string) ([]Result, error) {
	calls := make([]outbound.Call, len(users))
	for i, u := range users {
		calls[i] = outbound.Call{Target: s.pool, CallData: s.buildCalldata(u)}
	}

	raw, err := s.multicall.Execute(ctx, calls, blockTag)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(users) {
		return nil, errkind.New(errkind.Decode, "healthscanner: multicall result count mismatch")
	}

	out := make([]Result, len(users))
	for i, r := range raw {
		out[i] = Result{User: users[i], HealthFactor: decodeHealthFactor(r.Success, r.ReturnData)}
	}
	return out, nil
}

func (s *Scanner) scanViaBatch(ctx context.Context, users []domain.Address, blockTag string) ([]Result, error) {
	reqs := make([]outbound.BatchCallRequest, len(users))
	for i, u := range users {
		reqs[i] = outbound.BatchCallRequest{ID: i, To: s.pool.Hex(), Data: s.buildCalldata(u), BlockTag: blockTag}
	}

	batchResults, err := s.rpc.BatchCall(ctx, reqs)
	if err != nil {
		return nil, errkind.Wrap(errkind.RPC, "healthscanner: batch getUserAccountData", err)
	}
	if len(batchResults) != len(users) {
		return nil, errkind.New(errkind.Decode, "healthscanner: batch result count mismatch")
	}

	out := make([]Result, len(users))
	for i, br := range batchResults {
		if br.Err != nil {
			out[i] = Result{User: users[i], HealthFactor: 0}
			continue
		}
		data, err := hexutil.DecodeCallResult(br.Result)
		if err != nil {
			out[i] = Result{User: users[i], HealthFactor: 0}
			continue
		}
		out[i] = Result{User: users[i], HealthFactor: decodeHealthFactor(true, data)}
	}
	return out, nil
}

// decodeHealthFactor reads the sixth word of getUserAccountData's six-word
// return value, scaled by 10^18. A reverted call, or a short/missing
// sixth word, yields 0.
func decodeHealthFactor(success bool, data []byte) float64 {
	if !success {
		return 0
	}
	raw, err := abi.DecodeUint256(data, 5)
	if err != nil {
		return 0
	}
	scaled := new(big.Float).SetInt(raw)
	hf, _ := new(big.Float).Quo(scaled, healthFactorScale).Float64()
	return hf
}
