package outbound

import (
	"context"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// Multicaller executes a batch of read-only calls against a deployed
// multicall aggregator in a single eth_call: the preferred path,
// tryAggregate(false, (target,callData)[]).
type Multicaller interface {
	Execute(ctx context.Context, calls []Call, blockTag string) ([]Result, error)
	Address() domain.Address
}

// Call is one (target, callData) entry of a tryAggregate request.
type Call struct {
	Target   domain.Address
	CallData []byte
}

// Result is one tryAggregate response entry: whether the call reverted,
// and its return bytes if not.
type Result struct {
	Success    bool
	ReturnData []byte
}
