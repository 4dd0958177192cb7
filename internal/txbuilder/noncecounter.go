package txbuilder

import (
	"context"
	"sync/atomic"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// NonceCounter hands out strictly increasing nonces for one signer address,
// seeded once from eth_getTransactionCount(address, "pending") and then
// advanced in-process.
type NonceCounter struct {
	next atomic.Uint64
}

// NewNonceCounter fetches the starting nonce from the chain.
func NewNonceCounter(ctx context.Context, rpc outbound.RPCClient, signer domain.Address) (*NonceCounter, error) {
	n, err := rpc.TransactionCount(ctx, signer.Hex(), "pending")
	if err != nil {
		return nil, errkind.Wrap(errkind.RPC, "txbuilder: seed nonce", err)
	}
	c := &NonceCounter{}
	c.next.Store(n)
	return c, nil
}

// Next returns the next nonce to use and advances the counter. Every call
// returns a distinct value, so two goroutines building transactions at the
// same time never receive the same nonce.
func (c *NonceCounter) Next() uint64 {
	return c.next.Add(1) - 1
}

// Peek reports the next nonce that would be issued, without consuming it.
func (c *NonceCounter) Peek() uint64 {
	return c.next.Load()
}
