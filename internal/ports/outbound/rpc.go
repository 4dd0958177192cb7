// Package outbound defines the port interfaces every core component
// depends on, never on a concrete adapter, so each can be backed by a
// real transport or an in-memory test double interchangeably.
package outbound

import (
	"context"
	"encoding/json"
	"time"
)

// HTTPDoer is the minimal capability set a transport must provide:
// Post(url, body, headers, timeout_ms) -> (status, body). Both the
// real net/http transport and an in-memory test double satisfy it, so
// the JSON-RPC
// client never imports net/http directly.
type HTTPDoer interface {
	Post(ctx context.Context, url string, body []byte, headers map[string]string, timeout time.Duration) (status int, respBody []byte, err error)
}

// RPCClient is the JSON-RPC 2.0 client port: a mandatory public
// endpoint, an optional private endpoint used only for raw-transaction
// submission, and typed helpers over the generic call.
type RPCClient interface {
	// Call invokes an eth_call against the public endpoint.
	Call(ctx context.Context, to string, data []byte, blockTag string) (json.RawMessage, error)

	// BatchCall invokes a batch of eth_call-shaped requests in one HTTP
	// round trip, preserving order by numeric request id.
	BatchCall(ctx context.Context, reqs []BatchCallRequest) ([]BatchCallResult, error)

	// SendRawPublic submits a signed raw transaction via the public
	// endpoint.
	SendRawPublic(ctx context.Context, rawTxHex string) (txHash string, err error)

	// SendRawPrivate submits a signed raw transaction via the configured
	// private endpoint. Returns an error if no private endpoint is set.
	SendRawPrivate(ctx context.Context, rawTxHex string) (txHash string, err error)

	// GetBlockByNumber fetches a block (optionally with full transaction
	// objects) at a tag ("latest", "pending", or "0x...").
	GetBlockByNumber(ctx context.Context, tag string, fullTx bool) (json.RawMessage, error)

	// BlockNumber returns the current block height.
	BlockNumber(ctx context.Context) (int64, error)

	// TransactionReceipt fetches a transaction receipt, returning
	// (nil, nil) if not yet mined.
	TransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error)

	// TransactionCount returns the nonce for an address at a given tag
	// (typically "pending").
	TransactionCount(ctx context.Context, address string, tag string) (uint64, error)

	// MaxPriorityFeePerGas returns eth_maxPriorityFeePerGas's suggestion.
	MaxPriorityFeePerGas(ctx context.Context) (int64, error)

	// NewBlockFilter installs a filter for new block hashes, returning its
	// id.
	NewBlockFilter(ctx context.Context) (filterID string, err error)

	// GetFilterChanges polls a filter for new entries since the last poll.
	GetFilterChanges(ctx context.Context, filterID string) ([]json.RawMessage, error)

	// UninstallFilter removes a previously installed filter.
	UninstallFilter(ctx context.Context, filterID string) error
}

// BatchCallRequest is one eth_call entry in a batched JSON-RPC request,
// keyed by a caller-assigned numeric id so responses can be reassembled in
// order.
type BatchCallRequest struct {
	ID       int
	To       string
	Data     []byte
	BlockTag string
}

// BatchCallResult is one entry of a batched response.
type BatchCallResult struct {
	ID     int
	Result json.RawMessage
	Err    error
}
