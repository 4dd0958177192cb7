// Package multicall implements outbound.Multicaller against a deployed
// Multicall2-style aggregator's tryAggregate(bool,(address,bytes)[])
// entry point, reusing the same (address,bytes)[] tuple-array encoder the
// calldata package uses for the executor's swaps[] field.
package multicall

import (
	"context"
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/hexutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

var selectorTryAggregate = abi.Selector("tryAggregate(bool,(address,bytes)[])")

// Client is the default outbound.Multicaller implementation.
type Client struct {
	address domain.Address
	rpc     outbound.RPCClient
}

var _ outbound.Multicaller = (*Client)(nil)

func New(address domain.Address, rpc outbound.RPCClient) *Client {
	return &Client{address: address, rpc: rpc}
}

func (c *Client) Address() domain.Address { return c.address }

// Execute calls tryAggregate(false, calls) and decodes the per-call
// (success, returnData) results back into outbound.Result, preserving
// call order.
func (c *Client) Execute(ctx context.Context, calls []outbound.Call, blockTag string) ([]outbound.Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	tuples := make([]abi.AddressBytesTuple, len(calls))
	for i, call := range calls {
		tuples[i] = abi.AddressBytesTuple{Addr: call.Target, Data: call.CallData}
	}

	calldata := append(append([]byte{}, selectorTryAggregate[:]...), abi.EncodeBool(false)...)
	// Head: [requireSuccess (already appended), offset-to-calls-array].
	// The dynamic array arg starts right after the two head words.
	calldata = append(calldata, abi.EncodeUint256(big.NewInt(64))...)
	calldata = append(calldata, abi.EncodeAddressBytesTupleArray(tuples)...)

	if blockTag == "" {
		blockTag = "latest"
	}
	raw, err := c.rpc.Call(ctx, c.address.Hex(), calldata, blockTag)
	if err != nil {
		return nil, errkind.Wrap(errkind.RPC, "multicall: tryAggregate", err)
	}
	data, err := hexutil.DecodeCallResult(raw)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "multicall: decode result", err)
	}

	return decodeTryAggregateResult(data, len(calls))
}

// decodeTryAggregateResult decodes tryAggregate's
// `Result[] memory returnData` return value: `(bool,bytes)[]`, the same
// dynamic-tuple-array shape as the request, but with a bool head field
// instead of an address.
func decodeTryAggregateResult(data []byte, expected int) ([]outbound.Result, error) {
	arrayOffset, err := abi.DecodeOffsetWord(data, 0)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "multicall: decode array offset", err)
	}
	tail := data[arrayOffset:]

	n, err := abi.DecodeOffsetWord(tail, 0)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "multicall: decode result count", err)
	}
	if n != expected {
		return nil, errkind.New(errkind.Decode, "multicall: result count mismatch")
	}

	headSection := tail[wordSize:]
	results := make([]outbound.Result, n)
	for i := 0; i < n; i++ {
		elemOffset, err := abi.DecodeOffsetWord(headSection, i)
		if err != nil {
			return nil, errkind.Wrap(errkind.Decode, "multicall: decode element offset", err)
		}
		elem := headSection[elemOffset:]

		successWord, err := abi.DecodeUint256(elem, 0)
		if err != nil {
			return nil, errkind.Wrap(errkind.Decode, "multicall: decode success flag", err)
		}
		bytesOffset, err := abi.DecodeOffsetWord(elem, 1)
		if err != nil {
			return nil, errkind.Wrap(errkind.Decode, "multicall: decode bytes offset", err)
		}
		length, err := abi.DecodeOffsetWord(elem, bytesOffset/wordSize)
		if err != nil {
			return nil, errkind.Wrap(errkind.Decode, "multicall: decode return-bytes length", err)
		}
		start := bytesOffset + wordSize
		end := start + length
		if end > len(elem) {
			return nil, errkind.New(errkind.Decode, "multicall: return-bytes out of range")
		}

		results[i] = outbound.Result{Success: successWord.Sign() != 0, ReturnData: elem[start:end]}
	}
	return results, nil
}

const wordSize = 32
