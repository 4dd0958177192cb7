// Package calldata assembles ABI-encoded payloads for the executor
// contract's liquidateAndArb and liquidateBatchAndArb entry points
//. It is pure — no I/O — and byte-exact: given the same
// ExecutorParams, it always produces the same bytes.
package calldata

import (
	"fmt"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
)

// LiquidateAndArbSignature is the canonical signature whose keccak256
// selector is used unless overridden by configuration.
const LiquidateAndArbSignature = "liquidateAndArb((address,address,uint256,address,(address,bytes)[],address,uint256))"

// LiquidateBatchAndArbSignature is the canonical batch-form signature.
const LiquidateBatchAndArbSignature = "liquidateBatchAndArb((address[],address,uint256[],address,(address,bytes)[],address,uint256))"

// Assembler holds the (possibly overridden) 4-byte selectors for the
// two executor entry points, resolved once at startup by NewAssembler.
type Assembler struct {
	LiquidateSelector [4]byte
	BatchSelector     [4]byte
}

// NewAssembler computes default selectors from the canonical signatures,
// then applies any non-empty override (hex-encoded 4 bytes, with or
// without "0x") supplied via EXECUTOR_LIQ_ARB_SELECTOR /
// EXECUTOR_LIQ_BATCH_SELECTOR.
func NewAssembler(liquidateOverrideHex, batchOverrideHex string) (*Assembler, error) {
	a := &Assembler{
		LiquidateSelector: abi.Selector(LiquidateAndArbSignature),
		BatchSelector:     abi.Selector(LiquidateBatchAndArbSignature),
	}
	if liquidateOverrideHex != "" {
		sel, err := parseSelector(liquidateOverrideHex)
		if err != nil {
			return nil, fmt.Errorf("calldata: EXECUTOR_LIQ_ARB_SELECTOR: %w", err)
		}
		a.LiquidateSelector = sel
	}
	if batchOverrideHex != "" {
		sel, err := parseSelector(batchOverrideHex)
		if err != nil {
			return nil, fmt.Errorf("calldata: EXECUTOR_LIQ_BATCH_SELECTOR: %w", err)
		}
		a.BatchSelector = sel
	}
	return a, nil
}

func parseSelector(hexStr string) ([4]byte, error) {
	var sel [4]byte
	b, err := hexDecode(hexStr)
	if err != nil {
		return sel, err
	}
	if len(b) != 4 {
		return sel, fmt.Errorf("selector must be 4 bytes, got %d", len(b))
	}
	copy(sel[:], b)
	return sel, nil
}

// outerTupleHeadWords is the fixed head size of the single-liquidation
// outer tuple: user, debtAsset, debtToCover, collateralAsset, swaps
// (offset), profitReceiver, minProfit — 7 words.
const outerTupleHeadWords = 7

// BuildLiquidateAndArb encodes a call to liquidateAndArb(ExecutorParams).
func (a *Assembler) BuildLiquidateAndArb(p domain.ExecutorParams) ([]byte, error) {
	if len(p.Swaps) == 0 && p.DebtToCover != nil && p.DebtToCover.Sign() > 0 {
		return nil, fmt.Errorf("calldata: swaps must be non-empty when debt_to_cover > 0")
	}

	swapsTail := abi.EncodeAddressBytesTupleArray(toTuples(p.Swaps))
	tailStart := outerTupleHeadWords * 32

	head := make([]byte, 0, tailStart)
	head = append(head, abi.EncodeAddress(p.User)...)
	head = append(head, abi.EncodeAddress(p.DebtAsset)...)
	head = append(head, abi.EncodeUint256(p.DebtToCover)...)
	head = append(head, abi.EncodeAddress(p.CollateralAsset)...)
	head = append(head, abi.EncodeUint256(bigFromInt(tailStart))...) // offset to swaps[] tail
	head = append(head, abi.EncodeAddress(p.ProfitReceiver)...)
	head = append(head, abi.EncodeUint256(p.MinProfit)...)

	tuple := append(head, swapsTail...)

	// The function has exactly one top-level parameter and it is a dynamic
	// tuple (it contains a dynamic member), so the top-level head is a
	// single offset word pointing just past itself, at the tuple's
	// encoding.
	out := make([]byte, 0, 4+32+len(tuple))
	out = append(out, a.LiquidateSelector[:]...)
	out = append(out, abi.EncodeUint256(bigFromInt(32))...)
	out = append(out, tuple...)
	return out, nil
}

// batchTupleHeadWords is the fixed head size of the batch outer tuple:
// users[] (offset), debtAsset, debtToCover[] (offset), collateralAsset,
// swaps[] (offset), profitReceiver, minProfit — 7 words.
const batchTupleHeadWords = 7

// BuildLiquidateBatchAndArb encodes a call to
// liquidateBatchAndArb(BatchExecutorParams). It recomputes three
// independent tail offsets (users[], debtToCover[], swaps[]) so each
// dynamic member's tail lands at the correct position.
func (a *Assembler) BuildLiquidateBatchAndArb(p domain.BatchExecutorParams) ([]byte, error) {
	if len(p.Users) != len(p.DebtToCover) {
		return nil, fmt.Errorf("calldata: users and debt_to_cover must have equal length, got %d and %d", len(p.Users), len(p.DebtToCover))
	}
	if len(p.Swaps) == 0 {
		return nil, fmt.Errorf("calldata: swaps must be non-empty for a batch liquidation")
	}

	usersTail := abi.EncodeAddressArray(p.Users)
	debtToCoverTail := abi.EncodeUint256Array(p.DebtToCover)
	swapsTail := abi.EncodeAddressBytesTupleArray(toTuples(p.Swaps))

	tailStart := batchTupleHeadWords * 32
	usersOffset := tailStart
	debtToCoverOffset := usersOffset + len(usersTail)
	swapsOffset := debtToCoverOffset + len(debtToCoverTail)

	head := make([]byte, 0, tailStart)
	head = append(head, abi.EncodeUint256(bigFromInt(usersOffset))...)
	head = append(head, abi.EncodeAddress(p.DebtAsset)...)
	head = append(head, abi.EncodeUint256(bigFromInt(debtToCoverOffset))...)
	head = append(head, abi.EncodeAddress(p.CollateralAsset)...)
	head = append(head, abi.EncodeUint256(bigFromInt(swapsOffset))...)
	head = append(head, abi.EncodeAddress(p.ProfitReceiver)...)
	head = append(head, abi.EncodeUint256(p.MinProfit)...)

	tuple := make([]byte, 0, len(head)+len(usersTail)+len(debtToCoverTail)+len(swapsTail))
	tuple = append(tuple, head...)
	tuple = append(tuple, usersTail...)
	tuple = append(tuple, debtToCoverTail...)
	tuple = append(tuple, swapsTail...)

	out := make([]byte, 0, 4+32+len(tuple))
	out = append(out, a.BatchSelector[:]...)
	out = append(out, abi.EncodeUint256(bigFromInt(32))...)
	out = append(out, tuple...)
	return out, nil
}

func toTuples(swaps []domain.Swap) []abi.AddressBytesTuple {
	out := make([]abi.AddressBytesTuple, len(swaps))
	for i, s := range swaps {
		out[i] = abi.AddressBytesTuple{Addr: s.Router, Data: s.CallDataBytes}
	}
	return out
}
