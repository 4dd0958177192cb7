// Package abi hand-implements the subset of Ethereum ABI encoding this
// repo needs: static head words (address, uint256, bool), dynamic
// bytes, and dynamic arrays of (address, bytes) tuples. It deliberately
// does not use reflection or a generic struct-tag-driven encoder — the
// executor's two tuple shapes are the only variants needed, with their
// offsets computed explicitly.
package abi

import (
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto"
)

const wordSize = 32

// Selector returns the 4-byte selector for a canonical function signature.
func Selector(signature string) [4]byte {
	return crypto.Selector(signature)
}

// EncodeAddress left-pads an address into a 32-byte word.
func EncodeAddress(a domain.Address) []byte {
	word := make([]byte, wordSize)
	copy(word[wordSize-domain.AddressLength:], a[:])
	return word
}

// EncodeUint256 left-pads a non-negative integer into a 32-byte word.
func EncodeUint256(v *big.Int) []byte {
	word := make([]byte, wordSize)
	if v == nil {
		return word
	}
	b := v.Bytes()
	if len(b) > wordSize {
		b = b[len(b)-wordSize:]
	}
	copy(word[wordSize-len(b):], b)
	return word
}

// EncodeBool encodes a bool as a 32-byte word holding 0 or 1.
func EncodeBool(v bool) []byte {
	word := make([]byte, wordSize)
	if v {
		word[wordSize-1] = 1
	}
	return word
}

// padTo32 right-pads b with zero bytes up to the next multiple of 32.
func padTo32(b []byte) []byte {
	rem := len(b) % wordSize
	if rem == 0 {
		return b
	}
	out := make([]byte, len(b)+(wordSize-rem))
	copy(out, b)
	return out
}

// EncodeBytes encodes a dynamic `bytes` value as a length word followed by
// the payload, zero-padded to a 32-byte multiple.
func EncodeBytes(b []byte) []byte {
	out := make([]byte, 0, wordSize+len(b)+wordSize)
	out = append(out, EncodeUint256(new(big.Int).SetInt64(int64(len(b))))...)
	out = append(out, padTo32(b)...)
	return out
}

// AddressBytesTuple is the (address, bytes) tuple shape used both by the
// executor's swaps[] field and by the multicall aggregator's call list.
type AddressBytesTuple struct {
	Addr domain.Address
	Data []byte
}

// EncodeAddressBytesTupleArray encodes a dynamic array of (address, bytes)
// tuples the way Solidity ABI lays out dynamic arrays of dynamic tuples:
// a length word, then one offset word per element (relative to the start
// of that offset section, right after the length word), then each element's
// tail (its own dynamic-tuple encoding: the address word, the offset of
// its one dynamic field, then that field's bytes encoding) back to back — so each
// element's tail starts at the running sum of all prior tails' encoded
// lengths.
func EncodeAddressBytesTupleArray(items []AddressBytesTuple) []byte {
	lengthWord := EncodeUint256(new(big.Int).SetInt64(int64(len(items))))

	// Each tuple element is itself a dynamic tuple (address, bytes) with one
	// dynamic member, so its own encoding is: head word for the address,
	// head word with the in-tuple offset to bytes (= 64), then the bytes
	// encoding. Precompute each element's full tuple encoding first.
	elementEncodings := make([][]byte, len(items))
	for i, it := range items {
		elementEncodings[i] = encodeAddressBytesTuple(it)
	}

	// Array elements are themselves dynamic (each tuple has a dynamic
	// member), so the array head holds one offset per element, relative to
	// the start of the array's tail (i.e. right after the length word /
	// after the head section). The head section is len(items) words.
	headSize := len(items) * wordSize
	var heads []byte
	var tails []byte
	runningTailOffset := 0
	for _, enc := range elementEncodings {
		heads = append(heads, EncodeUint256(new(big.Int).SetInt64(int64(headSize+runningTailOffset)))...)
		tails = append(tails, enc...)
		runningTailOffset += len(enc)
	}

	out := make([]byte, 0, len(lengthWord)+len(heads)+len(tails))
	out = append(out, lengthWord...)
	out = append(out, heads...)
	out = append(out, tails...)
	return out
}

// encodeAddressBytesTuple encodes a single (address, bytes) tuple as a
// standalone ABI value: a head of two words (the address, and the offset
// of the bytes field relative to the start of this tuple) followed by the
// bytes field's own length-prefixed, padded encoding.
func encodeAddressBytesTuple(it AddressBytesTuple) []byte {
	const headWords = 2
	bytesOffset := headWords * wordSize
	var out []byte
	out = append(out, EncodeAddress(it.Addr)...)
	out = append(out, EncodeUint256(new(big.Int).SetInt64(int64(bytesOffset)))...)
	out = append(out, EncodeBytes(it.Data)...)
	return out
}

// EncodeAddressArray encodes a dynamic `address[]` value: a length word
// followed by one word per address.
func EncodeAddressArray(addrs []domain.Address) []byte {
	out := EncodeUint256(new(big.Int).SetInt64(int64(len(addrs))))
	for _, a := range addrs {
		out = append(out, EncodeAddress(a)...)
	}
	return out
}

// EncodeUint256Array encodes a dynamic `uint256[]` value: a length word
// followed by one word per value (used by the batch executor's
// debtToCover[] field).
func EncodeUint256Array(vals []*big.Int) []byte {
	out := EncodeUint256(new(big.Int).SetInt64(int64(len(vals))))
	for _, v := range vals {
		out = append(out, EncodeUint256(v)...)
	}
	return out
}
