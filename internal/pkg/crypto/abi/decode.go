package abi

import (
	"fmt"
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// word reads the i-th 32-byte word from data, erroring if it is short —
// every decoder below is built on this single bounds-checked primitive
// rather than trusting callers to size slices correctly.
func word(data []byte, i int) ([]byte, error) {
	start := i * wordSize
	end := start + wordSize
	if end > len(data) {
		return nil, fmt.Errorf("abi: short data, want word %d (bytes %d:%d), have %d bytes", i, start, end, len(data))
	}
	return data[start:end], nil
}

// DecodeAddress reads the i-th word as an address (the low 20 bytes).
func DecodeAddress(data []byte, i int) (domain.Address, error) {
	w, err := word(data, i)
	if err != nil {
		return domain.Address{}, err
	}
	return domain.AddressFromBytes(w[wordSize-domain.AddressLength:])
}

// DecodeUint256 reads the i-th word as an unsigned integer.
func DecodeUint256(data []byte, i int) (*big.Int, error) {
	w, err := word(data, i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(w), nil
}

// DecodeOffsetWord reads the i-th word as a byte offset (used for dynamic
// head pointers), returning an int for convenient slicing.
func DecodeOffsetWord(data []byte, i int) (int, error) {
	v, err := DecodeUint256(data, i)
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// DecodeAddressDynamicArray decodes a dynamic `address[]` return value
// whose tail starts at byte offset tailStart:
// a length word followed by one address word per element — the shape
// getPair and similar single-return calls never need, but getAmountsOut's
// amounts[] sibling shares this layout with path[] args, so both reuse it.
func DecodeAddressDynamicArray(data []byte, tailStart int) ([]domain.Address, error) {
	n, err := DecodeOffsetWord(data, tailStart/wordSize)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Address, 0, n)
	base := tailStart + wordSize
	for idx := 0; idx < n; idx++ {
		a, err := DecodeAddress(data[base:], idx)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// DecodeUint256DynamicArray decodes a dynamic `uint256[]` return value the
// same way: a length word at tailStart, then one value word per element.
// getAmountsOut returns exactly this shape.
func DecodeUint256DynamicArray(data []byte, tailStart int) ([]*big.Int, error) {
	n, err := DecodeOffsetWord(data, tailStart/wordSize)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, 0, n)
	base := tailStart + wordSize
	for idx := 0; idx < n; idx++ {
		v, err := DecodeUint256(data[base:], idx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
