// Package domain holds the value types shared by every stage of the
// liquidation pipeline: addresses, unsigned 256-bit integers, reserve and
// token metadata, watchlist entries, and the per-attempt transaction shapes
// that flow between the calldata assembler, the signer, and the submission
// pipeline.
package domain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the size in bytes of an EVM account address.
const AddressLength = 20

// Address is a 20-byte EVM account identifier. Unlike go-ethereum's
// common.Address, String/Hex always render lowercase, non-checksummed
// hex.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address.
var ZeroAddress = Address{}

// ParseAddress parses a hex-encoded address, with or without the "0x"
// prefix. It does not strip or require leading zeros: the input must decode
// to exactly AddressLength bytes.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s) != AddressLength*2 {
		return a, fmt.Errorf("domain: address %q has %d hex chars, want %d", s, len(s), AddressLength*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("domain: invalid address hex %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress, panicking on error. Intended for
// package-level constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes copies the first AddressLength bytes of b into a new
// Address. It errors if b is shorter than AddressLength.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) < AddressLength {
		return a, errors.New("domain: short byte slice for address")
	}
	copy(a[:], b[:AddressLength])
	return a, nil
}

// Bytes returns the raw 20 bytes of the address.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// Hex renders the address as "0x" followed by 40 lowercase hex characters.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer as Hex.
func (a Address) String() string {
	return a.Hex()
}

// IsZero reports whether the address is the all-zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Less reports whether a sorts before b when compared as big-endian 20-byte
// integers — used by the route engine to decide which of two tokens is
// "token0" in a constant-product pair.
func (a Address) Less(b Address) bool {
	for i := 0; i < AddressLength; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
