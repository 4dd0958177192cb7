// Package crypto implements the keccak-256 hashing and secp256k1
// signing/address-derivation primitives the rest of this repo builds
// on. Both are hand-written glue over real cryptographic primitives
// (golang.org/x/crypto/sha3's Keccak permutation and
// github.com/decred/dcrd/dcrec/secp256k1/v4's curve arithmetic), kept
// visible and auditable here rather than hidden behind a
// general-purpose Ethereum client library.
package crypto

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes raw bytes with the original (pre-NIST-finalization)
// Keccak-256 padding, as used throughout the EVM. It is distinct from
// sha3.Sum256, which uses the final NIST SHA3 padding and produces a
// different digest for the same input.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d) //nolint:errcheck // hash.Hash.Write never errors
	}
	return h.Sum(nil)
}

// Keccak256Hex hashes raw bytes and renders the digest as lowercase hex
// with a "0x" prefix.
func Keccak256Hex(data ...[]byte) string {
	return "0x" + hex.EncodeToString(Keccak256(data...))
}

// Keccak256HexInput hashes hex-encoded input (with or without "0x"),
// i.e. content-addressing over the decoded bytes rather than the hex
// string itself.
func Keccak256HexInput(hexInput string) (string, error) {
	hexInput = strings.TrimPrefix(hexInput, "0x")
	hexInput = strings.TrimPrefix(hexInput, "0X")
	raw, err := hex.DecodeString(hexInput)
	if err != nil {
		return "", err
	}
	return Keccak256Hex(raw), nil
}

// Selector returns the 4-byte function selector for a canonical Solidity
// function signature, e.g. "transfer(address,uint256)".
func Selector(signature string) [4]byte {
	digest := Keccak256([]byte(signature))
	var sel [4]byte
	copy(sel[:], digest[:4])
	return sel
}
