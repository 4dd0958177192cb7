package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// Signature is a recoverable ECDSA signature over a 32-byte digest, in the
// (r, s, recid) form the EVM uses. Recid is 0 or 1.
type Signature struct {
	R     *domain.U256
	S     *domain.U256
	Recid byte
}

// PrivateKey wraps a secp256k1 scalar and exposes the operations the
// signer needs: deterministic signing and address derivation.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// ParsePrivateKey parses a 32-byte private key scalar, hex-encoded with or
// without a "0x" prefix.
func ParsePrivateKey(hexKey string) (*PrivateKey, error) {
	b, err := hexDecodeFlexible(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key hex: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("crypto: private key must be 32 bytes, got %d", len(b))
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	return &PrivateKey{key: priv}, nil
}

// Address derives the Ethereum-style account address for this key:
// keccak256(pubkey[1..65])[12..32], rendered lowercase.
func (p *PrivateKey) Address() domain.Address {
	return addressFromPubkey(p.key.PubKey())
}

func addressFromPubkey(pub *secp256k1.PublicKey) domain.Address {
	uncompressed := pub.SerializeUncompressed() // 0x04 || X || Y, 65 bytes
	digest := Keccak256(uncompressed[1:])
	addr, _ := domain.AddressFromBytes(digest[12:32])
	return addr
}

// Sign produces a deterministic (RFC 6979) ECDSA signature over a
// 32-byte digest and returns it with the recovery id needed to
// reconstruct the public key. The underlying curve arithmetic comes
// from decred's secp256k1/v4 ecdsa.SignCompact, which already encodes
// (r, s, recid) the way the EVM needs it; this function only unwraps
// that compact form into the named fields the rest of the pipeline
// consumes.
func (p *PrivateKey) Sign(digest [32]byte) (Signature, error) {
	compact := ecdsa.SignCompact(p.key, digest[:], false)
	if len(compact) != 65 {
		return Signature{}, errors.New("crypto: unexpected compact signature length")
	}
	recid := compact[0]
	if recid >= 27 {
		recid -= 27
	}
	sig := Signature{
		R:     new(domain.U256).SetBytes(compact[1:33]),
		S:     new(domain.U256).SetBytes(compact[33:65]),
		Recid: recid,
	}
	return sig, nil
}

// RecoverAddress recovers the signer's address from a signature and
// digest. Used by tests to verify a Sign/Recover round trip.
func RecoverAddress(sig Signature, digest [32]byte) (domain.Address, error) {
	compact := make([]byte, 65)
	compact[0] = 27 + sig.Recid
	copy(compact[1:33], leftPad32(sig.R.Bytes()))
	copy(compact[33:65], leftPad32(sig.S.Bytes()))

	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return domain.Address{}, fmt.Errorf("crypto: recover public key: %w", err)
	}
	return addressFromPubkey(pub), nil
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func hexDecodeFlexible(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}
