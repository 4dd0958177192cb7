package txbuilder

import (
	"encoding/hex"

	evmcrypto "github.com/nodies-labs/liqsentinel/internal/pkg/crypto"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/rlp"
	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
)

// txTypeEIP1559 is the EIP-2718 transaction type byte for EIP-1559
// transactions, prefixed to both the signing payload and the final raw
// transaction.
const txTypeEIP1559 = 0x02

// SignedTransaction is a fully signed EIP-1559 transaction, ready to
// submit, plus the hash the network will assign it.
type SignedTransaction struct {
	RawHex string
	Hash   [32]byte
}

// Sign RLP-encodes fields into the EIP-1559 core, signs keccak256(0x02 ||
// rlp_core) with priv, and assembles the final 0x02-prefixed raw
// transaction with the (yParity, r, s) tuple appended.
func Sign(fields domain.TransactionFields, priv *evmcrypto.PrivateKey) (SignedTransaction, error) {
	core := encodeCore(fields)
	digest := evmcrypto.Keccak256(append([]byte{txTypeEIP1559}, core...))
	var digest32 [32]byte
	copy(digest32[:], digest)

	sig, err := priv.Sign(digest32)
	if err != nil {
		return SignedTransaction{}, errkind.Wrap(errkind.Signing, "txbuilder: sign digest", err)
	}

	full := rlp.EncodeList(
		rlp.EncodeUint(uint64(fields.ChainID)),
		rlp.EncodeUint(fields.Nonce),
		rlp.EncodeBigInt(fields.MaxPriorityFeePerGas),
		rlp.EncodeBigInt(fields.MaxFeePerGas),
		rlp.EncodeUint(fields.GasLimit),
		rlp.EncodeBytes(fields.To.Bytes()),
		rlp.EncodeBigInt(fields.Value),
		rlp.EncodeBytes(fields.Data),
		rlp.EncodeList(), // empty access list
		rlp.EncodeUint(uint64(sig.Recid)),
		rlp.EncodeBigInt(sig.R),
		rlp.EncodeBigInt(sig.S),
	)

	raw := append([]byte{txTypeEIP1559}, full...)
	var hash32 [32]byte
	copy(hash32[:], evmcrypto.Keccak256(raw))

	return SignedTransaction{RawHex: "0x" + hex.EncodeToString(raw), Hash: hash32}, nil
}

// encodeCore RLP-encodes the nine unsigned EIP-1559 fields that get
// keccak256-hashed (with the leading type byte) to produce the signing
// digest.
func encodeCore(fields domain.TransactionFields) []byte {
	return rlp.EncodeList(
		rlp.EncodeUint(uint64(fields.ChainID)),
		rlp.EncodeUint(fields.Nonce),
		rlp.EncodeBigInt(fields.MaxPriorityFeePerGas),
		rlp.EncodeBigInt(fields.MaxFeePerGas),
		rlp.EncodeUint(fields.GasLimit),
		rlp.EncodeBytes(fields.To.Bytes()),
		rlp.EncodeBigInt(fields.Value),
		rlp.EncodeBytes(fields.Data),
		rlp.EncodeList(), // empty access list
	)
}
