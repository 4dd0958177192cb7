package txbuilder

import (
	"math/big"
	"strings"
	"testing"

	evmcrypto "github.com/nodies-labs/liqsentinel/internal/pkg/crypto"
	"github.com/nodies-labs/liqsentinel/internal/domain"
)

func testPrivateKey(t *testing.T) *evmcrypto.PrivateKey {
	t.Helper()
	priv, err := evmcrypto.ParsePrivateKey("0x" + strings.Repeat("11", 32))
	if err != nil {
		t.Fatalf("failed to parse test private key: %v", err)
	}
	return priv
}

func TestSignProducesRawTxStartingWithType02(t *testing.T) {
	priv := testPrivateKey(t)
	fields := domain.TransactionFields{
		ChainID:              137,
		Nonce:                3,
		GasLimit:             1_900_000,
		MaxFeePerGas:         big.NewInt(3_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_500_000_000),
		To:                   domain.MustParseAddress("0x0000000000000000000000000000000000000002"),
		Value:                big.NewInt(0),
		Data:                 []byte{0xde, 0xad, 0xbe, 0xef},
	}

	signed, err := Sign(fields, priv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(signed.RawHex, "0x02") {
		t.Errorf("raw tx does not start with type-2 prefix: %s", signed.RawHex[:6])
	}
}

func TestSignIsRecoverableToSignerAddress(t *testing.T) {
	priv := testPrivateKey(t)
	wantAddr := priv.Address()

	fields := domain.TransactionFields{
		ChainID:              137,
		Nonce:                0,
		GasLimit:             21_000,
		MaxFeePerGas:         big.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
		To:                   domain.MustParseAddress("0x0000000000000000000000000000000000000002"),
		Value:                big.NewInt(0),
		Data:                 nil,
	}

	core := encodeCore(fields)
	digest := evmcrypto.Keccak256(append([]byte{txTypeEIP1559}, core...))
	var digest32 [32]byte
	copy(digest32[:], digest)

	sig, err := priv.Sign(digest32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recovered, err := evmcrypto.RecoverAddress(sig, digest32)
	if err != nil {
		t.Fatalf("unexpected error recovering address: %v", err)
	}
	if recovered != wantAddr {
		t.Errorf("got %s, want %s", recovered, wantAddr)
	}
}

func TestSignDifferentNoncesProduceDifferentHashes(t *testing.T) {
	priv := testPrivateKey(t)
	base := domain.TransactionFields{
		ChainID:              137,
		GasLimit:             21_000,
		MaxFeePerGas:         big.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
		To:                   domain.MustParseAddress("0x0000000000000000000000000000000000000002"),
		Value:                big.NewInt(0),
	}
	a := base
	a.Nonce = 1
	b := base
	b.Nonce = 2

	signedA, err := Sign(a, priv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	signedB, err := Sign(b, priv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signedA.Hash == signedB.Hash {
		t.Errorf("expected distinct hashes for distinct nonces")
	}
}
