package abi

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

func TestEncodeAddressLeftPads(t *testing.T) {
	a := domain.MustParseAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	word := EncodeAddress(a)
	if len(word) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(word))
	}
	for _, b := range word[:12] {
		if b != 0 {
			t.Fatalf("expected zero padding, got %x", word)
		}
	}
	if !bytes.Equal(word[12:], a.Bytes()) {
		t.Errorf("address bytes not preserved: %x", word[12:])
	}
}

func TestEncodeUint256LeftPads(t *testing.T) {
	word := EncodeUint256(big.NewInt(0x1234))
	want := make([]byte, 32)
	want[30] = 0x12
	want[31] = 0x34
	if !bytes.Equal(word, want) {
		t.Errorf("EncodeUint256(0x1234) = %x, want %x", word, want)
	}
}

func TestEncodeBoolIsZeroOrOneInWord(t *testing.T) {
	if !bytes.Equal(EncodeBool(false), make([]byte, 32)) {
		t.Errorf("EncodeBool(false) should be all zero")
	}
	want := make([]byte, 32)
	want[31] = 1
	if !bytes.Equal(EncodeBool(true), want) {
		t.Errorf("EncodeBool(true) = %x, want %x", EncodeBool(true), want)
	}
}

func TestEncodeBytesLengthPrefixAndPadding(t *testing.T) {
	enc := EncodeBytes([]byte("hello"))
	if len(enc) != 64 { // 32 length word + 32 padded payload (5 bytes -> 1 word)
		t.Fatalf("expected 64 bytes, got %d", len(enc))
	}
	length := new(big.Int).SetBytes(enc[:32])
	if length.Int64() != 5 {
		t.Errorf("length word = %d, want 5", length.Int64())
	}
	if !bytes.Equal(enc[32:37], []byte("hello")) {
		t.Errorf("payload mismatch: %x", enc[32:37])
	}
	for _, b := range enc[37:] {
		if b != 0 {
			t.Errorf("expected zero padding after payload, got %x", enc[32:])
		}
	}
}

func TestEncodeAddressBytesTupleArraySingleElement(t *testing.T) {
	router := domain.MustParseAddress("0x0000000000000000000000000000000000000001")
	items := []AddressBytesTuple{{Addr: router, Data: []byte{0xde, 0xad, 0xbe, 0xef}}}
	enc := EncodeAddressBytesTupleArray(items)

	length := new(big.Int).SetBytes(enc[0:32])
	if length.Int64() != 1 {
		t.Fatalf("array length = %d, want 1", length.Int64())
	}

	// Head: one offset word pointing to the tail start (right after the
	// one head word, i.e. offset 32).
	headOffset := new(big.Int).SetBytes(enc[32:64])
	if headOffset.Int64() != 32 {
		t.Fatalf("head offset = %d, want 32", headOffset.Int64())
	}

	tail := enc[64:]
	tailAddr := tail[0:32]
	wantAddr := EncodeAddress(router)
	if !bytes.Equal(tailAddr, wantAddr) {
		t.Errorf("tail address mismatch: %x vs %x", tailAddr, wantAddr)
	}
	bytesOffset := new(big.Int).SetBytes(tail[32:64])
	if bytesOffset.Int64() != 64 {
		t.Fatalf("in-tuple bytes offset = %d, want 64", bytesOffset.Int64())
	}
	bytesLen := new(big.Int).SetBytes(tail[64:96])
	if bytesLen.Int64() != 4 {
		t.Fatalf("bytes length = %d, want 4", bytesLen.Int64())
	}
	if !bytes.Equal(tail[96:100], []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("payload mismatch: %x", tail[96:100])
	}
}

func TestEncodeAddressBytesTupleArrayMultipleElementsTailOffsetsAccumulate(t *testing.T) {
	a1 := domain.MustParseAddress("0x0000000000000000000000000000000000000001")
	a2 := domain.MustParseAddress("0x0000000000000000000000000000000000000002")
	items := []AddressBytesTuple{
		{Addr: a1, Data: []byte{0x01, 0x02, 0x03}},       // tail len = 32+32+32+32 (address, bytes offset, len word, 1 padded word) = 128
		{Addr: a2, Data: bytes.Repeat([]byte{0xAA}, 40)}, // 40 bytes -> 2 words -> tail len = 32+32+32+64 = 160
	}
	enc := EncodeAddressBytesTupleArray(items)

	headSize := 2 * 32
	firstTailLen := 128
	head0 := new(big.Int).SetBytes(enc[32:64]).Int64()
	head1 := new(big.Int).SetBytes(enc[64:96]).Int64()
	if head0 != int64(headSize) {
		t.Errorf("head0 offset = %d, want %d", head0, headSize)
	}
	if head1 != int64(headSize+firstTailLen) {
		t.Errorf("head1 offset = %d, want %d", head1, headSize+firstTailLen)
	}
}

func TestEncodeAddressArray(t *testing.T) {
	a1 := domain.MustParseAddress("0x0000000000000000000000000000000000000001")
	a2 := domain.MustParseAddress("0x0000000000000000000000000000000000000002")
	enc := EncodeAddressArray([]domain.Address{a1, a2})
	if len(enc) != 32*3 {
		t.Fatalf("expected 3 words, got %d bytes", len(enc))
	}
	length := new(big.Int).SetBytes(enc[0:32])
	if length.Int64() != 2 {
		t.Fatalf("length = %d, want 2", length.Int64())
	}
}

func TestSelectorDeterministic(t *testing.T) {
	sig := "liquidateAndArb((address,address,uint256,address,(address,bytes)[],address,uint256))"
	s1 := Selector(sig)
	s2 := Selector(sig)
	if s1 != s2 {
		t.Errorf("selector not deterministic")
	}
}
