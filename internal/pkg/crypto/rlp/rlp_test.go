package rlp

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEncodeUintRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 127, 128, 255, 256, 65535, 65536, 1 << 32, ^uint64(0)}
	for _, v := range vals {
		enc := EncodeUint(v)
		item, n, err := DecodeItem(enc)
		if err != nil {
			t.Fatalf("decode(%d): %v", v, err)
		}
		if n != len(enc) {
			t.Fatalf("decode(%d): consumed %d, want %d", v, n, len(enc))
		}
		if got := item.DecodeUint(); got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestEncodeBytesRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0x7f},
		{0x80},
		[]byte("dog"),
		bytes.Repeat([]byte{0xAB}, 55),
		bytes.Repeat([]byte{0xCD}, 56),
		bytes.Repeat([]byte{0xEF}, 1024),
	}
	for _, b := range cases {
		enc := EncodeBytes(b)
		item, n, err := DecodeItem(enc)
		if err != nil {
			t.Fatalf("decode(%d bytes): %v", len(b), err)
		}
		if n != len(enc) {
			t.Fatalf("decode(%d bytes): consumed %d, want %d", len(b), n, len(enc))
		}
		if item.IsList {
			t.Fatalf("decode(%d bytes): got list, want string", len(b))
		}
		if !bytes.Equal(item.Bytes, b) {
			t.Errorf("round trip %d bytes: mismatch", len(b))
		}
	}
}

func TestEncodeBytesRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		n := r.Intn(300)
		b := make([]byte, n)
		r.Read(b)
		enc := EncodeBytes(b)
		item, consumed, err := DecodeItem(enc)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if consumed != len(enc) {
			t.Fatalf("consumed %d want %d", consumed, len(enc))
		}
		if !bytes.Equal(item.Bytes, b) {
			t.Fatalf("mismatch at n=%d", n)
		}
	}
}

func TestEncodeUintZeroIsEmptyString(t *testing.T) {
	enc := EncodeUint(0)
	if !bytes.Equal(enc, []byte{0x80}) {
		t.Errorf("EncodeUint(0) = %x, want 80", enc)
	}
}

func TestEncodeListNestsCorrectly(t *testing.T) {
	list := EncodeList(EncodeUint(1), EncodeUint(2), EncodeBytes([]byte("cat")))
	item, n, err := DecodeItem(list)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(list) {
		t.Fatalf("consumed %d want %d", n, len(list))
	}
	if !item.IsList {
		t.Fatalf("expected list")
	}
	if len(item.List) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(item.List))
	}
	if item.List[0].DecodeUint() != 1 || item.List[1].DecodeUint() != 2 {
		t.Errorf("unexpected decoded ints: %v %v", item.List[0].DecodeUint(), item.List[1].DecodeUint())
	}
	if string(item.List[2].Bytes) != "cat" {
		t.Errorf("unexpected decoded string: %s", item.List[2].Bytes)
	}
}

func TestEncodeListEmpty(t *testing.T) {
	enc := EncodeList()
	if !bytes.Equal(enc, []byte{0xC0}) {
		t.Errorf("EncodeList() = %x, want C0", enc)
	}
}
