package treechunk

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, KeySize)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	key := testKey()
	payload := []byte("the quick brown fox jumps over the lazy dog")

	name, encoded, err := EncodeChunk(payload, key, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeChunk(bytes.NewReader(encoded), name, key, len(encoded))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, payload)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	key := testKey()
	payload := bytes.Repeat([]byte{0x07}, 9000)

	name1, enc1, err := EncodeChunk(payload, key, true)
	if err != nil {
		t.Fatalf("encode 1: %v", err)
	}
	name2, enc2, err := EncodeChunk(payload, key, true)
	if err != nil {
		t.Fatalf("encode 2: %v", err)
	}
	if name1 != name2 || !bytes.Equal(enc1, enc2) {
		t.Fatal("encoding the same payload twice must produce identical bytes")
	}
}

func TestEncodeCompressesHighlyCompressible(t *testing.T) {
	key := testKey()
	payload := bytes.Repeat([]byte{0xAA}, 1<<16)

	_, encoded, err := EncodeChunk(payload, key, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) >= len(payload) {
		t.Fatalf("expected compression to shrink a highly repetitive payload, got %d bytes for %d input", len(encoded), len(payload))
	}
}

func TestEncodeSkipsCompressionOfIncompressibleData(t *testing.T) {
	key := testKey()
	// Pseudo-random, non-repeating payload: zlib at level 1 should not
	// reach the 20% savings threshold, so the flag must stay unset.
	payload := make([]byte, 4096)
	x := uint32(0x2545F491)
	for i := range payload {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		payload[i] = byte(x)
	}

	_, encoded, err := EncodeChunk(payload, key, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoded[17] != 0 {
		t.Fatal("incompressible payload should be stored with the compressed flag clear")
	}
}

func TestDecodeRejectsTamperedChunk(t *testing.T) {
	key := testKey()
	name, encoded, err := EncodeChunk([]byte("hello world"), key, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tampered := append([]byte(nil), encoded...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := DecodeChunk(bytes.NewReader(tampered), name, key, len(tampered)); err == nil {
		t.Fatal("expected a hash mismatch error for a tampered chunk")
	} else if ce, ok := err.(*ChunkError); !ok || ce.Kind != ErrBadHash {
		t.Fatalf("expected ErrBadHash, got %v", err)
	}
}

func TestDecodeWithWrongKeyReturnsGarbage(t *testing.T) {
	key := testKey()
	wrongKey := bytes.Repeat([]byte{0x99}, KeySize)
	name, encoded, err := EncodeChunk([]byte("secret payload"), key, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// A wrong content key still passes the hash check (the hash covers
	// the ciphertext, not the plaintext) but decrypts to garbage; for
	// the intro payload specifically garbage output fails the magic
	// check. For a generic chunk there is no such signal, so this only
	// demonstrates that decode succeeds structurally while returning
	// unrelated plaintext.
	got, err := DecodeChunk(bytes.NewReader(encoded), name, wrongKey, len(encoded))
	if err != nil {
		t.Fatalf("decode with wrong key should still pass the hash check: %v", err)
	}
	if bytes.Equal(got, []byte("secret payload")) {
		t.Fatal("decrypting with the wrong key should not recover the original plaintext")
	}
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	if _, err := DecodeChunk(bytes.NewReader([]byte{1, 2, 3}), [HashSize]byte{}, testKey(), 64); err == nil {
		t.Fatal("expected a short-header error")
	} else if ce, ok := err.(*ChunkError); !ok || ce.Kind != ErrShortHeader {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	key := testKey()
	_, encoded, err := EncodeChunk([]byte("payload"), key, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	corrupted := append([]byte(nil), encoded...)
	corrupted[0] ^= 0xFF

	var name [HashSize]byte
	if _, err := DecodeChunk(bytes.NewReader(corrupted), name, key, len(corrupted)); err == nil {
		t.Fatal("expected a bad-magic error")
	} else if ce, ok := err.(*ChunkError); !ok || ce.Kind != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}
