package cryptox

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("NewSealer error: %v", err)
	}
	return s
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	if strings.Contains(sealed, "JBSWY3DPEHPK3PXP") {
		t.Fatalf("sealed value leaks plaintext: %s", sealed)
	}

	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("got %q", got)
	}
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	s := newTestSealer(t)

	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Fatalf("expected different ciphertexts for repeated Seal calls")
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	s := newTestSealer(t)
	other, err := NewSealer(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatalf("NewSealer error: %v", err)
	}

	sealed, _ := s.Seal("secret")
	if _, err := other.Open(sealed); err == nil {
		t.Fatalf("expected authentication failure with wrong key")
	}
}

func TestOpen_Malformed(t *testing.T) {
	s := newTestSealer(t)

	if _, err := s.Open("%%%not-base64"); err != ErrMalformedCiphertext {
		t.Fatalf("expected ErrMalformedCiphertext, got %v", err)
	}
	short := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if _, err := s.Open(short); err != ErrMalformedCiphertext {
		t.Fatalf("expected ErrMalformedCiphertext for short input, got %v", err)
	}
}

func TestNewSealer_BadKeyLength(t *testing.T) {
	if _, err := NewSealer([]byte("short")); err == nil {
		t.Fatalf("expected error for invalid key length")
	}
}

func TestNewSealerFromHex(t *testing.T) {
	if _, err := NewSealerFromHex("zz", ""); err == nil {
		t.Fatalf("expected hex decode error")
	}

	s1, err := NewSealerFromHex("", "fallback-secret")
	if err != nil {
		t.Fatalf("fallback sealer error: %v", err)
	}
	s2, _ := NewSealerFromHex("", "fallback-secret")
	sealed, _ := s1.Seal("x")
	if got, err := s2.Open(sealed); err != nil || got != "x" {
		t.Fatalf("fallback keys must be deterministic: %q %v", got, err)
	}

	hexKey := strings.Repeat("ab", 32)
	if _, err := NewSealerFromHex(hexKey, ""); err != nil {
		t.Fatalf("hex sealer error: %v", err)
	}
}
