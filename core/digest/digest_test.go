package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSum(t *testing.T) {
	data := []byte("[1]: سورة الفاتحة الآية ١")
	h := Sum(data)

	want := sha256.Sum256(data)
	if h.SHA256 != hex.EncodeToString(want[:]) {
		t.Errorf("SHA256 = %s, want %s", h.SHA256, hex.EncodeToString(want[:]))
	}
	if !IsValid(h.SHA256) || !IsValid(h.BLAKE3) {
		t.Errorf("invalid digests: %+v", h)
	}
	if h.SHA256 == h.BLAKE3 {
		t.Error("SHA-256 and BLAKE3 digests should differ")
	}
}

func TestBlake3KnownVector(t *testing.T) {
	// BLAKE3 of the empty input
	want := "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got := Blake3(nil); got != want {
		t.Errorf("Blake3(nil) = %s, want %s", got, want)
	}
}

func TestVerify(t *testing.T) {
	data := []byte("segment body")
	h := Sum(data)
	if !h.Verify(data) {
		t.Error("Verify() rejected matching data")
	}
	if h.Verify([]byte("segment body\n")) {
		t.Error("Verify() accepted modified data")
	}
}

func TestIsValid(t *testing.T) {
	tests := map[string]bool{
		"af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262": true,
		"AF1349B9F5F9A1A6A0404DEA36DCC9499BCB25C9ADC112B7CC9A93CAE41F3262": false,
		"abc": false,
		"":    false,
	}
	for in, want := range tests {
		if got := IsValid(in); got != want {
			t.Errorf("IsValid(%q) = %v, want %v", in, got, want)
		}
	}
}
