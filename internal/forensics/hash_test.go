package forensics

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
	"testing/iotest"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestHashBytes_Deterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	a := HashBytes(data)
	b := HashBytes(append([]byte(nil), data...))
	if a != b {
		t.Errorf("same bytes hashed differently: %s vs %s", a.Hex, b.Hex)
	}
	if !hexDigest.MatchString(a.Hex) {
		t.Errorf("digest is not 64 lowercase hex chars: %q", a.Hex)
	}
	if a.Algorithm != AlgorithmSHA256 {
		t.Errorf("Algorithm: got %s", a.Algorithm)
	}

	changed := append([]byte(nil), data...)
	changed[10] ^= 0x01
	if HashBytes(changed) == a {
		t.Error("flipping one bit did not change the digest")
	}
}

func TestHashBytes_KnownVector(t *testing.T) {
	got := HashBytes([]byte("abc")).Hex
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	empty := HashBytes(nil).Hex
	if empty != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("empty input: got %s", empty)
	}
}

func TestHashBytesWith_Algorithms(t *testing.T) {
	data := []byte("photo bytes")

	tests := []struct {
		algo     string
		wantName string
	}{
		{"", AlgorithmSHA256},
		{"sha256", AlgorithmSHA256},
		{"SHA256", AlgorithmSHA256},
		{"blake3", AlgorithmBLAKE3},
	}
	for _, tt := range tests {
		t.Run(tt.algo, func(t *testing.T) {
			d, err := HashBytesWith(tt.algo, data)
			if err != nil {
				t.Fatalf("HashBytesWith failed: %v", err)
			}
			if d.Algorithm != tt.wantName {
				t.Errorf("Algorithm: got %s, want %s", d.Algorithm, tt.wantName)
			}
			if !hexDigest.MatchString(d.Hex) {
				t.Errorf("digest is not 64 lowercase hex chars: %q", d.Hex)
			}
		})
	}

	s, _ := HashBytesWith("sha256", data)
	b, _ := HashBytesWith("blake3", data)
	if s.Hex == b.Hex {
		t.Error("sha256 and blake3 produced the same digest")
	}
	if s != HashBytes(data) {
		t.Error("HashBytesWith(sha256) disagrees with HashBytes")
	}
}

func TestHashBytesWith_Unsupported(t *testing.T) {
	if _, err := HashBytesWith("md5", []byte("x")); !errors.Is(err, ErrHash) {
		t.Errorf("expected ErrHash, got %v", err)
	}
}

func TestHashReader_MatchesHashBytes(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 20000) // spans several chunks

	for _, algo := range []string{AlgorithmSHA256, AlgorithmBLAKE3} {
		t.Run(algo, func(t *testing.T) {
			want, err := HashBytesWith(algo, data)
			if err != nil {
				t.Fatal(err)
			}
			got, err := HashReader(algo, iotest.HalfReader(bytes.NewReader(data)))
			if err != nil {
				t.Fatalf("HashReader failed: %v", err)
			}
			if got != want {
				t.Errorf("streamed digest %s differs from whole-buffer %s", got.Hex, want.Hex)
			}
		})
	}
}

func TestHashReader_ReadError(t *testing.T) {
	r := iotest.TimeoutReader(strings.NewReader(strings.Repeat("x", 100)))
	// TimeoutReader fails on the second read.
	_, err := HashReader(AlgorithmSHA256, iotest.OneByteReader(r))
	if !errors.Is(err, ErrHash) {
		t.Errorf("expected ErrHash, got %v", err)
	}
}

func TestDigest_String(t *testing.T) {
	d := Digest{Algorithm: "sha256", Hex: "ab"}
	if d.String() != "sha256:ab" {
		t.Errorf("got %s", d.String())
	}
}

func TestKnownAlgorithm(t *testing.T) {
	tests := []struct {
		algo string
		want bool
	}{
		{"", true},
		{"sha256", true},
		{"SHA256", true},
		{"blake3", true},
		{"BLAKE3", true},
		{"md5", false},
		{"sha-256", false},
	}
	for _, tt := range tests {
		if got := KnownAlgorithm(tt.algo); got != tt.want {
			t.Errorf("KnownAlgorithm(%q): got %v, want %v", tt.algo, got, tt.want)
		}
	}
}
