package forensics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/zeebo/blake3"
)

// Supported digest algorithms.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmBLAKE3 = "blake3"
)

const hashChunkSize = 64 * 1024

// Digest is a content fingerprint of an original byte sequence.
type Digest struct {
	Algorithm string `json:"algorithm"`

	// Hex is the 256-bit digest as 64 lowercase hex characters.
	Hex string `json:"hex"`
}

func (d Digest) String() string {
	return d.Algorithm + ":" + d.Hex
}

func newHash(algo string) (hash.Hash, error) {
	switch strings.ToLower(algo) {
	case "", AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmBLAKE3:
		return blake3.New(), nil
	}
	return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrHash, algo)
}

// KnownAlgorithm reports whether algo names a supported digest algorithm.
// Names are matched case-insensitively; the empty name selects SHA-256.
func KnownAlgorithm(algo string) bool {
	switch strings.ToLower(algo) {
	case "", AlgorithmSHA256, AlgorithmBLAKE3:
		return true
	}
	return false
}

func algoName(algo string) string {
	if algo == "" {
		return AlgorithmSHA256
	}
	return strings.ToLower(algo)
}

// HashBytes returns the SHA-256 digest of data.
//
// The digest covers the bytes exactly as given; callers pass the original
// file contents, never re-encoded pixels.
func HashBytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest{Algorithm: AlgorithmSHA256, Hex: hex.EncodeToString(sum[:])}
}

// HashBytesWith returns the digest of data using the named algorithm
// ("sha256" or "blake3"; empty selects sha256).
func HashBytesWith(algo string, data []byte) (Digest, error) {
	h, err := newHash(algo)
	if err != nil {
		return Digest{}, err
	}
	h.Write(data)
	return Digest{Algorithm: algoName(algo), Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// HashReader streams r through the named algorithm in fixed-size chunks.
//
// Read failures are returned wrapped in ErrHash.
func HashReader(algo string, r io.Reader) (Digest, error) {
	h, err := newHash(algo)
	if err != nil {
		return Digest{}, err
	}
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return Digest{}, fmt.Errorf("%w: %w", ErrHash, err)
	}
	return Digest{Algorithm: algoName(algo), Hex: hex.EncodeToString(h.Sum(nil))}, nil
}
