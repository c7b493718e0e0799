package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Bits is the width of every perceptual hash in a corpus.
const Bits = 64

// Hash is a 64-bit perceptual hash.
type Hash uint64

// Distance returns the Hamming distance between two hashes.
func (h Hash) Distance(other Hash) int {
	return bits.OnesCount64(uint64(h ^ other))
}

// String renders the hash as 16 lowercase hex digits.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// ParseHash parses the form produced by Hash.String.
func ParseHash(value string) (Hash, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(value), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse perceptual hash %q: %w", value, err)
	}
	return Hash(v), nil
}

// Digest is a SHA-256 content digest.
type Digest [sha256.Size]byte

// IsZero reports whether the digest was never computed.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a 64-character hex digest.
func ParseDigest(value string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return d, fmt.Errorf("parse digest: %w", err)
	}
	if len(raw) != sha256.Size {
		return d, fmt.Errorf("parse digest: want %d bytes, got %d", sha256.Size, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// PerceptualState records whether perceptual hashes exist for a file.
type PerceptualState int

const (
	// NotComputed means only exact-mode data was gathered.
	NotComputed PerceptualState = iota
	// Valid means PHash and DHash hold real hashes.
	Valid
	// Unreadable means the image could not be decoded; it never joins a similar group.
	Unreadable
)

func (s PerceptualState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Unreadable:
		return "unreadable"
	default:
		return "not_computed"
	}
}

// ParsePerceptualState is the inverse of PerceptualState.String. Unknown
// values map to NotComputed so they are recomputed.
func ParsePerceptualState(value string) PerceptualState {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "valid":
		return Valid
	case "unreadable":
		return Unreadable
	default:
		return NotComputed
	}
}
