// Package types defines the digest types used to identify programs and
// checkpoints.
//
// Digests are 32 bytes and travel as base58 text on the command line, over
// RPC and in archive file names.
package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// DigestSize is the length of a Digest in bytes.
const DigestSize = 32

var (
	// ErrInvalidDigest is returned when a digest has invalid length.
	ErrInvalidDigest = errors.New("invalid digest: must be 32 bytes")
)

// Digest is a 32-byte content digest.
type Digest [DigestSize]byte

// ProgramDigest computes the SHA3-256 digest of a program image. Words are
// hashed as little-endian 64-bit integers, so equal images always share a
// digest regardless of how their text was formatted.
func ProgramDigest(words []int64) Digest {
	h := sha3.New256()
	var buf [8]byte
	for _, w := range words {
		binary.LittleEndian.PutUint64(buf[:], uint64(w))
		h.Write(buf[:])
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// ContentDigest computes the BLAKE3 digest of data.
func ContentDigest(data []byte) Digest {
	return blake3.Sum256(data)
}

// DigestFromBase58 parses a base58-encoded digest.
func DigestFromBase58(s string) (Digest, error) {
	var d Digest
	data, err := base58.Decode(s)
	if err != nil {
		return d, fmt.Errorf("base58 decode: %w", err)
	}
	return DigestFromBytes(data)
}

// DigestFromHex parses a hex-encoded digest.
func DigestFromHex(s string) (Digest, error) {
	var d Digest
	data, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("hex decode: %w", err)
	}
	return DigestFromBytes(data)
}

// DigestFromBytes creates a Digest from a byte slice.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, ErrInvalidDigest
	}
	copy(d[:], b)
	return d, nil
}

// String returns the base58-encoded representation.
func (d Digest) String() string {
	return base58.Encode(d[:])
}

// Short returns the first eight base58 characters, for logs.
func (d Digest) Short() string {
	s := d.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Hex returns the hex-encoded representation.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// IsZero returns true if the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Bytes returns the digest as a byte slice.
func (d Digest) Bytes() []byte {
	return d[:]
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := DigestFromBase58(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
