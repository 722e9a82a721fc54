// Package fingerprint computes the dual 32-bit fingerprint used to detect
// whether a segment's content changed between two runs: a MurmurHash2
// variant seeded with a fixed constant, paired with a standard zlib/IEEE
// CRC32. Two independent functions bound the collision probability at
// negligible extra CPU cost; a segment is considered unchanged only when
// both values match the stored pair.
package fingerprint

import "hash/crc32"

// Seed is the fixed MurmurHash2 seed every fingerprint is computed with.
// Changing it would invalidate every existing checksum store, so it is not
// configurable.
const Seed uint32 = 0xBABEAFFE

const (
	murmurM uint32 = 0x5bd1e995
	murmurR uint32 = 24
)

// Pair is the two independent 32-bit fingerprints computed over one
// segment's bytes.
type Pair struct {
	Murmur uint32
	CRC32  uint32
}

// IsZero reports whether both fingerprints are zero, the value an
// unwritten checksum-store entry reads back as.
func (p Pair) IsZero() bool {
	return p.Murmur == 0 && p.CRC32 == 0
}

// Equal reports whether both fingerprints in p match other's.
func (p Pair) Equal(other Pair) bool {
	return p.Murmur == other.Murmur && p.CRC32 == other.CRC32
}

// Compute returns the fingerprint pair for data, using the full byte count
// including a short final segment.
func Compute(data []byte) Pair {
	return Pair{
		Murmur: MurmurHash2(data, Seed),
		CRC32:  crc32.ChecksumIEEE(data),
	}
}

// MurmurHash2 is the classic 32-bit MurmurHash2 variant: constants
// m=0x5bd1e995, r=24, initial value seed^len, 4-byte little-endian block
// mixing, and switch-fallthrough tail handling for 3/2/1 trailing bytes.
//
// The reference implementation reads 4-byte blocks via an unaligned
// native-endian load, so it differs between little- and big-endian hosts.
// This implementation always reads blocks as little-endian so that stores
// produced on one host remain valid on another, matching the little-endian
// convention the rest of the on-disk formats use.
func MurmurHash2(data []byte, seed uint32) uint32 {
	length := uint32(len(data))
	h := seed ^ length

	for len(data) >= 4 {
		k := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24

		k *= murmurM
		k ^= k >> murmurR
		k *= murmurM

		h *= murmurM
		h ^= k

		data = data[4:]
	}

	switch len(data) {
	case 3:
		h ^= uint32(data[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(data[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(data[0])
		h *= murmurM
	}

	h ^= h >> 13
	h *= murmurM
	h ^= h >> 15

	return h
}
