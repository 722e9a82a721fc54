package fingerprint

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMurmurHash2_EmptyInput(t *testing.T) {
	h := MurmurHash2(nil, Seed)
	assert.Equal(t, uint32(0xdd2cb13d), h, "empty input should hash to the finalization mix of seed^0")
}

func TestMurmurHash2_Deterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	first := MurmurHash2(data, Seed)
	second := MurmurHash2(data, Seed)
	require.Equal(t, first, second)
}

func TestMurmurHash2_TailBytes(t *testing.T) {
	// Exercise the 3/2/1 trailing-byte fallthrough cases explicitly.
	cases := [][]byte{
		{0x01, 0x02, 0x03, 0x04, 0x05},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
	}
	seen := make(map[uint32]bool)
	for _, c := range cases {
		h := MurmurHash2(c, Seed)
		assert.False(t, seen[h], "tail-byte variants should not collide in this small sample")
		seen[h] = true
	}
}

func TestCompute_BlankSegment(t *testing.T) {
	blank := make([]byte, 16384)
	pair := Compute(blank)

	// The profiling utility's "blank segment" heuristic names this exact
	// pair; verified here by construction rather than hard-coded elsewhere.
	assert.Equal(t, uint32(0x68b3db1f), pair.Murmur)
	assert.Equal(t, uint32(0xab54d286), pair.CRC32)
}

func TestCompute_CRC32MatchesStdlib(t *testing.T) {
	data := []byte("segment payload bytes")
	pair := Compute(data)
	assert.Equal(t, crc32.ChecksumIEEE(data), pair.CRC32)
}

func TestPair_EqualAndZero(t *testing.T) {
	var zero Pair
	assert.True(t, zero.IsZero())

	a := Pair{Murmur: 1, CRC32: 2}
	b := Pair{Murmur: 1, CRC32: 2}
	c := Pair{Murmur: 1, CRC32: 3}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.IsZero())
}
