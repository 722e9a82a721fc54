package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	assert.Equal(t, int64(0), Count(0))
	assert.Equal(t, int64(1), Count(1))
	assert.Equal(t, int64(1), Count(Size))
	assert.Equal(t, int64(2), Count(Size+1))
	assert.Equal(t, int64(513), Count(BufferSize+5))
}

func TestByteLen_ShortFinalSegment(t *testing.T) {
	sourceBytes := int64(BufferSize + 5)
	assert.Equal(t, int64(Size), ByteLen(0, sourceBytes))
	assert.Equal(t, int64(5), ByteLen(BufferSegments, sourceBytes))
	assert.Equal(t, int64(0), ByteLen(BufferSegments+1, sourceBytes))
}

func TestPlan_ReducesWorkersWhenSourceTooSmall(t *testing.T) {
	partitions := Plan(BufferSize/2, 4)
	assert.Len(t, partitions, 1)
	assert.Equal(t, int64(0), partitions[0].Start)
	assert.Equal(t, int64(BufferSize/2), partitions[0].End)
}

func TestPlan_DisjointAndCoversWholeSource(t *testing.T) {
	sourceBytes := int64(BufferSize * 10)
	partitions := Plan(sourceBytes, 3)
	require := assert.New(t)
	require.Len(partitions, 3)

	for i := 1; i < len(partitions); i++ {
		require.Equal(partitions[i-1].End, partitions[i].Start, "partitions must be contiguous")
	}
	require.Equal(sourceBytes, partitions[len(partitions)-1].End, "last partition must reach source end")
	require.Equal(int64(0), partitions[0].Start)
}

func TestPlan_LastWorkerAbsorbsRemainder(t *testing.T) {
	// 10 buffers across 3 workers: 3 buffers each, with 1 buffer left over
	// that must land in the last worker's partition.
	sourceBytes := int64(BufferSize * 10)
	partitions := Plan(sourceBytes, 3)
	last := partitions[len(partitions)-1]
	assert.Greater(t, last.Len(), partitions[0].Len())
}
