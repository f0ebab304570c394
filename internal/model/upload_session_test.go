package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalChunksFor(t *testing.T) {
	tests := []struct {
		name      string
		totalSize int64
		chunkSize int64
		want      int
	}{
		{"exact multiple", 10 << 20, 1 << 20, 10},
		{"remainder adds a chunk", 26, 10, 3},
		{"smaller than one chunk", 100, 1 << 20, 1},
		{"equal to one chunk", 1 << 20, 1 << 20, 1},
		{"one byte over", (1 << 20) + 1, 1 << 20, 2},
		{"zero size still one chunk", 0, 1 << 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalChunksFor(tt.totalSize, tt.chunkSize))
		})
	}
}

func TestChunkListAdd(t *testing.T) {
	c := ChunkList{}
	c = c.Add(2)
	c = c.Add(0)
	c = c.Add(2) // duplicate
	c = c.Add(1)

	assert.Equal(t, ChunkList{0, 1, 2}, c)
}

func TestChunkListMissing(t *testing.T) {
	c := ChunkList{0, 3}

	assert.Equal(t, []int{1, 2}, c.Missing(4))
	assert.Empty(t, ChunkList{0, 1}.Missing(2))
	assert.Equal(t, []int{0, 1}, ChunkList{}.Missing(2))
}

func TestChunkListClamp(t *testing.T) {
	c := ChunkList{0, 1, 5, 9}

	assert.Equal(t, ChunkList{0, 1}, c.Clamp(3))
	assert.Equal(t, ChunkList{}, c.Clamp(0))
}

func TestChunkListScanValue(t *testing.T) {
	v, err := ChunkList{1, 2, 3}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", v)

	var c ChunkList
	require.NoError(t, c.Scan("[1,2,3]"))
	assert.Equal(t, ChunkList{1, 2, 3}, c)

	require.NoError(t, c.Scan(nil))
	assert.Empty(t, c)
}

func TestUploadSessionOwnership(t *testing.T) {
	userID := "u1"

	public := &UploadSession{IsPublic: true}
	assert.True(t, public.OwnedBy(PublicScope()))
	assert.False(t, public.OwnedBy(UserScope(userID)))

	private := &UploadSession{UserID: &userID}
	assert.True(t, private.OwnedBy(UserScope(userID)))
	assert.False(t, private.OwnedBy(PublicScope()))
	assert.False(t, private.OwnedBy(UserScope("other")))
}

func TestUploadSessionMatches(t *testing.T) {
	s := &UploadSession{
		IsPublic:  true,
		Filename:  "report.pdf",
		TotalSize: 1000,
		ChunkSize: 100,
	}

	assert.True(t, s.Matches(PublicScope(), "report.pdf", 1000, 100))
	assert.False(t, s.Matches(PublicScope(), "other.pdf", 1000, 100))
	assert.False(t, s.Matches(PublicScope(), "report.pdf", 999, 100))
	assert.False(t, s.Matches(PublicScope(), "report.pdf", 1000, 200))
	assert.False(t, s.Matches(UserScope("u1"), "report.pdf", 1000, 100))
}
