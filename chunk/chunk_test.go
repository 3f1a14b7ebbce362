package chunk

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastore/chunkup/common"
)

func TestSplit_Coverage(t *testing.T) {
	a := assert.New(t)
	content := []byte("testcontent") // 11 bytes
	src := bytes.NewReader(content)

	chunks := Split(src, int64(len(content)), 5)
	require.Len(t, chunks, 3)

	a.Equal(int64(0), chunks[0].Start)
	a.Equal(int64(5), chunks[0].End)
	a.Equal(int64(5), chunks[1].Start)
	a.Equal(int64(10), chunks[1].End)
	a.Equal(int64(10), chunks[2].Start)
	a.Equal(int64(11), chunks[2].End)

	var sum int64
	for i, c := range chunks {
		a.Equal(i, c.Index)
		sum += c.Size()
	}
	a.EqualValues(len(content), sum)
}

func TestSplit_ExactMultiple(t *testing.T) {
	a := assert.New(t)
	content := make([]byte, 10)
	chunks := Split(bytes.NewReader(content), 10, 5)
	a.Len(chunks, 2)
	a.Equal(int64(5), chunks[0].Size())
	a.Equal(int64(5), chunks[1].Size())
}

func TestSplit_ZeroByteFile(t *testing.T) {
	a := assert.New(t)
	chunks := Split(bytes.NewReader(nil), 0, 5)
	a.NotNil(chunks)
	a.Len(chunks, 0)
}

func TestChunk_BlobIsZeroCopyView(t *testing.T) {
	content := []byte("hello world")
	chunks := Split(bytes.NewReader(content), int64(len(content)), 5)

	got, err := io.ReadAll(chunks[0].Blob())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	// Calling Blob() twice yields independent readers.
	got2, err := io.ReadAll(chunks[0].Blob())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got2))
}

func TestChunk_HashImmutableOnceSet(t *testing.T) {
	chunks := Split(bytes.NewReader([]byte("abcde")), 5, 5)
	c := chunks[0]

	_, ok := c.Hash()
	assert.False(t, ok)

	require.NoError(t, c.SetHash(common.Digest("deadbeef")))
	d, ok := c.Hash()
	assert.True(t, ok)
	assert.EqualValues(t, "deadbeef", d)

	err := c.SetHash(common.Digest("other"))
	assert.ErrorIs(t, err, ErrHashAlreadySet)
}
