package hashpipeline

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastore/chunkup/chunk"
	"github.com/wastore/chunkup/common"
)

func testLogger() *common.Logger {
	l := common.NewLogger(common.ELogLevel.None())
	return l
}

type pipelineRecorder struct {
	mu         sync.Mutex
	chunkBatch [][]*chunk.Chunk
	wholeHash  common.Digest
	drained    bool
	errs       []error
}

func recordPipeline(p Pipeline) *pipelineRecorder {
	c := &pipelineRecorder{}
	p.On(common.EEventName.Chunks(), func(payload interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.chunkBatch = append(c.chunkBatch, payload.([]*chunk.Chunk))
	})
	p.On(common.EEventName.WholeHash(), func(payload interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.wholeHash = payload.(common.Digest)
	})
	p.On(common.EEventName.Drain(), func(payload interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.drained = true
	})
	p.On(common.EEventName.Error(), func(payload interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.errs = append(c.errs, payload.(*common.Error))
	})
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestPipeline_FreshUploadDigests(t *testing.T) {
	content := []byte("testcontent")
	chunks := chunk.Split(bytes.NewReader(content), int64(len(content)), 5)

	p := New(4, testLogger())
	rec := recordPipeline(p)
	p.Start(chunks)

	waitFor(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.drained
	})

	assert.EqualValues(t, "b5c87fdf8692fc6b75c1e51cea6e2442", rec.wholeHash)
	for _, c := range chunks {
		_, ok := c.Hash()
		assert.True(t, ok)
	}
	p.Dispose()
}

func TestPipeline_DigestDeterminism(t *testing.T) {
	content := bytes.Repeat([]byte("abcdefgh"), 1000)

	var hashes []common.Digest
	for i := 0; i < 3; i++ {
		chunks := chunk.Split(bytes.NewReader(content), int64(len(content)), 777)
		p := New(5, testLogger())
		rec := recordPipeline(p)
		p.Start(chunks)
		waitFor(t, func() bool {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			return rec.drained
		})
		hashes = append(hashes, rec.wholeHash)
		p.Dispose()
	}

	assert.Equal(t, hashes[0], hashes[1])
	assert.Equal(t, hashes[1], hashes[2])
}

func TestPipeline_EmptyFile(t *testing.T) {
	chunks := chunk.Split(bytes.NewReader(nil), 0, 5)
	require.Len(t, chunks, 0)

	p := New(4, testLogger())
	rec := recordPipeline(p)
	p.Start(chunks)

	waitFor(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.drained
	})
	assert.NotEmpty(t, rec.wholeHash) // MD5 of empty input is still a well-defined digest
	p.Dispose()
}

func TestPipeline_PauseBuffersChunksEvents(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 4*5)
	chunks := chunk.Split(bytes.NewReader(content), int64(len(content)), 5)

	p := New(2, testLogger())
	rec := recordPipeline(p)

	p.Pause()
	p.Start(chunks)

	// give hashing time to complete while paused
	time.Sleep(100 * time.Millisecond)
	rec.mu.Lock()
	gotWhileRunning := len(rec.chunkBatch)
	rec.mu.Unlock()
	assert.Equal(t, 0, gotWhileRunning)

	p.Resume()
	waitFor(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.chunkBatch) == 4
	})
	p.Dispose()
}

func TestPipeline_PauseDefersDrainUntilResume(t *testing.T) {
	content := bytes.Repeat([]byte("z"), 4*5)
	chunks := chunk.Split(bytes.NewReader(content), int64(len(content)), 5)

	p := New(2, testLogger())
	rec := recordPipeline(p)

	p.Pause()
	p.Start(chunks)

	// hashing finishes well within this window even though paused, per
	// §4.2: only the Chunks batches are held back, not the fold itself.
	time.Sleep(100 * time.Millisecond)
	rec.mu.Lock()
	drainedWhilePaused := rec.drained
	batchesWhilePaused := len(rec.chunkBatch)
	rec.mu.Unlock()
	assert.False(t, drainedWhilePaused, "Drain must not fire before buffered Chunks batches are admitted")
	assert.Equal(t, 0, batchesWhilePaused)

	p.Resume()
	waitFor(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.drained
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 4, len(rec.chunkBatch), "every buffered batch must be admitted before Drain fires")
	p.Dispose()
}

type flakyReaderAt struct {
	base       io.ReaderAt
	failOffset int64
}

func (f *flakyReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off == f.failOffset {
		return 0, errors.New("simulated read failure")
	}
	return f.base.ReadAt(p, off)
}

func TestPipeline_WorkerFailurePropagatesAsHashError(t *testing.T) {
	content := bytes.Repeat([]byte("y"), 3*5)
	source := &flakyReaderAt{base: bytes.NewReader(content), failOffset: 5}
	chunks := chunk.Split(source, int64(len(content)), 5)

	p := New(1, testLogger()) // single worker: deterministic, chunk 1 fails before chunk 2 starts
	rec := recordPipeline(p)
	p.Start(chunks)

	waitFor(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.errs) > 0
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.False(t, rec.drained, "no drain may be emitted after a hash failure")
	assert.Empty(t, rec.wholeHash, "no partial wholeHash may be emitted after a hash failure")
	require.Len(t, rec.errs, 1)
	assert.Equal(t, common.KindHash, rec.errs[0].(*common.Error).Kind)
	p.Dispose()
}
