// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package controller is the top-level state machine: it sequences session
// creation, hashing, dedup, uploading, and merge, and is the only thing a
// caller of this module talks to directly. See SPEC_FULL.md §4.4.
package controller

import (
	"context"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/wastore/chunkup/chunk"
	"github.com/wastore/chunkup/common"
	"github.com/wastore/chunkup/hashpipeline"
	"github.com/wastore/chunkup/transport"
	"github.com/wastore/chunkup/uploadqueue"
)

// Controller drives one upload end to end. Its terminal events, End and
// Error, are each emitted at most once, from whichever goroutine gets there
// first, guarded by a single done flag.
type Controller struct {
	strategy transport.RequestStrategy
	source   io.ReaderAt
	fileName string
	fileType string
	fileSize int64
	opts     Options
	logger   *common.Logger
	bus      *common.Bus

	mu       sync.Mutex
	done     bool
	paused   bool
	session  *Session
	chunks   []*chunk.Chunk
	pipeline hashpipeline.Pipeline
	queue    *uploadqueue.Queue
}

// New builds a Controller for one file. source must support random-access
// reads over [0, fileSize); the Controller never copies the file into
// memory, it only ever hands out zero-copy chunk views.
func New(strategy transport.RequestStrategy, source io.ReaderAt, fileName, fileType string, fileSize int64, opts Options, logger *common.Logger) *Controller {
	return &Controller{
		strategy: strategy,
		source:   source,
		fileName: fileName,
		fileType: fileType,
		fileSize: fileSize,
		opts:     opts,
		logger:   logger,
		bus:      common.NewBus(),
	}
}

func (c *Controller) On(name common.EventName, h common.Handler) {
	c.bus.On(name, h)
}

// Session returns a snapshot of the session state accumulated so far. Safe
// to call from any goroutine, including from within an event handler; the
// zero value is returned if called before Start has created a session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}
	}
	return *c.session
}

// Start begins the upload. It returns immediately; progress, end, and error
// surface as events.
func (c *Controller) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Controller) run(ctx context.Context) {
	chunkSize := c.opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = int64(common.ChunkSize())
	}
	chunks := chunk.Split(c.source, c.fileSize, chunkSize)

	token, err := c.strategy.CreateSession(ctx, transport.SessionMeta{
		FileName:   c.fileName,
		FileType:   c.fileType,
		FileSize:   c.fileSize,
		ChunkCount: len(chunks),
	})
	if err != nil {
		c.fail(common.SessionError(err))
		return
	}

	workerCount := c.opts.WorkerCount
	if workerCount <= 0 {
		workerCount = common.WorkerCount()
	}

	c.mu.Lock()
	c.session = &Session{
		Token:      token,
		FileName:   c.fileName,
		FileType:   c.fileType,
		FileSize:   c.fileSize,
		ChunkCount: len(chunks),
	}
	c.chunks = chunks
	c.pipeline = hashpipeline.New(workerCount, c.logger)
	c.queue = uploadqueue.New(c.strategy, token, c.opts.Concurrency, c.onProgress, c.logger)
	pipeline, queue := c.pipeline, c.queue
	startPaused := c.paused
	c.mu.Unlock()

	if startPaused {
		pipeline.Pause()
		queue.Pause()
	}

	pipeline.On(common.EEventName.Chunks(), func(payload interface{}) {
		for _, ch := range payload.([]*chunk.Chunk) {
			queue.AddChunkTask(ch)
		}
	})
	pipeline.On(common.EEventName.WholeHash(), func(payload interface{}) {
		digest := payload.(common.Digest)
		c.mu.Lock()
		c.session.FileHash = digest
		c.session.FileHashSet = true
		c.mu.Unlock()
		go c.checkWholeFileDedup(ctx, digest)
	})
	pipeline.On(common.EEventName.Drain(), func(interface{}) {
		queue.MarkAllChunksHashed()
	})
	pipeline.On(common.EEventName.Error(), func(payload interface{}) {
		c.fail(payload.(error))
	})

	queue.On(common.EEventName.QueueDrained(), func(interface{}) {
		c.onQueueDrained(ctx)
	})
	queue.On(common.EEventName.QueueAborted(), func(payload interface{}) {
		c.fail(payload.(error))
	})

	pipeline.Start(chunks)
}

// checkWholeFileDedup is the early-exit short-circuit: if the server
// already has the whole file, the queue is forced to completed without
// ever waiting for per-chunk uploads to land.
func (c *Controller) checkWholeFileDedup(ctx context.Context, digest common.Digest) {
	c.mu.Lock()
	token := c.session.Token
	queue := c.queue
	c.mu.Unlock()

	exists, err := c.strategy.CheckFile(ctx, token, digest)
	if err != nil {
		c.fail(common.NetworkError(err))
		return
	}
	if !exists {
		return
	}

	c.mu.Lock()
	c.session.ServerHasFile = true
	c.mu.Unlock()
	queue.MarkAsCompleted()
}

// onQueueDrained fires once every chunk has reached a terminal completed
// state. A whole-file dedup hit skips merge entirely; otherwise every chunk
// was genuinely uploaded (or deduped individually) and merge assembles them.
func (c *Controller) onQueueDrained(ctx context.Context) {
	c.mu.Lock()
	dedup := c.session.ServerHasFile
	fileHash := c.session.FileHash
	c.mu.Unlock()

	if dedup {
		c.finishWithFinalProgress("")
		return
	}
	c.merge(ctx, fileHash)
}

func (c *Controller) merge(ctx context.Context, fileHash common.Digest) {
	c.mu.Lock()
	token := c.session.Token
	refs := make([]transport.ChunkRef, len(c.chunks))
	for i, ch := range c.chunks {
		d, _ := ch.Hash()
		refs[i] = transport.ChunkRef{Index: ch.Index, Hash: d}
	}
	c.mu.Unlock()

	locator, err := c.strategy.MergeFile(ctx, token, fileHash, c.fileName, refs)
	if err != nil {
		c.fail(common.MergeError(err))
		return
	}
	c.finish(locator)
}

// onProgress is the Upload Queue's completion callback: chunk.size bytes
// just landed, either uploaded or deduped.
func (c *Controller) onProgress(size int64) {
	c.mu.Lock()
	c.session.UploadedBytes += size
	payload := ProgressPayload{UploadedBytes: c.session.UploadedBytes, FileSize: c.session.FileSize}
	c.mu.Unlock()
	c.logger.Debug("chunk complete: %s (%s/%s total)", humanize.Bytes(uint64(size)),
		humanize.Bytes(uint64(payload.UploadedBytes)), humanize.Bytes(uint64(payload.FileSize)))
	c.bus.Publish(common.EEventName.Progress(), payload)
}

// finishWithFinalProgress is used by the whole-file dedup short-circuit,
// which must report uploadedBytes == fileSize even though chunks that were
// in flight when the queue was forced complete have not reported their bytes.
func (c *Controller) finishWithFinalProgress(locator string) {
	c.mu.Lock()
	c.session.UploadedBytes = c.session.FileSize
	payload := ProgressPayload{UploadedBytes: c.session.UploadedBytes, FileSize: c.session.FileSize}
	c.mu.Unlock()
	c.bus.Publish(common.EEventName.Progress(), payload)
	c.finish(locator)
}

// Pause forwards to both the Hash Pipeline (stop emitting new chunks
// batches) and the Upload Queue (stop admitting new tasks); in-flight
// requests complete normally either way.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	pipeline, queue := c.pipeline, c.queue
	c.mu.Unlock()
	if pipeline != nil {
		pipeline.Pause()
	}
	if queue != nil {
		queue.Pause()
	}
}

// Resume is Pause's symmetric counterpart. Calling it before Start has
// taken effect simply clears the pending pause.
func (c *Controller) Resume() {
	c.mu.Lock()
	c.paused = false
	pipeline, queue := c.pipeline, c.queue
	c.mu.Unlock()
	if pipeline != nil {
		pipeline.Resume()
	}
	if queue != nil {
		queue.Resume()
	}
}

func (c *Controller) finish(locator string) {
	if !c.markDone() {
		return
	}
	c.cleanup()
	c.bus.Publish(common.EEventName.End(), locator)
}

func (c *Controller) fail(err error) {
	if !c.markDone() {
		return
	}
	c.cleanup()
	c.logger.Error("upload failed: %v", err)
	c.bus.Publish(common.EEventName.Error(), err)
}

// markDone flips the once-only completion guard and reports whether this
// call was the one that flipped it.
func (c *Controller) markDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.done = true
	return true
}

func (c *Controller) cleanup() {
	c.mu.Lock()
	pipeline, queue := c.pipeline, c.queue
	c.chunks = nil
	c.mu.Unlock()

	if pipeline != nil {
		pipeline.Dispose()
		pipeline.Clear()
	}
	if queue != nil {
		queue.Dispose()
	}
}
