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

// Package hashpipeline turns a chunk sequence into a stream of hashed
// chunks plus one ordered whole-file digest, using a worker pool for the
// per-chunk hashing and a single serializing fold stage for the whole-file
// digest. See SPEC_FULL.md §4.2.
package hashpipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wastore/chunkup/chunk"
	"github.com/wastore/chunkup/common"
)

// Pipeline is the capability interface named in spec.md's REDESIGN FLAGS:
// callers depend on this interface, not on the concrete worker-pool
// implementation below.
type Pipeline interface {
	Start(chunks []*chunk.Chunk)
	Pause()
	Resume()
	Dispose()
	Clear()
	On(name common.EventName, h common.Handler)
}

type workerPoolPipeline struct {
	bus         *common.Bus
	hashServer  *common.HashServer
	workerCount int
	logger      *common.Logger

	mu              sync.Mutex
	paused          bool
	drainPending    bool
	bufferedBatches [][]*chunk.Chunk
	pending         map[int]*chunk.Chunk
	nextToFold      int
	totalChunks     int
	hashedCount     int
	acc             common.Accumulator
	chunks          []*chunk.Chunk

	results chan *chunk.Chunk
	cancel  context.CancelFunc
	closed  bool
}

// New creates a Hash Pipeline with its own worker pool and hash server. The
// pipeline owns both for its entire lifetime and releases them on Dispose.
func New(workerCount int, logger *common.Logger) Pipeline {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &workerPoolPipeline{
		bus:         common.NewBus(),
		hashServer:  common.NewHashServer(),
		workerCount: workerCount,
		logger:      logger,
	}
}

func (p *workerPoolPipeline) On(name common.EventName, h common.Handler) {
	p.bus.On(name, h)
}

func (p *workerPoolPipeline) Start(chunks []*chunk.Chunk) {
	p.mu.Lock()
	p.chunks = chunks
	p.totalChunks = len(chunks)
	p.pending = make(map[int]*chunk.Chunk, len(chunks))
	p.acc = p.hashServer.NewAccumulator()
	p.mu.Unlock()

	if len(chunks) == 0 {
		// Empty file: fold nothing, emit the empty digest, drain immediately
		// (or once resumed, if paused before Start even ran).
		go func() {
			wh := p.acc.End()
			p.bus.Publish(common.EEventName.WholeHash(), wh)
			p.emitOrDeferDrain()
		}()
		return
	}

	p.results = make(chan *chunk.Chunk, p.workerCount)
	stopFold := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	group, gctx := errgroup.WithContext(ctx)
	for _, r := range partition(len(chunks), p.workerCount) {
		r := r
		group.Go(func() error {
			for i := r.lo; i < r.hi; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				d, err := p.hashServer.DigestOf(chunks[i].Blob())
				if err != nil {
					return err
				}
				if err := chunks[i].SetHash(d); err != nil {
					return err
				}

				select {
				case p.results <- chunks[i]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go p.foldLoop(stopFold)

	go func() {
		if err := group.Wait(); err != nil {
			close(stopFold)
			p.logger.Error("hash pipeline worker failed: %v", err)
			p.bus.Publish(common.EEventName.Error(), common.HashError(err))
		}
	}()
}

// foldLoop is the serializing stage: it is the only goroutine that touches
// the pending map and the whole-file accumulator, so folding is always
// strictly ordered by chunk index regardless of which worker finishes
// which chunk first.
func (p *workerPoolPipeline) foldLoop(stopFold chan struct{}) {
	for {
		select {
		case c, ok := <-p.results:
			if !ok {
				return
			}
			done := p.absorb(c)
			if done {
				wh := p.acc.End()
				p.bus.Publish(common.EEventName.WholeHash(), wh)
				p.emitOrDeferDrain()
				return
			}
		case <-stopFold:
			return
		}
	}
}

// absorb folds one freshly-hashed chunk into the whole-file digest (never
// suspended by pause) and queues/emits it as a "chunks" batch (suspended by
// pause). It reports whether every chunk has now been hashed.
func (p *workerPoolPipeline) absorb(c *chunk.Chunk) bool {
	p.mu.Lock()
	p.hashedCount++
	p.pending[c.Index] = c
	for {
		next, ok := p.pending[p.nextToFold]
		if !ok {
			break
		}
		d, _ := next.Hash()
		_ = p.acc.Append(d)
		delete(p.pending, p.nextToFold)
		p.nextToFold++
	}
	done := p.hashedCount == p.totalChunks
	paused := p.paused
	if paused {
		p.bufferedBatches = append(p.bufferedBatches, []*chunk.Chunk{c})
	}
	p.mu.Unlock()

	if !paused {
		p.bus.Publish(common.EEventName.Chunks(), []*chunk.Chunk{c})
	}
	return done
}

// emitOrDeferDrain publishes Drain immediately if the pipeline isn't
// currently paused. While paused, every chunk batch since the last pause
// is sitting in bufferedBatches, not yet admitted to the Upload Queue, so
// declaring Drain now would tell the queue "no more chunks are coming"
// before it has even seen them. Resume flushes the buffered batches first
// and only then, if drainPending, publishes Drain.
func (p *workerPoolPipeline) emitOrDeferDrain() {
	p.mu.Lock()
	paused := p.paused
	if paused {
		p.drainPending = true
	}
	p.mu.Unlock()
	if !paused {
		p.bus.Publish(common.EEventName.Drain(), nil)
	}
}

func (p *workerPoolPipeline) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *workerPoolPipeline) Resume() {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = false
	buffered := p.bufferedBatches
	p.bufferedBatches = nil
	drain := p.drainPending
	p.drainPending = false
	p.mu.Unlock()

	for _, batch := range buffered {
		p.bus.Publish(common.EEventName.Chunks(), batch)
	}
	if drain {
		p.bus.Publish(common.EEventName.Drain(), nil)
	}
}

func (p *workerPoolPipeline) Dispose() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.hashServer.Close()
}

func (p *workerPoolPipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = nil
}

type indexRange struct{ lo, hi int }

// partition splits [0,n) into up to `workers` contiguous, near-equal-size
// ranges (the first n%workers ranges get one extra element).
func partition(n, workers int) []indexRange {
	if workers > n {
		workers = n
	}
	if workers <= 0 {
		workers = 1
	}
	base := n / workers
	rem := n % workers

	ranges := make([]indexRange, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		ranges = append(ranges, indexRange{lo: start, hi: start + size})
		start += size
	}
	return ranges
}
