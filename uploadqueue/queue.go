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

// Package uploadqueue is the bounded-concurrency task queue that turns
// hashed chunks into dedup-checked, uploaded (or deduped) bytes. See
// SPEC_FULL.md §4.3.
package uploadqueue

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/wastore/chunkup/chunk"
	"github.com/wastore/chunkup/common"
	"github.com/wastore/chunkup/transport"
)

// Queue is the bounded-concurrency task queue described in SPEC_FULL.md
// §4.3: at most C tasks in flight, FIFO admission, abort on first failure.
type Queue struct {
	strategy transport.RequestStrategy
	token    string
	sem      *semaphore.Weighted
	bus      *common.Bus
	logger   *common.Logger
	progress func(size int64)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	cond     *sync.Cond
	fifo     []*Task
	tasks    []*Task
	stats    Stats
	paused   bool
	aborted  bool
	drained  bool
	stopped  bool
}

// New creates an upload queue bound to the given session token, driving
// network operations through strategy, at most concurrency tasks at a time.
// progress is invoked with each completed (or deduped) chunk's byte count.
func New(strategy transport.RequestStrategy, token string, concurrency int64, progress func(size int64), logger *common.Logger) *Queue {
	if concurrency <= 0 {
		concurrency = int64(common.Concurrency())
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		strategy: strategy,
		token:    token,
		sem:      semaphore.NewWeighted(concurrency),
		bus:      common.NewBus(),
		logger:   logger,
		progress: progress,
		ctx:      ctx,
		cancel:   cancel,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.dispatchLoop()
	return q
}

func (q *Queue) On(name common.EventName, h common.Handler) {
	q.bus.On(name, h)
}

// AddChunkTask enqueues a hashed chunk for dedup-check-then-upload. A no-op
// once the queue has aborted or completed.
func (q *Queue) AddChunkTask(c *chunk.Chunk) {
	q.mu.Lock()
	if q.aborted || q.drained {
		q.mu.Unlock()
		return
	}
	t := newTask(c)
	q.tasks = append(q.tasks, t)
	q.fifo = append(q.fifo, t)
	q.stats.TotalChunks++
	q.stats.Pending++
	q.cond.Signal()
	q.mu.Unlock()
}

// MarkAllChunksHashed declares the input stream closed. Required before the
// queue can ever reach the drained state, since drain detection needs to
// know no more tasks are coming.
func (q *Queue) MarkAllChunksHashed() {
	q.mu.Lock()
	q.stats.AllChunksHashed = true
	q.mu.Unlock()
	q.cond.Signal()
	q.maybeDrain()
}

// MarkAsCompleted externally asserts the logical job is done (a whole-file
// dedup hit): forces every still-pending task to completed and drains
// immediately, regardless of how much hashing or uploading is in flight.
func (q *Queue) MarkAsCompleted() {
	q.mu.Lock()
	if q.aborted || q.drained {
		q.mu.Unlock()
		return
	}
	forced := q.fifo
	q.fifo = nil
	for _, t := range forced {
		t.Status = ETaskStatus.Completed()
	}
	q.stats.Pending -= len(forced)
	q.stats.Completed += len(forced)
	q.stats.AllChunksHashed = true
	q.drained = true
	q.mu.Unlock()

	for _, t := range forced {
		q.progress(t.Chunk.Size())
	}
	q.cond.Broadcast()
	q.bus.Publish(common.EEventName.QueueDrained(), nil)
}

// GetStats returns a snapshot of the queue's statistics.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// GetFailedTasks returns the tasks currently in the failed state.
func (q *Queue) GetFailedTasks() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var failed []*Task
	for _, t := range q.tasks {
		if t.Status == ETaskStatus.Failed() {
			failed = append(failed, t)
		}
	}
	return failed
}

// Pause stops admitting new tasks; tasks already in flight complete
// normally.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume allows admission to continue.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.cond.Signal()
}

// Dispose stops the dispatcher and releases the queue's resources. Safe to
// call more than once.
func (q *Queue) Dispose() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	q.cancel()
	q.cond.Broadcast()
}

// dispatchLoop is the queue's single admission thread: it pops the next
// pending task in FIFO order, acquires a concurrency slot, and hands the
// task to its own goroutine for execution.
func (q *Queue) dispatchLoop() {
	for {
		q.mu.Lock()
		for !q.stopped && (q.paused || q.aborted || q.drained || len(q.fifo) == 0) {
			q.cond.Wait()
		}
		if q.stopped {
			q.mu.Unlock()
			return
		}
		t := q.fifo[0]
		q.fifo = q.fifo[1:]
		q.mu.Unlock()

		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			return
		}
		go q.execute(t)
	}
}

// execute runs one task's dedup-check-then-upload and reports the outcome.
func (q *Queue) execute(t *Task) {
	defer q.sem.Release(1)

	q.mu.Lock()
	t.Status = ETaskStatus.InFlight()
	q.stats.Pending--
	q.stats.InFlight++
	q.mu.Unlock()

	digest, _ := t.Chunk.Hash()
	exists, err := q.strategy.CheckChunk(q.ctx, q.token, digest)
	if err != nil {
		q.fail(t, common.NetworkError(err))
		return
	}
	if !exists {
		if err := q.strategy.UploadChunk(q.ctx, q.token, t.Chunk); err != nil {
			q.fail(t, common.UploadError(err))
			return
		}
	}
	q.complete(t)
}

func (q *Queue) complete(t *Task) {
	q.mu.Lock()
	t.Status = ETaskStatus.Completed()
	q.stats.InFlight--
	q.stats.Completed++
	q.mu.Unlock()

	q.progress(t.Chunk.Size())
	q.maybeDrain()
}

func (q *Queue) fail(t *Task, err error) {
	q.mu.Lock()
	t.Status = ETaskStatus.Failed()
	t.Err = err
	q.stats.InFlight--
	q.stats.Failed++
	// Once drained (e.g. a whole-file dedup short-circuit already forced
	// completion), drained is terminal: a late in-flight failure can no
	// longer move the queue to aborted.
	alreadyTerminal := q.aborted || q.drained
	q.aborted = !q.drained
	q.mu.Unlock()

	q.cond.Broadcast()
	if alreadyTerminal {
		return
	}
	q.logger.Warning("chunk upload task %s failed: %v", t.TaskID, err)
	q.bus.Publish(common.EEventName.QueueAborted(), err)
}

// maybeDrain emits QueueDrained exactly once, the moment every chunk has
// been hashed, nothing is pending or in flight, and nothing has failed.
func (q *Queue) maybeDrain() {
	q.mu.Lock()
	ready := !q.drained && !q.aborted && q.stats.AllChunksHashed &&
		q.stats.Pending == 0 && q.stats.InFlight == 0 && q.stats.Failed == 0
	if ready {
		q.drained = true
	}
	q.mu.Unlock()

	if ready {
		q.bus.Publish(common.EEventName.QueueDrained(), nil)
	}
}
