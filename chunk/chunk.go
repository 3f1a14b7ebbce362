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

// Package chunk describes the fixed-size byte ranges a source file is cut
// into, and the lazy, zero-copy views over those ranges.
package chunk

import (
	"errors"
	"io"
	"sync"

	"github.com/wastore/chunkup/common"
)

var ErrHashAlreadySet = errors.New("chunk hash is immutable once set")

// Chunk is one contiguous, non-overlapping byte range of the source file.
// Its byte range is a zero-copy view (an io.SectionReader over the shared
// source); its Hash is empty until the Hash Pipeline fills it in, and is
// immutable thereafter.
type Chunk struct {
	Index int
	Start int64
	End   int64

	source io.ReaderAt

	mu      sync.Mutex
	hash    common.Digest
	hashSet bool
}

// Size returns End-Start, the number of bytes in this chunk.
func (c *Chunk) Size() int64 {
	return c.End - c.Start
}

// Blob returns a fresh, independently-seekable reader over this chunk's
// byte range. Safe to call more than once and from multiple goroutines
// (each call gets its own io.SectionReader; the underlying source is never
// copied).
func (c *Chunk) Blob() io.Reader {
	return io.NewSectionReader(c.source, c.Start, c.Size())
}

// Hash returns the chunk's digest and whether it has been set yet.
func (c *Chunk) Hash() (common.Digest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hash, c.hashSet
}

// SetHash fills in the chunk's digest. It may be called exactly once; a
// second call returns ErrHashAlreadySet, since the hash, once computed, is
// immutable for the lifetime of the chunk.
func (c *Chunk) SetHash(d common.Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hashSet {
		return ErrHashAlreadySet
	}
	c.hash = d
	c.hashSet = true
	return nil
}

// Split partitions a source of the given size into chunkSize-byte chunks,
// the last of which may be shorter. A zero-byte source yields an empty,
// non-nil slice: the session still runs through to merge with zero chunks
// (see SPEC_FULL.md's resolution of the zero-byte-file open question).
func Split(source io.ReaderAt, fileSize int64, chunkSize int64) []*Chunk {
	if chunkSize <= 0 {
		chunkSize = common.DefaultChunkSize
	}
	count := 0
	if fileSize > 0 {
		count = int((fileSize + chunkSize - 1) / chunkSize)
	}

	chunks := make([]*Chunk, count)
	for k := 0; k < count; k++ {
		start := int64(k) * chunkSize
		end := start + chunkSize
		if end > fileSize {
			end = fileSize
		}
		chunks[k] = &Chunk{Index: k, Start: start, End: end, source: source}
	}
	return chunks
}
