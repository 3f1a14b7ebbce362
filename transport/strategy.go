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

// Package transport defines the server contract the Controller and Upload
// Queue drive, without committing to any one wire realization. See
// SPEC_FULL.md §4.5 and the REDESIGN FLAGS note favoring a plain record of
// functions over an interface with one implementer.
package transport

import (
	"context"

	"github.com/wastore/chunkup/chunk"
	"github.com/wastore/chunkup/common"
)

// SessionMeta is the request body for session creation.
type SessionMeta struct {
	FileName   string
	FileType   string
	FileSize   int64
	ChunkCount int
}

// ChunkRef names one chunk for the merge call: its index and digest, never
// its bytes.
type ChunkRef struct {
	Index int
	Hash  common.Digest
}

// RequestStrategy is a plain record of the five network operations the
// Controller and Upload Queue need. Any transport satisfying this record can
// drive them; httptransport bundles one such realization.
type RequestStrategy struct {
	// CreateSession opens a session for the given file and returns its
	// server-issued token. The Controller reports its error as KindSession.
	CreateSession func(ctx context.Context, meta SessionMeta) (token string, err error)

	// CheckChunk asks whether a chunk with this digest is already stored
	// for this session. The Upload Queue reports its error as KindNetwork.
	CheckChunk func(ctx context.Context, token string, digest common.Digest) (exists bool, err error)

	// CheckFile is CheckChunk's whole-file counterpart.
	CheckFile func(ctx context.Context, token string, digest common.Digest) (exists bool, err error)

	// UploadChunk sends the chunk's bytes and digest. The Upload Queue
	// reports its error as KindUpload.
	UploadChunk func(ctx context.Context, token string, c *chunk.Chunk) error

	// MergeFile instructs the server to concatenate chunks in index order
	// and returns an opaque locator. The Controller reports its error as
	// KindMerge.
	MergeFile func(ctx context.Context, token string, fileHash common.Digest, fileName string, chunks []ChunkRef) (locator string, err error)
}
