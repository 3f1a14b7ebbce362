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

package controller

import "github.com/wastore/chunkup/common"

// Session is the token and bookkeeping the Controller accumulates for one
// upload, from session creation through merge.
type Session struct {
	Token         string
	FileName      string
	FileType      string
	FileSize      int64
	ChunkCount    int
	FileHash      common.Digest
	FileHashSet   bool
	UploadedBytes int64
	ServerHasFile bool
}

// Options configures one Controller run. Zero/negative values fall back to
// the package-wide defaults in the common package's tunables.
type Options struct {
	ChunkSize   int64
	Concurrency int64
	WorkerCount int
}

// ProgressPayload is the payload of a Progress event.
type ProgressPayload struct {
	UploadedBytes int64
	FileSize      int64
}
