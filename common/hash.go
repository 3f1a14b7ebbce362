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

package common

import (
	"encoding/hex"
	"io"

	md5simd "github.com/minio/md5-simd"
)

// Digest is the hex-encoded output of the chosen content-hash function over
// a byte range. Any fixed hash function satisfying this package's contract
// may back it; we use the SIMD-accelerated MD5 implementation already
// pulled in by this module's dependency tree.
type Digest string

// HashServer dispenses per-worker Hasher instances that share the
// underlying SIMD lanes. One HashServer is created per Hash Pipeline and
// closed when the pipeline is disposed.
type HashServer struct {
	srv md5simd.Server
}

func NewHashServer() *HashServer {
	return &HashServer{srv: md5simd.NewServer()}
}

func (s *HashServer) Close() {
	s.srv.Close()
}

// DigestOf computes the digest of a single chunk's contents. It is safe
// for concurrent use by multiple workers: each call takes its own Hasher
// from the server and closes it before returning.
func (s *HashServer) DigestOf(r io.Reader) (Digest, error) {
	h := s.srv.NewHash()
	defer h.Close()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// Accumulator folds a sequence of digests, added in a caller-chosen order,
// into one composite digest. It is the "streaming accumulator" from the
// hash primitive contract: Append is called once per chunk digest, in
// strictly increasing chunk index order, and End is called exactly once
// after the last Append.
type Accumulator interface {
	Append(d Digest) error
	End() Digest
}

type md5Accumulator struct {
	h md5simd.Hasher
}

// NewAccumulator creates the whole-file digest accumulator. It owns a
// single Hasher for the lifetime of one Hash Pipeline run and must not be
// shared across pipelines.
func (s *HashServer) NewAccumulator() Accumulator {
	return &md5Accumulator{h: s.srv.NewHash()}
}

func (a *md5Accumulator) Append(d Digest) error {
	raw, err := hex.DecodeString(string(d))
	if err != nil {
		return err
	}
	_, err = a.h.Write(raw)
	return err
}

func (a *md5Accumulator) End() Digest {
	defer a.h.Close()
	return Digest(hex.EncodeToString(a.h.Sum(nil)))
}
