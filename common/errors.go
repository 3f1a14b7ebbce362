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
	"github.com/pkg/errors"
)

// Kind is the closed set of error kinds the Controller ever surfaces to a
// caller. Every terminal error event carries exactly one of these.
type Kind string

const (
	KindSession Kind = "SessionError"
	KindNetwork Kind = "NetworkError"
	KindUpload  Kind = "UploadError"
	KindMerge   Kind = "MergeError"
	KindHash    Kind = "HashError"
)

// Error wraps an underlying cause with the Kind the Controller should
// report it under. errors.Cause() always recovers the original error, and
// the stdlib errors.Is/errors.As see through to it; a single errors.Unwrap
// returns the stack-annotated wrapper around it.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Cause supports github.com/pkg/errors's Cause() protocol.
func (e *Error) Cause() error { return e.cause }

func newKindError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func SessionError(cause error) *Error { return newKindError(KindSession, errors.WithStack(cause)) }
func NetworkError(cause error) *Error { return newKindError(KindNetwork, errors.WithStack(cause)) }
func UploadError(cause error) *Error  { return newKindError(KindUpload, errors.WithStack(cause)) }
func MergeError(cause error) *Error   { return newKindError(KindMerge, errors.WithStack(cause)) }
func HashError(cause error) *Error    { return newKindError(KindHash, errors.WithStack(cause)) }
