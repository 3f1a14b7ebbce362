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
	"os"
	"runtime"
	"strconv"
)

// ConfiguredInt is an integer that may optionally be overridden by an
// environment variable, so an operator can tune a running deployment
// without recompiling.
type ConfiguredInt struct {
	Value           int
	IsUserSpecified bool
	EnvVarName      string
}

func tryConfiguredInt(envVar string) *ConfiguredInt {
	if override, ok := os.LookupEnv(envVar); ok && override != "" {
		val, err := strconv.Atoi(override)
		if err == nil {
			return &ConfiguredInt{Value: val, IsUserSpecified: true, EnvVarName: envVar}
		}
	}
	return nil
}

const (
	DefaultChunkSize   = 5 * 1024 * 1024
	DefaultConcurrency = 2

	EnvChunkSize   = "CHUNKUP_CHUNK_SIZE"
	EnvConcurrency = "CHUNKUP_CONCURRENCY"
	EnvWorkerCount = "CHUNKUP_WORKER_COUNT"
	EnvBaseURL     = "CHUNKUP_BASE_URL"
)

// ChunkSize returns the configured chunk size in bytes: CHUNKUP_CHUNK_SIZE
// if set, else the 5 MiB default from spec.
func ChunkSize() int {
	if c := tryConfiguredInt(EnvChunkSize); c != nil {
		return c.Value
	}
	return DefaultChunkSize
}

// Concurrency returns the configured upload concurrency cap:
// CHUNKUP_CONCURRENCY if set, else 2.
func Concurrency() int {
	if c := tryConfiguredInt(EnvConcurrency); c != nil {
		return c.Value
	}
	return DefaultConcurrency
}

// WorkerCount returns the configured hash worker pool size:
// CHUNKUP_WORKER_COUNT if set, else the hardware parallelism hint (or 4 if
// that hint is unavailable/zero).
func WorkerCount() int {
	if c := tryConfiguredInt(EnvWorkerCount); c != nil {
		return c.Value
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

// BaseURL returns the CHUNKUP_BASE_URL override, or "" if unset - used only
// by the bundled HTTP transport and the demo CLI.
func BaseURL() string {
	return os.Getenv(EnvBaseURL)
}
