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

package main

import (
	"github.com/spf13/cobra"
)

var baseURL string
var logLevelRaw string
var chunkSizeMB int64
var concurrency int64
var workerCount int

var rootCmd = &cobra.Command{
	Use:     "chunkup",
	Short:   "chunkup uploads a single local file to a chunk-upload server",
	Long:    "chunkup splits a local file into fixed-size chunks, hashes them, dedups and uploads the missing ones against a chunk-upload server, then requests the server merge them into the final object.",
	Version: "0.1.0",
}

func Execute() error {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "base URL of the chunk-upload server. Falls back to the CHUNKUP_BASE_URL environment variable.")
	rootCmd.PersistentFlags().StringVar(&logLevelRaw, "log-level", "WARNING", "log verbosity: NONE, ERROR, WARNING, INFO, or DEBUG.")
	rootCmd.PersistentFlags().Int64Var(&chunkSizeMB, "chunk-size-mb", 0, "chunk size in MiB. If zero or omitted, falls back to the configured default (5 MiB, or CHUNKUP_CHUNK_SIZE).")
	rootCmd.PersistentFlags().Int64Var(&concurrency, "concurrency", 0, "maximum number of chunks uploaded at once. If zero, falls back to the configured default (2, or CHUNKUP_CONCURRENCY).")
	rootCmd.PersistentFlags().IntVar(&workerCount, "workers", 0, "number of hashing worker goroutines. If zero, falls back to the configured default (CHUNKUP_WORKER_COUNT, or NumCPU).")

	rootCmd.AddCommand(uploadCmd)
	return rootCmd.Execute()
}
