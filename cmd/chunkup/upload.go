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
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wastore/chunkup/common"
	"github.com/wastore/chunkup/controller"
	"github.com/wastore/chunkup/transport/httptransport"
)

var uploadCmd = &cobra.Command{
	Use:     "upload [file]",
	Short:   "chunk, hash, dedup-check and upload a single local file",
	Args:    cobra.ExactArgs(1),
	Example: "chunkup upload --base-url http://localhost:8080 ./video.mp4",
	RunE:    runUpload,
}

func resolveBaseURL() string {
	if baseURL != "" {
		return baseURL
	}
	return common.BaseURL()
}

func guessContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	url := resolveBaseURL()
	if url == "" {
		return fmt.Errorf("no server URL given: pass --base-url or set %s", common.EnvBaseURL)
	}

	level, err := parseLogLevel(logLevelRaw)
	if err != nil {
		return err
	}
	logger := common.NewLogger(level)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	opts := controller.Options{
		ChunkSize:   chunkSizeMB * 1024 * 1024,
		Concurrency: concurrency,
		WorkerCount: workerCount,
	}

	strategy := httptransport.New(url, nil)
	fileName := filepath.Base(path)
	c := controller.New(strategy, f, fileName, guessContentType(fileName), info.Size(), opts, logger)

	done := make(chan struct{})
	var runErr error
	var locator string

	c.On(common.EEventName.Progress(), func(payload interface{}) {
		p := payload.(controller.ProgressPayload)
		pct := 100.0
		if p.FileSize > 0 {
			pct = float64(p.UploadedBytes) / float64(p.FileSize) * 100
		}
		fmt.Printf("\r%s: %.1f%% (%s/%s)", fileName, pct, humanize.Bytes(uint64(p.UploadedBytes)), humanize.Bytes(uint64(p.FileSize)))
	})

	var once sync.Once
	c.On(common.EEventName.End(), func(payload interface{}) {
		once.Do(func() {
			locator, _ = payload.(string)
			close(done)
		})
	})
	c.On(common.EEventName.Error(), func(payload interface{}) {
		once.Do(func() {
			runErr, _ = payload.(error)
			close(done)
		})
	})

	c.Start(context.Background())
	<-done
	fmt.Println()

	if runErr != nil {
		return fmt.Errorf("upload failed: %w", runErr)
	}

	if locator == "" {
		session := c.Session()
		locator = httptransport.DownloadURL(fileName, session.FileHash)
	}
	fmt.Printf("uploaded: %s\n", locator)
	return nil
}

// parseLogLevel maps the --log-level flag's human spelling onto a LogLevel.
func parseLogLevel(raw string) (common.LogLevel, error) {
	switch raw {
	case "NONE":
		return common.ELogLevel.None(), nil
	case "ERROR":
		return common.ELogLevel.Error(), nil
	case "WARNING":
		return common.ELogLevel.Warning(), nil
	case "INFO":
		return common.ELogLevel.Info(), nil
	case "DEBUG":
		return common.ELogLevel.Debug(), nil
	default:
		return 0, fmt.Errorf("unknown --log-level %q: want NONE, ERROR, WARNING, INFO, or DEBUG", raw)
	}
}
