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

// Package httptransport is the bundled realization of transport.RequestStrategy:
// a plain net/http + mime/multipart client against the four endpoints
// (/session, /hash-check, /chunk, /merge) behind the five operations named
// in SPEC_FULL.md §6. Any server implementing that wire contract works.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/wastore/chunkup/chunk"
	"github.com/wastore/chunkup/common"
	"github.com/wastore/chunkup/transport"
)

type sessionCreateRequest struct {
	FileName   string `json:"fileName"`
	FileType   string `json:"fileType"`
	FileSize   int64  `json:"fileSize"`
	ChunkCount int    `json:"chunkCount"`
}

type sessionCreateResponse struct {
	Code  int    `json:"code"`
	Token string `json:"token"`
}

type hashCheckRequest struct {
	Token   string `json:"token"`
	Hash    string `json:"hash"`
	IsChunk bool   `json:"isChunk"`
}

type hashCheckResponse struct {
	Code   int  `json:"code"`
	Exists bool `json:"exists"`
}

type uploadChunkResponse struct {
	Code    int  `json:"code"`
	Success bool `json:"success"`
}

type mergeChunkRef struct {
	Index int    `json:"index"`
	Hash  string `json:"hash"`
}

type mergeRequest struct {
	Token        string          `json:"token"`
	FileHash     string          `json:"fileHash"`
	FileName     string          `json:"fileName"`
	ChunksLength int             `json:"chunksLength"`
	Chunks       []mergeChunkRef `json:"chunks"`
}

type mergeResponse struct {
	Code int    `json:"code"`
	URL  string `json:"url"`
}

// New builds the bundled transport.RequestStrategy realization against
// baseURL, using client (http.DefaultClient if nil).
func New(baseURL string, client *http.Client) transport.RequestStrategy {
	if client == nil {
		client = http.DefaultClient
	}
	t := &httpTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
	return transport.RequestStrategy{
		CreateSession: t.createSession,
		CheckChunk:    t.checkChunk,
		CheckFile:     t.checkFile,
		UploadChunk:   t.uploadChunk,
		MergeFile:     t.mergeFile,
	}
}

type httpTransport struct {
	baseURL string
	client  *http.Client
}

func (t *httpTransport) postJSON(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", common.UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected HTTP status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *httpTransport) createSession(ctx context.Context, meta transport.SessionMeta) (string, error) {
	var resp sessionCreateResponse
	if err := t.postJSON(ctx, "/session", sessionCreateRequest{
		FileName:   meta.FileName,
		FileType:   meta.FileType,
		FileSize:   meta.FileSize,
		ChunkCount: meta.ChunkCount,
	}, &resp); err != nil {
		return "", err
	}
	if resp.Code != http.StatusOK || resp.Token == "" {
		return "", fmt.Errorf("session create: server returned code %d", resp.Code)
	}
	return resp.Token, nil
}

func (t *httpTransport) checkHash(ctx context.Context, token string, digest common.Digest, isChunk bool) (bool, error) {
	var resp hashCheckResponse
	if err := t.postJSON(ctx, "/hash-check", hashCheckRequest{
		Token:   token,
		Hash:    string(digest),
		IsChunk: isChunk,
	}, &resp); err != nil {
		return false, err
	}
	if resp.Code != http.StatusOK {
		return false, fmt.Errorf("hash check: server returned code %d", resp.Code)
	}
	return resp.Exists, nil
}

func (t *httpTransport) checkChunk(ctx context.Context, token string, digest common.Digest) (bool, error) {
	return t.checkHash(ctx, token, digest, true)
}

func (t *httpTransport) checkFile(ctx context.Context, token string, digest common.Digest) (bool, error) {
	return t.checkHash(ctx, token, digest, false)
}

func (t *httpTransport) uploadChunk(ctx context.Context, token string, c *chunk.Chunk) error {
	digest, _ := c.Hash()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("token", token); err != nil {
		return err
	}
	if err := w.WriteField("hash", string(digest)); err != nil {
		return err
	}
	part, err := w.CreateFormFile("chunk", fmt.Sprintf("chunk-%d", c.Index))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, c.Blob()); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chunk", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", common.UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chunk upload: unexpected HTTP status %s", resp.Status)
	}
	var out uploadChunkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if out.Code != http.StatusOK || !out.Success {
		return fmt.Errorf("chunk upload: server returned code %d", out.Code)
	}
	return nil
}

func (t *httpTransport) mergeFile(ctx context.Context, token string, fileHash common.Digest, fileName string, chunks []transport.ChunkRef) (string, error) {
	refs := make([]mergeChunkRef, len(chunks))
	for i, c := range chunks {
		refs[i] = mergeChunkRef{Index: c.Index, Hash: string(c.Hash)}
	}

	var resp mergeResponse
	if err := t.postJSON(ctx, "/merge", mergeRequest{
		Token:        token,
		FileHash:     string(fileHash),
		FileName:     fileName,
		ChunksLength: len(refs),
		Chunks:       refs,
	}, &resp); err != nil {
		return "", err
	}
	if resp.Code != http.StatusOK || resp.URL == "" {
		return "", fmt.Errorf("merge: server returned code %d", resp.Code)
	}
	return resp.URL, nil
}

// DownloadURL derives the locator spec.md §6 describes: the URL-encoded
// file name, the file's whole-file digest, and the last dot-suffix of the
// file name (or the whole name, if it has no dot).
func DownloadURL(fileName string, fileHash common.Digest) string {
	suffix := fileName
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		suffix = fileName[i+1:]
	}
	return url.QueryEscape(fileName) + "_" + string(fileHash) + "." + suffix
}
