package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastore/chunkup/chunk"
	"github.com/wastore/chunkup/common"
	"github.com/wastore/chunkup/transport"
)

func newTestChunk(t *testing.T, content string, digest common.Digest) *chunk.Chunk {
	t.Helper()
	chunks := chunk.Split(bytes.NewReader([]byte(content)), int64(len(content)), int64(len(content)))
	require.Len(t, chunks, 1)
	require.NoError(t, chunks[0].SetHash(digest))
	return chunks[0]
}

func TestHTTPTransport_FullRoundTrip(t *testing.T) {
	var gotChunkBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		var req sessionCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a.txt", req.FileName)
		_ = json.NewEncoder(w).Encode(sessionCreateResponse{Code: 200, Token: "session-1"})
	})
	mux.HandleFunc("/hash-check", func(w http.ResponseWriter, r *http.Request) {
		var req hashCheckRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "session-1", req.Token)
		_ = json.NewEncoder(w).Encode(hashCheckResponse{Code: 200, Exists: req.Hash == "known"})
	})
	mux.HandleFunc("/chunk", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "session-1", r.FormValue("token"))
		assert.Equal(t, "abc123", r.FormValue("hash"))
		f, _, err := r.FormFile("chunk")
		require.NoError(t, err)
		defer f.Close()
		gotChunkBody, _ = io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(uploadChunkResponse{Code: 200, Success: true})
	})
	mux.HandleFunc("/merge", func(w http.ResponseWriter, r *http.Request) {
		var req mergeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Chunks, 1)
		assert.Equal(t, 0, req.Chunks[0].Index)
		_ = json.NewEncoder(w).Encode(mergeResponse{Code: 200, URL: "https://store.example/a.txt_filehash"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	strategy := New(srv.URL, srv.Client())
	ctx := context.Background()

	token, err := strategy.CreateSession(ctx, transport.SessionMeta{FileName: "a.txt", FileType: "text/plain", FileSize: 5, ChunkCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "session-1", token)

	exists, err := strategy.CheckChunk(ctx, token, common.Digest("unknown"))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = strategy.CheckFile(ctx, token, common.Digest("known"))
	require.NoError(t, err)
	assert.True(t, exists)

	c := newTestChunk(t, "hello", common.Digest("abc123"))
	require.NoError(t, strategy.UploadChunk(ctx, token, c))
	assert.Equal(t, "hello", string(gotChunkBody))

	locator, err := strategy.MergeFile(ctx, token, common.Digest("filehash"), "a.txt", []transport.ChunkRef{{Index: 0, Hash: common.Digest("abc123")}})
	require.NoError(t, err)
	assert.Equal(t, "https://store.example/a.txt_filehash", locator)
}

func TestHTTPTransport_NonOKLogicalCodeIsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sessionCreateResponse{Code: 500, Token: ""})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	strategy := New(srv.URL, srv.Client())
	_, err := strategy.CreateSession(context.Background(), transport.SessionMeta{FileName: "x"})
	assert.Error(t, err)
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "movie.mp4_abc123.mp4", DownloadURL("movie.mp4", common.Digest("abc123")))
	assert.Equal(t, "my+file.tar.gz_abc123.gz", DownloadURL("my file.tar.gz", common.Digest("abc123")))
	assert.Equal(t, "README_abc123.README", DownloadURL("README", common.Digest("abc123")))
}
