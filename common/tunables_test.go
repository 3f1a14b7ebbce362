package common

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestChunkSize_DefaultsWhenUnset(t *testing.T) {
	os.Unsetenv(EnvChunkSize)
	assert.Equal(t, DefaultChunkSize, ChunkSize())
}

func TestChunkSize_EnvOverride(t *testing.T) {
	withEnv(t, EnvChunkSize, "1048576")
	assert.Equal(t, 1048576, ChunkSize())
}

func TestConcurrency_EnvOverride(t *testing.T) {
	withEnv(t, EnvConcurrency, "7")
	assert.Equal(t, 7, Concurrency())
}

func TestConcurrency_IgnoresGarbageOverride(t *testing.T) {
	withEnv(t, EnvConcurrency, "not-a-number")
	assert.Equal(t, DefaultConcurrency, Concurrency())
}

func TestWorkerCount_EnvOverride(t *testing.T) {
	withEnv(t, EnvWorkerCount, "3")
	assert.Equal(t, 3, WorkerCount())
}

func TestBaseURL_EnvOverride(t *testing.T) {
	withEnv(t, EnvBaseURL, "http://example.test")
	assert.Equal(t, "http://example.test", BaseURL())
}
