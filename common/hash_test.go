package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashServer_DigestOfIsStableAndContentSensitive(t *testing.T) {
	srv := NewHashServer()
	defer srv.Close()

	d1, err := srv.DigestOf(strings.NewReader("hello"))
	require.NoError(t, err)
	d2, err := srv.DigestOf(strings.NewReader("hello"))
	require.NoError(t, err)
	d3, err := srv.DigestOf(strings.NewReader("world"))
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.NotEmpty(t, d1)
}

func TestAccumulator_OrderSensitive(t *testing.T) {
	srv := NewHashServer()
	defer srv.Close()

	dA, _ := srv.DigestOf(strings.NewReader("a"))
	dB, _ := srv.DigestOf(strings.NewReader("b"))

	acc1 := srv.NewAccumulator()
	require.NoError(t, acc1.Append(dA))
	require.NoError(t, acc1.Append(dB))
	whole1 := acc1.End()

	acc2 := srv.NewAccumulator()
	require.NoError(t, acc2.Append(dB))
	require.NoError(t, acc2.Append(dA))
	whole2 := acc2.End()

	assert.NotEqual(t, whole1, whole2, "accumulating in a different order must change the whole-file digest")
}
