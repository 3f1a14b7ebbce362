package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindConstructors_WrapCauseAndKind(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		build func(error) *Error
		kind  Kind
	}{
		{SessionError, KindSession},
		{NetworkError, KindNetwork},
		{UploadError, KindUpload},
		{MergeError, KindMerge},
		{HashError, KindHash},
	}
	for _, c := range cases {
		err := c.build(cause)
		assert.Equal(t, c.kind, err.Kind)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "boom", err.Cause().Error())
		assert.Contains(t, err.Error(), string(c.kind))
		assert.Contains(t, err.Error(), "boom")
	}
}
