package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Empty(t *testing.T) {
	c := ForModel("unknown-model")
	assert.Equal(t, 0, c.Count(""))
}

func TestCounter_Fallback(t *testing.T) {
	c := &Counter{}
	assert.False(t, c.Exact())
	assert.Equal(t, 1, c.Count("hi"))
	assert.Equal(t, 3, c.Count("twelve chars"))
}

func TestCounter_MonotonicInLength(t *testing.T) {
	c := ForModel("gpt-4o-mini")
	short := c.Count("one sentence of text.")
	long := c.Count("one sentence of text. and then a good deal more text following it, which must cost more tokens.")
	assert.Greater(t, long, short)
}
