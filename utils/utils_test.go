package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []int{2, 4, 6}, Map([]int{1, 2, 3}, func(i int) int { return i * 2 }))
	assert.Equal(t, []int{}, Map([]string{}, func(s string) int { return len(s) }))
}

type failingCloser struct {
	closed bool
}

func (c *failingCloser) Close() error {
	c.closed = true
	return errors.New("close failed")
}

func TestCloserSwallowsError(t *testing.T) {
	c := &failingCloser{}
	Closer(c)()
	assert.True(t, c.closed)
}
