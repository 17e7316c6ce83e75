package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelize(t *testing.T) {
	p := NewPool(4)
	defer p.TearDown()

	results := p.Parallelize(100, func(i int) interface{} {
		return i * i
	})
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestParallelizeNilPool(t *testing.T) {
	var p *Pool
	results := p.Parallelize(10, func(i int) interface{} {
		return i + 1
	})
	for i, r := range results {
		assert.Equal(t, i+1, r)
	}
}

func TestParallelizeZeroCount(t *testing.T) {
	p := NewPool(2)
	defer p.TearDown()
	assert.Empty(t, p.Parallelize(0, func(i int) interface{} { return i }))
}
