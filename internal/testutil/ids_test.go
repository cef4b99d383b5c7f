package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/listq/internal/engine"
)

var _ engine.IDGenerator = (*SequenceGenerator)(nil)

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("run")
	assert.Equal(t, "run-001", gen.Generate())
	assert.Equal(t, "run-002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "run-001", gen.Generate())
}

func TestSequenceGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "op-001", gen.Generate())
}

func TestSequenceGenerator_WidensPastPadding(t *testing.T) {
	gen := NewSequenceGenerator("op")
	var last string
	for i := 0; i < 1000; i++ {
		last = gen.Generate()
	}
	assert.Equal(t, "op-1000", last)
}
