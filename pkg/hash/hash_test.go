package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainSeparation(t *testing.T) {
	a := New("domain A")
	b := New("domain B")
	_ = a.WriteAny([]byte("payload"))
	_ = b.WriteAny([]byte("payload"))
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestCloneDiverges(t *testing.T) {
	h := New("test")
	_ = h.WriteAny(uint64(1))

	clone := h.Clone()
	base := h.Clone().Sum()
	assert.Equal(t, base, clone.Sum(), "clone must share prefix state")

	_ = clone.WriteAny(uint64(2))
	assert.NotEqual(t, base, clone.Sum())
	assert.Equal(t, base, h.Sum(), "writing to the clone must not affect the original")
}

func TestFramingPreventsConcatenationAmbiguity(t *testing.T) {
	a := New("test")
	_ = a.WriteAny([]byte("ab"), []byte("c"))
	b := New("test")
	_ = b.WriteAny([]byte("a"), []byte("bc"))
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestCommitDecommit(t *testing.T) {
	h := New("commitments")
	c, d, err := h.Commit([]byte("data"), uint64(42))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	require.NoError(t, d.Validate())

	assert.True(t, h.Decommit(c, d, []byte("data"), uint64(42)))
	assert.False(t, h.Decommit(c, d, []byte("data"), uint64(43)), "different data must not open the commitment")

	// A fresh commitment to the same data differs, since the decommitment
	// randomness differs.
	c2, _, err := h.Commit([]byte("data"), uint64(42))
	require.NoError(t, err)
	assert.NotEqual(t, c, c2)
}

func TestSum32Stable(t *testing.T) {
	a := New("test")
	_ = a.WriteAny("hello")
	b := New("test")
	_ = b.WriteAny("hello")
	assert.Equal(t, a.Sum32(), b.Sum32())
}
