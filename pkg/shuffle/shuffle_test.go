package shuffle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderSet(n int) [][32]byte {
	out := make([][32]byte, n)
	for i := range out {
		out[i][0] = byte(i + 1)
	}
	return out
}

func TestDeriveSeedIgnoresSubmissionOrder(t *testing.T) {
	var blockhash [32]byte
	blockhash[0] = 0xaa
	hashes := orderSet(4)
	reversed := [][32]byte{hashes[3], hashes[2], hashes[1], hashes[0]}

	assert.Equal(t, DeriveSeed(7, blockhash, hashes), DeriveSeed(7, blockhash, reversed))
}

func TestDeriveSeedBindsAllInputs(t *testing.T) {
	var blockhash, otherBlockhash [32]byte
	otherBlockhash[0] = 1
	hashes := orderSet(3)

	base := DeriveSeed(1, blockhash, hashes)
	assert.NotEqual(t, base, DeriveSeed(2, blockhash, hashes), "round must change the seed")
	assert.NotEqual(t, base, DeriveSeed(1, otherBlockhash, hashes), "blockhash must change the seed")
	assert.NotEqual(t, base, DeriveSeed(1, blockhash, hashes[:2]), "membership must change the seed")
}

func TestIndicesIsPermutation(t *testing.T) {
	var output [32]byte
	output[0] = 0x42

	for _, n := range []int{0, 1, 2, 17, 100} {
		perm := Indices(n, output)
		require.Len(t, perm, n)
		seen := make(map[int]bool, n)
		for _, j := range perm {
			assert.GreaterOrEqual(t, j, 0)
			assert.Less(t, j, n)
			assert.False(t, seen[j], "index repeated")
			seen[j] = true
		}
	}
}

func TestIndicesDeterministic(t *testing.T) {
	var output [32]byte
	output[5] = 0x99
	assert.Equal(t, Indices(32, output), Indices(32, output))

	var other [32]byte
	other[5] = 0x9a
	assert.NotEqual(t, Indices(32, output), Indices(32, other))
}

func TestApply(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	perm := []int{2, 0, 3, 1}
	assert.Equal(t, []string{"c", "a", "d", "b"}, Apply(items, perm))
}

func TestApplyEmpty(t *testing.T) {
	assert.Empty(t, Apply([]int{}, []int{}))
}
