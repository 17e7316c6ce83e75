// Package shuffle derives the per-round order permutation.
//
// The round seed commits to the exact order set and to chain state, the
// selected executor's VRF turns the seed into an unpredictable 32-byte key,
// and the key drives a Fisher–Yates shuffle. Anyone holding the VRF proof can
// recompute the permutation, so matching priority cannot be assigned quietly.
package shuffle

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/chacha20"

	"github.com/phantompool/darkpool/pkg/hash"
)

const seedDomain = "darkpool/shuffle/seed"

// DeriveSeed computes the VRF input for a round. The order hashes are bound
// as a set: submission order does not change the seed, only membership does.
func DeriveSeed(round uint64, blockhash [32]byte, orderHashes [][32]byte) []byte {
	sorted := make([][32]byte, len(orderHashes))
	copy(sorted, orderHashes)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i][:]) < string(sorted[j][:])
	})

	h := hash.New(seedDomain)
	_ = h.WriteAny(round, blockhash, uint64(len(sorted)))
	for _, oh := range sorted {
		_ = h.WriteAny(oh)
	}
	return h.Sum()
}

// Indices expands a VRF output into a permutation of 0..n-1 by running
// Fisher–Yates over a ChaCha20 keystream. The same output always yields the
// same permutation. An empty input yields an empty permutation.
func Indices(n int, output [32]byte) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if n < 2 {
		return perm
	}

	var nonce [chacha20.NonceSize]byte
	stream, err := chacha20.NewUnauthenticatedCipher(output[:], nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed above.
		panic("shuffle: chacha20 init: " + err.Error())
	}

	for i := n - 1; i > 0; i-- {
		j := uniform(stream, uint64(i)+1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// Apply permutes items according to perm, which must come from Indices.
func Apply[T any](items []T, perm []int) []T {
	out := make([]T, len(items))
	for i, j := range perm {
		out[i] = items[j]
	}
	return out
}

// uniform draws a uniform value in [0, bound) from the keystream, rejecting
// draws that would bias the modulo reduction.
func uniform(stream *chacha20.Cipher, bound uint64) uint64 {
	max := (^uint64(0) / bound) * bound
	var buf [8]byte
	for {
		var zero [8]byte
		stream.XORKeyStream(buf[:], zero[:])
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return v % bound
		}
	}
}
