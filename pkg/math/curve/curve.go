// Package curve implements group and scalar arithmetic over secp256k1.
//
// The exchange's homomorphic encryption, threshold shares and solvency
// commitments all live in this one prime-order group. Wire encodings are
// fixed: 65-byte uncompressed points with on-curve validation on decode,
// and 32-byte big-endian scalars.
package curve

import (
	"encoding/binary"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/zeebo/blake3"
)

var (
	orderOnce sync.Once
	order     *saferith.Modulus
)

// Order returns the order of the secp256k1 group as a saferith modulus.
func Order() *saferith.Modulus {
	orderOnce.Do(func() {
		n := secp256k1.S256().N
		order = saferith.ModulusFromBytes(n.Bytes())
	})
	return order
}

// FromHash converts a hash digest to a Scalar.
//
// The digest is truncated to the bit length of the group order, right
// shifting excess bits, following [SECG] like OpenSSL and crypto/ecdsa do.
func FromHash(h []byte) *Scalar {
	orderBits := Order().BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(h) > orderBytes {
		h = h[:orderBytes]
	}
	n := new(saferith.Nat).SetBytes(h)
	excess := len(h)*8 - orderBits
	if excess > 0 {
		n.Rsh(n, uint(excess), -1)
	}
	return NewScalar().SetNat(n)
}

// MapToPoint deterministically derives a point from a domain string and index
// by hashing to a candidate x coordinate until one lies on the curve.
// Nobody learns the discrete log of the result with respect to G, which makes
// the output usable as a nothing-up-my-sleeve Pedersen generator.
func MapToPoint(domain string, index uint32) *Point {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	for ctr := uint32(0); ; ctr++ {
		h := blake3.New()
		_, _ = h.Write([]byte(domain))
		_, _ = h.Write(idx[:])
		var c [4]byte
		binary.BigEndian.PutUint32(c[:], ctr)
		_, _ = h.Write(c[:])

		var candidate [33]byte
		if _, err := h.Digest().Read(candidate[:]); err != nil {
			continue
		}
		var x, y secp256k1.FieldVal
		if x.SetByteSlice(candidate[:32]) {
			continue
		}
		if !secp256k1.DecompressY(&x, candidate[32]&1 == 1, &y) {
			continue
		}
		y.Normalize()
		p := new(Point)
		p.value.X.Set(&x)
		p.value.Y.Set(&y)
		p.value.Z.SetInt(1)
		return p
	}
}
