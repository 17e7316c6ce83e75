// Package zkdleq implements Chaum–Pedersen proofs of discrete-log equality:
// given bases G (the curve generator) and H, the proof shows knowledge of x
// such that X = x⋅G and Y = x⋅H, without revealing x.
//
// Executor nodes attach such a proof to every partial decryption, with
// H = c1 of the ciphertext, so that a bad partial is rejected on arrival
// instead of corrupting the combined plaintext.
package zkdleq

import (
	"fmt"
	"io"

	"github.com/phantompool/darkpool/internal/params"
	"github.com/phantompool/darkpool/pkg/hash"
	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/math/sample"
)

// Proof is a non-interactive Chaum–Pedersen proof.
type Proof struct {
	// A = k⋅G
	A *curve.Point
	// B = k⋅H
	B *curve.Point
	// Z = k + e⋅x
	Z *curve.Scalar
}

func challenge(h *hash.Hash, base2, public, image, commitG, commitH *curve.Point) *curve.Scalar {
	_ = h.WriteAny(base2, public, image, commitG, commitH)
	return curve.FromHash(h.Sum())
}

// Prove demonstrates knowledge of x such that X = x⋅G and Y = x⋅base2.
// The statement (X, Y) is derived from x and bound into the challenge.
func Prove(h *hash.Hash, rand io.Reader, base2 *curve.Point, x *curve.Scalar) *Proof {
	k := sample.Scalar(rand)
	X := x.ActOnBase()
	Y := x.Act(base2)
	A := k.ActOnBase()
	B := k.Act(base2)

	e := challenge(h.Clone(), base2, X, Y, A, B)
	z := curve.NewScalar().Set(e).Mul(x).Add(k)
	return &Proof{A: A, B: B, Z: z}
}

// Verify checks the proof against the statement X = x⋅G, Y = x⋅base2.
// It never fails with an error, only reports false.
func (p *Proof) Verify(h *hash.Hash, base2, X, Y *curve.Point) bool {
	if p == nil || p.A == nil || p.B == nil || p.Z == nil {
		return false
	}
	if base2 == nil || X == nil || Y == nil {
		return false
	}
	if base2.IsIdentity() || X.IsIdentity() {
		return false
	}

	e := challenge(h.Clone(), base2, X, Y, p.A, p.B)

	// z⋅G == A + e⋅X
	if !p.Z.ActOnBase().Equal(p.A.Add(e.Act(X))) {
		return false
	}
	// z⋅base2 == B + e⋅Y
	return p.Z.Act(base2).Equal(p.B.Add(e.Act(Y)))
}

// MarshalBinary returns A ‖ B ‖ Z.
func (p *Proof) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 2*params.BytesPoint+params.BytesScalar)
	for _, pt := range []*curve.Point{p.A, p.B} {
		data, err := pt.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	data, err := p.Z.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, data...), nil
}

// UnmarshalBinary decodes and validates a serialized proof.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data) != 2*params.BytesPoint+params.BytesScalar {
		return fmt.Errorf("zkdleq: invalid proof length: %d", len(data))
	}
	a, b := curve.NewIdentityPoint(), curve.NewIdentityPoint()
	if err := a.UnmarshalBinary(data[:params.BytesPoint]); err != nil {
		return fmt.Errorf("zkdleq: A: %w", err)
	}
	if err := b.UnmarshalBinary(data[params.BytesPoint : 2*params.BytesPoint]); err != nil {
		return fmt.Errorf("zkdleq: B: %w", err)
	}
	z := curve.NewScalar()
	if err := z.UnmarshalBinary(data[2*params.BytesPoint:]); err != nil {
		return fmt.Errorf("zkdleq: Z: %w", err)
	}
	p.A, p.B, p.Z = a, b, z
	return nil
}
