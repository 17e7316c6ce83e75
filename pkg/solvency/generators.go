package solvency

import (
	"sync"

	"github.com/phantompool/darkpool/internal/params"
	"github.com/phantompool/darkpool/pkg/math/curve"
)

// generators holds the fixed commitment bases. All are derived
// deterministically from domain strings, so every party computes the same set
// and nobody knows discrete-log relations between them.
type generators struct {
	// H is the Pedersen blinding base.
	H *curve.Point
	// Gvec and Hvec are the per-bit bases of the range proof.
	Gvec []*curve.Point
	Hvec []*curve.Point
	// U carries the inner product in the final argument.
	U *curve.Point
}

var (
	gensOnce sync.Once
	gens     *generators
)

func getGenerators() *generators {
	gensOnce.Do(func() {
		g := &generators{
			H:    curve.MapToPoint("darkpool/solvency/pedersen-h", 0),
			Gvec: make([]*curve.Point, params.RangeBits),
			Hvec: make([]*curve.Point, params.RangeBits),
			U:    curve.MapToPoint("darkpool/solvency/ipp-u", 0),
		}
		for i := uint32(0); i < params.RangeBits; i++ {
			g.Gvec[i] = curve.MapToPoint("darkpool/solvency/vec-g", i)
			g.Hvec[i] = curve.MapToPoint("darkpool/solvency/vec-h", i)
		}
		gens = g
	})
	return gens
}

// Commit returns the Pedersen commitment value⋅G + blinding⋅H.
func Commit(value uint64, blinding *curve.Scalar) *curve.Point {
	v := curve.NewScalarUInt64(value)
	return v.ActOnBase().Add(blinding.Act(getGenerators().H))
}
