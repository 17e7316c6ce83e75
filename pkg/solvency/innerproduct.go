package solvency

import (
	"github.com/phantompool/darkpool/pkg/hash"
	"github.com/phantompool/darkpool/pkg/math/curve"
)

// innerProductProof is the recursive argument that ties the committed
// vectors l, r of a range proof to their claimed inner product. Each round
// halves the vector length; for 64-bit ranges there are six rounds.
type innerProductProof struct {
	L []*curve.Point
	R []*curve.Point
	A *curve.Scalar
	B *curve.Scalar
}

func challengeScalar(tr *hash.Hash) *curve.Scalar {
	return curve.FromHash(tr.Sum())
}

// innerProduct returns <a, b>.
func innerProduct(a, b []*curve.Scalar) *curve.Scalar {
	out := curve.NewScalar()
	tmp := curve.NewScalar()
	for i := range a {
		out.Add(tmp.Set(a[i]).Mul(b[i]))
	}
	return out
}

// multiExp returns Σ xᵢ⋅gᵢ.
func multiExp(xs []*curve.Scalar, gs []*curve.Point) *curve.Point {
	out := curve.NewIdentityPoint()
	for i := range xs {
		out = out.Add(xs[i].Act(gs[i]))
	}
	return out
}

// foldScalars returns x⋅lo + y⋅hi, element-wise.
func foldScalars(lo, hi []*curve.Scalar, x, y *curve.Scalar) []*curve.Scalar {
	out := make([]*curve.Scalar, len(lo))
	tmp := curve.NewScalar()
	for i := range lo {
		out[i] = curve.NewScalar().Set(lo[i]).Mul(x)
		out[i].Add(tmp.Set(hi[i]).Mul(y))
	}
	return out
}

// foldPoints returns x⋅lo + y⋅hi, element-wise.
func foldPoints(lo, hi []*curve.Point, x, y *curve.Scalar) []*curve.Point {
	out := make([]*curve.Point, len(lo))
	for i := range lo {
		out[i] = x.Act(lo[i]).Add(y.Act(hi[i]))
	}
	return out
}

// proveInnerProduct argues that P = <a, gvec> + <b, hvec> + <a, b>⋅u, for the
// P implicitly fixed by the surrounding transcript.
func proveInnerProduct(tr *hash.Hash, gvec, hvec []*curve.Point, u *curve.Point, a, b []*curve.Scalar) *innerProductProof {
	proof := &innerProductProof{}

	for len(a) > 1 {
		half := len(a) / 2
		aLo, aHi := a[:half], a[half:]
		bLo, bHi := b[:half], b[half:]
		gLo, gHi := gvec[:half], gvec[half:]
		hLo, hHi := hvec[:half], hvec[half:]

		cL := innerProduct(aLo, bHi)
		cR := innerProduct(aHi, bLo)
		L := multiExp(aLo, gHi).Add(multiExp(bHi, hLo)).Add(cL.Act(u))
		R := multiExp(aHi, gLo).Add(multiExp(bLo, hHi)).Add(cR.Act(u))
		proof.L = append(proof.L, L)
		proof.R = append(proof.R, R)

		_ = tr.WriteAny(L, R)
		x := challengeScalar(tr)
		xInv := curve.NewScalar().Set(x).Invert()

		a = foldScalars(aLo, aHi, x, xInv)
		b = foldScalars(bLo, bHi, xInv, x)
		gvec = foldPoints(gLo, gHi, xInv, x)
		hvec = foldPoints(hLo, hHi, x, xInv)
	}

	proof.A = curve.NewScalar().Set(a[0])
	proof.B = curve.NewScalar().Set(b[0])
	return proof
}

// verifyInnerProduct replays the folding against P and checks the final
// one-element relation.
func verifyInnerProduct(tr *hash.Hash, gvec, hvec []*curve.Point, u, p *curve.Point, proof *innerProductProof) bool {
	if proof == nil || proof.A == nil || proof.B == nil {
		return false
	}
	if len(proof.L) != len(proof.R) {
		return false
	}
	n := len(gvec)
	if n != 1<<len(proof.L) {
		return false
	}

	for round := range proof.L {
		L, R := proof.L[round], proof.R[round]
		if L == nil || R == nil {
			return false
		}
		_ = tr.WriteAny(L, R)
		x := challengeScalar(tr)
		xInv := curve.NewScalar().Set(x).Invert()
		xSq := curve.NewScalar().Set(x).Mul(x)
		xInvSq := curve.NewScalar().Set(xInv).Mul(xInv)

		half := len(gvec) / 2
		gvec = foldPoints(gvec[:half], gvec[half:], xInv, x)
		hvec = foldPoints(hvec[:half], hvec[half:], x, xInv)
		p = p.Add(xSq.Act(L)).Add(xInvSq.Act(R))
	}

	// P' == a⋅g + b⋅h + a⋅b⋅u
	ab := curve.NewScalar().Set(proof.A).Mul(proof.B)
	expected := proof.A.Act(gvec[0]).Add(proof.B.Act(hvec[0])).Add(ab.Act(u))
	return expected.Equal(p)
}
