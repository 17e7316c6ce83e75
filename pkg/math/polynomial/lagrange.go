package polynomial

import (
	"github.com/phantompool/darkpool/pkg/math/curve"
)

// Lagrange returns the Lagrange coefficients at 0 for the given share
// indices, keyed by index. Indices must be distinct and non-zero.
//
// The following formulas are taken from
// https://en.wikipedia.org/wiki/Lagrange_polynomial
//
//	                x₀ ⋅⋅⋅ xₖ
//	lⱼ(0) =	--------------------------------------------------
//	        xⱼ⋅(x₀ - xⱼ)⋅⋅⋅(xⱼ₋₁ - xⱼ)⋅(xⱼ₊₁ - xⱼ)⋅⋅⋅(xₖ - xⱼ)
func Lagrange(indices []uint16) map[uint16]*curve.Scalar {
	scalars := make(map[uint16]*curve.Scalar, len(indices))
	// numerator = x₀ ⋅ … ⋅ xₖ
	numerator := curve.NewScalarUInt32(1)
	for _, idx := range indices {
		x := curve.NewScalarUInt32(uint32(idx))
		scalars[idx] = x
		numerator.Mul(x)
	}

	coefficients := make(map[uint16]*curve.Scalar, len(indices))
	for _, j := range indices {
		coefficients[j] = lagrange(scalars, numerator, j)
	}
	return coefficients
}

func lagrange(scalars map[uint16]*curve.Scalar, numerator *curve.Scalar, j uint16) *curve.Scalar {
	xJ := scalars[j]
	tmp := curve.NewScalar()

	// denominator = xⱼ⋅(x₀ - xⱼ)⋅⋅⋅(xⱼ₋₁ - xⱼ)⋅(xⱼ₊₁ - xⱼ)⋅⋅⋅(xₖ - xⱼ)
	denominator := curve.NewScalarUInt32(1)
	for i, xI := range scalars {
		if i == j {
			// lⱼ *= xⱼ
			denominator.Mul(xJ)
			continue
		}
		// tmp = xᵢ - xⱼ
		tmp.Set(xI).Sub(xJ)
		denominator.Mul(tmp)
	}

	// lⱼ = numerator/denominator
	lJ := denominator.Invert()
	lJ.Mul(numerator)
	return lJ
}
