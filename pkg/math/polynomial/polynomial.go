// Package polynomial implements the scalar polynomials behind Shamir
// secret sharing of the pool's ElGamal decryption key.
package polynomial

import (
	"io"

	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/math/sample"
)

// Polynomial represents f(X) = a₀ + a₁⋅X + … + aₜ⋅Xᵗ.
type Polynomial struct {
	coefficients []*curve.Scalar
}

// NewPolynomial generates a Polynomial f(X) = constant + a₁⋅X + … + aₜ⋅Xᵗ,
// with coefficients in ℤₙ, and degree t.
func NewPolynomial(rand io.Reader, degree int, constant *curve.Scalar) *Polynomial {
	polynomial := &Polynomial{
		coefficients: make([]*curve.Scalar, degree+1),
	}

	// if the constant is nil, we interpret it as 0.
	if constant == nil {
		constant = curve.NewScalar()
	}
	polynomial.coefficients[0] = curve.NewScalar().Set(constant)

	for i := 1; i <= degree; i++ {
		polynomial.coefficients[i] = sample.Scalar(rand)
	}

	return polynomial
}

// Evaluate evaluates the polynomial at index, using Horner's method.
//
// Evaluating at 0 would return the secret constant, so it panics instead.
func (p *Polynomial) Evaluate(index *curve.Scalar) *curve.Scalar {
	if index.IsZero() {
		panic("polynomial: attempt to leak secret")
	}

	result := curve.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		// bₙ₋₁ = bₙ⋅x + aₙ₋₁
		result.Mul(index).Add(p.coefficients[i])
	}
	return result
}

// Constant returns a copy of the constant coefficient of the polynomial.
func (p *Polynomial) Constant() *curve.Scalar {
	return curve.NewScalar().Set(p.coefficients[0])
}

// Degree is the highest power of the Polynomial.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}
