package solvency

import (
	"errors"
	"fmt"
	"io"

	"github.com/phantompool/darkpool/internal/params"
	"github.com/phantompool/darkpool/pkg/hash"
	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/math/sample"
)

const rangeDomain = "darkpool/solvency/range"

// ErrValueBelowMinimum is returned when a prover's balance does not clear the
// required minimum; proving would only produce an unverifiable proof.
var ErrValueBelowMinimum = errors.New("solvency: value below minimum")

// RangeProof shows that a Pedersen commitment opens to a value in [0, 2⁶⁴),
// without revealing it. It is a single-value Bulletproof: commitments to the
// bit decomposition, the t(x) polynomial commitments, the evaluation openings
// and a logarithmic inner product argument.
type RangeProof struct {
	A    *curve.Point
	S    *curve.Point
	T1   *curve.Point
	T2   *curve.Point
	TauX *curve.Scalar
	Mu   *curve.Scalar
	THat *curve.Scalar
	IPP  *innerProductProof
}

// powers returns (1, x, x², …, xⁿ⁻¹).
func powers(x *curve.Scalar, n int) []*curve.Scalar {
	out := make([]*curve.Scalar, n)
	out[0] = curve.NewScalarUInt32(1)
	for i := 1; i < n; i++ {
		out[i] = curve.NewScalar().Set(out[i-1]).Mul(x)
	}
	return out
}

func sumScalars(xs []*curve.Scalar) *curve.Scalar {
	out := curve.NewScalar()
	for _, x := range xs {
		out.Add(x)
	}
	return out
}

// proveRange produces a range proof for v committed as V = v⋅G + gamma⋅H.
func proveRange(rand io.Reader, v uint64, gamma *curve.Scalar, V *curve.Point) *RangeProof {
	gen := getGenerators()
	n := params.RangeBits

	tr := hash.New(rangeDomain)
	_ = tr.WriteAny(V)

	// Bit decomposition: aL ∈ {0,1}ⁿ, aR = aL - 1ⁿ.
	one := curve.NewScalarUInt32(1)
	aL := make([]*curve.Scalar, n)
	aR := make([]*curve.Scalar, n)
	for i := 0; i < n; i++ {
		bit := (v >> uint(i)) & 1
		aL[i] = curve.NewScalarUInt64(bit)
		aR[i] = curve.NewScalar().Set(aL[i]).Sub(one)
	}

	alpha := sample.Scalar(rand)
	A := alpha.Act(gen.H).Add(multiExp(aL, gen.Gvec)).Add(multiExp(aR, gen.Hvec))

	sL := make([]*curve.Scalar, n)
	sR := make([]*curve.Scalar, n)
	for i := 0; i < n; i++ {
		sL[i] = sample.Scalar(rand)
		sR[i] = sample.Scalar(rand)
	}
	rho := sample.Scalar(rand)
	S := rho.Act(gen.H).Add(multiExp(sL, gen.Gvec)).Add(multiExp(sR, gen.Hvec))

	_ = tr.WriteAny(A, S)
	y := challengeScalar(tr)
	_ = tr.WriteAny(y)
	z := challengeScalar(tr)

	yn := powers(y, n)
	two := curve.NewScalarUInt32(2)
	twoN := powers(two, n)
	zSq := curve.NewScalar().Set(z).Mul(z)

	// l(x) = (aL - z·1) + sL·x
	// r(x) = yⁿ ∘ (aR + z·1 + sR·x) + z²·2ⁿ
	l0 := make([]*curve.Scalar, n)
	r0 := make([]*curve.Scalar, n)
	r1 := make([]*curve.Scalar, n)
	for i := 0; i < n; i++ {
		l0[i] = curve.NewScalar().Set(aL[i]).Sub(z)
		r0[i] = curve.NewScalar().Set(aR[i]).Add(z).Mul(yn[i])
		r0[i].Add(curve.NewScalar().Set(zSq).Mul(twoN[i]))
		r1[i] = curve.NewScalar().Set(sR[i]).Mul(yn[i])
	}
	l1 := sL

	t1 := innerProduct(l0, r1).Add(innerProduct(l1, r0))
	t2 := innerProduct(l1, r1)

	tau1 := sample.Scalar(rand)
	tau2 := sample.Scalar(rand)
	T1 := t1.ActOnBase().Add(tau1.Act(gen.H))
	T2 := t2.ActOnBase().Add(tau2.Act(gen.H))

	_ = tr.WriteAny(T1, T2)
	x := challengeScalar(tr)
	xSq := curve.NewScalar().Set(x).Mul(x)

	tauX := curve.NewScalar().Set(tau2).Mul(xSq)
	tauX.Add(curve.NewScalar().Set(tau1).Mul(x))
	tauX.Add(curve.NewScalar().Set(zSq).Mul(gamma))
	mu := curve.NewScalar().Set(rho).Mul(x).Add(alpha)

	l := foldScalars(l0, l1, one, x)
	r := foldScalars(r0, r1, one, x)
	tHat := innerProduct(l, r)

	_ = tr.WriteAny(tauX, mu, tHat)
	w := challengeScalar(tr)
	uW := w.Act(gen.U)

	// Shift Hvec by y⁻ⁱ so that <l, r> is an inner product over a single
	// generator family.
	yInv := curve.NewScalar().Set(y).Invert()
	ynInv := powers(yInv, n)
	hPrime := make([]*curve.Point, n)
	for i := 0; i < n; i++ {
		hPrime[i] = ynInv[i].Act(gen.Hvec[i])
	}

	return &RangeProof{
		A: A, S: S, T1: T1, T2: T2,
		TauX: tauX, Mu: mu, THat: tHat,
		IPP: proveInnerProduct(tr, gen.Gvec, hPrime, uW, l, r),
	}
}

// verifyRange checks the proof against the commitment V.
func (p *RangeProof) verifyRange(V *curve.Point) bool {
	if p == nil || p.A == nil || p.S == nil || p.T1 == nil || p.T2 == nil {
		return false
	}
	if p.TauX == nil || p.Mu == nil || p.THat == nil || V == nil {
		return false
	}
	gen := getGenerators()
	n := params.RangeBits

	tr := hash.New(rangeDomain)
	_ = tr.WriteAny(V, p.A, p.S)
	y := challengeScalar(tr)
	_ = tr.WriteAny(y)
	z := challengeScalar(tr)

	yn := powers(y, n)
	twoN := powers(curve.NewScalarUInt32(2), n)
	zSq := curve.NewScalar().Set(z).Mul(z)
	zCu := curve.NewScalar().Set(zSq).Mul(z)

	_ = tr.WriteAny(p.T1, p.T2)
	x := challengeScalar(tr)
	xSq := curve.NewScalar().Set(x).Mul(x)

	// δ(y, z) = (z - z²)·<1, yⁿ> - z³·<1, 2ⁿ>
	delta := curve.NewScalar().Set(z).Sub(zSq).Mul(sumScalars(yn))
	delta.Sub(curve.NewScalar().Set(zCu).Mul(sumScalars(twoN)))

	// t̂⋅G + τx⋅H == z²⋅V + δ⋅G + x⋅T1 + x²⋅T2
	lhs := p.THat.ActOnBase().Add(p.TauX.Act(gen.H))
	rhs := zSq.Act(V).Add(delta.ActOnBase()).Add(x.Act(p.T1)).Add(xSq.Act(p.T2))
	if !lhs.Equal(rhs) {
		return false
	}

	_ = tr.WriteAny(p.TauX, p.Mu, p.THat)
	w := challengeScalar(tr)
	uW := w.Act(gen.U)

	yInv := curve.NewScalar().Set(y).Invert()
	ynInv := powers(yInv, n)
	hPrime := make([]*curve.Point, n)
	for i := 0; i < n; i++ {
		hPrime[i] = ynInv[i].Act(gen.Hvec[i])
	}

	// P = A + x⋅S - μ⋅H - z⋅<1, Gvec> + Σ (z⋅yⁱ + z²⋅2ⁱ)⋅h'ᵢ + t̂⋅u
	zNeg := curve.NewScalar().Set(z).Negate()
	P := p.A.Add(x.Act(p.S)).Sub(p.Mu.Act(gen.H)).Add(p.THat.Act(uW))
	for i := 0; i < n; i++ {
		P = P.Add(zNeg.Act(gen.Gvec[i]))
		hCoeff := curve.NewScalar().Set(z).Mul(yn[i])
		hCoeff.Add(curve.NewScalar().Set(zSq).Mul(twoN[i]))
		P = P.Add(hCoeff.Act(hPrime[i]))
	}

	return verifyInnerProduct(tr, gen.Gvec, hPrime, uW, P, p.IPP)
}

func marshalPoints(out []byte, pts ...*curve.Point) ([]byte, error) {
	for _, pt := range pts {
		data, err := pt.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

func marshalScalars(out []byte, xs ...*curve.Scalar) []byte {
	for _, x := range xs {
		data, _ := x.MarshalBinary()
		out = append(out, data...)
	}
	return out
}

// MarshalBinary serializes the proof with a fixed layout: the four head
// points, the three scalars, six L points, six R points, then a and b.
func (p *RangeProof) MarshalBinary() ([]byte, error) {
	rounds := len(p.IPP.L)
	size := (4+2*rounds)*params.BytesPoint + 5*params.BytesScalar
	out := make([]byte, 0, size)
	out, err := marshalPoints(out, p.A, p.S, p.T1, p.T2)
	if err != nil {
		return nil, err
	}
	out = marshalScalars(out, p.TauX, p.Mu, p.THat)
	out, err = marshalPoints(out, p.IPP.L...)
	if err != nil {
		return nil, err
	}
	out, err = marshalPoints(out, p.IPP.R...)
	if err != nil {
		return nil, err
	}
	return marshalScalars(out, p.IPP.A, p.IPP.B), nil
}

// UnmarshalBinary decodes a proof produced by MarshalBinary.
func (p *RangeProof) UnmarshalBinary(data []byte) error {
	const rounds = 6 // log₂ of the 64-bit range
	size := (4+2*rounds)*params.BytesPoint + 5*params.BytesScalar
	if len(data) != size {
		return fmt.Errorf("solvency: invalid range proof length: %d", len(data))
	}
	nextPoint := func() (*curve.Point, error) {
		pt := curve.NewIdentityPoint()
		err := pt.UnmarshalBinary(data[:params.BytesPoint])
		data = data[params.BytesPoint:]
		return pt, err
	}
	nextScalar := func() (*curve.Scalar, error) {
		s := curve.NewScalar()
		err := s.UnmarshalBinary(data[:params.BytesScalar])
		data = data[params.BytesScalar:]
		return s, err
	}

	var err error
	head := make([]*curve.Point, 4)
	for i := range head {
		if head[i], err = nextPoint(); err != nil {
			return fmt.Errorf("solvency: range proof: %w", err)
		}
	}
	scalars := make([]*curve.Scalar, 3)
	for i := range scalars {
		if scalars[i], err = nextScalar(); err != nil {
			return fmt.Errorf("solvency: range proof: %w", err)
		}
	}
	ipp := &innerProductProof{
		L: make([]*curve.Point, rounds),
		R: make([]*curve.Point, rounds),
	}
	for i := range ipp.L {
		if ipp.L[i], err = nextPoint(); err != nil {
			return fmt.Errorf("solvency: range proof: %w", err)
		}
	}
	for i := range ipp.R {
		if ipp.R[i], err = nextPoint(); err != nil {
			return fmt.Errorf("solvency: range proof: %w", err)
		}
	}
	if ipp.A, err = nextScalar(); err != nil {
		return fmt.Errorf("solvency: range proof: %w", err)
	}
	if ipp.B, err = nextScalar(); err != nil {
		return fmt.Errorf("solvency: range proof: %w", err)
	}

	p.A, p.S, p.T1, p.T2 = head[0], head[1], head[2], head[3]
	p.TauX, p.Mu, p.THat = scalars[0], scalars[1], scalars[2]
	p.IPP = ipp
	return nil
}
