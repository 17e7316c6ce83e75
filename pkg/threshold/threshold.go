// Package threshold implements t-of-n decryption for the pool's ElGamal key.
//
// The key is Shamir-split once at network bootstrap; each executor node holds
// one share for the epoch. Any t nodes can jointly decrypt a ciphertext by
// publishing partial decryptions share⋅c1, which are Lagrange-combined at
// x = 0. No subset ever reconstructs the key itself.
package threshold

import (
	"errors"
	"fmt"
	"io"

	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/hash"
	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/math/polynomial"
	zkdleq "github.com/phantompool/darkpool/pkg/zk/dleq"
)

var (
	// ErrInsufficientShares is returned when fewer than t partial
	// decryptions are available.
	ErrInsufficientShares = errors.New("threshold: insufficient shares")

	// ErrShareMismatch is returned when two distinct size-t subsets of
	// partial decryptions disagree. At least one submitted share value is
	// wrong; the caller treats this as misbehavior evidence.
	ErrShareMismatch = errors.New("threshold: share subsets disagree")
)

const proofDomain = "darkpool/threshold/partial"

// Share is one Shamir share of the pool decryption key, owned by a single
// executor node for the network epoch.
type Share struct {
	// Index is the share's evaluation point, in 1..n.
	Index uint16
	// Value is f(Index) for the sharing polynomial f.
	Value *curve.Scalar
	// Threshold is the number of shares needed to decrypt.
	Threshold int
}

// Split performs a (t, n) Shamir split of secret: it samples a polynomial of
// degree t-1 with secret as the constant term and evaluates it at 1..n.
func Split(rand io.Reader, secret *elgamal.SecretKey, t, n int) ([]*Share, error) {
	if t < 1 || t > n {
		return nil, fmt.Errorf("threshold: invalid configuration %d-of-%d", t, n)
	}
	poly := polynomial.NewPolynomial(rand, t-1, secret)
	shares := make([]*Share, n)
	for i := 1; i <= n; i++ {
		shares[i-1] = &Share{
			Index:     uint16(i),
			Value:     poly.Evaluate(curve.NewScalarUInt32(uint32(i))),
			Threshold: t,
		}
	}
	return shares, nil
}

// VerificationKey returns Value⋅G, the public image of the share against
// which partial decryptions are checked.
func (s *Share) VerificationKey() *curve.Point {
	return s.Value.ActOnBase()
}

// PartialDecryption is one node's contribution Value⋅c1, with a
// Chaum–Pedersen proof that it was computed with the registered share.
type PartialDecryption struct {
	Index uint16
	Value *curve.Point
	Proof *zkdleq.Proof
}

func proofTranscript(index uint16) *hash.Hash {
	h := hash.New(proofDomain)
	_ = h.WriteAny(uint64(index))
	return h
}

// PartialDecrypt computes the share's contribution for ct, together with a
// proof of correctness.
func (s *Share) PartialDecrypt(rand io.Reader, ct *elgamal.Ciphertext) *PartialDecryption {
	return &PartialDecryption{
		Index: s.Index,
		Value: s.Value.Act(ct.C1),
		Proof: zkdleq.Prove(proofTranscript(s.Index), rand, ct.C1, s.Value),
	}
}

// Verify checks the partial decryption against the share's public
// verification key and the ciphertext it claims to decrypt.
func (pd *PartialDecryption) Verify(verificationKey *curve.Point, ct *elgamal.Ciphertext) bool {
	if pd == nil || pd.Value == nil || !ct.Valid() {
		return false
	}
	return pd.Proof.Verify(proofTranscript(pd.Index), ct.C1, verificationKey, pd.Value)
}

// Combine recovers the plaintext of ct from at least t partial decryptions.
//
// When more than t partials are supplied, two distinct size-t subsets are
// combined and compared; a disagreement fails with ErrShareMismatch rather
// than silently returning garbage.
func Combine(partials []*PartialDecryption, ct *elgamal.Ciphertext, t int) (uint64, error) {
	if t < 1 {
		return 0, fmt.Errorf("threshold: invalid threshold %d", t)
	}
	distinct := dedupe(partials)
	if len(distinct) < t {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(distinct), t)
	}

	skC1 := interpolate(distinct[:t])
	if len(distinct) > t {
		check := interpolate(distinct[len(distinct)-t:])
		if !skC1.Equal(check) {
			return 0, ErrShareMismatch
		}
	}

	return elgamal.DLog(ct.C2.Sub(skC1))
}

// interpolate Lagrange-combines a size-t subset into sk⋅c1.
func interpolate(subset []*PartialDecryption) *curve.Point {
	indices := make([]uint16, len(subset))
	for i, pd := range subset {
		indices[i] = pd.Index
	}
	coefficients := polynomial.Lagrange(indices)

	sum := curve.NewIdentityPoint()
	for _, pd := range subset {
		sum = sum.Add(coefficients[pd.Index].Act(pd.Value))
	}
	return sum
}

func dedupe(partials []*PartialDecryption) []*PartialDecryption {
	seen := make(map[uint16]bool, len(partials))
	out := make([]*PartialDecryption, 0, len(partials))
	for _, pd := range partials {
		if pd == nil || seen[pd.Index] {
			continue
		}
		seen[pd.Index] = true
		out = append(out, pd)
	}
	return out
}
