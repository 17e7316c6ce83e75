// Package vrf implements a verifiable random function over edwards25519.
//
// Each matching round, the selected executor evaluates the VRF on the round
// seed. The 32-byte output keys the order shuffle, and the accompanying proof
// lets every other node check that the permutation was not chosen freely.
//
// The construction follows ECVRF: Γ = x⋅H for H a hash of the input mapped
// onto the curve, with a Schnorr-style proof (c, s) of consistency between
// Γ and the public key.
package vrf

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"github.com/zeebo/blake3"

	"github.com/phantompool/darkpool/internal/params"
	"github.com/phantompool/darkpool/pkg/hash"
)

const (
	domainHashToCurve = "darkpool/vrf/h2c"
	domainChallenge   = "darkpool/vrf/challenge"
	domainNonce       = "darkpool/vrf/nonce"
	domainOutput      = "darkpool/vrf/output"
)

// ErrInvalidProof is returned when a serialized proof fails to decode.
var ErrInvalidProof = errors.New("vrf: invalid proof encoding")

// PublicKey is a VRF verification key.
type PublicKey struct {
	point *edwards25519.Point
	bytes []byte
}

// SecretKey is a VRF evaluation key.
type SecretKey struct {
	scalar *edwards25519.Scalar
	public *PublicKey
}

// GenerateKey samples a fresh VRF key pair from rand.
func GenerateKey(rand io.Reader) (*SecretKey, *PublicKey, error) {
	seed := make([]byte, 64)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, fmt.Errorf("vrf: keygen: %w", err)
	}
	x, err := edwards25519.NewScalar().SetUniformBytes(seed)
	if err != nil {
		return nil, nil, fmt.Errorf("vrf: keygen: %w", err)
	}
	point := new(edwards25519.Point).ScalarBaseMult(x)
	pk := &PublicKey{point: point, bytes: point.Bytes()}
	return &SecretKey{scalar: x, public: pk}, pk, nil
}

// Public returns the verification key for sk.
func (sk *SecretKey) Public() *PublicKey {
	return sk.public
}

// Bytes returns the 32-byte encoding of the verification key.
func (pk *PublicKey) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, pk.bytes)
	return out
}

// ParsePublicKey decodes a 32-byte verification key.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	point, err := new(edwards25519.Point).SetBytes(data)
	if err != nil {
		return nil, fmt.Errorf("vrf: public key: %w", err)
	}
	return &PublicKey{point: point, bytes: point.Bytes()}, nil
}

// Proof is a VRF evaluation: the point Γ, the Schnorr transcript (c, s), and
// the derived 32-byte output.
type Proof struct {
	Gamma  *edwards25519.Point
	C      *edwards25519.Scalar
	S      *edwards25519.Scalar
	Output [32]byte
}

// hashToCurve maps (pk, input) onto a prime-order point by hashed
// try-and-increment. The discrete log of the result is unknown to everyone,
// which is what makes Γ unpredictable before evaluation.
func hashToCurve(pk *PublicKey, input []byte) *edwards25519.Point {
	for ctr := uint64(0); ; ctr++ {
		h := hash.New(domainHashToCurve)
		_ = h.WriteAny(pk.bytes, input, ctr)
		candidate, err := new(edwards25519.Point).SetBytes(h.Sum()[:32])
		if err != nil {
			continue
		}
		candidate.MultByCofactor(candidate)
		if candidate.Equal(edwards25519.NewIdentityPoint()) == 1 {
			continue
		}
		return candidate
	}
}

func challengeScalar(pk *PublicKey, h, gamma, u, v *edwards25519.Point) *edwards25519.Scalar {
	tr := hash.New(domainChallenge)
	_ = tr.WriteAny(pk.bytes, h.Bytes(), gamma.Bytes(), u.Bytes(), v.Bytes())
	c, _ := edwards25519.NewScalar().SetUniformBytes(tr.Sum())
	return c
}

func outputFromGamma(gamma *edwards25519.Point) [32]byte {
	return blake3.Sum256(append([]byte(domainOutput), gamma.Bytes()...))
}

// Prove evaluates the VRF on input. The proof is deterministic: the Schnorr
// nonce is derived from the key and the hashed input, never from system
// randomness, so a node cannot produce two proofs for the same input.
func (sk *SecretKey) Prove(input []byte) *Proof {
	h := hashToCurve(sk.public, input)
	gamma := new(edwards25519.Point).ScalarMult(sk.scalar, h)

	tr := hash.New(domainNonce)
	_ = tr.WriteAny(sk.scalar.Bytes(), h.Bytes())
	k, _ := edwards25519.NewScalar().SetUniformBytes(tr.Sum())

	u := new(edwards25519.Point).ScalarBaseMult(k)
	v := new(edwards25519.Point).ScalarMult(k, h)

	c := challengeScalar(sk.public, h, gamma, u, v)
	s := edwards25519.NewScalar().MultiplyAdd(c, sk.scalar, k)

	return &Proof{Gamma: gamma, C: c, S: s, Output: outputFromGamma(gamma)}
}

// Verify checks that proof is a correct evaluation of the VRF keyed by pk on
// input. It never fails with an error, only reports false.
func Verify(pk *PublicKey, input []byte, proof *Proof) bool {
	if pk == nil || proof == nil || proof.Gamma == nil || proof.C == nil || proof.S == nil {
		return false
	}

	h := hashToCurve(pk, input)
	cNeg := edwards25519.NewScalar().Negate(proof.C)

	// U = s⋅B - c⋅PK
	u := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(cNeg, pk.point, proof.S)
	// V = s⋅H - c⋅Γ
	v := new(edwards25519.Point).VarTimeMultiScalarMult(
		[]*edwards25519.Scalar{proof.S, cNeg},
		[]*edwards25519.Point{h, proof.Gamma},
	)

	c := challengeScalar(pk, h, proof.Gamma, u, v)
	if c.Equal(proof.C) != 1 {
		return false
	}

	expected := outputFromGamma(proof.Gamma)
	return subtle.ConstantTimeCompare(expected[:], proof.Output[:]) == 1
}

// MarshalBinary returns the 128-byte wire form Γ ‖ c ‖ s ‖ output.
func (p *Proof) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, params.BytesVRFProof)
	out = append(out, p.Gamma.Bytes()...)
	out = append(out, p.C.Bytes()...)
	out = append(out, p.S.Bytes()...)
	out = append(out, p.Output[:]...)
	return out, nil
}

// UnmarshalBinary decodes and validates a 128-byte proof.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data) != params.BytesVRFProof {
		return fmt.Errorf("%w: length %d", ErrInvalidProof, len(data))
	}
	gamma, err := new(edwards25519.Point).SetBytes(data[:32])
	if err != nil {
		return fmt.Errorf("%w: gamma: %v", ErrInvalidProof, err)
	}
	c, err := edwards25519.NewScalar().SetCanonicalBytes(data[32:64])
	if err != nil {
		return fmt.Errorf("%w: c: %v", ErrInvalidProof, err)
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(data[64:96])
	if err != nil {
		return fmt.Errorf("%w: s: %v", ErrInvalidProof, err)
	}
	p.Gamma, p.C, p.S = gamma, c, s
	copy(p.Output[:], data[96:])
	return nil
}
