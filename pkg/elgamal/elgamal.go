// Package elgamal implements additively homomorphic ElGamal encryption over
// secp256k1, for bounded integers.
//
// A message m is encrypted in the exponent: (r⋅G, m⋅G + r⋅pk). Decryption
// recovers m⋅G and then m itself by a baby-step/giant-step search, which is
// why plaintexts are restricted to [0, 2³²). Amounts and prices are
// fixed-point encoded with six decimals to fit this range.
package elgamal

import (
	"errors"
	"fmt"
	"io"

	"github.com/phantompool/darkpool/internal/params"
	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/math/sample"
)

type (
	PublicKey = curve.Point
	SecretKey = curve.Scalar
	Nonce     = curve.Scalar
)

// ErrOutOfRange is returned when a plaintext does not fit the encryptable range.
var ErrOutOfRange = errors.New("elgamal: message out of range")

// KeyGen returns a fresh decryption key sk and its public key sk⋅G.
func KeyGen(rand io.Reader) (*SecretKey, *PublicKey) {
	sk, pk := sample.ScalarPointPair(rand)
	return sk, pk
}

// Ciphertext is an ElGamal ciphertext (c1, c2), immutable once created.
type Ciphertext struct {
	// C1 = nonce⋅G
	C1 *curve.Point
	// C2 = message⋅G + nonce⋅public
	C2 *curve.Point
}

// Encrypt encrypts message under public with a fresh uniform nonce, which is
// also returned. Fails with ErrOutOfRange when message ≥ 2³².
func Encrypt(rand io.Reader, public *PublicKey, message uint64) (*Ciphertext, *Nonce, error) {
	if message >= params.MaxPlaintext {
		return nil, nil, fmt.Errorf("%w: %d", ErrOutOfRange, message)
	}
	nonce := sample.Scalar(rand)
	m := curve.NewScalarUInt64(message)
	ct := &Ciphertext{
		C1: nonce.ActOnBase(),
		C2: m.ActOnBase().Add(nonce.Act(public)),
	}
	return ct, nonce, nil
}

// Decrypt recovers the plaintext of ct: it computes c2 - sk⋅c1 = m⋅G and
// searches the bounded range for m. Fails with ErrDiscreteLogNotFound when
// the ciphertext does not encrypt a value in [0, 2³²).
func Decrypt(secret *SecretKey, ct *Ciphertext) (uint64, error) {
	if !ct.Valid() {
		return 0, errors.New("elgamal: invalid ciphertext")
	}
	mG := ct.C2.Sub(secret.Act(ct.C1))
	return DLog(mG)
}

// Add homomorphically combines two ciphertexts: Dec(Add(a, b)) = Dec(a) + Dec(b).
func Add(a, b *Ciphertext) *Ciphertext {
	return &Ciphertext{
		C1: a.C1.Add(b.C1),
		C2: a.C2.Add(b.C2),
	}
}

// Sub homomorphically subtracts: Dec(Sub(a, b)) = Dec(a) - Dec(b).
// The engine uses this to carry the unfilled remainder of a partially
// matched order into the next round without re-encrypting.
func Sub(a, b *Ciphertext) *Ciphertext {
	return &Ciphertext{
		C1: a.C1.Sub(b.C1),
		C2: a.C2.Sub(b.C2),
	}
}

// Valid reports whether the ciphertext is well formed.
func (c *Ciphertext) Valid() bool {
	if c == nil || c.C1 == nil || c.C2 == nil || c.C1.IsIdentity() {
		return false
	}
	return true
}

// MarshalBinary returns the 130-byte wire form c1 ‖ c2.
func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, params.BytesCiphertext)
	c1, err := c.C1.MarshalBinary()
	if err != nil {
		return nil, err
	}
	c2, err := c.C2.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, c1...)
	out = append(out, c2...)
	return out, nil
}

// UnmarshalBinary decodes and validates a 130-byte ciphertext.
func (c *Ciphertext) UnmarshalBinary(data []byte) error {
	if len(data) != params.BytesCiphertext {
		return fmt.Errorf("elgamal: invalid ciphertext length: %d", len(data))
	}
	c1, c2 := curve.NewIdentityPoint(), curve.NewIdentityPoint()
	if err := c1.UnmarshalBinary(data[:params.BytesPoint]); err != nil {
		return fmt.Errorf("elgamal: c1: %w", err)
	}
	if err := c2.UnmarshalBinary(data[params.BytesPoint:]); err != nil {
		return fmt.Errorf("elgamal: c2: %w", err)
	}
	c.C1, c.C2 = c1, c2
	return nil
}

// WriteTo implements io.WriterTo.
func (c *Ciphertext) WriteTo(w io.Writer) (int64, error) {
	data, err := c.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Ciphertext) Domain() string {
	return "ElGamal Ciphertext"
}
