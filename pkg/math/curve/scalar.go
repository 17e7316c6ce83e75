package curve

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/phantompool/darkpool/internal/params"
)

// Scalar is an element of ℤₙ, where n is the order of the secp256k1 group.
//
// Arithmetic methods mutate the receiver and return it, to allow chaining.
type Scalar struct {
	value secp256k1.ModNScalar
}

// NewScalar returns the scalar 0.
func NewScalar() *Scalar {
	return &Scalar{}
}

// NewScalarUInt32 returns the scalar corresponding to v.
func NewScalarUInt32(v uint32) *Scalar {
	s := &Scalar{}
	s.value.SetInt(v)
	return s
}

// NewScalarUInt64 returns the scalar corresponding to v.
func NewScalarUInt64(v uint64) *Scalar {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	s := &Scalar{}
	s.value.SetByteSlice(buf[:])
	return s
}

func (s *Scalar) Set(x *Scalar) *Scalar {
	s.value.Set(&x.value)
	return s
}

func (s *Scalar) Add(x *Scalar) *Scalar {
	s.value.Add(&x.value)
	return s
}

func (s *Scalar) Sub(x *Scalar) *Scalar {
	var neg secp256k1.ModNScalar
	neg.Set(&x.value)
	neg.Negate()
	s.value.Add(&neg)
	return s
}

func (s *Scalar) Mul(x *Scalar) *Scalar {
	s.value.Mul(&x.value)
	return s
}

func (s *Scalar) Negate() *Scalar {
	s.value.Negate()
	return s
}

// Invert sets s to s⁻¹. Inverting 0 leaves the scalar at 0.
func (s *Scalar) Invert() *Scalar {
	s.value.InverseNonConst()
	return s
}

func (s *Scalar) Equal(x *Scalar) bool {
	return s.value.Equals(&x.value)
}

func (s *Scalar) IsZero() bool {
	return s.value.IsZero()
}

// SetNat sets s to x mod n.
func (s *Scalar) SetNat(x *saferith.Nat) *Scalar {
	reduced := new(saferith.Nat).Mod(x, Order())
	buf := make([]byte, params.BytesScalar)
	reduced.FillBytes(buf)
	s.value.SetByteSlice(buf)
	return s
}

// Act returns s⋅P as a new point.
func (s *Scalar) Act(p *Point) *Point {
	out := new(Point)
	secp256k1.ScalarMultNonConst(&s.value, &p.value, &out.value)
	return out
}

// ActOnBase returns s⋅G as a new point.
func (s *Scalar) ActOnBase() *Point {
	out := new(Point)
	secp256k1.ScalarBaseMultNonConst(&s.value, &out.value)
	return out
}

// MarshalBinary returns the 32-byte big-endian encoding of the scalar.
func (s *Scalar) MarshalBinary() ([]byte, error) {
	data := s.value.Bytes()
	return data[:], nil
}

// UnmarshalBinary decodes a 32-byte big-endian scalar, rejecting values ≥ n.
func (s *Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != params.BytesScalar {
		return fmt.Errorf("curve: invalid scalar length: %d", len(data))
	}
	var exact [params.BytesScalar]byte
	copy(exact[:], data)
	if s.value.SetBytes(&exact) != 0 {
		return errors.New("curve: scalar not in range")
	}
	return nil
}

// WriteTo implements io.WriterTo.
func (s *Scalar) WriteTo(w io.Writer) (int64, error) {
	data, _ := s.MarshalBinary()
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Scalar) Domain() string {
	return "secp256k1 Scalar"
}
