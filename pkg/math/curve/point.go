package curve

import (
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/phantompool/darkpool/internal/params"
)

// ErrInvalidPoint is returned when deserialized coordinates fail the curve
// equation, or the encoding is otherwise malformed.
var ErrInvalidPoint = errors.New("curve: invalid point")

// Point is an element of the secp256k1 group, including the identity.
//
// Group operations return fresh points and leave their operands intact.
type Point struct {
	value secp256k1.JacobianPoint
}

// NewIdentityPoint returns the identity element.
func NewIdentityPoint() *Point {
	return new(Point)
}

// NewBasePoint returns the canonical generator G.
func NewBasePoint() *Point {
	one := NewScalarUInt32(1)
	return one.ActOnBase()
}

func (p *Point) Set(q *Point) *Point {
	p.value.Set(&q.value)
	return p
}

// Add returns p + q.
func (p *Point) Add(q *Point) *Point {
	out := new(Point)
	secp256k1.AddNonConst(&p.value, &q.value, &out.value)
	return out
}

// Sub returns p - q.
func (p *Point) Sub(q *Point) *Point {
	return p.Add(q.Negate())
}

// Negate returns -p.
func (p *Point) Negate() *Point {
	out := new(Point)
	out.value.Set(&p.value)
	out.value.Y.Negate(1)
	out.value.Y.Normalize()
	return out
}

func (p *Point) Equal(q *Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() && q.IsIdentity()
	}
	a, b := p.value, q.value
	a.ToAffine()
	b.ToAffine()
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y)
}

func (p *Point) IsIdentity() bool {
	z := p.value.Z
	return z.Normalize().IsZero()
}

// MarshalBinary returns the 65-byte uncompressed encoding 0x04 ‖ x ‖ y.
// The identity element encodes as 65 zero bytes.
func (p *Point) MarshalBinary() ([]byte, error) {
	out := make([]byte, params.BytesPoint)
	if p.IsIdentity() {
		return out, nil
	}
	affine := p.value
	affine.ToAffine()
	out[0] = 0x04
	x := affine.X.Bytes()
	copy(out[1:33], x[:])
	y := affine.Y.Bytes()
	copy(out[33:65], y[:])
	return out, nil
}

// UnmarshalBinary decodes a 65-byte uncompressed point, validating that the
// coordinates satisfy the curve equation y² = x³ + 7.
func (p *Point) UnmarshalBinary(data []byte) error {
	if len(data) != params.BytesPoint {
		return fmt.Errorf("curve: invalid point length %d: %w", len(data), ErrInvalidPoint)
	}
	if allZero(data) {
		p.value = secp256k1.JacobianPoint{}
		return nil
	}
	if data[0] != 0x04 {
		return fmt.Errorf("curve: unexpected prefix 0x%02x: %w", data[0], ErrInvalidPoint)
	}
	var x, y secp256k1.FieldVal
	if x.SetByteSlice(data[1:33]) {
		return fmt.Errorf("curve: x coordinate out of range: %w", ErrInvalidPoint)
	}
	if y.SetByteSlice(data[33:65]) {
		return fmt.Errorf("curve: y coordinate out of range: %w", ErrInvalidPoint)
	}
	var lhs, rhs secp256k1.FieldVal
	lhs.SquareVal(&y).Normalize()
	rhs.SquareVal(&x).Mul(&x).AddInt(7).Normalize()
	if !lhs.Equals(&rhs) {
		return fmt.Errorf("curve: point not on curve: %w", ErrInvalidPoint)
	}
	p.value.X.Set(&x)
	p.value.Y.Set(&y)
	p.value.Z.SetInt(1)
	return nil
}

// WriteTo implements io.WriterTo.
func (p *Point) WriteTo(w io.Writer) (int64, error) {
	data, err := p.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Point) Domain() string {
	return "secp256k1 Point"
}

func allZero(data []byte) bool {
	var acc byte
	for _, b := range data {
		acc |= b
	}
	return acc == 0
}
