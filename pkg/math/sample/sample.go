// Package sample centralizes random generation of scalars and points.
package sample

import (
	"fmt"
	"io"

	"github.com/phantompool/darkpool/internal/params"
	"github.com/phantompool/darkpool/pkg/math/curve"
)

const maxIterations = 255

// ErrMaxIterations is returned when the underlying source fails repeatedly.
var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// Scalar returns a uniform non-zero element of ℤₙ, by rejection sampling.
func Scalar(rand io.Reader) *curve.Scalar {
	var s curve.Scalar
	buf := make([]byte, params.BytesScalar)
	for i := 0; i < maxIterations; i++ {
		mustReadBits(rand, buf)
		if err := s.UnmarshalBinary(buf); err != nil {
			continue
		}
		if !s.IsZero() {
			return &s
		}
	}
	panic(ErrMaxIterations)
}

// ScalarPointPair returns a fresh secret scalar x together with x⋅G.
func ScalarPointPair(rand io.Reader) (*curve.Scalar, *curve.Point) {
	s := Scalar(rand)
	return s, s.ActOnBase()
}
