package elgamal

import (
	"errors"
	"sync"

	"github.com/phantompool/darkpool/pkg/math/curve"
)

// ErrDiscreteLogNotFound is returned when the searched point is not m⋅G for
// any m in the encryptable range. On a decryption path this is evidence of a
// corrupted or mismatched ciphertext.
var ErrDiscreteLogNotFound = errors.New("elgamal: discrete log not in range")

// babySteps is the size of the precomputed table; with 2¹⁶ baby steps and
// 2¹⁶ giant steps the search covers exactly the 2³² plaintext range.
const babySteps = 1 << 16

var (
	dlogOnce  sync.Once
	babyTable map[string]uint32
	giantNeg  *curve.Point
)

func initDLogTable() {
	babyTable = make(map[string]uint32, babySteps)
	g := curve.NewBasePoint()
	cur := curve.NewIdentityPoint()
	for j := uint32(0); j < babySteps; j++ {
		key, _ := cur.MarshalBinary()
		babyTable[string(key)] = j
		cur = cur.Add(g)
	}
	// cur is now 2¹⁶⋅G; the giant stride walks backwards by that amount.
	giantNeg = cur.Negate()
}

// DLog finds m such that p = m⋅G, for m in [0, 2³²), by baby-step/giant-step.
//
// The first call builds a 2¹⁶-entry table; subsequent calls cost at most
// 2¹⁶ group additions.
func DLog(p *curve.Point) (uint64, error) {
	dlogOnce.Do(initDLogTable)

	cur := curve.NewIdentityPoint().Set(p)
	for i := uint64(0); i < babySteps; i++ {
		key, _ := cur.MarshalBinary()
		if j, ok := babyTable[string(key)]; ok {
			return i*babySteps + uint64(j), nil
		}
		cur = cur.Add(giantNeg)
	}
	return 0, ErrDiscreteLogNotFound
}
