// Package solvency implements the proofs traders attach to encrypted orders:
// a Pedersen commitment to the account balance, a Bulletproof that the
// balance clears the pair's minimum without revealing it, and a nullifier
// that pins the proof to one balance snapshot so it cannot be replayed.
package solvency

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/math/sample"
)

var (
	// ErrStaleProof is returned when a proof's timestamp falls outside the
	// freshness window.
	ErrStaleProof = errors.New("solvency: proof timestamp outside freshness window")

	// ErrInvalidRange is returned when the range proof fails to verify.
	ErrInvalidRange = errors.New("solvency: range proof rejected")
)

// PublicInputs are the values a verifier needs alongside the proof.
type PublicInputs struct {
	// MinBalance is the threshold the hidden balance must clear.
	MinBalance uint64
	// Timestamp is when the balance snapshot was taken, in unix seconds.
	Timestamp int64
}

// Proof shows, without revealing the balance, that the prover held at least
// MinBalance at Timestamp.
type Proof struct {
	// BalanceCommitment is the Pedersen commitment to the full balance.
	BalanceCommitment *curve.Point
	// Range proves BalanceCommitment - MinBalance⋅G opens in [0, 2⁶⁴).
	Range *RangeProof
	// Nullifier binds the proof to one balance snapshot.
	Nullifier [32]byte
	Public    PublicInputs
}

// computeNullifier hashes the full opening of the balance commitment together
// with the snapshot time. Two proofs over the same snapshot share a nullifier
// and the second is rejected as a replay.
func computeNullifier(balance uint64, blinding *curve.Scalar, timestamp int64) [32]byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], balance)
	binary.BigEndian.PutUint64(buf[8:], uint64(timestamp))
	blindingBytes, _ := blinding.MarshalBinary()

	h := blake3.New()
	_, _ = h.Write([]byte("darkpool/solvency/nullifier"))
	_, _ = h.Write(buf[:])
	_, _ = h.Write(blindingBytes)

	var out [32]byte
	_, _ = h.Digest().Read(out[:])
	return out
}

// Prove commits to balance with a fresh blinding factor and proves
// balance ≥ minBalance. The blinding is returned so the caller can later open
// the commitment, for example during a dispute.
//
// Fails with ErrValueBelowMinimum when the balance does not clear the
// threshold; an honest prover learns this before publishing anything.
func Prove(rand io.Reader, balance, minBalance uint64, timestamp int64) (*Proof, *curve.Scalar, error) {
	if balance < minBalance {
		return nil, nil, fmt.Errorf("%w: need %d", ErrValueBelowMinimum, minBalance)
	}
	blinding := sample.Scalar(rand)
	commitment := Commit(balance, blinding)

	// The range proof runs on the shifted value balance - minBalance, whose
	// commitment is C - minBalance⋅G under the same blinding.
	shifted := balance - minBalance
	shiftedCommitment := commitment.Sub(curve.NewScalarUInt64(minBalance).ActOnBase())

	return &Proof{
		BalanceCommitment: commitment,
		Range:             proveRange(rand, shifted, blinding, shiftedCommitment),
		Nullifier:         computeNullifier(balance, blinding, timestamp),
		Public:            PublicInputs{MinBalance: minBalance, Timestamp: timestamp},
	}, blinding, nil
}

// Verify checks the proof's freshness and range argument. Replay protection
// is separate: callers track nullifiers with a NullifierSet.
func Verify(proof *Proof, now time.Time, freshness time.Duration) error {
	if proof == nil || proof.BalanceCommitment == nil {
		return errors.New("solvency: nil proof")
	}
	age := now.Unix() - proof.Public.Timestamp
	if age < 0 || time.Duration(age)*time.Second > freshness {
		return fmt.Errorf("%w: age %ds", ErrStaleProof, age)
	}
	shifted := proof.BalanceCommitment.Sub(curve.NewScalarUInt64(proof.Public.MinBalance).ActOnBase())
	if !proof.Range.verifyRange(shifted) {
		return ErrInvalidRange
	}
	return nil
}

// NullifierSet tracks seen nullifiers for replay rejection. The engine resets
// it when balance snapshots roll over.
type NullifierSet struct {
	mu   sync.Mutex
	seen map[[32]byte]struct{}
}

func NewNullifierSet() *NullifierSet {
	return &NullifierSet{seen: make(map[[32]byte]struct{})}
}

// Observe records the nullifier and reports whether it was fresh.
func (s *NullifierSet) Observe(n [32]byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[n]; ok {
		return false
	}
	s.seen[n] = struct{}{}
	return true
}

// Reset clears all tracked nullifiers.
func (s *NullifierSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[[32]byte]struct{})
}
