package solvency

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantompool/darkpool/pkg/math/sample"
)

const window = time.Hour

func TestProveVerify(t *testing.T) {
	now := time.Now()
	proof, blinding, err := Prove(rand.Reader, 5_000_000, 1_000_000, now.Unix())
	require.NoError(t, err)
	require.NotNil(t, blinding)

	assert.NoError(t, Verify(proof, now, window))
}

func TestProveExactMinimum(t *testing.T) {
	now := time.Now()
	proof, _, err := Prove(rand.Reader, 1_000_000, 1_000_000, now.Unix())
	require.NoError(t, err)
	assert.NoError(t, Verify(proof, now, window))
}

func TestProveRefusesInsolvent(t *testing.T) {
	_, _, err := Prove(rand.Reader, 999, 1_000, time.Now().Unix())
	assert.ErrorIs(t, err, ErrValueBelowMinimum)
}

func TestVerifyRejectsRaisedMinimum(t *testing.T) {
	now := time.Now()
	proof, _, err := Prove(rand.Reader, 5_000, 1_000, now.Unix())
	require.NoError(t, err)

	// A verifier demanding a higher minimum must reject: the shifted
	// commitment no longer matches what was proven.
	proof.Public.MinBalance = 4_000
	assert.ErrorIs(t, Verify(proof, now, window), ErrInvalidRange)
}

func TestVerifyRejectsSwappedCommitment(t *testing.T) {
	now := time.Now()
	proof, _, err := Prove(rand.Reader, 5_000, 1_000, now.Unix())
	require.NoError(t, err)

	other := Commit(9_999, sample.Scalar(rand.Reader))
	proof.BalanceCommitment = other
	assert.ErrorIs(t, Verify(proof, now, window), ErrInvalidRange)
}

func TestVerifyRejectsStale(t *testing.T) {
	past := time.Now().Add(-2 * window)
	proof, _, err := Prove(rand.Reader, 5_000, 1_000, past.Unix())
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(proof, time.Now(), window), ErrStaleProof)

	// Timestamps from the future are rejected too.
	future, _, err := Prove(rand.Reader, 5_000, 1_000, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(future, time.Now(), window), ErrStaleProof)
}

func TestNullifierBindsSnapshot(t *testing.T) {
	now := time.Now().Unix()
	a, _, err := Prove(rand.Reader, 5_000, 1_000, now)
	require.NoError(t, err)
	b, _, err := Prove(rand.Reader, 5_000, 1_000, now)
	require.NoError(t, err)

	// Fresh blinding, fresh nullifier.
	assert.NotEqual(t, a.Nullifier, b.Nullifier)
}

func TestNullifierSet(t *testing.T) {
	set := NewNullifierSet()
	var n [32]byte
	n[0] = 1

	assert.True(t, set.Observe(n))
	assert.False(t, set.Observe(n), "replay must be rejected")

	set.Reset()
	assert.True(t, set.Observe(n))
}

func TestRangeProofMarshalRoundTrip(t *testing.T) {
	now := time.Now()
	proof, _, err := Prove(rand.Reader, 123_456_789, 0, now.Unix())
	require.NoError(t, err)

	data, err := proof.Range.MarshalBinary()
	require.NoError(t, err)

	dec := &RangeProof{}
	require.NoError(t, dec.UnmarshalBinary(data))
	proof.Range = dec
	assert.NoError(t, Verify(proof, now, window))
}

func TestCommitHomomorphic(t *testing.T) {
	b1 := sample.Scalar(rand.Reader)
	b2 := sample.Scalar(rand.Reader)

	sum := Commit(100, b1).Add(Commit(23, b2))
	combined := Commit(123, b1.Add(b2))
	assert.True(t, sum.Equal(combined))
}
