package threshold

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/math/sample"
)

func setup(t *testing.T, threshold, n int, message uint64) ([]*Share, *elgamal.Ciphertext) {
	t.Helper()
	sk, pk := elgamal.KeyGen(rand.Reader)
	shares, err := Split(rand.Reader, sk, threshold, n)
	require.NoError(t, err)
	require.Len(t, shares, n)

	ct, _, err := elgamal.Encrypt(rand.Reader, pk, message)
	require.NoError(t, err)
	return shares, ct
}

func TestSplitRejectsBadConfig(t *testing.T) {
	sk, _ := elgamal.KeyGen(rand.Reader)
	_, err := Split(rand.Reader, sk, 0, 3)
	assert.Error(t, err)
	_, err = Split(rand.Reader, sk, 4, 3)
	assert.Error(t, err)
}

func TestCombineExactThreshold(t *testing.T) {
	shares, ct := setup(t, 3, 5, 123456)

	partials := make([]*PartialDecryption, 3)
	for i, share := range shares[:3] {
		partials[i] = share.PartialDecrypt(rand.Reader, ct)
	}
	m, err := Combine(partials, ct, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 123456, m)
}

func TestCombineAnySubset(t *testing.T) {
	shares, ct := setup(t, 2, 5, 777)

	for _, pick := range [][2]int{{0, 1}, {1, 3}, {2, 4}} {
		partials := []*PartialDecryption{
			shares[pick[0]].PartialDecrypt(rand.Reader, ct),
			shares[pick[1]].PartialDecrypt(rand.Reader, ct),
		}
		m, err := Combine(partials, ct, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 777, m)
	}
}

func TestCombineInsufficientShares(t *testing.T) {
	shares, ct := setup(t, 3, 5, 1)

	partials := []*PartialDecryption{
		shares[0].PartialDecrypt(rand.Reader, ct),
		shares[1].PartialDecrypt(rand.Reader, ct),
	}
	_, err := Combine(partials, ct, 3)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	// Duplicated indices do not count twice.
	partials = append(partials, shares[0].PartialDecrypt(rand.Reader, ct))
	_, err = Combine(partials, ct, 3)
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestCombineDetectsBadShare(t *testing.T) {
	shares, ct := setup(t, 2, 4, 42)

	// The first contributor lies about its share value.
	bad := &Share{Index: shares[0].Index, Value: sample.Scalar(rand.Reader), Threshold: 2}
	partials := []*PartialDecryption{
		bad.PartialDecrypt(rand.Reader, ct),
		shares[1].PartialDecrypt(rand.Reader, ct),
		shares[2].PartialDecrypt(rand.Reader, ct),
	}
	_, err := Combine(partials, ct, 2)
	assert.ErrorIs(t, err, ErrShareMismatch)
}

func TestPartialDecryptionVerify(t *testing.T) {
	shares, ct := setup(t, 2, 3, 9)

	pd := shares[0].PartialDecrypt(rand.Reader, ct)
	assert.True(t, pd.Verify(shares[0].VerificationKey(), ct))

	// Wrong verification key.
	assert.False(t, pd.Verify(shares[1].VerificationKey(), ct))

	// Forged value under a real key.
	forged := &Share{Index: shares[0].Index, Value: sample.Scalar(rand.Reader), Threshold: 2}
	pdForged := forged.PartialDecrypt(rand.Reader, ct)
	assert.False(t, pdForged.Verify(shares[0].VerificationKey(), ct))
}
