package vrf

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProveVerify(t *testing.T) {
	sk, pk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	proof := sk.Prove([]byte("round seed"))
	assert.True(t, Verify(pk, []byte("round seed"), proof))
}

func TestProveDeterministic(t *testing.T) {
	sk, _, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	a := sk.Prove([]byte("seed"))
	b := sk.Prove([]byte("seed"))
	assert.Equal(t, a.Output, b.Output)
	assert.Equal(t, 1, a.Gamma.Equal(b.Gamma))
	assert.Equal(t, 1, a.C.Equal(b.C))
	assert.Equal(t, 1, a.S.Equal(b.S))
}

func TestDistinctInputsDistinctOutputs(t *testing.T) {
	sk, _, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	a := sk.Prove([]byte("seed 1"))
	b := sk.Prove([]byte("seed 2"))
	assert.NotEqual(t, a.Output, b.Output)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	sk, _, err := GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, otherPK, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	proof := sk.Prove([]byte("seed"))
	assert.False(t, Verify(otherPK, []byte("seed"), proof))
}

func TestVerifyRejectsWrongInput(t *testing.T) {
	sk, pk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	proof := sk.Prove([]byte("seed"))
	assert.False(t, Verify(pk, []byte("other seed"), proof))
}

func TestVerifyRejectsTamperedOutput(t *testing.T) {
	sk, pk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	proof := sk.Prove([]byte("seed"))
	proof.Output[0] ^= 1
	assert.False(t, Verify(pk, []byte("seed"), proof))
}

func TestProofMarshalRoundTrip(t *testing.T) {
	sk, pk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	proof := sk.Prove([]byte("seed"))
	data, err := proof.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 128)

	dec := &Proof{}
	require.NoError(t, dec.UnmarshalBinary(data))
	assert.True(t, Verify(pk, []byte("seed"), dec))
	assert.Equal(t, proof.Output, dec.Output)
}

func TestPublicKeyRoundTrip(t *testing.T) {
	sk, pk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	parsed, err := ParsePublicKey(pk.Bytes())
	require.NoError(t, err)

	proof := sk.Prove([]byte("seed"))
	assert.True(t, Verify(parsed, []byte("seed"), proof))
}
