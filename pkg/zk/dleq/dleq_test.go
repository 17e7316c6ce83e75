package zkdleq

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantompool/darkpool/pkg/hash"
	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/math/sample"
)

func generateParams() (*hash.Hash, *curve.Point, *curve.Point, *curve.Point, *curve.Scalar) {
	h := hash.New("test dleq")
	x := sample.Scalar(rand.Reader)
	base2 := sample.Scalar(rand.Reader).ActOnBase()
	X := x.ActOnBase()
	Y := x.Act(base2)
	return h, base2, X, Y, x
}

func TestProveVerify(t *testing.T) {
	h, base2, X, Y, x := generateParams()
	proof := Prove(h, rand.Reader, base2, x)
	assert.True(t, proof.Verify(h, base2, X, Y))
}

func TestVerifyRejectsWrongStatement(t *testing.T) {
	h, base2, X, _, x := generateParams()
	proof := Prove(h, rand.Reader, base2, x)

	wrongY := sample.Scalar(rand.Reader).Act(base2)
	assert.False(t, proof.Verify(h, base2, X, wrongY))
}

func TestVerifyRejectsWrongTranscript(t *testing.T) {
	h, base2, X, Y, x := generateParams()
	proof := Prove(h, rand.Reader, base2, x)
	assert.False(t, proof.Verify(hash.New("other transcript"), base2, X, Y))
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	h, base2, X, Y, x := generateParams()
	proof := Prove(h, rand.Reader, base2, x)
	proof.Z.Add(curve.NewScalarUInt32(1))
	assert.False(t, proof.Verify(h, base2, X, Y))
}

func TestVerifyRejectsIdentityInputs(t *testing.T) {
	h, base2, _, _, x := generateParams()
	proof := Prove(h, rand.Reader, base2, x)
	identity := curve.NewIdentityPoint()
	assert.False(t, proof.Verify(h, identity, x.ActOnBase(), x.Act(base2)))
	assert.False(t, proof.Verify(h, base2, identity, x.Act(base2)))

	var nilProof *Proof
	assert.False(t, nilProof.Verify(h, base2, x.ActOnBase(), x.Act(base2)))
}

func TestMarshalRoundTrip(t *testing.T) {
	h, base2, X, Y, x := generateParams()
	proof := Prove(h, rand.Reader, base2, x)

	data, err := proof.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 162)

	dec := &Proof{}
	require.NoError(t, dec.UnmarshalBinary(data))
	assert.True(t, dec.Verify(h, base2, X, Y))
}
