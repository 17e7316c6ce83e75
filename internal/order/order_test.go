package order

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/solvency"
)

func testOrder(t *testing.T, pk *elgamal.PublicKey, side Side, amount, price uint64) *Order {
	t.Helper()
	encAmount, _, err := elgamal.Encrypt(rand.Reader, pk, amount)
	require.NoError(t, err)
	encPrice, _, err := elgamal.Encrypt(rand.Reader, pk, price)
	require.NoError(t, err)
	proof, _, err := solvency.Prove(rand.Reader, 10_000_000, 1_000, time.Now().Unix())
	require.NoError(t, err)
	return &Order{
		Owner:           "trader-1",
		Pair:            "SOL/USDC",
		Side:            side,
		EncryptedAmount: encAmount,
		EncryptedPrice:  encPrice,
		Solvency:        proof,
		SubmittedAt:     time.Now().UTC().Truncate(time.Second),
		Status:          StatusPending,
	}
}

func TestHashStableAcrossStatus(t *testing.T) {
	_, pk := elgamal.KeyGen(rand.Reader)
	o := testOrder(t, pk, Bid, 10, 151)

	before := o.Hash()
	o.Status = StatusFilled
	assert.Equal(t, before, o.Hash())
}

func TestHashBindsContent(t *testing.T) {
	_, pk := elgamal.KeyGen(rand.Reader)
	a := testOrder(t, pk, Bid, 10, 151)
	b := testOrder(t, pk, Bid, 10, 151)

	// Fresh encryption nonces and nullifiers make every submission unique.
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := testOrder(t, pk, Ask, 10, 151)
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestValidate(t *testing.T) {
	_, pk := elgamal.KeyGen(rand.Reader)
	o := testOrder(t, pk, Bid, 10, 151)
	assert.NoError(t, o.Validate())

	o.Owner = ""
	assert.Error(t, o.Validate())

	o = testOrder(t, pk, Side(9), 10, 151)
	assert.Error(t, o.Validate())

	o = testOrder(t, pk, Ask, 10, 151)
	o.Solvency = nil
	assert.Error(t, o.Validate())
}

func TestCBORRoundTrip(t *testing.T) {
	_, pk := elgamal.KeyGen(rand.Reader)
	o := testOrder(t, pk, Ask, 5, 150)

	data, err := cbor.Marshal(o)
	require.NoError(t, err)

	dec := &Order{}
	require.NoError(t, cbor.Unmarshal(data, dec))

	assert.Equal(t, o.Hash(), dec.Hash())
	assert.Equal(t, o.Owner, dec.Owner)
	assert.Equal(t, o.Pair, dec.Pair)
	assert.Equal(t, o.Side, dec.Side)
	assert.Equal(t, o.Status, dec.Status)
	assert.True(t, o.SubmittedAt.Equal(dec.SubmittedAt))
	assert.Equal(t, o.Solvency.Nullifier, dec.Solvency.Nullifier)
}

func TestStatusOpen(t *testing.T) {
	assert.True(t, StatusPending.Open())
	assert.True(t, StatusPartiallyFilled.Open())
	assert.False(t, StatusFilled.Open())
	assert.False(t, StatusCancelled.Open())
}
