package order

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/solvency"
)

// orderWire is the CBOR shape of an order. Points, ciphertexts and proofs
// travel in their fixed binary encodings.
type orderWire struct {
	Owner           string   `cbor:"owner"`
	Pair            string   `cbor:"pair"`
	Side            uint8    `cbor:"side"`
	EncryptedAmount []byte   `cbor:"enc_amount"`
	EncryptedPrice  []byte   `cbor:"enc_price"`
	Commitment      []byte   `cbor:"commitment"`
	RangeProof      []byte   `cbor:"range_proof"`
	Nullifier       [32]byte `cbor:"nullifier"`
	MinBalance      uint64   `cbor:"min_balance"`
	Timestamp       int64    `cbor:"timestamp"`
	SubmittedAt     int64    `cbor:"submitted_at"`
	Status          uint8    `cbor:"status"`
}

// MarshalCBOR implements cbor.Marshaler.
func (o *Order) MarshalCBOR() ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	amount, err := o.EncryptedAmount.MarshalBinary()
	if err != nil {
		return nil, err
	}
	price, err := o.EncryptedPrice.MarshalBinary()
	if err != nil {
		return nil, err
	}
	commitment, err := o.Solvency.BalanceCommitment.MarshalBinary()
	if err != nil {
		return nil, err
	}
	rangeProof, err := o.Solvency.Range.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(&orderWire{
		Owner:           o.Owner,
		Pair:            o.Pair,
		Side:            uint8(o.Side),
		EncryptedAmount: amount,
		EncryptedPrice:  price,
		Commitment:      commitment,
		RangeProof:      rangeProof,
		Nullifier:       o.Solvency.Nullifier,
		MinBalance:      o.Solvency.Public.MinBalance,
		Timestamp:       o.Solvency.Public.Timestamp,
		SubmittedAt:     o.SubmittedAt.Unix(),
		Status:          uint8(o.Status),
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler, validating every embedded
// encoding.
func (o *Order) UnmarshalCBOR(data []byte) error {
	wire := &orderWire{}
	if err := cbor.Unmarshal(data, wire); err != nil {
		return err
	}

	amount := &elgamal.Ciphertext{}
	if err := amount.UnmarshalBinary(wire.EncryptedAmount); err != nil {
		return fmt.Errorf("order: amount: %w", err)
	}
	price := &elgamal.Ciphertext{}
	if err := price.UnmarshalBinary(wire.EncryptedPrice); err != nil {
		return fmt.Errorf("order: price: %w", err)
	}
	commitment := curve.NewIdentityPoint()
	if err := commitment.UnmarshalBinary(wire.Commitment); err != nil {
		return fmt.Errorf("order: commitment: %w", err)
	}
	rangeProof := &solvency.RangeProof{}
	if err := rangeProof.UnmarshalBinary(wire.RangeProof); err != nil {
		return fmt.Errorf("order: %w", err)
	}

	o.Owner = wire.Owner
	o.Pair = wire.Pair
	o.Side = Side(wire.Side)
	o.EncryptedAmount = amount
	o.EncryptedPrice = price
	o.Solvency = &solvency.Proof{
		BalanceCommitment: commitment,
		Range:             rangeProof,
		Nullifier:         wire.Nullifier,
		Public: solvency.PublicInputs{
			MinBalance: wire.MinBalance,
			Timestamp:  wire.Timestamp,
		},
	}
	o.SubmittedAt = time.Unix(wire.SubmittedAt, 0).UTC()
	o.Status = Status(wire.Status)
	return o.Validate()
}
