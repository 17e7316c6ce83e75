// Package order defines the encrypted order and the match records the
// engine produces from them.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/hash"
	"github.com/phantompool/darkpool/pkg/solvency"
)

// Side is the direction of an order.
type Side uint8

const (
	Bid Side = iota + 1
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Status tracks an order through the matching lifecycle.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Open reports whether the order can still participate in a round.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusPartiallyFilled
}

// Order is an encrypted limit order. Amount and price stay encrypted until
// the round's threshold decryption; only side, pair and owner are public.
type Order struct {
	Owner string
	Pair  string
	Side  Side

	EncryptedAmount *elgamal.Ciphertext
	EncryptedPrice  *elgamal.Ciphertext
	Solvency        *solvency.Proof

	SubmittedAt time.Time
	Status      Status
}

// Hash returns the order's identity: a digest over everything the trader
// committed to at submission. Status changes do not alter it.
func (o *Order) Hash() [32]byte {
	h := hash.New("darkpool/order")
	_ = h.WriteAny(o.Owner, o.Pair, uint64(o.Side), o.EncryptedAmount, o.EncryptedPrice)
	if o.Solvency != nil {
		_ = h.WriteAny(o.Solvency.Nullifier)
	}
	return h.Sum32()
}

// Validate checks structural well-formedness. Cryptographic checks (solvency
// verification, nullifier freshness) happen in the engine.
func (o *Order) Validate() error {
	if o == nil {
		return errors.New("order: nil")
	}
	if o.Owner == "" {
		return errors.New("order: missing owner")
	}
	if o.Pair == "" {
		return errors.New("order: missing pair")
	}
	if o.Side != Bid && o.Side != Ask {
		return fmt.Errorf("order: invalid side %d", o.Side)
	}
	if !o.EncryptedAmount.Valid() {
		return errors.New("order: invalid encrypted amount")
	}
	if !o.EncryptedPrice.Valid() {
		return errors.New("order: invalid encrypted price")
	}
	if o.Solvency == nil {
		return errors.New("order: missing solvency proof")
	}
	return nil
}

// Match is one cleared trade between a bid and an ask.
type Match struct {
	Pair          string
	Round         uint64
	BuyOrderHash  [32]byte
	SellOrderHash [32]byte
	// Amount is the filled quantity, fixed-point with six decimals.
	Amount uint64
	// Price is the clearing price, the midpoint of the crossed quotes.
	Price uint64
	// Fee is the protocol fee charged on Amount.
	Fee uint64
}
