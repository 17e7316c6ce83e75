package engine

import (
	"fmt"

	"github.com/phantompool/darkpool/internal/order"
)

// State is the phase of a pair's matching round.
type State uint8

const (
	// StateIdle: no open orders, no round in flight.
	StateIdle State = iota
	// StateCollecting: orders are accepted into the next round.
	StateCollecting
	// StateShuffling: the leader's VRF fixes the round permutation.
	StateShuffling
	// StateDecrypting: executors jointly decrypt the shuffled orders.
	StateDecrypting
	// StateClearing: decrypted orders are matched and priced.
	StateClearing
	// StateSettled: matches are published; transient before Idle.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateShuffling:
		return "shuffling"
	case StateDecrypting:
		return "decrypting"
	case StateClearing:
		return "clearing"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// accepting reports whether new orders may join the book in this state.
func (s State) accepting() bool {
	return s == StateIdle || s == StateCollecting
}

// book is the per-pair order book. Orders stay encrypted here; the book only
// knows hashes, sides and statuses.
type book struct {
	pair   string
	state  State
	round  uint64
	orders map[[32]byte]*order.Order
	// arrival preserves submission order for iteration stability; the round
	// permutation comes from the VRF, never from this.
	arrival [][32]byte
	stats   PairStats
}

func newBook(pair string) *book {
	return &book{
		pair:   pair,
		state:  StateIdle,
		orders: make(map[[32]byte]*order.Order),
		stats:  PairStats{Pair: pair},
	}
}

// openOrders returns the orders that can join a round, in arrival order.
func (b *book) openOrders() ([][32]byte, []*order.Order) {
	hashes := make([][32]byte, 0, len(b.arrival))
	orders := make([]*order.Order, 0, len(b.arrival))
	for _, h := range b.arrival {
		o := b.orders[h]
		if o != nil && o.Status.Open() {
			hashes = append(hashes, h)
			orders = append(orders, o)
		}
	}
	return hashes, orders
}

// compact drops closed orders from the arrival index.
func (b *book) compact() {
	kept := b.arrival[:0]
	for _, h := range b.arrival {
		if o := b.orders[h]; o != nil && o.Status.Open() {
			kept = append(kept, h)
		} else {
			delete(b.orders, h)
		}
	}
	b.arrival = kept
}
