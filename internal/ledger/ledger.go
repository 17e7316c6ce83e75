// Package ledger abstracts the settlement layer the engine publishes to.
// Round starts and cleared matches are recorded there; the latest blockhash
// feeds the shuffle seed so permutations are tied to chain state.
package ledger

import (
	"context"
	"time"

	"github.com/phantompool/darkpool/internal/order"
)

// RoundStart is the public record announcing a matching round: which orders
// participate and the VRF proof fixing their shuffle.
type RoundStart struct {
	Pair        string
	Round       uint64
	Blockhash   [32]byte
	Seed        []byte
	VRFProof    []byte
	OrderHashes [][32]byte
	StartedAt   time.Time
}

// Settlement is the record closing a round: the matches and the commitment
// binding them to the decrypted order flow.
type Settlement struct {
	Pair      string
	Round     uint64
	Matches   []*order.Match
	Artifact  []byte
	SettledAt time.Time
}

// Ledger is the engine's view of the settlement layer.
type Ledger interface {
	// LatestBlockhash returns the most recent block hash.
	LatestBlockhash(ctx context.Context) ([32]byte, error)
	// SubmitRoundStart publishes the round announcement.
	SubmitRoundStart(ctx context.Context, start *RoundStart) error
	// SubmitSettlement publishes the round's cleared matches.
	SubmitSettlement(ctx context.Context, settlement *Settlement) error
}
