package executor

import (
	"fmt"
	"time"
)

// ViolationKind classifies provable misbehavior.
type ViolationKind uint8

const (
	// ViolationMissedHeartbeats: offline long enough that liveness slashing
	// applies.
	ViolationMissedHeartbeats ViolationKind = iota + 1
	// ViolationBadDecryption: a partial decryption whose proof does not
	// verify, or a share subset that disagrees with the rest.
	ViolationBadDecryption
	// ViolationBadShuffle: a shuffle that does not match the verified VRF
	// output, which only a deliberately mispublishing leader can produce.
	ViolationBadShuffle
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationMissedHeartbeats:
		return "missed_heartbeats"
	case ViolationBadDecryption:
		return "bad_decryption"
	case ViolationBadShuffle:
		return "bad_shuffle"
	default:
		return fmt.Sprintf("violation(%d)", uint8(k))
	}
}

// slashPercent returns how much of the node's stake the violation burns.
func (k ViolationKind) slashPercent() uint64 {
	switch k {
	case ViolationMissedHeartbeats:
		return 1
	case ViolationBadDecryption:
		return 10
	case ViolationBadShuffle:
		return 50
	default:
		return 0
	}
}

// Violation is one recorded slashing event.
type Violation struct {
	NodeID  string
	Kind    ViolationKind
	Round   uint64
	Amount  uint64
	Time    time.Time
	Details string
}
