// Package executor manages the node network that jointly decrypts order
// flow: registration and staking, heartbeat liveness, threshold decryption
// fan-out, and slashing for provable misbehavior.
package executor

import (
	"time"

	"github.com/phantompool/darkpool/pkg/math/curve"
	"github.com/phantompool/darkpool/pkg/vrf"
)

// Node is the network's public view of one executor. The decryption share
// itself never leaves the node; only its verification key is registered.
type Node struct {
	ID    string
	Stake uint64

	// ShareIndex is the node's Shamir index for the epoch.
	ShareIndex uint16
	// VerificationKey is the public image of the node's decryption share.
	VerificationKey *curve.Point
	// VRFKey verifies the node's shuffle proofs when it leads a round.
	VRFKey *vrf.PublicKey

	Active        bool
	LastHeartbeat time.Time
	// liveSlashed marks that the current silence episode was already
	// slashed; a heartbeat clears it.
	liveSlashed bool

	// PerfScore ranges 0..100: heartbeats earn it back, slashes burn it.
	PerfScore  int
	SlashCount int
	// RoundsLed counts rounds where this node ran the shuffle.
	RoundsLed uint64
}

const (
	perfMax           = 100
	perfHeartbeatGain = 1
	perfSlashPenalty  = 20
)

func (n *Node) recordHeartbeat(now time.Time) {
	n.LastHeartbeat = now
	n.liveSlashed = false
	if n.PerfScore < perfMax {
		n.PerfScore += perfHeartbeatGain
		if n.PerfScore > perfMax {
			n.PerfScore = perfMax
		}
	}
}

// stale reports whether the node has missed enough heartbeats to be
// considered offline.
func (n *Node) stale(now time.Time, interval time.Duration) bool {
	return now.Sub(n.LastHeartbeat) > 2*interval
}

// missedBeats returns how many heartbeat intervals have elapsed since the
// node was last seen.
func (n *Node) missedBeats(now time.Time, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int(now.Sub(n.LastHeartbeat) / interval)
}
