package executor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/phantompool/darkpool/internal/config"
	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/threshold"
)

var (
	// ErrNotEnoughExecutors is returned when fewer than t nodes are active.
	ErrNotEnoughExecutors = errors.New("executor: not enough active nodes")

	// ErrDecryptionFailed is returned when a threshold decryption could not
	// gather t valid partials.
	ErrDecryptionFailed = errors.New("executor: threshold decryption failed")

	// ErrUnknownNode is returned for operations on an unregistered node.
	ErrUnknownNode = errors.New("executor: unknown node")
)

// liveness slashing kicks in after this many consecutive missed heartbeats.
const missedBeatsSlash = 5

// Network tracks the executor set and coordinates threshold decryption
// across it.
type Network struct {
	mu      sync.Mutex
	nodes   map[string]*Node
	clients map[string]Client

	violations []*Violation

	threshold         int
	minStake          uint64
	slashLimit        int
	heartbeatInterval time.Duration
	requestTimeout    time.Duration

	log *logrus.Entry
}

// NewNetwork returns an empty network with the given decryption threshold.
func NewNetwork(cfg config.ExecutorConfig, t int, log *logrus.Logger) *Network {
	return &Network{
		nodes:             make(map[string]*Node),
		clients:           make(map[string]Client),
		threshold:         t,
		minStake:          cfg.MinStake,
		slashLimit:        cfg.SlashLimit,
		heartbeatInterval: time.Duration(cfg.HeartbeatSeconds) * time.Second,
		requestTimeout:    time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		log:               log.WithField("component", "executor"),
	}
}

// Register adds a node and its transport to the network.
func (net *Network) Register(node *Node, client Client) error {
	if node.Stake < net.minStake {
		return fmt.Errorf("executor: stake %d below minimum %d", node.Stake, net.minStake)
	}
	net.mu.Lock()
	defer net.mu.Unlock()
	if _, ok := net.nodes[node.ID]; ok {
		return fmt.Errorf("executor: node %s already registered", node.ID)
	}
	node.Active = true
	node.LastHeartbeat = time.Now()
	if node.PerfScore == 0 {
		node.PerfScore = perfMax
	}
	net.nodes[node.ID] = node
	net.clients[node.ID] = client
	net.log.WithFields(logrus.Fields{"node": node.ID, "stake": node.Stake}).Info("node registered")
	return nil
}

// Heartbeat records a liveness signal from the node. A stale node that
// reports again is reactivated, provided it was not deactivated for
// misbehavior.
func (net *Network) Heartbeat(id string, now time.Time) error {
	net.mu.Lock()
	defer net.mu.Unlock()
	node, ok := net.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	node.recordHeartbeat(now)
	if !node.Active && node.SlashCount < net.slashLimit && node.Stake >= net.minStake {
		node.Active = true
		net.log.WithField("node", id).Info("node reactivated")
	}
	return nil
}

// CheckLiveness sweeps the registry: stale nodes are deactivated, and once a
// silent node has missed five or more beats it is slashed for liveness,
// whether or not an earlier sweep already deactivated it. Each silence
// episode is slashed at most once. Returns the violations recorded by the
// sweep.
func (net *Network) CheckLiveness(now time.Time) []*Violation {
	net.mu.Lock()
	defer net.mu.Unlock()
	var out []*Violation
	for _, node := range net.nodes {
		if !node.stale(now, net.heartbeatInterval) {
			continue
		}
		if node.Active {
			node.Active = false
			net.log.WithField("node", node.ID).Warn("node marked inactive")
		}
		if node.liveSlashed || node.missedBeats(now, net.heartbeatInterval) < missedBeatsSlash {
			continue
		}
		node.liveSlashed = true
		out = append(out, net.slashLocked(node, ViolationMissedHeartbeats, 0, "liveness sweep"))
	}
	return out
}

// ReportViolation slashes a node for misbehavior proven elsewhere, such as a
// rejected partial decryption or a shuffle that contradicts its VRF proof.
func (net *Network) ReportViolation(id string, kind ViolationKind, round uint64, details string) (*Violation, error) {
	net.mu.Lock()
	defer net.mu.Unlock()
	node, ok := net.nodes[id]
	if !ok {
		return nil, ErrUnknownNode
	}
	return net.slashLocked(node, kind, round, details), nil
}

func (net *Network) slashLocked(node *Node, kind ViolationKind, round uint64, details string) *Violation {
	amount := node.Stake * kind.slashPercent() / 100
	node.Stake -= amount
	node.SlashCount++
	node.PerfScore -= perfSlashPenalty
	if node.PerfScore < 0 {
		node.PerfScore = 0
	}
	if node.SlashCount >= net.slashLimit || node.Stake < net.minStake {
		node.Active = false
	}

	v := &Violation{
		NodeID:  node.ID,
		Kind:    kind,
		Round:   round,
		Amount:  amount,
		Time:    time.Now(),
		Details: details,
	}
	net.violations = append(net.violations, v)
	net.log.WithFields(logrus.Fields{
		"node":   node.ID,
		"kind":   kind.String(),
		"amount": amount,
		"active": node.Active,
	}).Warn("node slashed")
	return v
}

// RewardRound distributes a completed round's fees across the nodes that
// served it, each share weighted by the node's rolling performance score.
func (net *Network) RewardRound(ids []string, total uint64) {
	net.mu.Lock()
	defer net.mu.Unlock()
	var served []*Node
	var weight uint64
	for _, id := range ids {
		if node, ok := net.nodes[id]; ok {
			served = append(served, node)
			weight += uint64(node.PerfScore)
		}
	}
	if total == 0 || len(served) == 0 {
		return
	}
	for _, node := range served {
		if weight == 0 {
			node.Stake += total / uint64(len(served))
			continue
		}
		node.Stake += total * uint64(node.PerfScore) / weight
	}
}

// activeLocked returns active nodes sorted by ID. Callers hold net.mu.
func (net *Network) activeLocked() []*Node {
	out := make([]*Node, 0, len(net.nodes))
	for _, node := range net.nodes {
		if node.Active {
			out = append(out, node)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveNodes returns the active set sorted by ID.
func (net *Network) ActiveNodes() []*Node {
	net.mu.Lock()
	defer net.mu.Unlock()
	return net.activeLocked()
}

// SelectLeader deterministically picks the round leader from the seed, so
// every observer derives the same choice. The leader's VRF drives the round's
// shuffle.
func (net *Network) SelectLeader(seed []byte) (*Node, Client, error) {
	net.mu.Lock()
	defer net.mu.Unlock()
	active := net.activeLocked()
	if len(active) == 0 {
		return nil, nil, ErrNotEnoughExecutors
	}
	digest := blake3.Sum256(seed)
	idx := binary.BigEndian.Uint64(digest[:8]) % uint64(len(active))
	leader := active[idx]
	leader.RoundsLed++
	return leader, net.clients[leader.ID], nil
}

// Decrypt runs threshold decryption for each ciphertext in turn. Partials
// with invalid proofs are rejected and their senders slashed; the call
// gathers one spare partial beyond t so that combination cross-checks share
// consistency. Alongside the plaintexts it returns the sorted IDs of every
// node whose partial served a combination, for reward distribution.
func (net *Network) Decrypt(ctx context.Context, round uint64, cts []*elgamal.Ciphertext) ([]uint64, []string, error) {
	out := make([]uint64, len(cts))
	seen := make(map[string]bool)
	for i, ct := range cts {
		m, ids, err := net.decryptOne(ctx, round, ct)
		if err != nil {
			return nil, nil, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		out[i] = m
		for _, id := range ids {
			seen[id] = true
		}
	}
	participants := make([]string, 0, len(seen))
	for id := range seen {
		participants = append(participants, id)
	}
	sort.Strings(participants)
	return out, participants, nil
}

type partialResult struct {
	nodeID string
	pd     *threshold.PartialDecryption
	err    error
}

func (net *Network) decryptOne(ctx context.Context, round uint64, ct *elgamal.Ciphertext) (uint64, []string, error) {
	net.mu.Lock()
	active := net.activeLocked()
	clients := make([]Client, len(active))
	keys := make(map[string]*Node, len(active))
	for i, node := range active {
		clients[i] = net.clients[node.ID]
		keys[node.ID] = node
	}
	t := net.threshold
	timeout := net.requestTimeout
	net.mu.Unlock()

	if len(active) < t {
		return 0, nil, fmt.Errorf("%w: %d of %d", ErrNotEnoughExecutors, len(active), t)
	}

	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan partialResult, len(clients))
	group, groupCtx := errgroup.WithContext(fanCtx)
	for _, client := range clients {
		client := client
		group.Go(func() error {
			reqCtx, reqCancel := context.WithTimeout(groupCtx, timeout)
			defer reqCancel()
			pd, err := client.PartialDecrypt(reqCtx, ct)
			select {
			case results <- partialResult{nodeID: client.ID(), pd: pd, err: err}:
			case <-groupCtx.Done():
			}
			return nil
		})
	}
	go func() {
		_ = group.Wait()
		close(results)
	}()

	// Gather t+1 valid partials when possible: the spare lets Combine detect
	// a wrong share even when its proof checked out against a stale key.
	want := t + 1
	if want > len(clients) {
		want = t
	}
	var valid []*threshold.PartialDecryption
	contributors := make(map[uint16]string)
	for res := range results {
		if res.err != nil {
			net.log.WithFields(logrus.Fields{"node": res.nodeID, "err": res.err}).Warn("partial decryption request failed")
			continue
		}
		node := keys[res.nodeID]
		if !res.pd.Verify(node.VerificationKey, ct) {
			net.mu.Lock()
			net.slashLocked(node, ViolationBadDecryption, round, "invalid partial decryption proof")
			net.mu.Unlock()
			continue
		}
		valid = append(valid, res.pd)
		contributors[res.pd.Index] = res.nodeID
		if len(valid) >= want {
			cancel()
			break
		}
	}

	if len(valid) < t {
		return 0, nil, fmt.Errorf("%w: %d of %d valid partials", ErrDecryptionFailed, len(valid), t)
	}

	m, err := threshold.Combine(valid, ct, t)
	if errors.Is(err, threshold.ErrShareMismatch) {
		// A contributor holds a share inconsistent with the registered
		// epoch sharing. All contributors are slashed; honest ones recover
		// through the dispute path once the culprit is pinned down.
		net.mu.Lock()
		for _, pd := range valid {
			if node, ok := net.nodes[contributors[pd.Index]]; ok {
				net.slashLocked(node, ViolationBadDecryption, round, "share subset disagreement")
			}
		}
		net.mu.Unlock()
		return 0, nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	ids := make([]string, 0, len(valid))
	for _, pd := range valid {
		ids = append(ids, contributors[pd.Index])
	}
	return m, ids, nil
}

// Violations returns all recorded slashing events.
func (net *Network) Violations() []*Violation {
	net.mu.Lock()
	defer net.mu.Unlock()
	out := make([]*Violation, len(net.violations))
	copy(out, net.violations)
	return out
}

// NodeStatus is a point-in-time snapshot of one node.
type NodeStatus struct {
	ID         string `json:"id"`
	Stake      uint64 `json:"stake"`
	Active     bool   `json:"active"`
	PerfScore  int    `json:"perf_score"`
	SlashCount int    `json:"slash_count"`
	RoundsLed  uint64 `json:"rounds_led"`
}

// Status is a point-in-time snapshot of the network.
type Status struct {
	Threshold  int          `json:"threshold"`
	Total      int          `json:"total"`
	Active     int          `json:"active"`
	TotalStake uint64       `json:"total_stake"`
	Nodes      []NodeStatus `json:"nodes"`
}

// Snapshot returns the current network status, nodes sorted by ID.
func (net *Network) Snapshot() Status {
	net.mu.Lock()
	defer net.mu.Unlock()
	s := Status{Threshold: net.threshold}
	for _, node := range net.nodes {
		s.Total++
		if node.Active {
			s.Active++
		}
		s.TotalStake += node.Stake
		s.Nodes = append(s.Nodes, NodeStatus{
			ID:         node.ID,
			Stake:      node.Stake,
			Active:     node.Active,
			PerfScore:  node.PerfScore,
			SlashCount: node.SlashCount,
			RoundsLed:  node.RoundsLed,
		})
	}
	sort.Slice(s.Nodes, func(i, j int) bool { return s.Nodes[i].ID < s.Nodes[j].ID })
	return s
}
