package ledger

import (
	"context"
	"sync"

	"github.com/zeebo/blake3"
)

// Memory is an in-process Ledger for tests and single-node deployments. Each
// blockhash query advances a synthetic chain so consecutive rounds see
// distinct chain state.
type Memory struct {
	mu          sync.Mutex
	height      uint64
	head        [32]byte
	starts      []*RoundStart
	settlements []*Settlement
}

var _ Ledger = (*Memory)(nil)

// NewMemory returns an empty in-memory ledger seeded from genesis.
func NewMemory(genesis [32]byte) *Memory {
	return &Memory{head: genesis}
}

// LatestBlockhash returns the current head and advances the chain.
func (m *Memory) LatestBlockhash(_ context.Context) ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	head := m.head
	m.height++
	m.head = blake3.Sum256(append(m.head[:], byte(m.height), byte(m.height>>8)))
	return head, nil
}

func (m *Memory) SubmitRoundStart(_ context.Context, start *RoundStart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, start)
	return nil
}

func (m *Memory) SubmitSettlement(_ context.Context, settlement *Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements = append(m.settlements, settlement)
	return nil
}

// RoundStarts returns all published round announcements.
func (m *Memory) RoundStarts() []*RoundStart {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*RoundStart, len(m.starts))
	copy(out, m.starts)
	return out
}

// Settlements returns all published settlements.
func (m *Memory) Settlements() []*Settlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Settlement, len(m.settlements))
	copy(out, m.settlements)
	return out
}
