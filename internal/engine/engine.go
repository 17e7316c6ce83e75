// Package engine runs the matching rounds: it collects encrypted orders,
// drives the shuffle, threshold decryption and clearing phases, and publishes
// the results to the settlement ledger.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phantompool/darkpool/internal/config"
	"github.com/phantompool/darkpool/internal/executor"
	"github.com/phantompool/darkpool/internal/ledger"
	"github.com/phantompool/darkpool/internal/order"
	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/pool"
	"github.com/phantompool/darkpool/pkg/solvency"
)

var (
	// ErrPaused is returned while the engine is administratively paused.
	ErrPaused = errors.New("engine: paused")

	// ErrUnknownPair is returned for pairs the engine was not configured with.
	ErrUnknownPair = errors.New("engine: unknown pair")

	// ErrInvalidSolvency is returned when an order's solvency proof is
	// rejected, stale, or its nullifier was already seen.
	ErrInvalidSolvency = errors.New("engine: invalid solvency proof")

	// ErrDuplicateOrder is returned when an identical order is resubmitted.
	ErrDuplicateOrder = errors.New("engine: duplicate order")

	// ErrRoundInProgress is returned when the book cannot accept the
	// operation in its current phase.
	ErrRoundInProgress = errors.New("engine: round in progress")

	// ErrNotOwner is returned when a cancellation names the wrong owner.
	ErrNotOwner = errors.New("engine: not order owner")

	// ErrUnknownOrder is returned when the order hash is not in the book.
	ErrUnknownOrder = errors.New("engine: unknown order")
)

// Engine coordinates all order books over one executor network.
type Engine struct {
	mu sync.Mutex

	cfg     *config.Config
	log     *logrus.Entry
	ledger  ledger.Ledger
	network *executor.Network
	poolKey *elgamal.PublicKey

	nullifiers *solvency.NullifierSet
	books      map[string]*book
	paused     bool

	workers *pool.Pool
	history []*RoundReport

	now func() time.Time
}

// New builds an engine for the configured pairs.
func New(cfg *config.Config, log *logrus.Logger, led ledger.Ledger, network *executor.Network, poolKey *elgamal.PublicKey) *Engine {
	e := &Engine{
		cfg:        cfg,
		log:        log.WithField("component", "engine"),
		ledger:     led,
		network:    network,
		poolKey:    poolKey,
		nullifiers: solvency.NewNullifierSet(),
		books:      make(map[string]*book),
		workers:    pool.NewPool(cfg.Workers),
		now:        time.Now,
	}
	for _, pair := range cfg.Pairs {
		e.books[pair] = newBook(pair)
	}
	return e
}

// Close tears down the engine's worker pool.
func (e *Engine) Close() {
	e.workers.TearDown()
}

// PoolKey returns the encryption key traders encrypt their orders under.
func (e *Engine) PoolKey() *elgamal.PublicKey {
	return e.poolKey
}

// Pause stops order intake and round execution.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.log.Warn("engine paused")
}

// Resume lifts a pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.log.Info("engine resumed")
}

// SubmitOrder admits an encrypted order into its pair's book and returns the
// order hash. The solvency proof is verified and its nullifier burned before
// anything is stored.
func (e *Engine) SubmitOrder(o *order.Order) ([32]byte, error) {
	var zero [32]byte
	if err := o.Validate(); err != nil {
		return zero, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return zero, ErrPaused
	}
	b, ok := e.books[o.Pair]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownPair, o.Pair)
	}
	if !b.state.accepting() {
		return zero, fmt.Errorf("%w: book is %s", ErrRoundInProgress, b.state)
	}

	if err := solvency.Verify(o.Solvency, e.now(), e.cfg.Freshness()); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidSolvency, err)
	}

	h := o.Hash()
	if _, exists := b.orders[h]; exists {
		return zero, ErrDuplicateOrder
	}
	if !e.nullifiers.Observe(o.Solvency.Nullifier) {
		return zero, fmt.Errorf("%w: nullifier replayed", ErrInvalidSolvency)
	}

	o.SubmittedAt = e.now()
	o.Status = order.StatusPending
	b.orders[h] = o
	b.arrival = append(b.arrival, h)
	if b.state == StateIdle {
		b.state = StateCollecting
	}

	e.log.WithFields(logrus.Fields{
		"pair":  o.Pair,
		"side":  o.Side.String(),
		"order": fmt.Sprintf("%x", h[:8]),
	}).Info("order accepted")
	return h, nil
}

// CancelOrder removes an open order. Only the owner may cancel, and only
// while the book is accepting; once a round is in flight the order rides it
// out.
func (e *Engine) CancelOrder(pair string, h [32]byte, owner string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[pair]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	if !b.state.accepting() {
		return fmt.Errorf("%w: book is %s", ErrRoundInProgress, b.state)
	}
	o, ok := b.orders[h]
	if !ok {
		return ErrUnknownOrder
	}
	if o.Owner != owner {
		return ErrNotOwner
	}
	if !o.Status.Open() {
		return fmt.Errorf("engine: order already %s", o.Status)
	}
	o.Status = order.StatusCancelled
	b.compact()
	if len(b.arrival) == 0 {
		b.state = StateIdle
	}
	return nil
}

// PairStats accumulates a pair's lifetime totals across settled rounds.
type PairStats struct {
	Pair        string `json:"pair"`
	Rounds      uint64 `json:"rounds"`
	TotalTrades uint64 `json:"total_trades"`
	// TotalVolume sums matched amounts, fixed-point with six decimals.
	TotalVolume uint64 `json:"total_volume"`
	TotalFees   uint64 `json:"total_fees"`
}

// PairStats returns the cumulative totals for a pair.
func (e *Engine) PairStats(pair string) (PairStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[pair]
	if !ok {
		return PairStats{}, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	return b.stats, nil
}

// BookStats is the public view of one pair's book. Amounts and prices are
// encrypted, so only counts are reported.
type BookStats struct {
	Pair    string `json:"pair"`
	State   string `json:"state"`
	Round   uint64 `json:"round"`
	Bids    int    `json:"bids"`
	Asks    int    `json:"asks"`
	Partial int    `json:"partially_filled"`
}

// OrderBookStats reports the current shape of a pair's book.
func (e *Engine) OrderBookStats(pair string) (BookStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[pair]
	if !ok {
		return BookStats{}, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	stats := BookStats{Pair: pair, State: b.state.String(), Round: b.round}
	for _, h := range b.arrival {
		o := b.orders[h]
		if o == nil || !o.Status.Open() {
			continue
		}
		switch o.Side {
		case order.Bid:
			stats.Bids++
		case order.Ask:
			stats.Asks++
		}
		if o.Status == order.StatusPartiallyFilled {
			stats.Partial++
		}
	}
	return stats, nil
}

// ExecutorStatus reports the executor network snapshot.
func (e *Engine) ExecutorStatus() executor.Status {
	return e.network.Snapshot()
}

// History returns reports for all completed rounds.
func (e *Engine) History() []*RoundReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*RoundReport, len(e.history))
	copy(out, e.history)
	return out
}
