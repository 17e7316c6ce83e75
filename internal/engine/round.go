package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phantompool/darkpool/internal/executor"
	"github.com/phantompool/darkpool/internal/ledger"
	"github.com/phantompool/darkpool/internal/order"
	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/hash"
	"github.com/phantompool/darkpool/pkg/shuffle"
	"github.com/phantompool/darkpool/pkg/solvency"
	"github.com/phantompool/darkpool/pkg/vrf"
)

// RoundReport summarizes one completed matching round.
type RoundReport struct {
	Pair      string
	Round     uint64
	Leader    string
	OrdersIn  int
	Excluded  int
	Matches   []*order.Match
	TotalFees uint64
	// Commitment binds the published matches to the decrypted order flow;
	// Decommitment opens it during a dispute.
	Commitment   hash.Commitment
	Decommitment hash.Decommitment
	StartedAt    time.Time
	Duration     time.Duration
}

// RunMatchingRound executes one full round for the pair: shuffle the open
// orders under the leader's VRF, threshold-decrypt them, clear crossing
// orders at the midpoint, and publish the results.
//
// A book with no crossing potential (no bids or no asks) skips the round and
// returns a nil report. On any failure the book reverts to collecting with
// its orders intact.
func (e *Engine) RunMatchingRound(ctx context.Context, pair string) (*RoundReport, error) {
	started := e.now()

	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return nil, ErrPaused
	}
	b, ok := e.books[pair]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	if !b.state.accepting() {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: book is %s", ErrRoundInProgress, b.state)
	}

	excluded := e.expireStaleLocked(b)
	hashes, orders := b.openOrders()
	if !crossingPossible(orders) {
		e.mu.Unlock()
		return nil, nil
	}

	b.round++
	round := b.round
	b.state = StateShuffling
	e.mu.Unlock()

	log := e.log.WithFields(logrus.Fields{"pair": pair, "round": round})
	report, err := e.runRound(ctx, log, b, round, hashes, orders)
	if err != nil {
		e.mu.Lock()
		b.state = StateCollecting
		e.mu.Unlock()
		log.WithError(err).Error("round aborted")
		return nil, err
	}

	report.Excluded = excluded
	report.StartedAt = started
	report.Duration = e.now().Sub(started)

	e.mu.Lock()
	e.history = append(e.history, report)
	b.stats.Rounds++
	b.stats.TotalTrades += uint64(len(report.Matches))
	b.stats.TotalFees += report.TotalFees
	for _, m := range report.Matches {
		b.stats.TotalVolume += m.Amount
	}
	e.mu.Unlock()
	log.WithFields(logrus.Fields{
		"matches": len(report.Matches),
		"fees":    report.TotalFees,
	}).Info("round settled")
	return report, nil
}

// expireStaleLocked cancels orders whose solvency proofs have aged out of the
// freshness window since submission. Verification runs on the worker pool.
func (e *Engine) expireStaleLocked(b *book) int {
	_, orders := b.openOrders()
	if len(orders) == 0 {
		return 0
	}
	now := e.now()
	freshness := e.cfg.Freshness()
	results := e.workers.Parallelize(len(orders), func(i int) interface{} {
		return solvency.Verify(orders[i].Solvency, now, freshness)
	})

	expired := 0
	for i, res := range results {
		if res == nil {
			continue
		}
		orders[i].Status = order.StatusCancelled
		expired++
	}
	if expired > 0 {
		b.compact()
	}
	return expired
}

func crossingPossible(orders []*order.Order) bool {
	var bids, asks bool
	for _, o := range orders {
		switch o.Side {
		case order.Bid:
			bids = true
		case order.Ask:
			asks = true
		}
	}
	return bids && asks
}

func (e *Engine) runRound(ctx context.Context, log *logrus.Entry, b *book, round uint64, hashes [][32]byte, orders []*order.Order) (*RoundReport, error) {
	// Shuffling: derive the seed from chain state and the order set, have the
	// leader evaluate its VRF, and verify before trusting the permutation.
	blockhash, err := e.ledger.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: blockhash: %w", err)
	}
	seed := shuffle.DeriveSeed(round, blockhash, hashes)

	leader, client, err := e.network.SelectLeader(seed)
	if err != nil {
		return nil, err
	}
	proof, err := client.ProveShuffle(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("engine: shuffle proof: %w", err)
	}
	if !vrf.Verify(leader.VRFKey, seed, proof) {
		_, _ = e.network.ReportViolation(leader.ID, executor.ViolationBadShuffle, round, "vrf proof rejected")
		return nil, fmt.Errorf("engine: leader %s produced invalid shuffle proof", leader.ID)
	}
	perm := shuffle.Indices(len(orders), proof.Output)
	shuffledHashes := shuffle.Apply(hashes, perm)
	shuffledOrders := shuffle.Apply(orders, perm)

	proofBytes, err := proof.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("engine: shuffle proof: %w", err)
	}
	if err := e.ledger.SubmitRoundStart(ctx, &ledger.RoundStart{
		Pair:        b.pair,
		Round:       round,
		Blockhash:   blockhash,
		Seed:        seed,
		VRFProof:    proofBytes,
		OrderHashes: shuffledHashes,
		StartedAt:   e.now(),
	}); err != nil {
		return nil, fmt.Errorf("engine: round start: %w", err)
	}

	// Decrypting: two ciphertexts per order, amount then price.
	e.setState(b, StateDecrypting)
	cts := make([]*elgamal.Ciphertext, 0, 2*len(shuffledOrders))
	for _, o := range shuffledOrders {
		cts = append(cts, o.EncryptedAmount, o.EncryptedPrice)
	}
	plaintexts, participants, err := e.network.Decrypt(ctx, round, cts)
	if err != nil {
		return nil, err
	}

	// Clearing: size-filter, match at the midpoint, and charge fees. Drops
	// are only recorded here; their cancellation lands with the other status
	// changes after the settlement is accepted, so an aborted round leaves
	// the book untouched.
	e.setState(b, StateClearing)
	plains := make([]plainOrder, 0, len(shuffledOrders))
	var dropped [][32]byte
	for i, o := range shuffledOrders {
		amount, price := plaintexts[2*i], plaintexts[2*i+1]
		if amount < e.cfg.Round.MinOrderSize || amount > e.cfg.Round.MaxOrderSize || price == 0 {
			log.WithField("order", fmt.Sprintf("%x", shuffledHashes[i][:8])).Warn("order outside size limits, dropped")
			dropped = append(dropped, shuffledHashes[i])
			continue
		}
		plains = append(plains, plainOrder{
			hash:   shuffledHashes[i],
			side:   o.Side,
			amount: amount,
			price:  price,
			pos:    i,
		})
	}
	matches, filled, exhausted := clear(b.pair, round, plains, e.cfg.Round.FeeBps)

	// The settlement artifact commits to the full decrypted flow, matched or
	// not, so a dispute can audit exclusions too.
	transcript := hash.New("darkpool/round/settlement")
	_ = transcript.WriteAny(b.pair, round, seed)
	items := make([]interface{}, 0, 4*len(plains))
	for _, p := range plains {
		items = append(items, p.hash, uint64(p.side), p.amount, p.price)
	}
	commitment, decommitment, err := transcript.Commit(items...)
	if err != nil {
		return nil, fmt.Errorf("engine: settlement commitment: %w", err)
	}

	var totalFees uint64
	for _, m := range matches {
		totalFees += m.Fee
	}
	if err := e.ledger.SubmitSettlement(ctx, &ledger.Settlement{
		Pair:      b.pair,
		Round:     round,
		Matches:   matches,
		Artifact:  commitment,
		SettledAt: e.now(),
	}); err != nil {
		return nil, fmt.Errorf("engine: settlement: %w", err)
	}

	e.setState(b, StateSettled)
	if err := e.applyFills(b, filled, exhausted, dropped); err != nil {
		return nil, err
	}
	e.rewardExecutors(totalFees, leader.ID, participants)

	return &RoundReport{
		Pair:         b.pair,
		Round:        round,
		Leader:       leader.ID,
		OrdersIn:     len(orders),
		Matches:      matches,
		TotalFees:    totalFees,
		Commitment:   commitment,
		Decommitment: decommitment,
	}, nil
}

func (e *Engine) setState(b *book, s State) {
	e.mu.Lock()
	b.state = s
	e.mu.Unlock()
}

// applyFills updates order statuses after settlement: size-limit drops are
// cancelled and fills are applied. Partially filled orders keep riding the
// book: the filled quantity is homomorphically subtracted from the encrypted
// amount, so no re-encryption by the trader is needed.
func (e *Engine) applyFills(b *book, filled map[[32]byte]uint64, exhausted map[[32]byte]bool, dropped [][32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range dropped {
		if o, ok := b.orders[h]; ok {
			o.Status = order.StatusCancelled
		}
	}
	for h, qty := range filled {
		o, ok := b.orders[h]
		if !ok || qty == 0 {
			continue
		}
		if exhausted[h] {
			o.Status = order.StatusFilled
			continue
		}
		encFilled, _, err := elgamal.Encrypt(rand.Reader, e.poolKey, qty)
		if err != nil {
			return fmt.Errorf("engine: carryover: %w", err)
		}
		o.EncryptedAmount = elgamal.Sub(o.EncryptedAmount, encFilled)
		o.Status = order.StatusPartiallyFilled
	}
	b.compact()
	if len(b.arrival) == 0 {
		b.state = StateIdle
	} else {
		b.state = StateCollecting
	}
	return nil
}

// rewardExecutors pays the round's fees to the leader and the nodes whose
// partials served decryption; the network weights each share by performance.
func (e *Engine) rewardExecutors(totalFees uint64, leaderID string, participants []string) {
	if totalFees == 0 {
		return
	}
	ids := make([]string, 0, len(participants)+1)
	ids = append(ids, participants...)
	seen := false
	for _, id := range ids {
		if id == leaderID {
			seen = true
			break
		}
	}
	if !seen {
		ids = append(ids, leaderID)
	}
	e.network.RewardRound(ids, totalFees)
}

// plainOrder is a decrypted order during the clearing phase.
type plainOrder struct {
	hash   [32]byte
	side   order.Side
	amount uint64
	price  uint64
	// pos is the order's slot in the verified shuffle; it is the only
	// priority tiebreak.
	pos int
}

// clear matches bids against asks. Bids are taken highest price first, asks
// lowest first, shuffle position breaking ties; each cross settles at the
// floor midpoint of the two limit prices.
func clear(pair string, round uint64, plains []plainOrder, feeBps uint64) ([]*order.Match, map[[32]byte]uint64, map[[32]byte]bool) {
	var bids, asks []plainOrder
	for _, p := range plains {
		switch p.side {
		case order.Bid:
			bids = append(bids, p)
		case order.Ask:
			asks = append(asks, p)
		}
	}
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].price != bids[j].price {
			return bids[i].price > bids[j].price
		}
		return bids[i].pos < bids[j].pos
	})
	sort.Slice(asks, func(i, j int) bool {
		if asks[i].price != asks[j].price {
			return asks[i].price < asks[j].price
		}
		return asks[i].pos < asks[j].pos
	})

	var matches []*order.Match
	filled := make(map[[32]byte]uint64)
	exhausted := make(map[[32]byte]bool)
	bi, ai := 0, 0
	for bi < len(bids) && ai < len(asks) {
		bid, ask := &bids[bi], &asks[ai]
		if bid.price < ask.price {
			break
		}
		amount := bid.amount
		if ask.amount < amount {
			amount = ask.amount
		}
		price := (bid.price + ask.price) / 2
		matches = append(matches, &order.Match{
			Pair:          pair,
			Round:         round,
			BuyOrderHash:  bid.hash,
			SellOrderHash: ask.hash,
			Amount:        amount,
			Price:         price,
			Fee:           amount * feeBps / 10_000,
		})
		filled[bid.hash] += amount
		filled[ask.hash] += amount

		bid.amount -= amount
		ask.amount -= amount
		if bid.amount == 0 {
			exhausted[bid.hash] = true
			bi++
		}
		if ask.amount == 0 {
			exhausted[ask.hash] = true
			ai++
		}
	}
	return matches, filled, exhausted
}
