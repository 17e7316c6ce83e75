package executor

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantompool/darkpool/internal/config"
	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/math/sample"
	"github.com/phantompool/darkpool/pkg/threshold"
	"github.com/phantompool/darkpool/pkg/vrf"
)

func testConfig() config.ExecutorConfig {
	return config.ExecutorConfig{
		HeartbeatSeconds: 1,
		RequestTimeoutMS: 2000,
		MinStake:         1_000,
		SlashLimit:       3,
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testNetwork(t *testing.T, tt, n int) (*Network, *elgamal.PublicKey, []*Node) {
	t.Helper()
	pk, nodes, clients, err := Bootstrap(rand.Reader, tt, n, 10_000)
	require.NoError(t, err)
	net := NewNetwork(testConfig(), tt, testLogger())
	for i, node := range nodes {
		require.NoError(t, net.Register(node, clients[i]))
	}
	return net, pk, nodes
}

func TestDecrypt(t *testing.T) {
	net, pk, _ := testNetwork(t, 2, 4)

	a, _, err := elgamal.Encrypt(rand.Reader, pk, 151)
	require.NoError(t, err)
	b, _, err := elgamal.Encrypt(rand.Reader, pk, 10_000_000)
	require.NoError(t, err)

	out, participants, err := net.Decrypt(context.Background(), 1, []*elgamal.Ciphertext{a, b})
	require.NoError(t, err)
	assert.Equal(t, []uint64{151, 10_000_000}, out)
	assert.GreaterOrEqual(t, len(participants), 3, "t+1 partials serve each combination")
}

func TestDecryptBelowThreshold(t *testing.T) {
	net, pk, nodes := testNetwork(t, 3, 3)
	for _, node := range nodes[:2] {
		_, err := net.ReportViolation(node.ID, ViolationBadShuffle, 0, "test")
		require.NoError(t, err)
	}
	require.Len(t, net.ActiveNodes(), 1)

	ct, _, err := elgamal.Encrypt(rand.Reader, pk, 1)
	require.NoError(t, err)
	_, _, err = net.Decrypt(context.Background(), 1, []*elgamal.Ciphertext{ct})
	assert.ErrorIs(t, err, ErrNotEnoughExecutors)
}

// badClient returns forged partials built from a random share.
type badClient struct {
	id    string
	share *threshold.Share
}

func (c *badClient) ID() string { return c.id }

func (c *badClient) PartialDecrypt(_ context.Context, ct *elgamal.Ciphertext) (*threshold.PartialDecryption, error) {
	return c.share.PartialDecrypt(rand.Reader, ct), nil
}

func (c *badClient) ProveShuffle(context.Context, []byte) (*vrf.Proof, error) {
	return nil, context.Canceled
}

func TestDecryptSlashesForgedPartial(t *testing.T) {
	pk, nodes, clients, err := Bootstrap(rand.Reader, 2, 3, 10_000)
	require.NoError(t, err)
	net := NewNetwork(testConfig(), 2, testLogger())

	// node-1 answers with a share it does not hold.
	forged := &threshold.Share{Index: nodes[0].ShareIndex, Value: sample.Scalar(rand.Reader), Threshold: 2}
	require.NoError(t, net.Register(nodes[0], &badClient{id: nodes[0].ID, share: forged}))
	for i := 1; i < 3; i++ {
		require.NoError(t, net.Register(nodes[i], clients[i]))
	}

	ct, _, err := elgamal.Encrypt(rand.Reader, pk, 55)
	require.NoError(t, err)
	out, participants, err := net.Decrypt(context.Background(), 1, []*elgamal.Ciphertext{ct})
	require.NoError(t, err, "honest majority must still decrypt")
	assert.Equal(t, []uint64{55}, out)
	assert.NotContains(t, participants, nodes[0].ID, "a rejected partial earns no reward")

	violations := net.Violations()
	require.NotEmpty(t, violations)
	assert.Equal(t, nodes[0].ID, violations[0].NodeID)
	assert.Equal(t, ViolationBadDecryption, violations[0].Kind)
	assert.EqualValues(t, 1_000, violations[0].Amount, "bad decryption burns 10%")
}

func TestHeartbeatLiveness(t *testing.T) {
	net, _, nodes := testNetwork(t, 2, 3)
	interval := time.Second
	base := time.Now()

	for _, node := range nodes {
		require.NoError(t, net.Heartbeat(node.ID, base))
	}

	// Two of three keep beating; one goes dark past the slashing horizon.
	later := base.Add(6 * interval)
	require.NoError(t, net.Heartbeat(nodes[0].ID, later))
	require.NoError(t, net.Heartbeat(nodes[1].ID, later))

	violations := net.CheckLiveness(later)
	require.Len(t, violations, 1)
	assert.Equal(t, nodes[2].ID, violations[0].NodeID)
	assert.Equal(t, ViolationMissedHeartbeats, violations[0].Kind)
	assert.EqualValues(t, 100, violations[0].Amount, "liveness burns 1%")
	assert.Len(t, net.ActiveNodes(), 2)

	// The node comes back and is reactivated.
	require.NoError(t, net.Heartbeat(nodes[2].ID, later.Add(interval)))
	assert.Len(t, net.ActiveNodes(), 3)
}

func TestLivenessSlashUnderPeriodicSweep(t *testing.T) {
	net, _, nodes := testNetwork(t, 2, 3)
	interval := time.Second
	base := time.Now()
	for _, node := range nodes {
		require.NoError(t, net.Heartbeat(node.ID, base))
	}

	// Two of three keep beating every interval; the third stays dark through
	// every sweep. Deactivation at the first stale sweep must not shield it
	// from the liveness slash a few sweeps later.
	var violations []*Violation
	for i := 1; i <= 10; i++ {
		now := base.Add(time.Duration(i) * interval)
		require.NoError(t, net.Heartbeat(nodes[0].ID, now))
		require.NoError(t, net.Heartbeat(nodes[1].ID, now))
		violations = append(violations, net.CheckLiveness(now)...)
	}
	require.Len(t, violations, 1, "exactly one slash per silence episode")
	assert.Equal(t, nodes[2].ID, violations[0].NodeID)
	assert.Equal(t, ViolationMissedHeartbeats, violations[0].Kind)
	assert.EqualValues(t, 100, violations[0].Amount, "liveness burns 1%")
	assert.False(t, nodes[2].Active)

	// Recovery closes the episode; going dark again earns a fresh slash.
	require.NoError(t, net.Heartbeat(nodes[2].ID, base.Add(11*interval)))
	require.Len(t, net.ActiveNodes(), 3)
	late := base.Add(20 * interval)
	require.NoError(t, net.Heartbeat(nodes[0].ID, late))
	require.NoError(t, net.Heartbeat(nodes[1].ID, late))
	assert.Len(t, net.CheckLiveness(late), 1)
}

func TestRewardRoundWeightsByPerformance(t *testing.T) {
	net, _, nodes := testNetwork(t, 2, 3)

	// Dent node-3's score so the weights are 100:100:80.
	_, err := net.ReportViolation(nodes[2].ID, ViolationMissedHeartbeats, 0, "test")
	require.NoError(t, err)
	require.Equal(t, 80, nodes[2].PerfScore)
	before := []uint64{nodes[0].Stake, nodes[1].Stake, nodes[2].Stake}

	net.RewardRound([]string{nodes[0].ID, nodes[1].ID, nodes[2].ID}, 280)
	assert.Equal(t, before[0]+100, nodes[0].Stake)
	assert.Equal(t, before[1]+100, nodes[1].Stake)
	assert.Equal(t, before[2]+80, nodes[2].Stake)

	// Nodes outside the served set are not paid.
	net.RewardRound([]string{nodes[0].ID}, 50)
	assert.Equal(t, before[0]+150, nodes[0].Stake)
	assert.Equal(t, before[1]+100, nodes[1].Stake)
}

func TestSlashLimitDeactivates(t *testing.T) {
	net, _, nodes := testNetwork(t, 2, 3)
	for i := 0; i < 3; i++ {
		_, err := net.ReportViolation(nodes[0].ID, ViolationBadDecryption, uint64(i), "test")
		require.NoError(t, err)
	}
	assert.False(t, nodes[0].Active)
	assert.Zero(t, nodes[0].PerfScore)

	// A heartbeat does not resurrect a node at the slash limit.
	require.NoError(t, net.Heartbeat(nodes[0].ID, time.Now()))
	assert.Len(t, net.ActiveNodes(), 2)
}

func TestBadShuffleBurnsHalf(t *testing.T) {
	net, _, nodes := testNetwork(t, 2, 3)
	v, err := net.ReportViolation(nodes[0].ID, ViolationBadShuffle, 1, "vrf proof rejected")
	require.NoError(t, err)
	assert.EqualValues(t, 5_000, v.Amount)
	assert.EqualValues(t, 5_000, nodes[0].Stake)

	assert.True(t, nodes[0].Active, "one offense leaves the node above limits")
}

func TestSelectLeaderDeterministic(t *testing.T) {
	net, _, _ := testNetwork(t, 2, 4)
	a, _, err := net.SelectLeader([]byte("seed"))
	require.NoError(t, err)
	b, _, err := net.SelectLeader([]byte("seed"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.EqualValues(t, 2, a.RoundsLed)
}

func TestRegisterRejectsLowStake(t *testing.T) {
	net := NewNetwork(testConfig(), 2, testLogger())
	err := net.Register(&Node{ID: "poor", Stake: 10}, nil)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	net, _, _ := testNetwork(t, 2, 3)
	s := net.Snapshot()
	assert.Equal(t, 2, s.Threshold)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 3, s.Active)
	assert.EqualValues(t, 30_000, s.TotalStake)
	require.Len(t, s.Nodes, 3)
	assert.Equal(t, "node-1", s.Nodes[0].ID)
}
