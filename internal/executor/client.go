package executor

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/phantompool/darkpool/pkg/elgamal"
	"github.com/phantompool/darkpool/pkg/threshold"
	"github.com/phantompool/darkpool/pkg/vrf"
)

// Client is the transport to one executor node. Implementations carry the
// request over whatever wire the deployment uses; LocalClient runs in
// process.
type Client interface {
	ID() string
	// PartialDecrypt asks the node for its share's contribution on ct.
	PartialDecrypt(ctx context.Context, ct *elgamal.Ciphertext) (*threshold.PartialDecryption, error)
	// ProveShuffle asks the node to evaluate its VRF on the round seed.
	ProveShuffle(ctx context.Context, seed []byte) (*vrf.Proof, error)
}

// LocalClient holds a node's private material and answers requests directly.
type LocalClient struct {
	id     string
	share  *threshold.Share
	vrfKey *vrf.SecretKey
}

var _ Client = (*LocalClient)(nil)

func (c *LocalClient) ID() string { return c.id }

func (c *LocalClient) PartialDecrypt(ctx context.Context, ct *elgamal.Ciphertext) (*threshold.PartialDecryption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ct.Valid() {
		return nil, fmt.Errorf("executor: %s: invalid ciphertext", c.id)
	}
	return c.share.PartialDecrypt(rand.Reader, ct), nil
}

func (c *LocalClient) ProveShuffle(ctx context.Context, seed []byte) (*vrf.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.vrfKey.Prove(seed), nil
}

// Bootstrap generates a pool key, splits it t-of-n, and returns the pool
// public key together with one node descriptor and local client per share.
// Production deployments run a DKG instead; this path serves tests and
// single-operator networks.
func Bootstrap(random io.Reader, t, n int, stake uint64) (*elgamal.PublicKey, []*Node, []*LocalClient, error) {
	sk, pk := elgamal.KeyGen(random)
	shares, err := threshold.Split(random, sk, t, n)
	if err != nil {
		return nil, nil, nil, err
	}

	nodes := make([]*Node, n)
	clients := make([]*LocalClient, n)
	for i, share := range shares {
		vrfSecret, vrfPublic, err := vrf.GenerateKey(random)
		if err != nil {
			return nil, nil, nil, err
		}
		id := fmt.Sprintf("node-%d", share.Index)
		nodes[i] = &Node{
			ID:              id,
			Stake:           stake,
			ShareIndex:      share.Index,
			VerificationKey: share.VerificationKey(),
			VRFKey:          vrfPublic,
			Active:          true,
			PerfScore:       perfMax,
		}
		clients[i] = &LocalClient{id: id, share: share, vrfKey: vrfSecret}
	}
	return pk, nodes, clients, nil
}
