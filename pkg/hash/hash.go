// Package hash provides the domain-separated transcript hash used for
// order hashes, proof challenges and round binding artifacts.
package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the default output length, double the security level.
const DigestLengthBytes = 64

// Hash wraps blake3 with domain separation for the exchange's data types.
//
// Internally this is a wrapper around blake3.Hasher, but any hash function
// with an easily extendable output would work as well.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash, writing an initial domain tag to the state.
func New(domain string) *Hash {
	hash := &Hash{h: blake3.New()}
	_, _ = hash.h.Write([]byte(domain))
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current
// hash state. If a different length is required, read from Digest instead.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.Sum: internal hash failure: %v", err))
	}
	return out
}

// Sum32 returns a 32-byte digest of the current hash state.
func (hash *Hash) Sum32() [32]byte {
	var out [32]byte
	if _, err := io.ReadFull(hash.Digest(), out[:]); err != nil {
		panic(fmt.Sprintf("hash.Sum32: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Currently supported types:
//
//   - []byte
//   - [32]byte
//   - uint64
//   - string
//   - hash.WriterToWithDomain
//
// The function applies its own domain separation for the plain types; the
// last type already carries its domain.
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		var err error
		switch t := d.(type) {
		case []byte:
			err = writeWithDomain(hash.h, BytesWithDomain{"[]byte", t})
		case [32]byte:
			err = writeWithDomain(hash.h, BytesWithDomain{"[32]byte", t[:]})
		case uint64:
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], t)
			err = writeWithDomain(hash.h, BytesWithDomain{"uint64", buf[:]})
		case string:
			err = writeWithDomain(hash.h, BytesWithDomain{"string", []byte(t)})
		case WriterToWithDomain:
			err = writeWithDomain(hash.h, t)
		default:
			panic("hash.Hash: unsupported type")
		}
		if err != nil {
			return fmt.Errorf("hash.Hash: write %T: %w", d, err)
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}
