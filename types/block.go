package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"
)

// Hash is a 32 byte sha3 hash, hex encoded in JSON.
type Hash []byte

func (h Hash) String() string { return hex.EncodeToString(h) }

// Equal compares hashes by value.
func (h Hash) Equal(other Hash) bool { return bytes.Equal(h, other) }

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	bz, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hash: %w", err)
	}
	*h = bz
	return nil
}

// HashChain is a sequence of consecutive block hashes.
type HashChain []Hash

// Block carries only what chain comparison needs; its payload is opaque to
// this module.
type Block struct {
	Height    int64           `json:"height"`
	PrevHash  Hash            `json:"prevBlockHash"`
	Timestamp time.Time       `json:"timeStamp"`
	Signer    []byte          `json:"signer"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Hash computes the block hash over its header fields and payload.
func (b *Block) Hash() Hash {
	h := sha3.New256()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(b.Height))
	_, _ = h.Write(buf[:])
	_, _ = h.Write(b.PrevHash)
	binary.BigEndian.PutUint64(buf[:], uint64(b.Timestamp.UnixMilli()))
	_, _ = h.Write(buf[:])
	_, _ = h.Write(b.Signer)
	_, _ = h.Write(b.Payload)
	return h.Sum(nil)
}

// Transaction is an unconfirmed transaction gossiped between nodes.
type Transaction struct {
	Signer    []byte          `json:"signer"`
	Deadline  time.Time       `json:"deadline"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Signature []byte          `json:"signature,omitempty"`
}

// Hash returns the transaction hash.
func (tx *Transaction) Hash() Hash {
	h := sha3.New256()
	_, _ = h.Write(tx.Signer)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(tx.Deadline.UnixMilli()))
	_, _ = h.Write(buf[:])
	_, _ = h.Write(tx.Payload)
	return h.Sum(nil)
}
