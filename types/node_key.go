package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

// NodeKey is the persistent key of the local node.
type NodeKey struct {
	// Hex encoded ed25519 seed.
	PrivateKey string `json:"private_key"`
}

// Identity returns the local identity of the key.
func (nk NodeKey) Identity(name string) (NodeIdentity, error) {
	seed, err := hex.DecodeString(nk.PrivateKey)
	if err != nil {
		return NodeIdentity{}, fmt.Errorf("invalid node key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return NodeIdentity{}, fmt.Errorf("invalid node key size %d", len(seed))
	}
	return NewLocalNodeIdentity(ed25519.NewKeyFromSeed(seed), name), nil
}

// SaveAs persists the NodeKey to filePath.
func (nk NodeKey) SaveAs(filePath string) error {
	bz, err := json.MarshalIndent(nk, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, bz, 0600)
}

// GenNodeKey generates a new node key.
func GenNodeKey() (NodeKey, error) {
	identity, err := GenerateNodeIdentity("")
	if err != nil {
		return NodeKey{}, err
	}
	return NodeKey{PrivateKey: hex.EncodeToString(identity.privateKey.Seed())}, nil
}

// LoadOrGenNodeKey attempts to load the NodeKey from the given filePath. If
// the file does not exist, it generates and saves a new NodeKey.
func LoadOrGenNodeKey(filePath string) (NodeKey, error) {
	nodeKey, err := LoadNodeKey(filePath)
	if err == nil {
		return nodeKey, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return NodeKey{}, err
	}

	nodeKey, err = GenNodeKey()
	if err != nil {
		return NodeKey{}, err
	}
	if err := nodeKey.SaveAs(filePath); err != nil {
		return NodeKey{}, err
	}
	return nodeKey, nil
}

// LoadNodeKey loads NodeKey located in filePath.
func LoadNodeKey(filePath string) (NodeKey, error) {
	bz, err := os.ReadFile(filePath)
	if err != nil {
		return NodeKey{}, err
	}
	var nodeKey NodeKey
	if err := json.Unmarshal(bz, &nodeKey); err != nil {
		return NodeKey{}, fmt.Errorf("error reading NodeKey from %v: %w", filePath, err)
	}
	return nodeKey, nil
}
