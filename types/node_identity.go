package types

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

// NodeIdentity is the key pair owning a node. Remote identities only carry the
// public key; the local identity also holds the private key for signing.
type NodeIdentity struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
	name       string
}

// NewNodeIdentity returns a public-key-only identity.
func NewNodeIdentity(publicKey []byte, name string) (NodeIdentity, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return NodeIdentity{}, fmt.Errorf("invalid public key size %d", len(publicKey))
	}

	pk := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pk, publicKey)
	return NodeIdentity{publicKey: pk, name: name}, nil
}

// NewLocalNodeIdentity returns an identity able to sign.
func NewLocalNodeIdentity(privateKey ed25519.PrivateKey, name string) NodeIdentity {
	return NodeIdentity{
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		privateKey: privateKey,
		name:       name,
	}
}

// GenerateNodeIdentity creates a fresh local identity.
func GenerateNodeIdentity(name string) (NodeIdentity, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return NodeIdentity{}, err
	}
	return NewLocalNodeIdentity(privateKey, name), nil
}

// PublicKey returns a copy of the identity's public key.
func (id NodeIdentity) PublicKey() []byte {
	return append([]byte(nil), id.publicKey...)
}

// Key returns the hex encoded public key. It is stable for the lifetime of the
// node and used as the lookup key everywhere.
func (id NodeIdentity) Key() string {
	return hex.EncodeToString(id.publicKey)
}

// Address derives the account address on the network identified by version.
func (id NodeIdentity) Address(version byte) Address {
	return NewAddress(version, id.publicKey)
}

// Name is the friendly name of the node; it is informational only.
func (id NodeIdentity) Name() string { return id.name }

// IsOwned reports whether the identity holds a private key.
func (id NodeIdentity) IsOwned() bool { return len(id.privateKey) != 0 }

// Sign signs msg with the private key.
func (id NodeIdentity) Sign(msg []byte) ([]byte, error) {
	if !id.IsOwned() {
		return nil, errors.New("identity has no private key")
	}
	return ed25519.Sign(id.privateKey, msg), nil
}

// Verify checks sig over msg against the identity's public key.
func (id NodeIdentity) Verify(msg, sig []byte) bool {
	return ed25519.Verify(id.publicKey, msg, sig)
}

// Equal compares identities by public key only.
func (id NodeIdentity) Equal(other NodeIdentity) bool {
	return bytes.Equal(id.publicKey, other.publicKey)
}

func (id NodeIdentity) String() string {
	if id.name != "" {
		return fmt.Sprintf("%s <%s>", id.name, id.Key())
	}
	return id.Key()
}

type nodeIdentityJSON struct {
	PublicKey string `json:"public-key"`
	Name      string `json:"name,omitempty"`
}

// MarshalJSON never exports the private key.
func (id NodeIdentity) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeIdentityJSON{PublicKey: id.Key(), Name: id.name})
}

func (id *NodeIdentity) UnmarshalJSON(data []byte) error {
	var v nodeIdentityJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	pk, err := hex.DecodeString(v.PublicKey)
	if err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}

	parsed, err := NewNodeIdentity(pk, v.Name)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
