package types

import (
	"bytes"
	"encoding/base32"
	"errors"
	"fmt"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // part of the address format
	"golang.org/x/crypto/sha3"
)

const (
	addressChecksumSize = 4
	addressDecodedSize  = 1 + ripemd160.Size + addressChecksumSize
)

// ErrInvalidAddress is returned when an encoded address fails to decode or its
// checksum does not match.
var ErrInvalidAddress = errors.New("invalid address")

// Address is the base32 encoded, network versioned account address derived
// from a public key.
type Address string

// NewAddress derives the address of publicKey on the network identified by
// version.
func NewAddress(version byte, publicKey []byte) Address {
	sha := sha3.Sum256(publicKey)
	hasher := ripemd160.New()
	_, _ = hasher.Write(sha[:])

	decoded := make([]byte, 0, addressDecodedSize)
	decoded = append(decoded, version)
	decoded = hasher.Sum(decoded)

	checksum := sha3.Sum256(decoded)
	decoded = append(decoded, checksum[:addressChecksumSize]...)

	return Address(base32.StdEncoding.EncodeToString(decoded))
}

// Version returns the network version byte of a.
func (a Address) Version() (byte, error) {
	decoded, err := a.decode()
	if err != nil {
		return 0, err
	}
	return decoded[0], nil
}

// Validate checks the encoding and checksum of a.
func (a Address) Validate() error {
	_, err := a.decode()
	return err
}

func (a Address) decode() ([]byte, error) {
	decoded, err := base32.StdEncoding.DecodeString(string(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != addressDecodedSize {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(decoded))
	}

	body := decoded[:addressDecodedSize-addressChecksumSize]
	checksum := sha3.Sum256(body)
	if !bytes.Equal(checksum[:addressChecksumSize], decoded[addressDecodedSize-addressChecksumSize:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return decoded, nil
}

func (a Address) String() string { return string(a) }
