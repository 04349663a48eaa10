package types

import (
	"fmt"
	"strings"
)

// NodeFeature is a bit in the feature mask a node advertises.
type NodeFeature uint32

const (
	FeatureTransactionHashLookup NodeFeature = 1 << iota
	FeatureHistoricalAccountData
	FeaturePlaceholder2
)

// Has reports whether every bit of f is set in mask.
func (mask NodeFeature) Has(f NodeFeature) bool { return mask&f == f }

// NodeMetaData describes the software a node runs.
type NodeMetaData struct {
	Platform    string      `json:"platform"`
	Application string      `json:"application"`
	Version     string      `json:"version"`
	NetworkID   int         `json:"networkId"`
	Features    NodeFeature `json:"features"`
}

// CompatibleWith checks whether the local node (m) can talk to other. The
// network must match and major version must be equal.
func (m NodeMetaData) CompatibleWith(other NodeMetaData) error {
	if m.NetworkID != other.NetworkID {
		return fmt.Errorf("peer is on a different network: got %d, expected %d", other.NetworkID, m.NetworkID)
	}

	if m.Version == "" || other.Version == "" {
		return nil
	}

	ourMajor, err := majorVersion(m.Version)
	if err != nil {
		return err
	}
	theirMajor, err := majorVersion(other.Version)
	if err != nil {
		return err
	}
	if ourMajor != theirMajor {
		return fmt.Errorf("peer is on a different major version: got %v, expected %v", theirMajor, ourMajor)
	}

	return nil
}

func majorVersion(version string) (string, error) {
	spl := strings.Split(strings.TrimPrefix(version, "v"), ".")
	if len(spl) < 2 || spl[0] == "" {
		return "", fmt.Errorf("invalid version format %v", version)
	}
	return spl[0], nil
}
