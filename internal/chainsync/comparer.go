package chainsync

import (
	"context"
	"fmt"

	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/types"
)

// ComparisonResult describes how a remote chain relates to the local chain.
type ComparisonResult int

const (
	ComparisonUnknown ComparisonResult = iota
	// The remote chain is not ahead of the local chain.
	RemoteIsSynced
	// The remote chain is ahead and shares CommonHeight with the local chain.
	RemoteIsNotSynced
	// The chains diverge below the rewrite limit.
	RemoteIsTooFarBehind
	// The remote genesis block differs from ours.
	RemoteHasNonMatchingGenesisBlock
	// The remote node returned more hashes than requested.
	RemoteReturnedTooManyHashes
	// The remote hashes do not extend the local chain.
	RemoteReturnedInvalidHashes
	// The remote node reported a height its last block contradicts.
	RemoteLied
)

var comparisonResultNames = map[ComparisonResult]string{
	ComparisonUnknown:                "unknown",
	RemoteIsSynced:                   "remote_is_synced",
	RemoteIsNotSynced:                "remote_is_not_synced",
	RemoteIsTooFarBehind:             "remote_is_too_far_behind",
	RemoteHasNonMatchingGenesisBlock: "remote_has_non_matching_genesis_block",
	RemoteReturnedTooManyHashes:      "remote_returned_too_many_hashes",
	RemoteReturnedInvalidHashes:      "remote_returned_invalid_hashes",
	RemoteLied:                       "remote_lied",
}

func (r ComparisonResult) String() string {
	if name, ok := comparisonResultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ComparisonResult(%d)", int(r))
}

// InteractionResult is the reputational effect of a comparison. Only
// evidence of misbehavior is a failure.
func (r ComparisonResult) InteractionResult() types.NodeInteractionResult {
	switch r {
	case RemoteHasNonMatchingGenesisBlock,
		RemoteReturnedTooManyHashes,
		RemoteReturnedInvalidHashes,
		RemoteLied:
		return types.InteractionFailure
	default:
		return types.InteractionNeutral
	}
}

// Comparison is the outcome of comparing a remote chain with the local one.
type Comparison struct {
	Result       ComparisonResult
	RemoteHeight int64
	CommonHeight int64
}

// Comparer compares the local chain with remote chains.
type Comparer struct {
	connector connect.ChainConnector
	// Maximum number of blocks the local chain may be rolled back.
	maxRewrite int64
	// Maximum number of hashes a remote node may return.
	maxHashes int
}

// NewComparer creates a comparer.
func NewComparer(connector connect.ChainConnector, maxRewrite int64, maxHashes int) *Comparer {
	return &Comparer{connector: connector, maxRewrite: maxRewrite, maxHashes: maxHashes}
}

// Compare compares local with the chain of node. Errors are transport errors
// and carry the connect error classes.
func (c *Comparer) Compare(ctx context.Context, node *types.Node, local Chain) (Comparison, error) {
	localHeight := local.Height()

	remoteHeight, err := c.connector.ChainHeight(ctx, node)
	if err != nil {
		return Comparison{}, err
	}
	if remoteHeight <= localHeight {
		return Comparison{Result: RemoteIsSynced, RemoteHeight: remoteHeight}, nil
	}

	last, err := c.connector.LastBlock(ctx, node)
	if err != nil {
		return Comparison{}, err
	}
	if last == nil || last.Height != remoteHeight {
		return Comparison{Result: RemoteLied, RemoteHeight: remoteHeight}, nil
	}

	start := localHeight - c.maxRewrite
	if start < 1 {
		start = 1
	}

	remoteHashes, err := c.connector.HashChain(ctx, node, start)
	if err != nil {
		return Comparison{}, err
	}
	if len(remoteHashes) > c.maxHashes {
		return Comparison{Result: RemoteReturnedTooManyHashes, RemoteHeight: remoteHeight}, nil
	}

	localHashes := local.HashesFrom(start, len(remoteHashes))
	matching := 0
	for matching < len(localHashes) && remoteHashes[matching].Equal(localHashes[matching]) {
		matching++
	}

	switch {
	case matching == 0 && start == 1:
		return Comparison{Result: RemoteHasNonMatchingGenesisBlock, RemoteHeight: remoteHeight}, nil
	case matching == 0:
		return Comparison{Result: RemoteIsTooFarBehind, RemoteHeight: remoteHeight}, nil
	case matching == len(remoteHashes):
		// nothing beyond what we already have
		return Comparison{Result: RemoteReturnedInvalidHashes, RemoteHeight: remoteHeight}, nil
	}

	return Comparison{
		Result:       RemoteIsNotSynced,
		RemoteHeight: remoteHeight,
		CommonHeight: start + int64(matching) - 1,
	}, nil
}
