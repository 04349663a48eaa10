package connect

import (
	"context"

	"github.com/pkg/errors"

	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/types"
)

var (
	// ErrInactivePeer means no connection to the peer could be established.
	ErrInactivePeer = errors.New("peer is inactive")
	// ErrBusyPeer means the peer accepted the connection but did not answer
	// in time.
	ErrBusyPeer = errors.New("peer is busy")
	// ErrFatalPeer means the peer answered with an error or an invalid
	// response.
	ErrFatalPeer = errors.New("peer sent an invalid response")
)

//go:generate ../../scripts/mockery_generate.sh Connector

// ChainConnector fetches chain data from remote nodes.
type ChainConnector interface {
	ChainHeight(ctx context.Context, node *types.Node) (int64, error)
	LastBlock(ctx context.Context, node *types.Node) (*types.Block, error)
	// BlocksAfter returns the blocks following height, in ascending order.
	BlocksAfter(ctx context.Context, node *types.Node, height int64) ([]*types.Block, error)
	// HashChain returns the hashes of the blocks starting at height.
	HashChain(ctx context.Context, node *types.Node, height int64) (types.HashChain, error)
	UnconfirmedTransactions(ctx context.Context, node *types.Node) ([]*types.Transaction, error)
}

// PeerConnector talks to remote nodes about the network itself.
type PeerConnector interface {
	// GetInfo returns the node as it describes itself.
	GetInfo(ctx context.Context, node *types.Node) (*types.Node, error)
	// GetKnownPeers returns the active peers of node.
	GetKnownPeers(ctx context.Context, node *types.Node) ([]*types.Node, error)
	// GetNodeExperiences returns the experiences node has with its peers.
	GetNodeExperiences(ctx context.Context, node *types.Node) (trust.NodeExperiencesPair, error)
	// Announce pushes entity to the API of node identified by messageType.
	Announce(ctx context.Context, node *types.Node, messageType types.NodeAPIID, entity interface{}) error
}

// TimeSyncConnector requests network time stamps from remote nodes.
type TimeSyncConnector interface {
	GetCommunicationTimeStamps(ctx context.Context, node *types.Node) (types.CommunicationTimeStamps, error)
}

// Connector is the full set of remote calls the peer core makes.
type Connector interface {
	ChainConnector
	PeerConnector
	TimeSyncConnector
}

// InteractionResult converts the outcome of a remote call into its
// reputational effect. Busy peers are not punished.
func InteractionResult(err error) types.NodeInteractionResult {
	switch {
	case err == nil:
		return types.InteractionSuccess
	case errors.Is(err, ErrBusyPeer), errors.Is(err, context.Canceled):
		return types.InteractionNeutral
	default:
		return types.InteractionFailure
	}
}

// NodeStatus converts the outcome of a status probe into a node status.
func NodeStatus(err error) types.NodeStatus {
	switch {
	case err == nil:
		return types.NodeStatusActive
	case errors.Is(err, ErrInactivePeer):
		return types.NodeStatusInactive
	case errors.Is(err, ErrBusyPeer):
		return types.NodeStatusBusy
	default:
		return types.NodeStatusFailure
	}
}
