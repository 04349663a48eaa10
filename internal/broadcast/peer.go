package broadcast

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

// SelectorSource builds a fresh selector for every broadcast.
type SelectorSource interface {
	ChainSyncSelector() (trust.NodeSelector, error)
}

// PeerBroadcaster announces batches to active partners drawn by trust.
type PeerBroadcaster struct {
	logger    log.Logger
	selectors SelectorSource
	connector connect.PeerConnector
}

var _ Broadcaster = (*PeerBroadcaster)(nil)

// NewPeerBroadcaster creates a broadcaster announcing through connector.
func NewPeerBroadcaster(logger log.Logger, selectors SelectorSource, connector connect.PeerConnector) *PeerBroadcaster {
	return &PeerBroadcaster{
		logger:    logger.With("module", "broadcast"),
		selectors: selectors,
		connector: connector,
	}
}

// Broadcast announces entities to every selected partner. It returns the
// combined errors of the partners that could not be reached.
func (b *PeerBroadcaster) Broadcast(ctx context.Context, messageType types.NodeAPIID, entities []interface{}) error {
	selector, err := b.selectors.ChainSyncSelector()
	if err != nil {
		return fmt.Errorf("failed to select broadcast partners: %w", err)
	}

	var (
		mtx  sync.Mutex
		errs error
		g    errgroup.Group
	)
	for _, node := range selector.SelectNodes() {
		node := node
		g.Go(func() error {
			if err := b.connector.Announce(ctx, node, messageType, entities); err != nil {
				b.logger.Debug("failed to announce", "node", node, "type", messageType, "err", err)
				mtx.Lock()
				errs = multierr.Append(errs, fmt.Errorf("announce to %v: %w", node, err))
				mtx.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
