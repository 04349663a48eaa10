package p2p

import (
	"sort"
	"sync"

	"github.com/NemProject/nem-sub016/types"
)

// NodeRegistry partitions known nodes by health status. A node lives in
// exactly one bucket; nodes that are in no bucket have status UNKNOWN.
//
// Eviction is two-phase: PruneInactiveNodes demotes only nodes that were
// already blacklisted when the previous prune ran and still are, so a node
// that recovered in between is kept.
//
// All read views return copies and are safe to use while other goroutines
// call Update.
type NodeRegistry struct {
	metrics *Metrics

	mtx     sync.RWMutex
	buckets map[types.NodeStatus]map[string]*types.Node // status -> key -> node
	marked  map[string]struct{}                         // keys blacklisted at the last prune
}

// RegistryOption sets an optional parameter on the NodeRegistry.
type RegistryOption func(*NodeRegistry)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) RegistryOption {
	return func(r *NodeRegistry) { r.metrics = metrics }
}

// NewNodeRegistry creates an empty registry.
func NewNodeRegistry(options ...RegistryOption) *NodeRegistry {
	r := &NodeRegistry{
		metrics: NopMetrics(),
		buckets: make(map[types.NodeStatus]map[string]*types.Node, len(types.TrackedNodeStatuses)),
		marked:  map[string]struct{}{},
	}
	for _, status := range types.TrackedNodeStatuses {
		r.buckets[status] = map[string]*types.Node{}
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Update moves node into the bucket of status, replacing any instance with the
// same identity. Updating to UNKNOWN removes the node. A nil node panics.
func (r *NodeRegistry) Update(node *types.Node, status types.NodeStatus) {
	if node == nil {
		panic("NodeRegistry.Update called with nil node")
	}

	key := node.Key()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, bucket := range r.buckets {
		delete(bucket, key)
	}
	if bucket, ok := r.buckets[status]; ok {
		bucket[key] = node
	}

	r.updateMetrics()
}

// Status returns the status of node, or UNKNOWN if it is not tracked.
func (r *NodeRegistry) Status(node *types.Node) types.NodeStatus {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.statusOf(node.Key())
}

// IsBlacklisted reports whether node is currently INACTIVE or FAILURE.
func (r *NodeRegistry) IsBlacklisted(node *types.Node) bool {
	return r.Status(node).IsBlacklisted()
}

// FindByIdentity returns the tracked node with the given identity, or nil.
func (r *NodeRegistry) FindByIdentity(identity types.NodeIdentity) *types.Node {
	key := identity.Key()

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	for _, bucket := range r.buckets {
		if node, ok := bucket[key]; ok {
			return node
		}
	}
	return nil
}

// PruneInactiveNodes evicts every node that was blacklisted during the
// previous call and is still blacklisted now, then remembers the currently
// blacklisted nodes for the next call. It returns the evicted nodes.
func (r *NodeRegistry) PruneInactiveNodes() []*types.Node {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	var evicted []*types.Node
	for key := range r.marked {
		if !r.statusOf(key).IsBlacklisted() {
			continue
		}
		for _, status := range types.TrackedNodeStatuses {
			if node, ok := r.buckets[status][key]; ok {
				evicted = append(evicted, node)
				delete(r.buckets[status], key)
			}
		}
	}

	r.marked = map[string]struct{}{}
	for _, status := range types.TrackedNodeStatuses {
		if !status.IsBlacklisted() {
			continue
		}
		for key := range r.buckets[status] {
			r.marked[key] = struct{}{}
		}
	}

	r.metrics.PrunedNodes.Add(float64(len(evicted)))
	r.updateMetrics()
	return evicted
}

// Nodes returns the nodes with the given status, ordered by key.
func (r *NodeRegistry) Nodes(status types.NodeStatus) []*types.Node {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return sortedNodes(r.buckets[status])
}

// ActiveNodes returns all ACTIVE nodes.
func (r *NodeRegistry) ActiveNodes() []*types.Node {
	return r.Nodes(types.NodeStatusActive)
}

// AllNodes returns every tracked node, ordered by key.
func (r *NodeRegistry) AllNodes() []*types.Node {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	all := make(map[string]*types.Node, r.size())
	for _, bucket := range r.buckets {
		for key, node := range bucket {
			all[key] = node
		}
	}
	return sortedNodes(all)
}

// Size returns the number of tracked nodes.
func (r *NodeRegistry) Size() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.size()
}

// Counts returns the number of nodes per tracked status.
func (r *NodeRegistry) Counts() map[types.NodeStatus]int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	counts := make(map[types.NodeStatus]int, len(r.buckets))
	for status, bucket := range r.buckets {
		counts[status] = len(bucket)
	}
	return counts
}

func (r *NodeRegistry) statusOf(key string) types.NodeStatus {
	for status, bucket := range r.buckets {
		if _, ok := bucket[key]; ok {
			return status
		}
	}
	return types.NodeStatusUnknown
}

func (r *NodeRegistry) size() int {
	n := 0
	for _, bucket := range r.buckets {
		n += len(bucket)
	}
	return n
}

// updateMetrics must be called with the lock held.
func (r *NodeRegistry) updateMetrics() {
	for status, bucket := range r.buckets {
		r.metrics.Nodes.With("status", status.String()).Set(float64(len(bucket)))
	}
}

func sortedNodes(bucket map[string]*types.Node) []*types.Node {
	nodes := make([]*types.Node, 0, len(bucket))
	for _, node := range bucket {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key() < nodes[j].Key() })
	return nodes
}
