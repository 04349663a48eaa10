package trust

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/NemProject/nem-sub016/types"
)

// DefaultRetention is how long an experience table survives without being
// refreshed.
const DefaultRetention = 24 * time.Hour

// Ledger stores directional experiences: what each source node observed when
// interacting with each peer. Lookups create entries lazily and always return
// the same *NodeExperience for the same ordered pair.
type Ledger struct {
	clock     clock.Clock
	retention time.Duration

	mtx    sync.RWMutex
	tables map[string]*experienceTable // source key -> table
}

type experienceTable struct {
	source  *types.Node
	updated time.Time
	peers   map[string]*peerExperience // peer key -> experience
}

type peerExperience struct {
	node       *types.Node
	experience *NodeExperience
}

// LedgerOption sets an optional parameter on the Ledger.
type LedgerOption func(*Ledger)

// WithClock sets the clock used to stamp tables.
func WithClock(c clock.Clock) LedgerOption {
	return func(l *Ledger) { l.clock = c }
}

// WithRetention sets how long an untouched table is kept.
func WithRetention(retention time.Duration) LedgerOption {
	return func(l *Ledger) { l.retention = retention }
}

// NewLedger creates an empty ledger.
func NewLedger(options ...LedgerOption) *Ledger {
	l := &Ledger{
		clock:     clock.New(),
		retention: DefaultRetention,
		tables:    map[string]*experienceTable{},
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Experience returns the experience source has with peer, creating it if
// needed. The source's table is marked as refreshed.
func (l *Ledger) Experience(source, peer *types.Node) *NodeExperience {
	now := l.clock.Now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	table := l.table(source)
	table.updated = now

	entry, ok := table.peers[peer.Key()]
	if !ok {
		entry = &peerExperience{node: peer, experience: &NodeExperience{}}
		table.peers[peer.Key()] = entry
	}
	return entry.experience
}

// Experiences exports the table of node, ordered by peer key.
func (l *Ledger) Experiences(node *types.Node) []NodeExperiencePair {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	table, ok := l.tables[node.Key()]
	if !ok {
		return []NodeExperiencePair{}
	}
	return table.export()
}

// SetExperiences imports the table node reported about its peers. Existing
// entries keep their identity and take the reported counters.
func (l *Ledger) SetExperiences(node *types.Node, pairs []NodeExperiencePair, timestamp time.Time) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	table := l.table(node)
	table.updated = timestamp
	for _, pair := range pairs {
		if pair.Node == nil || pair.Experience == nil {
			continue
		}

		key := pair.Node.Key()
		entry, ok := table.peers[key]
		if !ok {
			entry = &peerExperience{node: pair.Node, experience: &NodeExperience{}}
			table.peers[key] = entry
		}
		entry.experience.set(pair.Experience.SuccessfulCalls(), pair.Experience.FailedCalls())
	}
}

// LocalTrustMatrix returns the unnormalized opinions of every node in nodes
// about every other node: cell (i, j) is the local trust node i derives from
// its experience with node j. The diagonal is zero. No entries are created.
func (l *Ledger) LocalTrustMatrix(nodes []*types.Node) *Matrix {
	keys := nodeKeys(nodes)
	m := NewMatrix(len(nodes), len(nodes))

	l.mtx.RLock()
	defer l.mtx.RUnlock()

	for i, source := range keys {
		table, ok := l.tables[source]
		if !ok {
			continue
		}
		for j, peer := range keys {
			if i == j {
				continue
			}
			if entry, ok := table.peers[peer]; ok {
				m.Set(i, j, entry.experience.LocalTrust())
			}
		}
	}
	return m
}

// SharedExperienceMatrix returns an N×N matrix where cell (i, j) is 1 if both
// local and nodes[i] had at least one successful call with nodes[j]. The row
// of local and the diagonal are zero.
func (l *Ledger) SharedExperienceMatrix(local *types.Node, nodes []*types.Node) *Matrix {
	keys := nodeKeys(nodes)
	m := NewMatrix(len(nodes), len(nodes))

	l.mtx.RLock()
	defer l.mtx.RUnlock()

	localTable, ok := l.tables[local.Key()]
	if !ok {
		return m
	}

	for i, source := range keys {
		if source == local.Key() {
			continue
		}
		table, ok := l.tables[source]
		if !ok {
			continue
		}
		for j, peer := range keys {
			if i == j {
				continue
			}
			if hasSucceeded(localTable, peer) && hasSucceeded(table, peer) {
				m.Set(i, j, 1)
			}
		}
	}
	return m
}

// Prune drops every table that was not refreshed within the retention window
// ending at now and returns the number of dropped tables.
func (l *Ledger) Prune(now time.Time) int {
	cutoff := now.Add(-l.retention)

	l.mtx.Lock()
	defer l.mtx.Unlock()

	pruned := 0
	for key, table := range l.tables {
		if table.updated.Before(cutoff) {
			delete(l.tables, key)
			pruned++
		}
	}
	return pruned
}

// TableSnapshot is an exported table together with its refresh time.
type TableSnapshot struct {
	Source      *types.Node          `json:"source"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Experiences []NodeExperiencePair `json:"experiences"`
}

// Snapshot exports every table, ordered by source key.
func (l *Ledger) Snapshot() []TableSnapshot {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	snapshots := make([]TableSnapshot, 0, len(l.tables))
	for _, table := range l.tables {
		snapshots = append(snapshots, TableSnapshot{
			Source:      table.source,
			UpdatedAt:   table.updated,
			Experiences: table.export(),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Source.Key() < snapshots[j].Source.Key()
	})
	return snapshots
}

// Restore imports previously snapshotted tables.
func (l *Ledger) Restore(snapshots []TableSnapshot) {
	for _, s := range snapshots {
		if s.Source == nil {
			continue
		}
		l.SetExperiences(s.Source, s.Experiences, s.UpdatedAt)
	}
}

// table must be called with the write lock held.
func (l *Ledger) table(source *types.Node) *experienceTable {
	table, ok := l.tables[source.Key()]
	if !ok {
		table = &experienceTable{source: source, peers: map[string]*peerExperience{}}
		l.tables[source.Key()] = table
	}
	return table
}

func (t *experienceTable) export() []NodeExperiencePair {
	pairs := make([]NodeExperiencePair, 0, len(t.peers))
	for _, entry := range t.peers {
		pairs = append(pairs, NodeExperiencePair{
			Node:       entry.node,
			Experience: NewNodeExperience(entry.experience.SuccessfulCalls(), entry.experience.FailedCalls()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Node.Key() < pairs[j].Node.Key() })
	return pairs
}

func hasSucceeded(table *experienceTable, peer string) bool {
	entry, ok := table.peers[peer]
	return ok && entry.experience.SuccessfulCalls() > 0
}

func nodeKeys(nodes []*types.Node) []string {
	keys := make([]string, len(nodes))
	for i, node := range nodes {
		keys[i] = node.Key()
	}
	return keys
}

// lookup returns the experience without creating it. Missing entries read as
// a zero experience.
func (l *Ledger) lookup(source, peer *types.Node) *NodeExperience {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	if table, ok := l.tables[source.Key()]; ok {
		if entry, ok := table.peers[peer.Key()]; ok {
			return entry.experience
		}
	}
	return &NodeExperience{}
}
