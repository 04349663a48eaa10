package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/types"
)

/*
Store is a checkpoint of the peer state.

There are two types of information stored:
  - Node:       every tracked node together with its status
  - Experience: the experience table of every source node, with its
                refresh time

A checkpoint replaces the previous one completely. Block data is not stored
here.
*/
type Store struct {
	db dbm.DB
}

// NodeRecord is a stored node and its status.
type NodeRecord struct {
	Node   *types.Node      `json:"node"`
	Status types.NodeStatus `json:"status"`
}

// NewStore returns a store backed by db.
func NewStore(db dbm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("no database provided")
	}
	return &Store{db: db}, nil
}

// Save checkpoints the nodes and experiences of state.
func (s *Store) Save(state *netstate.NetworkState) error {
	var records []NodeRecord
	for _, status := range types.TrackedNodeStatuses {
		for _, node := range state.Nodes().Nodes(status) {
			records = append(records, NodeRecord{Node: node, Status: status})
		}
	}
	return s.save(records, state.Ledger().Snapshot())
}

func (s *Store) save(records []NodeRecord, snapshots []trust.TableSnapshot) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, prefix := range []int64{prefixNode, prefixExperience} {
		if err := s.clear(batch, prefix); err != nil {
			return err
		}
	}

	for _, record := range records {
		bz, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode node %v: %w", record.Node, err)
		}
		if err := batch.Set(key(prefixNode, record.Node.Key()), bz); err != nil {
			return err
		}
	}

	for _, snapshot := range snapshots {
		bz, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode experiences of %v: %w", snapshot.Source, err)
		}
		if err := batch.Set(key(prefixExperience, snapshot.Source.Key()), bz); err != nil {
			return err
		}
	}

	return batch.WriteSync()
}

func (s *Store) clear(batch dbm.Batch, prefix int64) error {
	start, end := keyRange(prefix)
	iter, err := s.db.Iterator(start, end)
	if err != nil {
		return err
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		if err := batch.Delete(iter.Key()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Load restores a checkpoint into state. Stored nodes replace the status of
// nodes state already tracks. The local node is skipped.
func (s *Store) Load(state *netstate.NetworkState) error {
	records, err := s.Nodes()
	if err != nil {
		return err
	}
	snapshots, err := s.Experiences()
	if err != nil {
		return err
	}

	for _, record := range records {
		err := state.UpdateNode(record.Node, record.Status)
		if err != nil && !errors.Is(err, netstate.ErrLocalNode) {
			return err
		}
	}
	state.Ledger().Restore(snapshots)
	return nil
}

// Nodes returns every stored node, ordered by key.
func (s *Store) Nodes() ([]NodeRecord, error) {
	var records []NodeRecord
	err := s.iterate(prefixNode, func(value []byte) error {
		var record NodeRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return fmt.Errorf("invalid node data: %w", err)
		}
		if record.Node == nil {
			return errors.New("invalid node data: missing node")
		}
		records = append(records, record)
		return nil
	})
	return records, err
}

// Experiences returns every stored experience table, ordered by source key.
func (s *Store) Experiences() ([]trust.TableSnapshot, error) {
	var snapshots []trust.TableSnapshot
	err := s.iterate(prefixExperience, func(value []byte) error {
		var snapshot trust.TableSnapshot
		if err := json.Unmarshal(value, &snapshot); err != nil {
			return fmt.Errorf("invalid experience data: %w", err)
		}
		snapshots = append(snapshots, snapshot)
		return nil
	})
	return snapshots, err
}

func (s *Store) iterate(prefix int64, fn func(value []byte) error) error {
	start, end := keyRange(prefix)
	iter, err := s.db.Iterator(start, end)
	if err != nil {
		return err
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

//---------------------------------- KEY ENCODING -----------------------------------------

// key prefixes
const (
	prefixNode       = int64(1)
	prefixExperience = int64(2)
)

func key(prefix int64, nodeKey string) []byte {
	key, err := orderedcode.Append(nil, prefix, nodeKey)
	if err != nil {
		panic(err)
	}
	return key
}

func keyRange(prefix int64) ([]byte, []byte) {
	start, err := orderedcode.Append(nil, prefix, "")
	if err != nil {
		panic(err)
	}
	end, err := orderedcode.Append(nil, prefix, orderedcode.Infinity)
	if err != nil {
		panic(err)
	}
	return start, end
}
