package broadcast

import (
	"sort"
	"sync"

	"github.com/NemProject/nem-sub016/types"
)

// Batch is the list of entities pending for one message type.
type Batch struct {
	MessageType types.NodeAPIID
	Entities    []interface{}
}

// Buffer collects outbound entities per message type.
type Buffer struct {
	mtx     sync.Mutex
	pending map[types.NodeAPIID][]interface{}
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{pending: map[types.NodeAPIID][]interface{}{}}
}

// Add appends entity to the list of messageType.
func (b *Buffer) Add(messageType types.NodeAPIID, entity interface{}) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.pending[messageType] = append(b.pending[messageType], entity)
}

// Size returns the number of pending entities over all message types.
func (b *Buffer) Size() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	size := 0
	for _, entities := range b.pending {
		size += len(entities)
	}
	return size
}

// DeliverAll removes and returns every pending batch, ordered by message
// type. Entities added afterwards go into the next delivery.
func (b *Buffer) DeliverAll() []Batch {
	b.mtx.Lock()
	pending := b.pending
	b.pending = map[types.NodeAPIID][]interface{}{}
	b.mtx.Unlock()

	batches := make([]Batch, 0, len(pending))
	for messageType, entities := range pending {
		batches = append(batches, Batch{MessageType: messageType, Entities: entities})
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].MessageType < batches[j].MessageType })
	return batches
}
