package dht

import (
	"sync"

	"github.com/giuseppechecchia/L-Spider/core"
)

// nodeQueue is a bounded FIFO of core.KNode, used to stage candidates
// learned from find_node responses until the drainer gets around to
// querying them. Pushing past capacity evicts the oldest entry, mirroring
// a Python collections.deque(maxlen=...).
type nodeQueue struct {
	mu       sync.Mutex
	capacity int
	items    []core.KNode
}

func newNodeQueue(capacity int) *nodeQueue {
	return &nodeQueue{capacity: capacity}
}

func (q *nodeQueue) push(kn core.KNode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, kn)
	if len(q.items) > q.capacity {
		q.items = q.items[len(q.items)-q.capacity:]
	}
}

func (q *nodeQueue) pop() (core.KNode, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return core.KNode{}, false
	}
	kn := q.items[0]
	q.items = q.items[1:]
	return kn, true
}

func (q *nodeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
