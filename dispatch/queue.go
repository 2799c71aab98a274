package dispatch

import (
	"sync"

	"github.com/giuseppechecchia/L-Spider/core"
)

type job struct {
	ih   core.InfoHash
	addr core.PeerAddress
}

// workQueue is an unbounded FIFO of jobs. It is deliberately unbounded:
// each entry is tiny and arrival is rate-limited by real-world DHT
// traffic, so the sole throttle on work performed is the worker
// semaphore, not the queue.
type workQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []job
	closed bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *workQueue) push(j job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, j)
	q.cond.Signal()
}

// pop blocks until a job is available or the queue is closed. ok is false
// only once the queue is closed and drained.
func (q *workQueue) pop() (j job, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return job{}, false
	}
	j, q.items = q.items[0], q.items[1:]
	return j, true
}

func (q *workQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *workQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
