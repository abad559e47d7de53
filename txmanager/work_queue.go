package txmanager

import (
	"sync"

	"github.com/celer-network/eth-batch-sender/account"
	uuid "github.com/satori/go.uuid"
)

// WorkItem is one credential waiting to be submitted. A popped item is owned
// by the popping worker until it is pushed back or dropped.
type WorkItem struct {
	ID         uuid.UUID
	Credential account.Credential
	// Number of times the item went back to the tail because gas was too high
	Requeues int
}

// WorkQueue is a FIFO of work items safe for concurrent use. Requeued items
// are appended at the tail with no priority.
type WorkQueue struct {
	lock  sync.Mutex
	items []*WorkItem
}

// NewWorkQueue builds a queue holding the credentials in the given order.
func NewWorkQueue(credentials []account.Credential) *WorkQueue {
	items := make([]*WorkItem, 0, len(credentials))
	for _, credential := range credentials {
		items = append(items, &WorkItem{
			ID:         uuid.NewV4(),
			Credential: credential,
		})
	}
	return &WorkQueue{items: items}
}

func (q *WorkQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.items)
}

// Empty is a snapshot; another worker may push or pop right after it returns.
func (q *WorkQueue) Empty() bool {
	return q.Len() == 0
}

// Pop removes the head item. ok is false if the queue was empty.
func (q *WorkQueue) Pop() (item *WorkItem, ok bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	item = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item, true
}

// Push appends item at the tail.
func (q *WorkQueue) Push(item *WorkItem) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.items = append(q.items, item)
}

// Snapshot returns the queued items head first.
func (q *WorkQueue) Snapshot() []*WorkItem {
	q.lock.Lock()
	defer q.lock.Unlock()
	return append([]*WorkItem(nil), q.items...)
}
