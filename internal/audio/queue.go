package audio

import (
	"sync"

	"github.com/jscyril/tplay/api"
)

// DefaultQueueLength is the number of commands held before new ones are
// dropped.
const DefaultQueueLength = 5

// commandQueue is a bounded FIFO guarded by mu. cond wakes the driving
// goroutine when a command arrives, the device consumes samples, or the
// engine shuts down.
type commandQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf   []api.Command
	head  int
	count int
}

func newCommandQueue(length int) *commandQueue {
	if length <= 0 {
		length = DefaultQueueLength
	}
	q := &commandQueue{buf: make([]api.Command, length)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends cmd and wakes the driver. It reports false when the queue
// was full and cmd was dropped.
func (q *commandQueue) push(cmd api.Command) bool {
	q.mu.Lock()
	if q.count == len(q.buf) {
		q.mu.Unlock()
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = cmd
	q.count++
	q.mu.Unlock()

	q.cond.Signal()
	return true
}

// pendingLocked reports whether a command is waiting. Caller holds mu.
func (q *commandQueue) pendingLocked() bool { return q.count > 0 }

// drainLocked moves every pending command into dst in FIFO order. Caller
// holds mu.
func (q *commandQueue) drainLocked(dst []api.Command) []api.Command {
	for q.count > 0 {
		dst = append(dst, q.buf[q.head])
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.count--
	}
	return dst
}

// signal wakes the driver without taking the lock, so it is safe from the
// device callback.
func (q *commandQueue) signal() { q.cond.Signal() }

// broadcast wakes every waiter.
func (q *commandQueue) broadcast() { q.cond.Broadcast() }
