package device

import (
	"sync"
	"time"
)

// Null discards audio. With a clock it calls the fill callback once per
// period like a real device; without one the caller drives it with Pump.
type Null struct {
	clock bool

	mu     sync.Mutex
	format Format
	fill   FillFunc
	buf    []int16
	stop   chan struct{}
	done   chan struct{}
}

// NewNull returns a headless backend. clock selects ticker-driven pulls.
func NewNull(clock bool) *Null {
	return &Null{clock: clock}
}

func (n *Null) Open(format Format, fill FillFunc) (Device, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.format = format
	n.fill = fill
	n.buf = make([]int16, format.BufferFrames()*format.Channels)
	if n.clock {
		n.stop = make(chan struct{})
		n.done = make(chan struct{})
		go n.run(n.stop, n.done)
	}
	return n, nil
}

func (n *Null) run(stop, done chan struct{}) {
	defer close(done)

	period := n.format.BufferSize
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	frames := n.format.BufferFrames()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.Pump(frames)
		}
	}
}

// Pump requests frames frames from the callback and returns the samples.
// The returned slice is reused by the next call.
func (n *Null) Pump(frames int) []int16 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fill == nil {
		return nil
	}
	size := frames * n.format.Channels
	if cap(n.buf) < size {
		n.buf = make([]int16, size)
	}
	out := n.buf[:size]
	n.fill(out)
	return out
}

func (n *Null) Close() error {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	n.mu.Lock()
	n.fill = nil
	n.mu.Unlock()
	return nil
}
