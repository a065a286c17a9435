package audio

import "sync/atomic"

// ring is a single-producer single-consumer sample buffer. The driving
// goroutine owns write and the flush word; the device callback owns read.
// One slot is always left empty: the ring is full when (w+1) mod cap == r.
type ring struct {
	buf      []int16
	channels int

	write atomic.Uint64
	read  atomic.Uint64

	// flush packs a sequence number (high 32 bits) and the write index at
	// the time of the flush (low 32 bits).
	flush    atomic.Uint64
	flushSeq uint32 // producer side
	seenSeq  uint32 // consumer side
}

func newRing(capacity, channels int) *ring {
	channels = max(channels, 1)
	// keep whole frames plus the sentinel slot
	capacity = max(capacity, 2*channels)
	return &ring{
		buf:      make([]int16, capacity),
		channels: channels,
	}
}

// Cap returns the number of slots, one of which is never filled.
func (r *ring) Cap() int { return len(r.buf) }

// Len is the number of unread samples: (w - r) mod cap.
func (r *ring) Len() int {
	return r.distance(r.read.Load(), r.write.Load())
}

// Full reports whether no further sample can be written.
func (r *ring) Full() bool {
	w, rd := r.write.Load(), r.read.Load()
	return (w+1)%uint64(len(r.buf)) == rd
}

// Empty reports whether every written sample has been read.
func (r *ring) Empty() bool { return r.write.Load() == r.read.Load() }

// Writable is the free space rounded down to whole frames.
func (r *ring) Writable() int {
	free := len(r.buf) - 1 - r.Len()
	return free - free%r.channels
}

// Write copies as many samples of src as fit and returns how many were
// written. Producer only.
func (r *ring) Write(src []int16) int {
	size := uint64(len(r.buf))
	w := r.write.Load()
	n := min(len(src), len(r.buf)-1-r.distance(r.read.Load(), w))
	for i := 0; i < n; i++ {
		r.buf[(w+uint64(i))%size] = src[i]
	}
	r.write.Store((w + uint64(n)) % size)
	return n
}

// Flush marks everything written so far as stale. The consumer skips to the
// mark on its next read. Producer only.
func (r *ring) Flush() {
	r.flushSeq++
	r.flush.Store(uint64(r.flushSeq)<<32 | r.write.Load())
}

// Read copies whole frames into dst and returns the number of samples
// read. Consumer only.
func (r *ring) Read(dst []int16) int {
	// load write before the flush word: any sample written after a flush is
	// only visible together with that flush
	w := r.write.Load()
	if r.Sync() {
		w = r.write.Load()
	}

	size := uint64(len(r.buf))
	rd := r.read.Load()
	n := min(len(dst), r.distance(rd, w))
	n -= n % r.channels
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(rd+uint64(i))%size]
	}
	r.read.Store((rd + uint64(n)) % size)
	return n
}

// Sync applies a pending flush and reports whether there was one. Consumer
// only.
func (r *ring) Sync() bool {
	f := r.flush.Load()
	if uint32(f>>32) == r.seenSeq {
		return false
	}
	r.seenSeq = uint32(f >> 32)
	r.read.Store(f & 0xFFFFFFFF)
	return true
}

func (r *ring) distance(from, to uint64) int {
	size := uint64(len(r.buf))
	return int((to + size - from) % size)
}
