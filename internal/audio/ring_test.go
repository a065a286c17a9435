package audio

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/tplay/api"
)

func seq(from, n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(from + i)
	}
	return s
}

func TestRing_FullAndEmpty(t *testing.T) {
	r := newRing(8, 2)
	assert.True(t, r.Empty())
	assert.Equal(t, 6, r.Writable(), "free space is cap-1 rounded down to frames")

	n := r.Write(seq(0, 10))
	assert.Equal(t, 7, n, "one slot stays empty")
	assert.True(t, r.Full())
	assert.Equal(t, 7, r.Len())
	assert.Zero(t, r.Writable())

	out := make([]int16, 8)
	got := r.Read(out)
	assert.Equal(t, 6, got, "only whole frames are read")
	assert.Equal(t, seq(0, 6), out[:6])
	assert.Equal(t, 1, r.Len())
}

func TestRing_InvariantAcrossWraps(t *testing.T) {
	r := newRing(10, 2)
	out := make([]int16, 4)
	next, want := 0, 0

	for i := 0; i < 100; i++ {
		w := r.Write(seq(next, r.Writable()))
		next += w
		require.LessOrEqual(t, r.Len(), r.Cap()-1)

		got := r.Read(out[:2*(i%2+1)])
		for _, s := range out[:got] {
			require.Equal(t, int16(want), s)
			want++
		}
		require.LessOrEqual(t, r.Len(), r.Cap()-1)
	}
}

func TestRing_FlushSkipsStaleSamples(t *testing.T) {
	r := newRing(16, 2)
	r.Write(seq(0, 8))

	r.Flush()
	// the consumer has not caught up, so stale samples still occupy slots
	assert.Equal(t, 8, r.Len())
	r.Write(seq(100, 4))

	out := make([]int16, 16)
	got := r.Read(out)
	assert.Equal(t, seq(100, 4), out[:got])
	assert.True(t, r.Empty())
}

func TestRing_SyncWithoutRead(t *testing.T) {
	r := newRing(16, 2)
	r.Write(seq(0, 14))
	require.Zero(t, r.Writable())

	r.Flush()
	assert.True(t, r.Sync())
	assert.False(t, r.Sync(), "a flush is applied once")
	assert.True(t, r.Empty())
	assert.Equal(t, 14, r.Writable())
}

func TestCommandQueue_Overflow(t *testing.T) {
	q := newCommandQueue(3)

	cmds := []api.Command{
		api.SetVolume{Level: 0.1},
		api.SetVolume{Level: 0.2},
		api.SetVolume{Level: 0.3},
		api.SetVolume{Level: 0.4},
	}
	accepted := 0
	for _, c := range cmds {
		if q.push(c) {
			accepted++
		}
	}
	assert.Equal(t, 3, accepted)

	q.mu.Lock()
	got := q.drainLocked(nil)
	pending := q.pendingLocked()
	q.mu.Unlock()

	assert.Equal(t, cmds[:3], got, "the overflowing command is dropped, the rest keep FIFO order")
	assert.False(t, pending)

	// cursors wrap after a drain
	assert.True(t, q.push(api.Stop{}))
	q.mu.Lock()
	got = q.drainLocked(got[:0])
	q.mu.Unlock()
	assert.Equal(t, []api.Command{api.Stop{}}, got)
}

func TestTransport_VolumeClamp(t *testing.T) {
	tr := newTransport(0.5, false)

	tests := []struct {
		in, want float64
	}{
		{2.0, 1.0},
		{-1.0, 0.0},
		{0.25, 0.25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.setVolume(tt.in))
		assert.Equal(t, tt.want, tr.Volume())
	}
}

func TestTransport_ToggleIdempotence(t *testing.T) {
	tr := newTransport(1, false)
	flags := map[string]*atomic.Bool{
		"muted":   &tr.muted,
		"playing": &tr.playing,
		"looping": &tr.looping,
	}
	for name, flag := range flags {
		before := flag.Load()
		assert.Equal(t, !before, toggle(flag), name)
		toggle(flag)
		assert.Equal(t, before, flag.Load(), name)
	}
}

func TestCallback_Fill(t *testing.T) {
	tr := newTransport(0.5, false)
	r := newRing(32, 2)
	cb := &callback{t: tr, ring: r, queue: newCommandQueue(1), channels: 2}

	r.Write([]int16{1000, -1000, 2000, -2000})
	out := []int16{9, 9, 9, 9, 9, 9}

	t.Run("paused writes silence and keeps samples", func(t *testing.T) {
		cb.Fill(out)
		assert.Equal(t, []int16{0, 0, 0, 0, 0, 0}, out)
		assert.Equal(t, 4, r.Len())
		assert.Zero(t, tr.Timestamp())
	})

	t.Run("playing scales by volume and pads underrun", func(t *testing.T) {
		tr.playing.Store(true)
		cb.Fill(out)
		assert.Equal(t, []int16{500, -500, 1000, -1000, 0, 0}, out)
		assert.Equal(t, int64(2), tr.position.Load())
	})

	t.Run("muted writes silence and holds the position", func(t *testing.T) {
		tr.muted.Store(true)
		r.Write([]int16{3000, 3000})
		cb.Fill(out)
		assert.Equal(t, []int16{0, 0, 0, 0, 0, 0}, out)
		assert.Equal(t, 2, r.Len())
		assert.Equal(t, int64(2), tr.position.Load())
	})

	t.Run("unmuted resumes where it stopped", func(t *testing.T) {
		tr.muted.Store(false)
		cb.Fill(out)
		assert.Equal(t, []int16{1500, 1500, 0, 0, 0, 0}, out)
		assert.True(t, r.Empty())
		assert.Equal(t, int64(3), tr.position.Load())
	})
}
