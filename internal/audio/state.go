package audio

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/codec"
)

// transport holds the lock-free playback flags shared by the driving
// goroutine, the device callback and readers of Snapshot.
type transport struct {
	playing     atomic.Bool
	muted       atomic.Bool
	looping     atomic.Bool
	terminating atomic.Bool
	ended       atomic.Bool

	volume atomic.Uint64 // math.Float64bits
	// frames consumed by the device since the last reset, at the output rate
	position atomic.Int64

	track    atomic.Pointer[api.Track]
	duration atomic.Int64
}

func newTransport(volume float64, loop bool) *transport {
	t := &transport{}
	t.setVolume(volume)
	t.looping.Store(loop)
	return t
}

func (t *transport) Volume() float64 {
	return math.Float64frombits(t.volume.Load())
}

// setVolume stores level clamped into [0,1] and returns the stored value.
func (t *transport) setVolume(level float64) float64 {
	if math.IsNaN(level) {
		level = 0
	}
	level = lo.Clamp(level, 0, 1)
	t.volume.Store(math.Float64bits(level))
	return level
}

func (t *transport) Timestamp() time.Duration {
	return codec.OutputTimeBase.Duration(t.position.Load())
}

func (t *transport) setTimestamp(d time.Duration) {
	t.position.Store(codec.OutputTimeBase.Ticks(d))
}

// advance is called by the device callback only.
func (t *transport) advance(frames int) {
	t.position.Add(int64(frames))
}

func (t *transport) setTrack(track *api.Track, duration time.Duration) {
	t.track.Store(track)
	t.duration.Store(int64(duration))
}

func toggle(b *atomic.Bool) bool {
	for {
		old := b.Load()
		if b.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Snapshot copies the transport. The timestamp never reports past the end
// of a track whose duration is known.
func (t *transport) Snapshot() api.Snapshot {
	s := api.Snapshot{
		Playing:   t.playing.Load(),
		Muted:     t.muted.Load(),
		Looping:   t.looping.Load(),
		Ended:     t.ended.Load(),
		Volume:    t.Volume(),
		Timestamp: t.Timestamp(),
		Duration:  time.Duration(t.duration.Load()),
	}
	if track := t.track.Load(); track != nil {
		s.Track = *track
	}
	if s.Duration > 0 {
		s.Timestamp = min(s.Timestamp, s.Duration)
	}
	return s
}
