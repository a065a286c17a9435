// Package playlist keeps the ordered list of tracks the front end feeds to
// the engine one at a time.
package playlist

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/jscyril/tplay/api"
	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// Queue represents a playback queue
type Queue struct {
	tracks     []api.Track
	index      int
	repeatMode api.RepeatMode
	original   []api.Track // order before Shuffle, nil when unshuffled
	mu         sync.RWMutex
}

// NewQueue creates a queue holding tracks, positioned on the first one.
func NewQueue(tracks ...api.Track) *Queue {
	q := &Queue{}
	q.Set(tracks)
	return q
}

// Add adds tracks to the end of the queue
func (q *Queue) Add(tracks ...api.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, tracks...)
	if q.original != nil {
		q.original = append(q.original, tracks...)
	}
}

// Set replaces the entire queue with new tracks
func (q *Queue) Set(tracks []api.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append([]api.Track(nil), tracks...)
	q.original = nil
	q.index = 0
}

// Current returns the current track
func (q *Queue) Current() (api.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.index < 0 || q.index >= len(q.tracks) {
		return api.Track{}, false
	}
	return q.tracks[q.index], true
}

// Next moves to the next track on user request. RepeatOne does not pin the
// queue here; only Advance honours it.
func (q *Queue) Next() (api.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return api.Track{}, false
	}
	if q.index < len(q.tracks)-1 {
		q.index++
	} else if q.repeatMode == api.RepeatNone {
		return api.Track{}, false // End of queue
	} else {
		q.index = 0
	}
	return q.tracks[q.index], true
}

// Previous moves to the previous track and returns it
func (q *Queue) Previous() (api.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return api.Track{}, false
	}
	if q.index > 0 {
		q.index--
	} else if q.repeatMode != api.RepeatNone {
		q.index = len(q.tracks) - 1
	}
	return q.tracks[q.index], true
}

// Advance picks the track to play after the current one ended.
func (q *Queue) Advance() (api.Track, bool) {
	q.mu.RLock()
	one := q.repeatMode == api.RepeatOne
	q.mu.RUnlock()

	if one {
		return q.Current()
	}
	return q.Next()
}

// JumpTo jumps to a specific index
func (q *Queue) JumpTo(index int) (api.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return api.Track{}, playerrors.ErrEmptyQueue
	}
	if index < 0 || index >= len(q.tracks) {
		return api.Track{}, fmt.Errorf("%w: index %d out of %d", playerrors.ErrTrackNotFound, index, len(q.tracks))
	}

	q.index = index
	return q.tracks[index], nil
}

// Shuffle randomizes the order, keeping the current track first.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) <= 1 {
		return
	}
	if q.original == nil {
		q.original = append([]api.Track(nil), q.tracks...)
	}

	current := q.tracks[q.index]
	rest := append(append([]api.Track(nil), q.tracks[:q.index]...), q.tracks[q.index+1:]...)
	q.tracks = append([]api.Track{current}, lo.Shuffle(rest)...)
	q.index = 0
}

// Unshuffle restores original order
func (q *Queue) Unshuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.original == nil {
		return
	}

	current := q.tracks[q.index]
	q.tracks = q.original
	q.original = nil
	_, q.index, _ = lo.FindIndexOf(q.tracks, func(t api.Track) bool { return t.ID == current.ID })
}

// SetRepeatMode sets the repeat mode
func (q *Queue) SetRepeatMode(mode api.RepeatMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeatMode = mode
}

// CycleRepeat steps through off, all and one, returning the new mode.
func (q *Queue) CycleRepeat() api.RepeatMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeatMode = (q.repeatMode + 1) % 3
	return q.repeatMode
}

// RepeatMode returns the current repeat mode
func (q *Queue) RepeatMode() api.RepeatMode {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.repeatMode
}

// IsShuffled returns whether the queue is shuffled
func (q *Queue) IsShuffled() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.original != nil
}

// Tracks returns a copy of all tracks in the queue
func (q *Queue) Tracks() []api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]api.Track(nil), q.tracks...)
}

// Len returns the number of tracks in the queue
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Index returns the current index
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}

// HasNext returns true if there's a next track
func (q *Queue) HasNext() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.repeatMode != api.RepeatNone {
		return len(q.tracks) > 0
	}
	return q.index < len(q.tracks)-1
}
