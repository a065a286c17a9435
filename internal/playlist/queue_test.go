package playlist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/tplay/api"
	playerrors "github.com/jscyril/tplay/pkg/errors"
)

func tracks(n int) []api.Track {
	out := make([]api.Track, n)
	for i := range out {
		out[i] = api.Track{ID: fmt.Sprintf("t%d", i), FilePath: fmt.Sprintf("/music/%d.wav", i)}
	}
	return out
}

func ids(ts []api.Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func TestQueue_Empty(t *testing.T) {
	q := NewQueue()
	_, ok := q.Current()
	assert.False(t, ok)
	_, ok = q.Next()
	assert.False(t, ok)
	_, ok = q.Previous()
	assert.False(t, ok)
	_, err := q.JumpTo(0)
	assert.ErrorIs(t, err, playerrors.ErrEmptyQueue)
	assert.False(t, q.HasNext())
}

func TestQueue_NextPrevious(t *testing.T) {
	tests := []struct {
		mode     api.RepeatMode
		nexts    []string // Next called four times from t0
		previous string   // Previous from t0
	}{
		{api.RepeatNone, []string{"t1", "t2", "", ""}, "t0"},
		{api.RepeatAll, []string{"t1", "t2", "t0", "t1"}, "t2"},
		{api.RepeatOne, []string{"t1", "t2", "t0", "t1"}, "t2"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			q := NewQueue(tracks(3)...)
			q.SetRepeatMode(tt.mode)

			prev, ok := q.Previous()
			require.True(t, ok)
			assert.Equal(t, tt.previous, prev.ID)
			_, err := q.JumpTo(0)
			require.NoError(t, err)

			for i, want := range tt.nexts {
				got, ok := q.Next()
				assert.Equal(t, want != "", ok, "step %d", i)
				assert.Equal(t, want, got.ID, "step %d", i)
			}
		})
	}
}

func TestQueue_Advance(t *testing.T) {
	q := NewQueue(tracks(2)...)

	next, ok := q.Advance()
	require.True(t, ok)
	assert.Equal(t, "t1", next.ID)

	q.SetRepeatMode(api.RepeatOne)
	same, ok := q.Advance()
	require.True(t, ok)
	assert.Equal(t, "t1", same.ID)

	q.SetRepeatMode(api.RepeatNone)
	_, ok = q.Advance()
	assert.False(t, ok, "end of queue")
}

func TestQueue_JumpTo(t *testing.T) {
	q := NewQueue(tracks(3)...)

	got, err := q.JumpTo(2)
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)
	assert.Equal(t, 2, q.Index())
	assert.False(t, q.HasNext())

	_, err = q.JumpTo(3)
	assert.ErrorIs(t, err, playerrors.ErrTrackNotFound)
	assert.Equal(t, 2, q.Index())
}

func TestQueue_ShuffleKeepsCurrentFirst(t *testing.T) {
	q := NewQueue(tracks(10)...)
	_, err := q.JumpTo(4)
	require.NoError(t, err)

	q.Shuffle()
	assert.True(t, q.IsShuffled())
	cur, _ := q.Current()
	assert.Equal(t, "t4", cur.ID)
	assert.Equal(t, 0, q.Index())
	assert.ElementsMatch(t, ids(tracks(10)), ids(q.Tracks()))

	q.Add(api.Track{ID: "extra"})
	_, err = q.JumpTo(q.Len() - 1)
	require.NoError(t, err)

	q.Unshuffle()
	assert.False(t, q.IsShuffled())
	assert.Equal(t, append(ids(tracks(10)), "extra"), ids(q.Tracks()))
	assert.Equal(t, 10, q.Index(), "current track is found again after unshuffle")
}

func TestQueue_CycleRepeat(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, api.RepeatAll, q.CycleRepeat())
	assert.Equal(t, api.RepeatOne, q.CycleRepeat())
	assert.Equal(t, api.RepeatNone, q.CycleRepeat())
	assert.Equal(t, api.RepeatNone, q.RepeatMode())
}

func TestQueue_TracksIsACopy(t *testing.T) {
	q := NewQueue(tracks(2)...)
	got := q.Tracks()
	got[0].ID = "changed"
	cur, _ := q.Current()
	assert.Equal(t, "t0", cur.ID)
}
