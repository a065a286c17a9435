package stats

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jscyril/tplay/api"
)

// session is one uninterrupted stretch of a track, from start (or loop) to
// end, replacement or stop.
type session struct {
	track    api.Track
	played   time.Duration
	playing  bool
	lastSeen time.Time
}

// Recorder turns engine events into play and skip counts. Play time is
// wall-clock time spent in the playing state.
type Recorder struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time

	current *session
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store, log logrus.FieldLogger) *Recorder {
	return &Recorder{store: store, log: log, now: time.Now}
}

// Run consumes events until the channel closes or ctx is done. The open
// session is recorded before returning. Store failures are logged only.
func (r *Recorder) Run(ctx context.Context, events <-chan api.Event) error {
	for {
		select {
		case <-ctx.Done():
			r.tick(false)
			r.finish(context.WithoutCancel(ctx), false)
			return nil
		case ev, ok := <-events:
			if !ok {
				r.tick(false)
				r.finish(ctx, false)
				return nil
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle applies one event.
func (r *Recorder) Handle(ctx context.Context, ev api.Event) {
	r.tick(ev.State.Playing)

	switch ev.Type {
	case api.EventTrackStarted:
		// the previous track was replaced before it ended
		r.finish(ctx, true)
		r.start(ev.Track, ev.State.Playing)
	case api.EventTrackEnded:
		r.finish(ctx, false)
	case api.EventTrackLooped:
		r.finish(ctx, false)
		r.start(ev.Track, ev.State.Playing)
	case api.EventStateChange:
		if r.current != nil && ev.State.Track.IsZero() {
			// stopped
			r.finish(ctx, true)
		}
	}
}

func (r *Recorder) start(track api.Track, playing bool) {
	r.current = &session{track: track, playing: playing, lastSeen: r.now()}
}

// tick credits the time since the previous event to the open session if it
// was playing, then records the new playing state.
func (r *Recorder) tick(playing bool) {
	s := r.current
	if s == nil {
		return
	}
	now := r.now()
	if s.playing {
		s.played += now.Sub(s.lastSeen)
	}
	s.lastSeen = now
	s.playing = playing
}

// finish closes the open session. interrupted marks a stop or replacement
// before the end of the track.
func (r *Recorder) finish(ctx context.Context, interrupted bool) {
	s := r.current
	r.current = nil
	if s == nil || s.played < PlayedThreshold {
		return
	}

	log := r.log.WithFields(logrus.Fields{"track": s.track.ID, "played": s.played})
	e, ok, err := r.store.Get(ctx, s.track.ID)
	if err != nil {
		log.WithError(err).Warn("loading play statistics")
		return
	}
	if !ok {
		e = newEntry(s.track)
	}
	e.TimesPlayed++
	if interrupted {
		e.TimesSkipped++
	}
	e.PlaySeconds += s.played.Seconds()
	e.LastPlayed = r.now()
	if s.track.Duration > 0 {
		e.DurationSeconds = s.track.Duration.Seconds()
	}

	if err := r.store.Put(ctx, e); err != nil {
		log.WithError(err).Warn("saving play statistics")
		return
	}
	log.WithField("skipped", interrupted).Debug("play recorded")
}
