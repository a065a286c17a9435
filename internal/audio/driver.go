package audio

import (
	"errors"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/codec"
	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// openFunc builds a pipeline for a file.
type openFunc func(path string) (*codec.Pipeline, error)

// driver is the only goroutine that touches the pipeline and writes to the
// ring. It sleeps on the queue condition between batches.
type driver struct {
	t       *transport
	ring    *ring
	queue   *commandQueue
	publish func(api.Event)
	open    openFunc
	log     logrus.FieldLogger

	pipeline *codec.Pipeline
	track    api.Track
	batch    []api.Command
	scratch  []int16
}

// run loops until the transport is terminating, then closes the pipeline.
func (d *driver) run() {
	defer d.closePipeline()

	for {
		d.queue.mu.Lock()
		for !d.readyLocked() {
			d.queue.cond.Wait()
		}
		d.batch = d.queue.drainLocked(d.batch[:0])
		d.queue.mu.Unlock()

		for _, cmd := range d.batch {
			d.apply(cmd)
		}
		clear(d.batch)

		d.handleEOF()
		d.fill()

		if d.t.terminating.Load() {
			return
		}
	}
}

// readyLocked is the wake predicate. Caller holds the queue lock.
func (d *driver) readyLocked() bool {
	if d.t.terminating.Load() || d.queue.pendingLocked() {
		return true
	}
	if d.pipeline != nil && d.pipeline.EOF() && (!d.t.ended.Load() || d.t.looping.Load()) {
		return true
	}
	return d.ring.Writable() > 0
}

func (d *driver) apply(cmd api.Command) {
	d.log.WithField("command", cmd.String()).Debug("applying command")

	switch c := cmd.(type) {
	case api.Play:
		if err := d.play(c.Track); err != nil {
			d.fail("play", c.Track, err)
			return
		}
	case api.Stop:
		d.t.playing.Store(false)
		d.closePipeline()
		d.ring.Flush()
		d.t.setTimestamp(0)
		d.t.ended.Store(false)
		d.t.setTrack(nil, 0)
		d.track = api.Track{}
	case api.SetVolume:
		d.t.setVolume(c.Level)
	case api.AdjustVolume:
		d.t.setVolume(d.t.Volume() + c.Delta)
	case api.SeekAbsolute:
		d.seek(c.Position)
	case api.SeekRelative:
		d.seek(d.t.Timestamp() + c.Offset)
	case api.ToggleMute:
		toggle(&d.t.muted)
	case api.TogglePlayback:
		// nothing to resume without a pipeline
		if d.pipeline != nil || d.t.playing.Load() {
			toggle(&d.t.playing)
		}
	case api.SetPlayback:
		d.t.playing.Store(c.Playing && d.pipeline != nil)
	case api.ToggleLoop:
		toggle(&d.t.looping)
	default:
		d.log.WithField("command", cmd).Warn("unknown command")
		return
	}
	d.emit(api.EventStateChange, nil)
}

// play swaps in a pipeline for track. On failure nothing changes.
func (d *driver) play(track api.Track) error {
	if track.FilePath == "" {
		return playerrors.ErrTrackNotFound
	}
	p, err := d.open(track.FilePath)
	if err != nil {
		return err
	}

	d.closePipeline()
	d.pipeline = p
	d.track = track
	d.t.setTrack(&track, p.Duration())
	d.ring.Flush()
	d.t.setTimestamp(0)
	d.t.ended.Store(false)
	d.t.playing.Store(true)

	d.log.WithFields(logrus.Fields{"track": track.ID, "path": track.FilePath}).Info("track started")
	d.emit(api.EventTrackStarted, nil)
	return nil
}

func (d *driver) seek(target time.Duration) {
	if d.pipeline == nil {
		return
	}
	if dur := d.pipeline.Duration(); dur > 0 {
		target = lo.Clamp(target, 0, dur)
	} else {
		target = max(target, 0)
	}
	got, err := d.pipeline.SeekTo(target)
	if err != nil {
		d.closePipeline()
		d.t.playing.Store(false)
		d.fail("seek", d.track, err)
		return
	}
	d.ring.Flush()
	d.t.setTimestamp(got)
	d.t.ended.Store(false)

	d.log.WithFields(logrus.Fields{"track": d.track.ID, "position": got}).Debug("seeked")
	d.emit(api.EventSeeked, nil)
}

// handleEOF marks the end of the track once and restarts it when looping.
func (d *driver) handleEOF() {
	if d.pipeline == nil || !d.pipeline.EOF() {
		return
	}
	if !d.t.ended.Load() {
		d.t.ended.Store(true)
		d.log.WithField("track", d.track.ID).Info("track ended")
		d.emit(api.EventTrackEnded, nil)
	}
	if !d.t.looping.Load() {
		return
	}

	next, err := d.open(d.track.FilePath)
	if err != nil {
		d.closePipeline()
		d.fail("loop", d.track, err)
		return
	}
	if next.EOF() {
		// an empty file would loop forever without producing a sample
		next.Close()
		d.closePipeline()
		return
	}
	d.closePipeline()
	d.pipeline = next
	d.t.setTimestamp(0)
	d.t.ended.Store(false)
	d.emit(api.EventTrackLooped, nil)
}

// fill tops up the ring. Samples come from the pipeline until it finishes;
// after that, or with no pipeline, the ring is padded with silence. A
// pipeline that just reached its end leaves the ring alone so a loop can
// continue without a gap. A decode failure unloads the pipeline and stops
// playback.
func (d *driver) fill() {
	for {
		n := d.ring.Writable()
		if n == 0 {
			return
		}
		if cap(d.scratch) < n {
			d.scratch = make([]int16, d.ring.Cap())
		}
		buf := d.scratch[:n]

		if d.pipeline == nil || (d.pipeline.EOF() && d.t.ended.Load()) {
			clear(buf)
			d.ring.Write(buf)
			return
		}
		if d.pipeline.EOF() {
			return
		}

		got, err := d.pipeline.ReadSamples(buf)
		d.ring.Write(buf[:got])
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return
		default:
			// a corrupt stream stops playback; it is neither an end of
			// track nor something a loop could get past
			d.closePipeline()
			d.t.playing.Store(false)
			d.fail("decode", d.track, err)
			return
		}
	}
}

func (d *driver) closePipeline() {
	if d.pipeline == nil {
		return
	}
	if err := d.pipeline.Close(); err != nil {
		d.log.WithError(err).WithField("path", d.pipeline.Path()).Warn("closing pipeline")
	}
	d.pipeline = nil
}

func (d *driver) fail(op string, track api.Track, err error) {
	perr := playerrors.NewPlayerError(op, track.ID, err)
	d.log.WithError(err).WithFields(logrus.Fields{"track": track.ID, "path": track.FilePath}).Errorf("%s failed", op)
	d.emitFor(api.EventError, track, perr)
}

func (d *driver) emit(typ api.EventType, err error) {
	d.emitFor(typ, d.track, err)
}

func (d *driver) emitFor(typ api.EventType, track api.Track, err error) {
	state := d.t.Snapshot()
	d.publish(api.Event{
		Type:     typ,
		Track:    track,
		Position: state.Timestamp,
		State:    state,
		Err:      err,
	})
}
