package codec

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"

	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	frameSize int
}

// WithFrameSize sets the number of sample frames per filtered frame.
func WithFrameSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.frameSize = n
		}
	}
}

// Pipeline pulls samples from one file through container, decoder and
// filter graph. It is not safe for concurrent use.
type Pipeline struct {
	path      string
	frameSize int

	container Container
	stream    StreamInfo
	decoder   Decoder
	graph     *FilterGraph

	packet   Packet
	frame    Frame
	filtered FilteredFrame
	cursor   int

	packetEOF bool
	frameEOF  bool
	filterEOF bool

	duration time.Duration
	// position reported once the last filtered frame has been consumed
	endPTS int64
	err    error
	closed bool
}

// Open builds a pipeline for path and primes it with the first filtered
// frame. Every stage allocated before a failure is released.
func Open(path string, opts ...Option) (*Pipeline, error) {
	c, err := OpenContainer(path)
	if err != nil {
		return nil, err
	}
	return NewPipeline(path, c, opts...)
}

// NewPipeline builds a pipeline over an already opened container, which it
// takes ownership of. The container is closed if construction fails.
func NewPipeline(path string, c Container, opts ...Option) (*Pipeline, error) {
	o := options{frameSize: DefaultFrameSize}
	for _, opt := range opts {
		opt(&o)
	}
	return newPipeline(path, c, o)
}

func newPipeline(path string, c Container, o options) (p *Pipeline, err error) {
	pl := &Pipeline{path: path, container: c, frameSize: o.frameSize}
	defer func() {
		if err != nil {
			pl.Close()
			p = nil
		}
	}()
	p = pl

	streams := c.Streams()
	if len(streams) == 0 {
		return nil, fmt.Errorf("%w: %s has no streams", playerrors.ErrStream, path)
	}
	for _, st := range streams {
		if st.Type == MediaAudio && (st.SampleRate <= 0 || st.Channels <= 0) {
			return nil, fmt.Errorf("%w: stream %d has %d channels at %d Hz", playerrors.ErrStream, st.Index, st.Channels, st.SampleRate)
		}
	}

	best, err := FindBestStream(streams)
	if err != nil {
		return nil, err
	}
	p.stream = streams[best]

	if p.decoder, err = NewDecoder(p.stream); err != nil {
		return nil, err
	}
	if p.graph, err = NewFilterGraph(p.stream, p.frameSize); err != nil {
		return nil, err
	}

	p.duration = c.Duration()
	if p.duration == 0 {
		p.duration = streamDuration(p.stream)
	}

	if err := p.acquireFiltered(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", playerrors.ErrDecode, err)
	}
	return p, nil
}

// Path returns the file the pipeline was opened on.
func (p *Pipeline) Path() string { return p.path }

// Duration of the selected stream, 0 when unknown.
func (p *Pipeline) Duration() time.Duration { return p.duration }

// Stream returns the selected audio stream.
func (p *Pipeline) Stream() StreamInfo { return p.stream }

// EOF reports whether every stage has been drained.
func (p *Pipeline) EOF() bool {
	return p.packetEOF && p.frameEOF && p.filterEOF
}

// Timestamp is the position of the next sample NextSample will return.
func (p *Pipeline) Timestamp() time.Duration {
	if p.cursor < len(p.filtered.Samples) {
		return OutputTimeBase.Duration(p.filtered.PTS + int64(p.cursor/Channels))
	}
	return OutputTimeBase.Duration(p.endPTS)
}

// NextSample returns the next interleaved output sample, or io.EOF once the
// pipeline is finished. A decode failure is returned once and every later
// call reports io.EOF.
func (p *Pipeline) NextSample() (int16, error) {
	if p.cursor >= len(p.filtered.Samples) {
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	s := p.filtered.Samples[p.cursor]
	p.cursor++
	return s, nil
}

// ReadSamples fills dst with interleaved samples. It returns io.EOF only
// when no sample could be read.
func (p *Pipeline) ReadSamples(dst []int16) (int, error) {
	n := 0
	for n < len(dst) {
		if p.cursor >= len(p.filtered.Samples) {
			if err := p.advance(); err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(dst[n:], p.filtered.Samples[p.cursor:])
		p.cursor += c
		n += c
	}
	return n, nil
}

// advance replaces the exhausted filtered frame with the next one.
func (p *Pipeline) advance() error {
	if p.closed || p.EOF() {
		return io.EOF
	}
	if n := p.filtered.Frames(); n > 0 {
		p.endPTS = p.filtered.PTS + int64(n)
	}
	err := p.acquireFiltered()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return io.EOF
	default:
		p.packetEOF, p.frameEOF, p.filterEOF = true, true, true
		p.filtered.Unref()
		p.cursor = 0
		p.err = fmt.Errorf("%w: %w", playerrors.ErrDecode, err)
		return p.err
	}
}

// Err returns the decode failure that finished the pipeline, if any.
func (p *Pipeline) Err() error { return p.err }

// SeekTo repositions the pipeline at target, clamped into [0, duration],
// and returns the clamped target.
func (p *Pipeline) SeekTo(target time.Duration) (time.Duration, error) {
	if p.closed {
		return 0, fmt.Errorf("%w: pipeline closed", playerrors.ErrSeek)
	}
	if p.duration > 0 {
		target = lo.Clamp(target, 0, p.duration)
	} else {
		target = max(target, 0)
	}

	tick := p.stream.TimeBase.Ticks(target)
	if err := p.container.SeekBackward(p.stream.Index, tick); err != nil {
		return 0, fmt.Errorf("%w: %w", playerrors.ErrSeek, err)
	}
	p.decoder.Flush()

	graph, err := NewFilterGraph(p.stream, p.frameSize)
	if err != nil {
		return 0, err
	}
	p.graph = graph
	p.packetEOF, p.frameEOF, p.filterEOF = false, false, false
	p.err = nil
	p.filtered.Unref()
	p.cursor = 0

	want := OutputTimeBase.Ticks(target)
	p.endPTS = want
	for {
		err := p.acquireFiltered()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %w", playerrors.ErrDecode, err)
		}
		end := p.filtered.PTS + int64(p.filtered.Frames())
		if end > want {
			if skip := want - p.filtered.PTS; skip > 0 {
				p.cursor = int(skip) * Channels
			}
			break
		}
		p.endPTS = end
	}
	return target, nil
}

// Close releases the decoder and container. It is safe to call twice.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.decoder != nil {
		errs = append(errs, p.decoder.Close())
	}
	if p.container != nil {
		errs = append(errs, p.container.Close())
	}
	p.graph = nil
	return errors.Join(errs...)
}

// retrievePacket makes a single read attempt.
func (p *Pipeline) retrievePacket() error {
	p.packet.Unref()
	err := p.container.ReadPacket(&p.packet)
	if errors.Is(err, io.EOF) {
		p.packetEOF = true
	}
	return err
}

// acquirePacket reads until a packet of the selected stream arrives.
func (p *Pipeline) acquirePacket() error {
	for !p.packetEOF {
		if err := p.retrievePacket(); err != nil {
			return err
		}
		if p.packet.StreamIndex == p.stream.Index {
			return nil
		}
	}
	return io.EOF
}

func (p *Pipeline) retrieveFrame() error {
	p.frame.Unref()
	err := p.decoder.ReceiveFrame(&p.frame)
	if errors.Is(err, io.EOF) {
		p.frameEOF = true
	}
	return err
}

// acquireFrame feeds the decoder until it produces a frame or is drained.
func (p *Pipeline) acquireFrame() error {
	for !p.frameEOF {
		err := p.retrieveFrame()
		if !errors.Is(err, ErrAgain) {
			return err
		}

		switch err := p.acquirePacket(); {
		case err == nil:
			if err := p.decoder.SendPacket(&p.packet); err != nil {
				return err
			}
		case errors.Is(err, io.EOF):
			if err := p.decoder.SendPacket(nil); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
		default:
			return err
		}
	}
	return io.EOF
}

func (p *Pipeline) retrieveFiltered() error {
	p.filtered.Unref()
	p.cursor = 0
	err := p.graph.Pull(&p.filtered)
	if errors.Is(err, io.EOF) {
		p.filterEOF = true
	}
	return err
}

// acquireFiltered feeds the filter graph until it produces a frame or is
// drained.
func (p *Pipeline) acquireFiltered() error {
	for !p.filterEOF {
		err := p.retrieveFiltered()
		if !errors.Is(err, ErrAgain) {
			return err
		}

		switch err := p.acquireFrame(); {
		case err == nil:
			if err := p.graph.Push(&p.frame); err != nil {
				return err
			}
		case errors.Is(err, io.EOF):
			if err := p.graph.Push(nil); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
		default:
			return err
		}
	}
	return io.EOF
}
