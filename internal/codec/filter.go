package codec

import (
	"fmt"
	"io"
	"math"

	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// DefaultFrameSize is the number of sample frames per filtered frame.
const DefaultFrameSize = 1024

// MaxFrameSize bounds the frame buffers a graph will allocate.
const MaxFrameSize = 1 << 16

const maxChannels = 8

// FilterGraph converts decoded frames to the output format: channel layout
// mapped to stereo, resampled to SampleRate, quantized to int16.
type FilterGraph struct {
	inChannels int
	inTimeBase Rational
	frameSize  int
	resampler  *resampler

	stereo []float32
	out    []float32 // stereo output not yet pulled
	outPTS int64
	hasPTS bool

	draining bool
}

// NewFilterGraph builds a graph for frames of the given stream.
func NewFilterGraph(in StreamInfo, frameSize int) (*FilterGraph, error) {
	if in.SampleRate <= 0 || in.Channels <= 0 || in.Channels > maxChannels {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", playerrors.ErrFilter, in.Channels, in.SampleRate)
	}
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	if frameSize > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d samples exceeds %d", playerrors.ErrAlloc, frameSize, MaxFrameSize)
	}
	tb := in.TimeBase
	if tb.Den == 0 {
		tb = Rational{Num: 1, Den: int64(in.SampleRate)}
	}
	return &FilterGraph{
		inChannels: in.Channels,
		inTimeBase: tb,
		frameSize:  frameSize,
		resampler:  newResampler(in.SampleRate, SampleRate, Channels),
	}, nil
}

// Push feeds one decoded frame into the graph. A nil frame marks end of
// input; pushing after that returns io.EOF.
func (g *FilterGraph) Push(f *Frame) error {
	if g.draining {
		return io.EOF
	}
	if f == nil {
		g.out = g.resampler.flush(g.out)
		g.draining = true
		return nil
	}
	if f.Format != nil && f.Format.NumChannels != g.inChannels {
		return fmt.Errorf("%w: frame has %d channels, graph expects %d", ErrInvalidData, f.Format.NumChannels, g.inChannels)
	}
	if !g.hasPTS {
		g.outPTS = Rescale(f.PTS, g.inTimeBase, OutputTimeBase)
		g.hasPTS = true
	}
	g.stereo = mapToStereo(g.stereo[:0], f.Data, g.inChannels)
	g.out = g.resampler.push(g.stereo, g.out)
	return nil
}

// Pull fills dst with the next output frame. It returns ErrAgain when more
// input is needed and io.EOF once drained. Only the final frame may be
// shorter than the frame size.
func (g *FilterGraph) Pull(dst *FilteredFrame) error {
	avail := len(g.out) / Channels
	n := g.frameSize
	switch {
	case avail >= n:
	case g.draining && avail > 0:
		n = avail
	case g.draining:
		return io.EOF
	default:
		return ErrAgain
	}

	samples := n * Channels
	if cap(dst.Samples) < samples {
		dst.Samples = make([]int16, samples)
	}
	dst.Samples = dst.Samples[:samples]
	for i, v := range g.out[:samples] {
		dst.Samples[i] = toInt16(v)
	}
	dst.PTS = g.outPTS

	g.outPTS += int64(n)
	g.out = g.out[:copy(g.out, g.out[samples:])]
	return nil
}

// mapToStereo appends in, converted to two channels, to dst. Mono is
// duplicated; wider layouts fold even channels left and odd channels right.
func mapToStereo(dst, in []float32, channels int) []float32 {
	switch channels {
	case 2:
		return append(dst, in...)
	case 1:
		for _, v := range in {
			dst = append(dst, v, v)
		}
		return dst
	}

	left := float32((channels + 1) / 2)
	right := float32(channels / 2)
	for i := 0; i+channels <= len(in); i += channels {
		var l, r float32
		for c := 0; c < channels; c++ {
			if c%2 == 0 {
				l += in[i+c]
			} else {
				r += in[i+c]
			}
		}
		dst = append(dst, l/left, r/right)
	}
	return dst
}

// toInt16 quantizes a sample in [-1,1], clamping and rounding.
func toInt16(x float32) int16 {
	v := math.Round(float64(x) * 32767)
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
