// Package codec turns a media file into a gapless stream of fixed-format
// samples: signed 16-bit, interleaved stereo, 48 kHz.
//
// The pipeline is a three-stage pull chain modelled on the FFmpeg
// send/receive API:
//
//	Container.ReadPacket -> Decoder.SendPacket/ReceiveFrame -> FilterGraph.Push/Pull
//
// Every stage can answer ErrAgain ("feed me more input") or io.EOF. Neither is
// a failure; both are ordinary control flow of the chain.
package codec

import (
	"errors"
	"math"
	"time"

	"github.com/go-audio/audio"
)

// Output format produced by every Pipeline.
const (
	SampleRate = 48000
	Channels   = 2
)

// OutputTimeBase is the time base of filtered frames.
var OutputTimeBase = Rational{Num: 1, Den: SampleRate}

// ErrAgain is returned by a stage that needs more input before it can
// produce output.
var ErrAgain = errors.New("resource temporarily unavailable")

// ErrInvalidData reports malformed payload inside a packet or frame.
var ErrInvalidData = errors.New("invalid data found when processing input")

// Rational is a time base: one tick lasts Num/Den seconds.
type Rational struct {
	Num int64
	Den int64
}

// Duration converts ticks to a wall-clock duration.
func (r Rational) Duration(ticks int64) time.Duration {
	if r.Den == 0 {
		return 0
	}
	return time.Duration(math.Round(float64(ticks) * float64(r.Num) * float64(time.Second) / float64(r.Den)))
}

// Ticks converts a wall-clock duration to ticks, rounding to nearest.
func (r Rational) Ticks(d time.Duration) int64 {
	if r.Num == 0 {
		return 0
	}
	return int64(math.Round(d.Seconds() * float64(r.Den) / float64(r.Num)))
}

// Rescale converts ticks from one time base to another, rounding to nearest.
func Rescale(ticks int64, from, to Rational) int64 {
	if from == to {
		return ticks
	}
	return int64(math.Round(float64(ticks) * float64(from.Num*to.Den) / float64(from.Den*to.Num)))
}

// MediaType classifies a stream inside a container.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaAudio
	MediaData
)

// CodecID names the payload encoding of a stream's packets.
type CodecID int

const (
	CodecNone CodecID = iota
	CodecPCMU8
	CodecPCMS16LE
	CodecPCMS24LE
	CodecPCMS32LE
	CodecPCMF32LE
)

func (c CodecID) String() string {
	switch c {
	case CodecPCMU8:
		return "pcm_u8"
	case CodecPCMS16LE:
		return "pcm_s16le"
	case CodecPCMS24LE:
		return "pcm_s24le"
	case CodecPCMS32LE:
		return "pcm_s32le"
	case CodecPCMF32LE:
		return "pcm_f32le"
	default:
		return "none"
	}
}

// BytesPerSample is the size of one sample of one channel, or 0 when the
// codec is unknown.
func (c CodecID) BytesPerSample() int {
	switch c {
	case CodecPCMU8:
		return 1
	case CodecPCMS16LE:
		return 2
	case CodecPCMS24LE:
		return 3
	case CodecPCMS32LE, CodecPCMF32LE:
		return 4
	default:
		return 0
	}
}

// StreamInfo describes one elementary stream of a container.
type StreamInfo struct {
	Index      int
	Type       MediaType
	Codec      CodecID
	SampleRate int
	Channels   int
	TimeBase   Rational
	// Duration in TimeBase ticks, 0 when unknown.
	Duration int64
}

// Packet is one unit of payload read from a container.
type Packet struct {
	StreamIndex int
	PTS         int64
	Duration    int64
	Data        []byte
}

// Unref clears the packet but keeps its buffer for reuse.
func (p *Packet) Unref() {
	p.StreamIndex = 0
	p.PTS = 0
	p.Duration = 0
	p.Data = p.Data[:0]
}

// Frame is a block of decoded samples at the stream's native rate and
// channel count, interleaved, in [-1, 1].
type Frame struct {
	audio.Float32Buffer
	PTS int64
}

// Frames returns the number of sample frames held.
func (f *Frame) Frames() int {
	if f.Format == nil || f.Format.NumChannels == 0 {
		return 0
	}
	return len(f.Data) / f.Format.NumChannels
}

// Unref clears the frame but keeps its buffer for reuse.
func (f *Frame) Unref() {
	f.Data = f.Data[:0]
	f.PTS = 0
}

// FilteredFrame is a block of output samples: interleaved stereo int16 at
// SampleRate, PTS in OutputTimeBase.
type FilteredFrame struct {
	Samples []int16
	PTS     int64
}

// Frames returns the number of sample frames held.
func (f *FilteredFrame) Frames() int { return len(f.Samples) / Channels }

// Unref clears the frame but keeps its buffer for reuse.
func (f *FilteredFrame) Unref() {
	f.Samples = f.Samples[:0]
	f.PTS = 0
}
