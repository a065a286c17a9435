package codec

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/mewkiz/flac"
)

// flacContainer emits one packet per FLAC frame, channels interleaved.
type flacContainer struct {
	f        *os.File
	stream   *flac.Stream
	info     StreamInfo
	bitDepth int
	pos      int64
}

func openFLAC(f *os.File) (Container, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, err
	}
	bitDepth := int(stream.Info.BitsPerSample)

	var codec CodecID
	switch {
	case bitDepth <= 16:
		codec = CodecPCMS16LE
	case bitDepth <= 24:
		codec = CodecPCMS24LE
	default:
		codec = CodecPCMS32LE
	}
	return &flacContainer{
		f:        f,
		stream:   stream,
		info:     audioStream(codec, int(stream.Info.SampleRate), int(stream.Info.NChannels), int64(stream.Info.NSamples)),
		bitDepth: bitDepth,
	}, nil
}

func (c *flacContainer) Streams() []StreamInfo { return []StreamInfo{c.info} }

func (c *flacContainer) Duration() time.Duration { return streamDuration(c.info) }

func (c *flacContainer) ReadPacket(pkt *Packet) error {
	fr, err := c.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}
	if len(fr.Subframes) == 0 {
		return ErrInvalidData
	}

	channels := len(fr.Subframes)
	frames := len(fr.Subframes[0].Samples)
	bps := c.info.Codec.BytesPerSample()
	shift := uint(bps*8 - c.bitDepth)

	pkt.Data = grow(pkt.Data, frames*channels*bps)
	for i := 0; i < frames; i++ {
		for ch, sub := range fr.Subframes {
			putSample(pkt.Data[(i*channels+ch)*bps:], bps, sub.Samples[i]<<shift)
		}
	}
	pkt.StreamIndex = c.info.Index
	pkt.PTS = c.pos
	pkt.Duration = int64(frames)
	c.pos += int64(frames)
	return nil
}

func (c *flacContainer) SeekBackward(_ int, tick int64) error {
	tick = max(tick, 0)
	if c.info.Duration > 0 {
		tick = min(tick, c.info.Duration-1)
	}
	// Seek lands on the start of the frame containing tick
	at, err := c.stream.Seek(uint64(max(tick, 0)))
	if err != nil {
		return err
	}
	c.pos = int64(at)
	return nil
}

func (c *flacContainer) Close() error {
	return c.f.Close()
}
