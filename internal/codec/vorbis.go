package codec

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"time"

	"github.com/jfreymuth/oggvorbis"
)

type vorbisContainer struct {
	f      *os.File
	dec    *oggvorbis.Reader
	buf    []float32
	stream StreamInfo
	pos    int64
}

func openVorbis(f *os.File) (Container, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	return &vorbisContainer{
		f:      f,
		dec:    dec,
		buf:    make([]float32, pcmPacketFrames*max(dec.Channels(), 1)),
		stream: audioStream(CodecPCMF32LE, dec.SampleRate(), dec.Channels(), dec.Length()),
	}, nil
}

func (c *vorbisContainer) Streams() []StreamInfo { return []StreamInfo{c.stream} }

func (c *vorbisContainer) Duration() time.Duration { return streamDuration(c.stream) }

func (c *vorbisContainer) ReadPacket(pkt *Packet) error {
	channels := c.stream.Channels
	if channels == 0 {
		return io.EOF
	}

	// Read returns interleaved values, always a whole number of frames
	n, err := c.dec.Read(c.buf)
	frames := n / channels
	if frames == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return io.EOF
	}

	samples := frames * channels
	pkt.Data = grow(pkt.Data, samples*4)
	for i, v := range c.buf[:samples] {
		binary.LittleEndian.PutUint32(pkt.Data[i*4:], math.Float32bits(v))
	}
	pkt.StreamIndex = c.stream.Index
	pkt.PTS = c.pos
	pkt.Duration = int64(frames)
	c.pos += int64(frames)
	return nil
}

func (c *vorbisContainer) SeekBackward(_ int, tick int64) error {
	tick = max(tick, 0)
	if c.stream.Duration > 0 {
		tick = min(tick, c.stream.Duration)
	}
	if err := c.dec.SetPosition(tick); err != nil {
		return err
	}
	c.pos = tick
	return nil
}

func (c *vorbisContainer) Close() error {
	return c.f.Close()
}
