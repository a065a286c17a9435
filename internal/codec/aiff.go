package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// aiffContainer re-packs go-audio/aiff integer PCM as little-endian packets.
type aiffContainer struct {
	f        io.ReadSeekCloser
	dec      *aiff.Decoder
	buf      *audio.IntBuffer
	stream   StreamInfo
	bitDepth int
	pos      int64
}

func openAIFF(f *os.File) (Container, error) {
	c, err := newAIFFContainer(f)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newAIFFContainer(f io.ReadSeekCloser) (*aiffContainer, error) {
	c := &aiffContainer{f: f}
	if err := c.reset(); err != nil {
		return nil, err
	}

	var codec CodecID
	switch {
	case c.bitDepth <= 16:
		codec = CodecPCMS16LE
	case c.bitDepth <= 24:
		codec = CodecPCMS24LE
	case c.bitDepth <= 32:
		codec = CodecPCMS32LE
	}
	format := c.dec.Format()
	c.stream = audioStream(codec, format.SampleRate, format.NumChannels, int64(c.dec.NumSampleFrames))
	c.buf = &audio.IntBuffer{
		Format: format,
		Data:   make([]int, pcmPacketFrames*max(format.NumChannels, 1)),
	}
	return c, nil
}

// reset rewinds the file and parses the header again. go-audio/aiff has no
// sample-accurate seek, so seeking restarts from the sound data chunk.
func (c *aiffContainer) reset() error {
	if _, err := c.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	dec := aiff.NewDecoder(c.f)
	if !dec.IsValidFile() {
		return errors.New("invalid aiff file")
	}
	dec.ReadInfo()
	if dec.Format() == nil || dec.NumChans == 0 {
		return fmt.Errorf("read aiff header: %w", errors.New("missing COMM chunk"))
	}
	c.dec = dec
	c.bitDepth = int(dec.BitDepth)
	c.pos = 0
	return nil
}

func (c *aiffContainer) Streams() []StreamInfo { return []StreamInfo{c.stream} }

func (c *aiffContainer) Duration() time.Duration { return streamDuration(c.stream) }

func (c *aiffContainer) ReadPacket(pkt *Packet) error {
	channels := c.stream.Channels
	bps := c.stream.Codec.BytesPerSample()
	if channels == 0 || bps == 0 {
		return io.EOF
	}

	c.buf.Data = c.buf.Data[:cap(c.buf.Data)]
	n, err := c.dec.PCMBuffer(c.buf)
	frames := n / channels
	if frames == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return io.EOF
	}

	samples := frames * channels
	pkt.Data = grow(pkt.Data, samples*bps)
	shift := uint(bps*8 - c.bitDepth)
	for i, v := range c.buf.Data[:samples] {
		putSample(pkt.Data[i*bps:], bps, int32(v)<<shift)
	}
	pkt.StreamIndex = c.stream.Index
	pkt.PTS = c.pos
	pkt.Duration = int64(frames)
	c.pos += int64(frames)
	return nil
}

func (c *aiffContainer) SeekBackward(_ int, tick int64) error {
	if err := c.reset(); err != nil {
		return err
	}
	var pkt Packet
	for c.pos < tick {
		remaining := int(tick - c.pos)
		if remaining < pcmPacketFrames {
			c.buf.Data = c.buf.Data[:remaining*c.stream.Channels]
			n, err := c.dec.PCMBuffer(c.buf)
			c.pos += int64(n / c.stream.Channels)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if err != nil || n == 0 {
				return nil
			}
			continue
		}
		if err := c.ReadPacket(&pkt); err != nil {
			if errors.Is(err, io.EOF) {
				// past the last frame; the next read reports the end
				return nil
			}
			return err
		}
	}
	return nil
}

func (c *aiffContainer) Close() error {
	return c.f.Close()
}

// putSample writes a left-aligned sample of bps bytes little-endian.
func putSample(dst []byte, bps int, v int32) {
	switch bps {
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	case 3:
		dst[0] = byte(v)
		dst[1] = byte(v >> 8)
		dst[2] = byte(v >> 16)
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	}
}
