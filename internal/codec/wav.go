package codec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE

	// frames per packet for raw PCM containers
	pcmPacketFrames = 1024
)

// wavContainer walks the RIFF header with go-audio/wav and then serves the
// data chunk directly as raw PCM packets.
type wavContainer struct {
	f          *os.File
	data       *io.SectionReader
	stream     StreamInfo
	blockAlign int
	pos        int64
}

func openWAV(f *os.File) (Container, error) {
	d := wav.NewDecoder(f)
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if d.NumChans == 0 || d.SampleRate == 0 || d.BitDepth == 0 {
		return nil, errors.New("wav header has no format chunk")
	}

	codec, err := wavCodec(d.WavAudioFormat, int(d.BitDepth))
	if err != nil {
		return nil, err
	}

	start, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	size := int64(d.PCMSize)
	if fi, err := f.Stat(); err == nil && (size <= 0 || start+size > fi.Size()) {
		// streamed or truncated files report a bogus chunk size
		size = fi.Size() - start
	}

	channels := int(d.NumChans)
	blockAlign := channels * codec.BytesPerSample()
	var frames int64
	if blockAlign > 0 {
		frames = size / int64(blockAlign)
	}

	return &wavContainer{
		f:          f,
		data:       io.NewSectionReader(f, start, frames*int64(blockAlign)),
		stream:     audioStream(codec, int(d.SampleRate), channels, frames),
		blockAlign: blockAlign,
	}, nil
}

func wavCodec(format uint16, bitDepth int) (CodecID, error) {
	switch format {
	case wavFormatFloat:
		if bitDepth == 32 {
			return CodecPCMF32LE, nil
		}
	case wavFormatPCM, wavFormatExtensible:
		switch bitDepth {
		case 8:
			return CodecPCMU8, nil
		case 16:
			return CodecPCMS16LE, nil
		case 24:
			return CodecPCMS24LE, nil
		case 32:
			return CodecPCMS32LE, nil
		}
	}
	// let stream probing fail with an unsupported codec instead of refusing
	// to open the file
	return CodecNone, nil
}

func (c *wavContainer) Streams() []StreamInfo { return []StreamInfo{c.stream} }

func (c *wavContainer) Duration() time.Duration { return streamDuration(c.stream) }

func (c *wavContainer) ReadPacket(pkt *Packet) error {
	if c.blockAlign == 0 {
		return io.EOF
	}
	pkt.Data = grow(pkt.Data, pcmPacketFrames*c.blockAlign)
	n, err := io.ReadFull(c.data, pkt.Data)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	frames := n / c.blockAlign
	if frames == 0 {
		return io.EOF
	}
	pkt.Data = pkt.Data[:frames*c.blockAlign]
	pkt.StreamIndex = c.stream.Index
	pkt.PTS = c.pos
	pkt.Duration = int64(frames)
	c.pos += int64(frames)
	return nil
}

func (c *wavContainer) SeekBackward(_ int, tick int64) error {
	tick = min(max(tick, 0), c.stream.Duration)
	if _, err := c.data.Seek(tick*int64(c.blockAlign), io.SeekStart); err != nil {
		return err
	}
	c.pos = tick
	return nil
}

func (c *wavContainer) Close() error {
	return c.f.Close()
}
