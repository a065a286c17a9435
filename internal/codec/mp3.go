package codec

import (
	"errors"
	"io"
	"os"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

const (
	// go-mp3 always decodes to 16-bit stereo
	mp3BlockAlign = 4
	// samples per MPEG-1 Layer III frame
	mp3PacketFrames = 1152
)

type mp3Container struct {
	f      *os.File
	dec    *gomp3.Decoder
	stream StreamInfo
	pos    int64
}

func openMP3(f *os.File) (Container, error) {
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	var frames int64
	if n := dec.Length(); n > 0 {
		frames = n / mp3BlockAlign
	}
	return &mp3Container{
		f:      f,
		dec:    dec,
		stream: audioStream(CodecPCMS16LE, dec.SampleRate(), 2, frames),
	}, nil
}

func (c *mp3Container) Streams() []StreamInfo { return []StreamInfo{c.stream} }

func (c *mp3Container) Duration() time.Duration { return streamDuration(c.stream) }

func (c *mp3Container) ReadPacket(pkt *Packet) error {
	pkt.Data = grow(pkt.Data, mp3PacketFrames*mp3BlockAlign)
	n, err := io.ReadFull(c.dec, pkt.Data)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	frames := n / mp3BlockAlign
	if frames == 0 {
		return io.EOF
	}
	pkt.Data = pkt.Data[:frames*mp3BlockAlign]
	pkt.StreamIndex = c.stream.Index
	pkt.PTS = c.pos
	pkt.Duration = int64(frames)
	c.pos += int64(frames)
	return nil
}

func (c *mp3Container) SeekBackward(_ int, tick int64) error {
	tick = max(tick, 0)
	if c.stream.Duration > 0 {
		tick = min(tick, c.stream.Duration)
	}
	off, err := c.dec.Seek(tick*mp3BlockAlign, io.SeekStart)
	if err != nil {
		return err
	}
	c.pos = off / mp3BlockAlign
	return nil
}

func (c *mp3Container) Close() error {
	return c.f.Close()
}
