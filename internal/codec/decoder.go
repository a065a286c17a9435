package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"

	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// Decoder turns packets into frames.
//
// SendPacket returns ErrAgain while a decoded frame is waiting to be
// received. A nil packet starts draining; after it ReceiveFrame hands out the
// remaining frames and then io.EOF.
type Decoder interface {
	SendPacket(pkt *Packet) error
	ReceiveFrame(f *Frame) error
	// Flush discards buffered state so decoding can restart after a seek.
	Flush()
	Close() error
}

// NewDecoder opens a decoder for the stream's codec.
func NewDecoder(st StreamInfo) (Decoder, error) {
	bps := st.Codec.BytesPerSample()
	if bps == 0 {
		return nil, fmt.Errorf("%w: %s", playerrors.ErrDecoder, st.Codec)
	}
	if st.Channels <= 0 || st.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", playerrors.ErrDecoder, st.Channels, st.SampleRate)
	}
	return &pcmDecoder{
		codec:      st.Codec,
		bps:        bps,
		blockAlign: bps * st.Channels,
		format:     &audio.Format{NumChannels: st.Channels, SampleRate: st.SampleRate},
	}, nil
}

// pcmDecoder converts raw PCM payloads into float32 frames. It holds at most
// one packet.
type pcmDecoder struct {
	codec      CodecID
	bps        int
	blockAlign int
	format     *audio.Format

	pending    []byte
	pendingPTS int64
	hasPending bool
	draining   bool
}

func (d *pcmDecoder) SendPacket(pkt *Packet) error {
	if d.draining {
		return io.EOF
	}
	if pkt == nil {
		d.draining = true
		return nil
	}
	if d.hasPending {
		return ErrAgain
	}
	if len(pkt.Data)%d.blockAlign != 0 {
		return fmt.Errorf("%w: %d byte packet is not a multiple of %d", ErrInvalidData, len(pkt.Data), d.blockAlign)
	}
	d.pending = append(d.pending[:0], pkt.Data...)
	d.pendingPTS = pkt.PTS
	d.hasPending = true
	return nil
}

func (d *pcmDecoder) ReceiveFrame(f *Frame) error {
	if !d.hasPending {
		if d.draining {
			return io.EOF
		}
		return ErrAgain
	}

	n := len(d.pending) / d.bps
	if cap(f.Data) < n {
		f.Data = make([]float32, n)
	}
	f.Data = f.Data[:n]
	f.Format = d.format
	f.SourceBitDepth = d.bps * 8
	f.PTS = d.pendingPTS

	p := d.pending
	switch d.codec {
	case CodecPCMU8:
		for i := range f.Data {
			f.Data[i] = (float32(p[i]) - 128) / 128
		}
	case CodecPCMS16LE:
		for i := range f.Data {
			f.Data[i] = float32(int16(binary.LittleEndian.Uint16(p[i*2:]))) / 32768
		}
	case CodecPCMS24LE:
		for i := range f.Data {
			b := p[i*3:]
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			f.Data[i] = float32(v) / 8388608
		}
	case CodecPCMS32LE:
		for i := range f.Data {
			f.Data[i] = float32(float64(int32(binary.LittleEndian.Uint32(p[i*4:]))) / 2147483648)
		}
	case CodecPCMF32LE:
		for i := range f.Data {
			f.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		}
	}
	d.hasPending = false
	return nil
}

func (d *pcmDecoder) Flush() {
	d.pending = d.pending[:0]
	d.hasPending = false
	d.draining = false
}

func (d *pcmDecoder) Close() error {
	d.pending = nil
	return nil
}
