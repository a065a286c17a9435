package codec

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/tplay/internal/codec/codectest"
	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// fakeContainer serves pre-built packets.
type fakeContainer struct {
	streams []StreamInfo
	packets []*Packet
	next    int
	readErr error
	closed  bool
}

func (c *fakeContainer) Streams() []StreamInfo { return c.streams }

func (c *fakeContainer) ReadPacket(pkt *Packet) error {
	if c.next >= len(c.packets) {
		if c.readErr != nil {
			return c.readErr
		}
		return io.EOF
	}
	src := c.packets[c.next]
	c.next++
	pkt.StreamIndex = src.StreamIndex
	pkt.PTS = src.PTS
	pkt.Data = append(pkt.Data[:0], src.Data...)
	return nil
}

func (c *fakeContainer) SeekBackward(_ int, tick int64) error {
	c.next = 0
	for i, p := range c.packets {
		if p.PTS <= tick {
			c.next = i
		}
	}
	return nil
}

func (c *fakeContainer) Duration() time.Duration { return 0 }

func (c *fakeContainer) Close() error {
	c.closed = true
	return nil
}

func stereoStream(index int) StreamInfo {
	st := audioStream(CodecPCMS16LE, SampleRate, 2, 0)
	st.Index = index
	return st
}

// stereoPackets builds count packets of frames stereo frames each with a
// constant value.
func stereoPackets(stream, count, frames int, v int16) []*Packet {
	var pkts []*Packet
	for i := 0; i < count; i++ {
		samples := make([]int16, frames*2)
		for j := range samples {
			samples[j] = v
		}
		p := s16Packet(int64(i*frames), samples...)
		p.StreamIndex = stream
		pkts = append(pkts, p)
	}
	return pkts
}

func drain(t *testing.T, p *Pipeline) int {
	t.Helper()
	n := 0
	for {
		_, err := p.NextSample()
		if errors.Is(err, io.EOF) {
			return n
		}
		require.NoError(t, err)
		n++
	}
}

func TestPipeline_DiscardsOtherStreams(t *testing.T) {
	audioPkts := stereoPackets(1, 4, 512, 1000)
	var pkts []*Packet
	for _, p := range audioPkts {
		pkts = append(pkts, &Packet{StreamIndex: 0, Data: []byte("tag data")}, p)
	}
	c := &fakeContainer{
		streams: []StreamInfo{{Index: 0, Type: MediaData}, stereoStream(1)},
		packets: pkts,
	}

	p, err := newPipeline("fake", c, options{frameSize: 256})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 4*512*2, drain(t, p))
	assert.True(t, p.EOF())
}

func TestPipeline_ConstructionFailures(t *testing.T) {
	tests := []struct {
		name      string
		streams   []StreamInfo
		frameSize int
		readErr   error
		want      error
	}{
		{"no streams", nil, 0, nil, playerrors.ErrStream},
		{"zero channels", []StreamInfo{audioStream(CodecPCMS16LE, 48000, 0, 0)}, 0, nil, playerrors.ErrStream},
		{"no audio", []StreamInfo{{Type: MediaData}}, 0, nil, playerrors.ErrNoStream},
		{"unsupported codec", []StreamInfo{audioStream(CodecNone, 48000, 2, 0)}, 0, nil, playerrors.ErrDecoder},
		{"too many channels", []StreamInfo{audioStream(CodecPCMS16LE, 48000, 12, 0)}, 0, nil, playerrors.ErrFilter},
		{"oversized frame", []StreamInfo{stereoStream(0)}, MaxFrameSize + 1, nil, playerrors.ErrAlloc},
		{"unreadable first packet", []StreamInfo{stereoStream(0)}, 0, errors.New("bad header"), playerrors.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeContainer{streams: tt.streams, readErr: tt.readErr}
			var p *Pipeline
			var err error
			require.NotPanics(t, func() {
				p, err = NewPipeline("fake", c, WithFrameSize(tt.frameSize))
			})
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, c.closed, "container released on failure")
		})
	}
}

func TestPipeline_EmptyStreamIsSilent(t *testing.T) {
	c := &fakeContainer{streams: []StreamInfo{stereoStream(0)}}
	p, err := newPipeline("empty", c, options{frameSize: DefaultFrameSize})
	require.NoError(t, err)
	defer p.Close()

	assert.True(t, p.EOF())
	_, err = p.NextSample()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPipeline_ReadFailureFinishesPipeline(t *testing.T) {
	boom := errors.New("disk on fire")
	c := &fakeContainer{
		streams: []StreamInfo{stereoStream(0)},
		packets: stereoPackets(0, 1, 64, 1),
		readErr: boom,
	}
	p, err := newPipeline("broken", c, options{frameSize: 64})
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 128; i++ {
		_, err := p.NextSample()
		require.NoError(t, err)
	}
	_, err = p.NextSample()
	assert.ErrorIs(t, err, playerrors.ErrDecode)
	assert.ErrorIs(t, err, boom)
	assert.True(t, p.EOF())

	_, err = p.NextSample()
	assert.ErrorIs(t, err, io.EOF, "decoding never continues after a failure")
}

func TestPipeline_PrimingFailure(t *testing.T) {
	c := &fakeContainer{
		streams: []StreamInfo{stereoStream(0)},
		readErr: errors.New("bad header"),
	}
	_, err := newPipeline("broken", c, options{frameSize: 64})
	assert.ErrorIs(t, err, playerrors.ErrDecode)
	assert.True(t, c.closed)
}

func TestOpen_WAVSampleCount(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels int
	}{
		{"mono 44100", 44100, 1},
		{"stereo 48000", 48000, 2},
		{"stereo 32000", 32000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := codectest.WriteWAV(t, "tone.wav", tt.rate, tt.channels, codectest.Constant(tt.rate, tt.channels, 1000))

			p, err := Open(path)
			require.NoError(t, err)
			defer p.Close()

			assert.Equal(t, time.Second, p.Duration())
			assert.Equal(t, path, p.Path())

			first, err := p.NextSample()
			require.NoError(t, err)
			assert.InDelta(t, 1000, first, 1)

			n := 1 + drain(t, p)
			assert.InDelta(t, SampleRate*Channels, n, DefaultFrameSize*Channels)
			assert.True(t, p.EOF())
			assert.InDelta(t, time.Second, p.Timestamp(), float64(time.Millisecond))
		})
	}
}

func TestOpen_ReadSamples(t *testing.T) {
	path := codectest.WriteWAV(t, "tone.wav", 48000, 2, codectest.Constant(3000, 2, 500))
	p, err := Open(path, WithFrameSize(1000))
	require.NoError(t, err)
	defer p.Close()

	buf := make([]int16, 2500)
	n, err := p.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 2500, n)

	assert.Equal(t, int16(500), buf[0])

	n, err = p.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 2500, n)

	n, err = p.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 1000, n, "short read at end of stream")

	n, err = p.ReadSamples(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)
}

func TestPipeline_SeekTo(t *testing.T) {
	// two seconds of a mono ramp at the output rate, so the value of each
	// sample identifies its position
	path := codectest.WriteWAV(t, "ramp.wav", SampleRate, 1, codectest.Ramp(2*SampleRate))
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	frame := time.Duration(DefaultFrameSize) * time.Second / SampleRate

	t.Run("inside the stream", func(t *testing.T) {
		got, err := p.SeekTo(1500 * time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1500*time.Millisecond, got)

		ts := p.Timestamp()
		assert.GreaterOrEqual(t, ts, 1500*time.Millisecond)
		assert.Less(t, ts, 1500*time.Millisecond+frame)

		s, err := p.NextSample()
		require.NoError(t, err)
		assert.Equal(t, int16(72000%32768), s)
	})

	t.Run("clamped below zero", func(t *testing.T) {
		got, err := p.SeekTo(-time.Second)
		require.NoError(t, err)
		assert.Zero(t, got)
		s, err := p.NextSample()
		require.NoError(t, err)
		assert.Zero(t, s)
	})

	t.Run("clamped past the end", func(t *testing.T) {
		got, err := p.SeekTo(time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, got)
		_, err = p.NextSample()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("after end of stream", func(t *testing.T) {
		drain(t, p)
		require.True(t, p.EOF())

		_, err := p.SeekTo(time.Second)
		require.NoError(t, err)
		assert.False(t, p.EOF())
		s, err := p.NextSample()
		require.NoError(t, err)
		assert.Equal(t, int16(48000%32768), s)
	})
}

func TestOpen_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.wav"))
	assert.ErrorIs(t, err, playerrors.ErrOpen)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	junk := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(junk, []byte("this is not audio"), 0o644))
	_, err = Open(junk)
	assert.ErrorIs(t, err, playerrors.ErrOpen)

	alaw := codectest.WriteWAVFormat(t, "alaw.wav", 8000, 1, 6, codectest.Constant(800, 1, 0))
	var p *Pipeline
	require.NotPanics(t, func() { p, err = Open(alaw) })
	assert.Nil(t, p)
	assert.ErrorIs(t, err, playerrors.ErrDecoder)
}

func TestProbe(t *testing.T) {
	path := codectest.WriteWAV(t, "probe.wav", 22050, 2, codectest.Constant(11025, 2, 0))

	st, d, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, 22050, st.SampleRate)
	assert.Equal(t, 2, st.Channels)
	assert.Equal(t, CodecPCMS16LE, st.Codec)
	assert.Equal(t, 500*time.Millisecond, d)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("/music/a.MP3"))
	assert.True(t, IsSupported("b.flac"))
	assert.True(t, IsSupported("c.wav"))
	assert.True(t, IsSupported("d.ogg"))
	assert.False(t, IsSupported("e.txt"))
	assert.Contains(t, SupportedFormats(), ".aiff")
}
