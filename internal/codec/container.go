package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// Container demultiplexes a file into packets.
type Container interface {
	// Streams lists the elementary streams found while probing.
	Streams() []StreamInfo
	// ReadPacket fills pkt with the next packet of any stream, or returns
	// io.EOF when the container is exhausted.
	ReadPacket(pkt *Packet) error
	// SeekBackward repositions the container at the nearest packet boundary
	// at or before tick, expressed in the time base of stream.
	SeekBackward(stream int, tick int64) error
	// Duration of the longest stream, 0 when unknown.
	Duration() time.Duration
	Close() error
}

// containerFormat registers one demuxer.
type containerFormat struct {
	name       string
	extensions []string
	sniff      func(header []byte) bool
	open       func(f *os.File) (Container, error)
}

var errUnknownContainer = errors.New("unrecognized container format")

var containerFormats = []containerFormat{
	{
		name:       "wav",
		extensions: []string{".wav", ".wave"},
		sniff: func(h []byte) bool {
			return len(h) >= 12 && bytes.Equal(h[0:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WAVE"))
		},
		open: openWAV,
	},
	{
		name:       "aiff",
		extensions: []string{".aif", ".aiff", ".aifc"},
		sniff: func(h []byte) bool {
			return len(h) >= 12 && bytes.Equal(h[0:4], []byte("FORM")) &&
				(bytes.Equal(h[8:12], []byte("AIFF")) || bytes.Equal(h[8:12], []byte("AIFC")))
		},
		open: openAIFF,
	},
	{
		name:       "flac",
		extensions: []string{".flac"},
		sniff:      func(h []byte) bool { return bytes.HasPrefix(h, []byte("fLaC")) },
		open:       openFLAC,
	},
	{
		name:       "ogg",
		extensions: []string{".ogg", ".oga"},
		sniff:      func(h []byte) bool { return bytes.HasPrefix(h, []byte("OggS")) },
		open:       openVorbis,
	},
	{
		name:       "mp3",
		extensions: []string{".mp3"},
		sniff: func(h []byte) bool {
			if bytes.HasPrefix(h, []byte("ID3")) {
				return true
			}
			// MPEG audio frame sync
			return len(h) >= 2 && h[0] == 0xFF && h[1]&0xE0 == 0xE0
		},
		open: openMP3,
	},
}

// SupportedFormats returns the file extensions the demuxers recognize.
func SupportedFormats() []string {
	return lo.FlatMap(containerFormats, func(f containerFormat, _ int) []string {
		return f.extensions
	})
}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
	return lo.Contains(SupportedFormats(), strings.ToLower(filepath.Ext(path)))
}

// OpenContainer opens path and probes its format. Magic bytes take
// precedence over the file extension.
func OpenContainer(path string) (Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", playerrors.ErrOpen, err)
	}

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("%w: %w", playerrors.ErrOpen, err)
	}
	header = header[:n]

	format, ok := lo.Find(containerFormats, func(cf containerFormat) bool { return cf.sniff(header) })
	if !ok {
		ext := strings.ToLower(filepath.Ext(path))
		format, ok = lo.Find(containerFormats, func(cf containerFormat) bool { return lo.Contains(cf.extensions, ext) })
	}
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", playerrors.ErrOpen, path, errUnknownContainer)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", playerrors.ErrOpen, err)
	}
	c, err := format.open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", playerrors.ErrOpen, format.name, err)
	}
	return c, nil
}

// Probe opens path just long enough to read its audio stream and duration.
func Probe(path string) (StreamInfo, time.Duration, error) {
	c, err := OpenContainer(path)
	if err != nil {
		return StreamInfo{}, 0, err
	}
	defer c.Close()

	idx, err := FindBestStream(c.Streams())
	if err != nil {
		return StreamInfo{}, 0, err
	}
	return c.Streams()[idx], c.Duration(), nil
}

// FindBestStream picks the audio stream with the most channels, preferring
// the lowest index on ties.
func FindBestStream(streams []StreamInfo) (int, error) {
	best := -1
	for i, st := range streams {
		if st.Type != MediaAudio {
			continue
		}
		if best < 0 || st.Channels > streams[best].Channels {
			best = i
		}
	}
	if best < 0 {
		return -1, playerrors.ErrNoStream
	}
	return best, nil
}

// audioStream builds the single audio stream most containers expose.
func audioStream(codec CodecID, rate, channels int, frames int64) StreamInfo {
	return StreamInfo{
		Index:      0,
		Type:       MediaAudio,
		Codec:      codec,
		SampleRate: rate,
		Channels:   channels,
		TimeBase:   Rational{Num: 1, Den: int64(rate)},
		Duration:   max(frames, 0),
	}
}

// streamDuration converts a stream's tick count to a duration.
func streamDuration(st StreamInfo) time.Duration {
	return st.TimeBase.Duration(st.Duration)
}

// grow returns b resized to n bytes, reusing its backing array when possible.
func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
