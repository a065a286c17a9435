// Package device connects the engine's sample callback to a host audio
// output. Every backend plays signed 16-bit interleaved PCM and pulls samples
// by calling the FillFunc it was opened with.
package device

import (
	"fmt"
	"strings"
	"time"

	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// FillFunc writes len(out) interleaved samples. It is called from the
// backend's audio thread and must not block.
type FillFunc func(out []int16)

// Format describes the stream a backend is opened with.
type Format struct {
	SampleRate int
	Channels   int
	// BufferSize is the device period; zero lets the backend choose.
	BufferSize time.Duration
}

// BufferFrames converts BufferSize to a frame count, at least one.
func (f Format) BufferFrames() int {
	n := int(f.BufferSize * time.Duration(f.SampleRate) / time.Second)
	return max(n, 1)
}

// Device is an open output stream.
type Device interface {
	Close() error
}

// Factory opens output streams.
type Factory interface {
	Open(format Format, fill FillFunc) (Device, error)
}

// Names of the available backends.
const (
	BackendOto     = "oto"
	BackendSpeaker = "speaker"
	BackendNull    = "null"
)

// New returns the factory registered under name.
func New(name string) (Factory, error) {
	switch strings.ToLower(name) {
	case "", BackendOto:
		return &Oto{}, nil
	case BackendSpeaker:
		return &Speaker{}, nil
	case BackendNull:
		return NewNull(true), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", playerrors.ErrDevice, name)
	}
}
