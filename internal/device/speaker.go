package device

import (
	"fmt"
	"sync"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// Speaker plays through github.com/faiface/beep/speaker. beep mixes in
// float64 stereo, so the fill callback output is converted per period.
type Speaker struct {
	mu      sync.Mutex
	open    bool
	fill    FillFunc
	samples []int16
}

func (s *Speaker) Open(format Format, fill FillFunc) (Device, error) {
	if format.Channels != 2 {
		return nil, fmt.Errorf("%w: speaker backend is stereo only", playerrors.ErrDevice)
	}
	sr := beep.SampleRate(format.SampleRate)
	if err := speaker.Init(sr, format.BufferFrames()); err != nil {
		return nil, fmt.Errorf("%w: speaker: %w", playerrors.ErrDevice, err)
	}

	s.mu.Lock()
	s.fill = fill
	s.samples = make([]int16, 2*format.BufferFrames())
	s.open = true
	s.mu.Unlock()

	speaker.Play(beep.StreamerFunc(s.stream))
	return s, nil
}

// stream runs on beep's mixer goroutine with the speaker lock held.
func (s *Speaker) stream(out [][2]float64) (int, bool) {
	if cap(s.samples) < 2*len(out) {
		s.samples = make([]int16, 2*len(out))
	}
	buf := s.samples[:2*len(out)]
	s.fill(buf)
	for i := range out {
		out[i][0] = float64(buf[2*i]) / 32768
		out[i][1] = float64(buf[2*i+1]) / 32768
	}
	return len(out), true
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	speaker.Clear()
	s.open = false
	return nil
}
