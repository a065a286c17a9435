package device

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// Oto plays through github.com/ebitengine/oto/v3. The oto player pulls
// bytes through an io.Reader, which Read serves from the fill callback.
type Oto struct {
	mu      sync.Mutex
	player  *oto.Player
	fill    FillFunc
	samples []int16
	frame   int
}

func (o *Oto) Open(format Format, fill FillFunc) (Device, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   format.BufferSize,
		})
		if otoErr == nil {
			<-ready
		}
	})
	if otoErr != nil {
		return nil, fmt.Errorf("%w: oto: %w", playerrors.ErrDevice, otoErr)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.fill = fill
	o.frame = max(format.Channels, 1) * 2
	o.samples = make([]int16, format.BufferFrames()*max(format.Channels, 1))
	o.player = otoCtx.NewPlayer(o)
	o.player.Play()
	return o, nil
}

// Read implements io.Reader for the oto player.
func (o *Oto) Read(p []byte) (int, error) {
	n := len(p) - len(p)%o.frame
	samples := n / 2
	if cap(o.samples) < samples {
		o.samples = make([]int16, samples)
	}
	buf := o.samples[:samples]
	o.fill(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s))
	}
	return n, nil
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	return err
}
