package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/codec"
	"github.com/jscyril/tplay/internal/device"
	applog "github.com/jscyril/tplay/internal/log"
	playerrors "github.com/jscyril/tplay/pkg/errors"
	"github.com/jscyril/tplay/pkg/events"
)

// Ensure Engine implements Player interface at compile time
var _ api.Player = (*Engine)(nil)

// Config sizes the engine's buffers and sets its initial transport.
type Config struct {
	// BufferMs is the length of the sample ring.
	BufferMs int
	// DeviceBufferMs is the device callback period.
	DeviceBufferMs int
	QueueLength    int
	Volume         float64
	Loop           bool
}

// DefaultConfig matches the player's configuration defaults.
func DefaultConfig() Config {
	return Config{
		BufferMs:       100,
		DeviceBufferMs: 20,
		QueueLength:    DefaultQueueLength,
		Volume:         1,
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithEventBus publishes events on bus instead of a private one.
func WithEventBus(bus *events.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithPipelineOptions passes options to every pipeline the engine opens.
func WithPipelineOptions(opts ...codec.Option) Option {
	return func(e *Engine) { e.pipelineOpts = append(e.pipelineOpts, opts...) }
}

// Engine plays one track at a time. Callers talk to it only through
// commands; a driving goroutine decodes into a ring buffer that the device
// callback drains.
type Engine struct {
	cfg          Config
	devices      device.Factory
	log          logrus.FieldLogger
	bus          *events.EventBus
	events       <-chan api.Event
	pipelineOpts []codec.Option

	t     *transport
	ring  *ring
	queue *commandQueue
	cb    *callback
	drv   *driver

	dev      device.Device
	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewEngine creates an engine that will output through devices.
func NewEngine(cfg Config, devices device.Factory, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.BufferMs <= 0 {
		cfg.BufferMs = def.BufferMs
	}
	if cfg.DeviceBufferMs <= 0 {
		cfg.DeviceBufferMs = def.DeviceBufferMs
	}
	if cfg.QueueLength <= 0 {
		cfg.QueueLength = def.QueueLength
	}

	e := &Engine{
		cfg:     cfg,
		devices: devices,
		log:     applog.Discard(),
		t:       newTransport(cfg.Volume, cfg.Loop),
		ring:    newRing(codec.SampleRate*codec.Channels*cfg.BufferMs/1000, codec.Channels),
		queue:   newCommandQueue(cfg.QueueLength),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.NewEventBus()
	}
	e.events = e.bus.SubscribeAll()

	e.cb = &callback{t: e.t, ring: e.ring, queue: e.queue, channels: codec.Channels}
	e.drv = &driver{
		t:       e.t,
		ring:    e.ring,
		queue:   e.queue,
		publish: e.bus.Publish,
		log:     e.log,
		open: func(path string) (*codec.Pipeline, error) {
			return codec.Open(path, e.pipelineOpts...)
		},
	}
	return e
}

// Start opens the output device and launches the driving goroutine.
// Cancelling ctx shuts the engine down.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return nil
	}

	dev, err := e.devices.Open(device.Format{
		SampleRate: codec.SampleRate,
		Channels:   codec.Channels,
		BufferSize: time.Duration(e.cfg.DeviceBufferMs) * time.Millisecond,
	}, e.cb.Fill)
	if err != nil {
		e.started.Store(false)
		return fmt.Errorf("open audio device: %w", err)
	}
	e.dev = dev

	go func() {
		defer close(e.done)
		e.drv.run()
	}()
	go func() {
		select {
		case <-ctx.Done():
			e.Shutdown()
		case <-e.done:
		}
	}()

	e.log.WithFields(logrus.Fields{
		"buffer_ms": e.cfg.BufferMs,
		"ring":      e.ring.Cap(),
	}).Info("audio engine started")
	return nil
}

// Enqueue hands cmd to the driving goroutine. When the queue is full the
// command is dropped.
func (e *Engine) Enqueue(cmd api.Command) {
	if e.t.terminating.Load() {
		return
	}
	if !e.queue.push(cmd) {
		e.log.WithField("command", cmd.String()).Debug("command queue full, dropping command")
	}
}

// Snapshot returns a copy of the transport state.
func (e *Engine) Snapshot() api.Snapshot {
	return e.t.Snapshot()
}

// Events returns the engine's event stream. It is closed by Shutdown.
func (e *Engine) Events() <-chan api.Event {
	return e.events
}

// Subscribe returns a new channel receiving events of the given types.
func (e *Engine) Subscribe(types ...api.EventType) <-chan api.Event {
	return e.bus.Subscribe(types...)
}

// Shutdown stops the driving goroutine, closes the pipeline and then the
// device. It is safe to call more than once.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		e.queue.mu.Lock()
		e.t.terminating.Store(true)
		e.queue.mu.Unlock()
		e.queue.broadcast()

		if e.started.Load() {
			<-e.done
			if err := e.dev.Close(); err != nil {
				e.log.WithError(err).Warn("closing audio device")
			}
		}
		e.bus.Close()
		e.log.Info("audio engine stopped")
	})
}

// Play starts playing the specified track
func (e *Engine) Play(track *api.Track) error {
	if track == nil {
		return playerrors.ErrTrackNotFound
	}
	if err := e.checkOpen(); err != nil {
		return err
	}
	e.Enqueue(api.Play{Track: *track})
	return nil
}

// Pause pauses playback. Repeated calls stay paused.
func (e *Engine) Pause() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	e.Enqueue(api.SetPlayback{Playing: false})
	return nil
}

// Resume resumes playback of the loaded track. Repeated calls keep playing.
func (e *Engine) Resume() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	e.Enqueue(api.SetPlayback{Playing: true})
	return nil
}

// Stop stops playback
func (e *Engine) Stop() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	e.Enqueue(api.Stop{})
	return nil
}

// Seek seeks to the specified position
func (e *Engine) Seek(position time.Duration) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	e.Enqueue(api.SeekAbsolute{Position: position})
	return nil
}

// SetVolume sets the volume level; it is clamped into [0,1] when applied.
func (e *Engine) SetVolume(level float64) error {
	if math.IsNaN(level) {
		return playerrors.ErrInvalidVolume
	}
	if err := e.checkOpen(); err != nil {
		return err
	}
	e.Enqueue(api.SetVolume{Level: level})
	return nil
}

func (e *Engine) checkOpen() error {
	if e.t.terminating.Load() {
		return playerrors.ErrEngineClosed
	}
	return nil
}
