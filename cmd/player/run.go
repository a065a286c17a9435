package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/audio"
	"github.com/jscyril/tplay/internal/config"
	"github.com/jscyril/tplay/internal/device"
	"github.com/jscyril/tplay/internal/library"
	applog "github.com/jscyril/tplay/internal/log"
	"github.com/jscyril/tplay/internal/playlist"
	"github.com/jscyril/tplay/internal/stats"
	"github.com/jscyril/tplay/internal/ui"
)

// run wires the engine to its collaborators and blocks until the user quits,
// the queue finishes (headless) or a signal arrives.
func run(ctx context.Context, fs afero.Fs, cfg *config.Config, paths []string, withUI bool) error {
	if err := fs.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logFile := cfg.LogFile
	if logFile == "" && withUI {
		// stderr belongs to the terminal interface
		logFile = filepath.Join(cfg.DataDir, "player.log")
	}
	logger, logCloser, err := applog.New(fs, applog.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   logFile,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(paths) == 0 {
		paths = cfg.MusicDirectories
	}
	libPath := filepath.Join(cfg.DataDir, "library.json")
	lib, err := library.Load(fs, libPath)
	if err != nil {
		logger.WithError(err).Warn("library cache unreadable; rescanning")
		lib = library.New()
	}
	tracks, err := collectTracks(ctx, logger, lib, paths)
	if err != nil {
		return err
	}
	if err := lib.Save(fs, libPath); err != nil {
		logger.WithError(err).Warn("save library cache")
	}
	queue := playlist.NewQueue(tracks...)

	devices, err := device.New(cfg.Device)
	if err != nil {
		return err
	}

	store, err := stats.Open(ctx, fs, cfg.StatsBackend, cfg.DataDir, cfg.StatsDSN)
	if err != nil {
		// stats are a nicety; play without them
		logger.WithError(err).Warn("stats disabled")
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	engine := audio.NewEngine(audio.Config{
		BufferMs:       cfg.BufferMs,
		DeviceBufferMs: cfg.DeviceBufferMs,
		QueueLength:    cfg.CommandQueueLength,
		Volume:         cfg.DefaultVolume,
		Loop:           cfg.DefaultLoop,
	}, devices, audio.WithLogger(logger.WithField("component", "engine")))
	defer engine.Shutdown()

	// Subscriptions are taken before Start so no event is missed.
	var statsEvents <-chan api.Event
	if store != nil {
		statsEvents = engine.Subscribe(api.EventTypes...)
	}
	frontEvents := engine.Subscribe(api.EventTypes...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := engine.Start(runCtx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(runCtx)
	if store != nil {
		recorder := stats.NewRecorder(store, logger.WithField("component", "stats"))
		g.Go(func() error {
			return recorder.Run(context.WithoutCancel(gctx), statsEvents)
		})
	}
	g.Go(func() error {
		// the front end owns the lifetime; its return stops everything else
		defer cancel()
		defer engine.Shutdown()

		if !withUI {
			return playHeadless(gctx, logger, engine, frontEvents, queue)
		}
		err := ui.Run(gctx, engine, frontEvents, queue, ui.Options{
			Keys:       cfg.KeyBindings,
			VolumeStep: cfg.VolumeStep,
			SeekStep:   time.Duration(cfg.SeekStep),
			Autoplay:   queue.Len() > 0,
			Catalog:    lib,
		})
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("player exited")
	return nil
}

// collectTracks expands paths into tracks and records them in lib. Files
// keep their command-line order; directories are scanned and contribute
// their tracks sorted by path.
func collectTracks(ctx context.Context, logger logrus.FieldLogger, lib *library.Library, paths []string) ([]api.Track, error) {
	var tracks []api.Track
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			logger.WithError(err).WithField("path", p).Warn("skipping path")
			continue
		}
		if !info.IsDir() {
			track, err := lib.AddFile(p)
			if err != nil {
				logger.WithError(err).WithField("path", p).Warn("skipping file")
				continue
			}
			tracks = append(tracks, *track)
			continue
		}

		res := lib.Scan(ctx, []string{p})
		for _, err := range res.Errors {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			logger.WithError(err).Debug("scan")
		}
		logger.WithFields(logrus.Fields{
			"path":    p,
			"tracks":  len(res.Tracks),
			"cached":  res.Reused,
			"removed": res.Removed,
		}).Info("scanned directory")
		tracks = append(tracks, res.Tracks...)
	}
	return tracks, nil
}

// playHeadless plays the queue front to back, logging each track, and
// returns once the queue is exhausted or ctx is done.
func playHeadless(ctx context.Context, logger logrus.FieldLogger, player api.Player, events <-chan api.Event, queue *playlist.Queue) error {
	track, ok := queue.Current()
	if !ok {
		return errors.New("nothing to play")
	}
	if err := player.Play(&track); err != nil {
		return err
	}

	// playNext starts the following entry and reports whether there was one.
	playNext := func() (bool, error) {
		next, ok := queue.Advance()
		if !ok {
			return false, nil
		}
		return true, player.Play(&next)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case api.EventTrackStarted:
				logger.WithFields(logrus.Fields{
					"track":    ev.Track.Title,
					"path":     ev.Track.FilePath,
					"duration": ev.State.Duration,
				}).Info("now playing")
			case api.EventTrackEnded:
				if ev.State.Looping {
					continue
				}
				if more, err := playNext(); err != nil || !more {
					return err
				}
			case api.EventError:
				logger.WithError(ev.Err).Warn("playback error")
				// skip what cannot be opened
				if more, err := playNext(); err != nil || !more {
					return err
				}
			}
		}
	}
}
