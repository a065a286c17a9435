package library

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/codec"
	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// Scanner scans directories concurrently using a worker pool
type Scanner struct {
	workers    int
	metaReader *MetadataReader
	// reuse, when set, may answer for a file without reading its tags.
	reuse func(path string, info fs.FileInfo) (*api.Track, bool)
}

// NewScanner creates a new file scanner
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = 4 // Default worker count
	}
	return &Scanner{
		workers:    workers,
		metaReader: NewMetadataReader(),
	}
}

// SupportedFormats returns list of supported audio formats
func (s *Scanner) SupportedFormats() []string {
	return codec.SupportedFormats()
}

// Scan walks paths concurrently and streams the tracks it finds. Both
// channels are closed when the walk and every worker are done. Paths may be
// files or directories. Errors are dropped when the error channel is full.
func (s *Scanner) Scan(ctx context.Context, paths []string) (<-chan *api.Track, <-chan error) {
	tracks := make(chan *api.Track, 100)
	errs := make(chan error, 10)
	files := make(chan string, 100)

	report := func(path string, err error) {
		select {
		case errs <- &playerrors.ScanError{Path: path, Err: err}:
		default:
		}
	}

	var wg sync.WaitGroup

	// Start file discovery goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(files)
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}

			err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					report(p, err)
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}

				if !d.IsDir() && codec.IsSupported(p) {
					select {
					case files <- p:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			})

			if err != nil && !errors.Is(err, context.Canceled) {
				report(path, err)
			}
		}
	}()

	// Start worker pool
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filePath := range files {
				if ctx.Err() != nil {
					return
				}

				track, err := s.read(filePath)
				if err != nil {
					report(filePath, err)
					continue
				}

				select {
				case tracks <- track:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Close channels when done
	go func() {
		wg.Wait()
		close(tracks)
		close(errs)
	}()

	return tracks, errs
}

// Collect runs Scan to completion and returns the tracks ordered by path,
// without duplicates.
func (s *Scanner) Collect(ctx context.Context, paths []string) ([]api.Track, []error) {
	trackCh, errCh := s.Scan(ctx, paths)

	var (
		tracks []api.Track
		errs   []error
	)
	for trackCh != nil || errCh != nil {
		select {
		case t, ok := <-trackCh:
			if !ok {
				trackCh = nil
				continue
			}
			tracks = append(tracks, *t)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			errs = append(errs, err)
		}
	}

	tracks = lo.UniqBy(tracks, func(t api.Track) string { return t.ID })
	sort.Slice(tracks, func(i, j int) bool {
		return tracks[i].FilePath < tracks[j].FilePath
	})
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return tracks, errs
}

// ScanFile scans a single file and returns a Track
func (s *Scanner) ScanFile(filePath string) (*api.Track, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, &playerrors.ScanError{Path: filePath, Err: err}
	}
	if info.IsDir() || !codec.IsSupported(filePath) {
		return nil, playerrors.ErrInvalidFormat
	}
	return s.read(filePath)
}

func (s *Scanner) read(filePath string) (*api.Track, error) {
	if s.reuse != nil {
		if info, err := os.Stat(filePath); err == nil {
			if track, ok := s.reuse(filePath, info); ok {
				return track, nil
			}
		}
	}
	return s.metaReader.Read(filePath)
}
