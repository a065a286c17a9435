// Package stats counts how often tracks are played and skipped. A Recorder
// follows the engine's event stream and writes per-track entries to a Store.
package stats

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/jscyril/tplay/api"
)

// PlayedThreshold is how long a track must play to count as played.
const PlayedThreshold = 3 * time.Second

// Entry is the per-track record.
type Entry struct {
	TrackID         string    `json:"track_id"`
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	TimesPlayed     uint32    `json:"times_played"`
	TimesSkipped    uint32    `json:"times_skipped"`
	DurationSeconds float64   `json:"duration_seconds"`
	PlaySeconds     float64   `json:"play_seconds"`
	LastPlayed      time.Time `json:"last_played"`
}

func newEntry(track api.Track) Entry {
	return Entry{
		TrackID:         track.ID,
		Name:            track.Title,
		Path:            track.FilePath,
		DurationSeconds: track.Duration.Seconds(),
	}
}

// AveragePlayTime is the mean listening time over the plays counted.
func (e Entry) AveragePlayTime() time.Duration {
	if e.TimesPlayed == 0 {
		return 0
	}
	return time.Duration(e.PlaySeconds / float64(e.TimesPlayed) * float64(time.Second))
}

// SkipRate is the share of plays that were skipped.
func (e Entry) SkipRate() float64 {
	if e.TimesPlayed == 0 {
		return 0
	}
	return float64(e.TimesSkipped) / float64(e.TimesPlayed)
}

// Store persists entries keyed by track ID.
type Store interface {
	Get(ctx context.Context, trackID string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	All(ctx context.Context) ([]Entry, error)
	Close() error
}

// TopPlayed returns up to n entries ordered by play count, then name.
func TopPlayed(entries []Entry, n int) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TimesPlayed != out[j].TimesPlayed {
			return out[i].TimesPlayed > out[j].TimesPlayed
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Open returns the store for backend: "json" keeps stats.json under
// dataDir, "postgres" connects to dsn. "none" and "" return a nil Store.
func Open(ctx context.Context, fs afero.Fs, backend, dataDir, dsn string) (Store, error) {
	switch backend {
	case "", "none":
		return nil, nil
	case "json":
		return OpenJSONStore(fs, filepath.Join(dataDir, "stats.json"))
	case "postgres":
		return OpenPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown stats backend %q", backend)
	}
}
