package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/jscyril/tplay/api"
	playerrors "github.com/jscyril/tplay/pkg/errors"
)

// maxPrefix bounds the indexed prefix of each word. Longer query words are
// narrowed by their first maxPrefix runes and then checked in full.
const maxPrefix = 8

// FileEntry is what the last scan saw at a path.
type FileEntry struct {
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
	TrackID string    `json:"track_id"`
}

// Library is the catalog of every track scanned so far. It remembers each
// file's size and modification time so a rescan only reads tags of files
// that changed.
type Library struct {
	Tracks      map[string]*api.Track `json:"tracks"`
	Files       map[string]FileEntry  `json:"files"`
	ScanPaths   []string              `json:"scan_paths"`
	LastScanned time.Time             `json:"last_scanned"`
	TotalTracks int                   `json:"total_tracks"`

	// word prefix -> track IDs
	prefixes map[string]map[string]struct{}

	mu      sync.RWMutex
	scanMu  sync.Mutex
	scanner *Scanner
	reused  atomic.Int64
}

// ScanResult summarizes one Scan.
type ScanResult struct {
	// Tracks found under the scanned paths, ordered by path.
	Tracks []api.Track
	// Reused counts files whose cached entry was still current.
	Reused int
	// Removed counts cached files that no longer exist.
	Removed int
	Errors  []error
}

// New creates an empty library.
func New() *Library {
	l := &Library{
		Tracks: make(map[string]*api.Track),
		Files:  make(map[string]FileEntry),
	}
	l.init()
	return l
}

func (l *Library) init() {
	l.prefixes = make(map[string]map[string]struct{})
	l.scanner = NewScanner(4)
	l.scanner.reuse = l.cached
}

// cached returns the stored track for a file that has not changed since it
// was scanned.
func (l *Library) cached(path string, info fs.FileInfo) (*api.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.Files[path]
	if !ok || entry.Size != info.Size() || !entry.ModTime.Equal(info.ModTime()) {
		return nil, false
	}
	track, ok := l.Tracks[entry.TrackID]
	if !ok {
		return nil, false
	}
	l.reused.Add(1)
	copied := *track
	return &copied, true
}

// AddTrack adds or replaces a track.
func (l *Library) AddTrack(track *api.Track) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addLocked(track)
}

func (l *Library) addLocked(track *api.Track) {
	if old, ok := l.Tracks[track.ID]; ok {
		l.unindex(old)
	}
	l.Tracks[track.ID] = track
	l.index(track)
	l.TotalTracks = len(l.Tracks)
}

// GetTrack returns a track by ID.
func (l *Library) GetTrack(id string) (*api.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	track, ok := l.Tracks[id]
	if !ok {
		return nil, playerrors.ErrTrackNotFound
	}
	return track, nil
}

// GetAllTracks returns every track sorted by artist, album and track number.
func (l *Library) GetAllTracks() []*api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tracks := lo.Values(l.Tracks)
	sortTracks(tracks)
	return tracks
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.Tracks)
}

// Search returns the tracks where every word of query starts a word of the
// title, artist or album, ignoring case. Title matches come first. An empty
// query matches everything.
func (l *Library) Search(query string) []*api.Track {
	terms := words(query)
	if len(terms) == 0 {
		return l.GetAllTracks()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids map[string]struct{}
	for _, term := range terms {
		hits := l.prefixes[prefixKey(term)]
		if len(hits) == 0 {
			return nil
		}
		if ids == nil {
			ids = hits
			continue
		}
		narrowed := make(map[string]struct{}, min(len(ids), len(hits)))
		for id := range ids {
			if _, ok := hits[id]; ok {
				narrowed[id] = struct{}{}
			}
		}
		ids = narrowed
	}

	var results []*api.Track
	for id := range ids {
		track := l.Tracks[id]
		trackWords := words(track.Title + " " + track.Artist + " " + track.Album)
		if lo.EveryBy(terms, func(term string) bool { return hasWordPrefix(trackWords, term) }) {
			results = append(results, track)
		}
	}

	sortTracks(results)
	inTitle := func(t *api.Track) bool {
		titleWords := words(t.Title)
		return lo.EveryBy(terms, func(term string) bool { return hasWordPrefix(titleWords, term) })
	}
	sort.SliceStable(results, func(i, j int) bool {
		return inTitle(results[i]) && !inTitle(results[j])
	})
	return results
}

// RemoveTrack removes a track and any file entry pointing at it.
func (l *Library) RemoveTrack(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.Tracks[id]; !ok {
		return playerrors.ErrTrackNotFound
	}
	l.removeLocked(id)
	return nil
}

func (l *Library) removeLocked(id string) {
	if track, ok := l.Tracks[id]; ok {
		l.unindex(track)
		delete(l.Tracks, id)
	}
	for path, entry := range l.Files {
		if entry.TrackID == id {
			delete(l.Files, path)
		}
	}
	l.TotalTracks = len(l.Tracks)
}

// Scan scans paths, reusing cached entries for unchanged files. Cached files
// under paths that are gone are dropped. A cancelled scan leaves the catalog
// untouched.
func (l *Library) Scan(ctx context.Context, paths []string) ScanResult {
	l.scanMu.Lock()
	defer l.scanMu.Unlock()

	l.reused.Store(0)
	tracks, errs := l.scanner.Collect(ctx, paths)
	res := ScanResult{Tracks: tracks, Reused: int(l.reused.Load()), Errors: errs}
	if ctx.Err() != nil {
		return res
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{}, len(tracks))
	for i := range tracks {
		track := tracks[i]
		seen[track.FilePath] = struct{}{}
		l.recordLocked(&track)
	}
	// files that failed to scan are kept until they disappear
	for _, err := range errs {
		var scanErr *playerrors.ScanError
		if errors.As(err, &scanErr) {
			seen[scanErr.Path] = struct{}{}
		}
	}
	for path, entry := range l.Files {
		if _, ok := seen[path]; ok || !underAny(path, paths) {
			continue
		}
		l.removeLocked(entry.TrackID)
		delete(l.Files, path)
		res.Removed++
	}

	l.ScanPaths = lo.Uniq(append(l.ScanPaths, paths...))
	l.LastScanned = time.Now()
	return res
}

// AddFile scans a single file from any location into the library.
func (l *Library) AddFile(filePath string) (*api.Track, error) {
	track, err := l.scanner.ScanFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked(track)
	return track, nil
}

// recordLocked adds track and remembers its file's size and mtime.
func (l *Library) recordLocked(track *api.Track) {
	l.addLocked(track)
	info, err := os.Stat(track.FilePath)
	if err != nil {
		delete(l.Files, track.FilePath)
		return
	}
	l.Files[track.FilePath] = FileEntry{ModTime: info.ModTime(), Size: info.Size(), TrackID: track.ID}
}

// Save writes the library as JSON.
func (l *Library) Save(fsys afero.Fs, path string) error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write library file: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace library file: %w", err)
	}
	return nil
}

// Load reads a library saved by Save. A missing file is an empty library.
func Load(fsys afero.Fs, path string) (*Library, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library file: %w", err)
	}

	l := New()
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("unmarshal library: %w", err)
	}
	if l.Tracks == nil {
		l.Tracks = make(map[string]*api.Track)
	}
	if l.Files == nil {
		l.Files = make(map[string]FileEntry)
	}
	for _, track := range l.Tracks {
		l.index(track)
	}
	l.TotalTracks = len(l.Tracks)
	return l, nil
}

func (l *Library) index(track *api.Track) {
	for _, key := range trackPrefixes(track) {
		ids, ok := l.prefixes[key]
		if !ok {
			ids = make(map[string]struct{})
			l.prefixes[key] = ids
		}
		ids[track.ID] = struct{}{}
	}
}

func (l *Library) unindex(track *api.Track) {
	for _, key := range trackPrefixes(track) {
		delete(l.prefixes[key], track.ID)
		if len(l.prefixes[key]) == 0 {
			delete(l.prefixes, key)
		}
	}
}

func trackPrefixes(track *api.Track) []string {
	var keys []string
	for _, w := range words(track.Title + " " + track.Artist + " " + track.Album) {
		r := []rune(w)
		for i := 1; i <= min(len(r), maxPrefix); i++ {
			keys = append(keys, string(r[:i]))
		}
	}
	return lo.Uniq(keys)
}

// words splits s into lowercase runs of letters and digits.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func prefixKey(term string) string {
	r := []rune(term)
	return string(r[:min(len(r), maxPrefix)])
}

func hasWordPrefix(words []string, term string) bool {
	return lo.SomeBy(words, func(w string) bool { return strings.HasPrefix(w, term) })
}

func sortTracks(tracks []*api.Track) {
	sort.Slice(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		if a.TrackNum != b.TrackNum {
			return a.TrackNum < b.TrackNum
		}
		return a.FilePath < b.FilePath
	})
}

// underAny reports whether path is one of roots or inside one of them.
func underAny(path string, roots []string) bool {
	return lo.SomeBy(roots, func(root string) bool {
		rel, err := filepath.Rel(filepath.Clean(root), path)
		return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	})
}
