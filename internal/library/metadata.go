// Package library turns audio files into track references for the engine.
package library

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/codec"
)

// MetadataReader extracts metadata from audio files
type MetadataReader struct {
	now func() time.Time
}

// NewMetadataReader creates a new metadata reader
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{now: time.Now}
}

// Read probes an audio file and returns a Track. Files the codec pipeline
// cannot open are rejected; missing tags are not an error.
func (r *MetadataReader) Read(filePath string) (*api.Track, error) {
	_, duration, err := codec.Probe(filePath)
	if err != nil {
		return nil, err
	}

	track := &api.Track{
		ID:        generateTrackID(filePath),
		Title:     titleFromPath(filePath),
		Duration:  duration,
		FilePath:  filePath,
		CreatedAt: r.now(),
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		// untagged file, keep the filename title
		return track, nil
	}

	track.Title = getOrDefault(metadata.Title(), track.Title)
	track.Artist = getOrDefault(metadata.Artist(), "Unknown Artist")
	track.Album = getOrDefault(metadata.Album(), "Unknown Album")
	track.Genre = metadata.Genre()
	track.Year = metadata.Year()
	track.TrackNum, _ = metadata.Track()

	return track, nil
}

// ReadCoverArt extracts cover art from an audio file
func (r *MetadataReader) ReadCoverArt(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	if picture := metadata.Picture(); picture != nil {
		return picture.Data, nil
	}

	return nil, nil
}

// generateTrackID creates a unique ID for a track based on its file path
func generateTrackID(filePath string) string {
	if abs, err := filepath.Abs(filePath); err == nil {
		filePath = abs
	}
	hash := md5.Sum([]byte(filePath))
	return fmt.Sprintf("track-%x", hash[:8])
}

func titleFromPath(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// getOrDefault returns the value if non-empty, otherwise returns the default
func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
