package api

import "time"

// Track is a reference to a playable file. The engine only reads ID and
// FilePath; the remaining fields are display metadata owned by the catalog.
type Track struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	Album     string        `json:"album"`
	Duration  time.Duration `json:"duration"`
	FilePath  string        `json:"file_path"`
	Genre     string        `json:"genre"`
	Year      int           `json:"year"`
	TrackNum  int           `json:"track_number"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsZero reports whether t refers to no track.
func (t Track) IsZero() bool {
	return t.ID == "" && t.FilePath == ""
}

// RepeatMode controls how the play queue advances
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the transport state.
type Snapshot struct {
	Track     Track
	Playing   bool
	Muted     bool
	Looping   bool
	Ended     bool
	Volume    float64
	Timestamp time.Duration
	Duration  time.Duration
}

// Player is the control surface exposed to front ends.
type Player interface {
	Enqueue(cmd Command)
	Play(track *Track) error
	Pause() error
	Resume() error
	Stop() error
	Seek(position time.Duration) error
	SetVolume(level float64) error
	Snapshot() Snapshot
	Events() <-chan Event
}
