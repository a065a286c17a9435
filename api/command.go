package api

import (
	"fmt"
	"time"
)

// Command is a transport request. The set of variants is closed: only the
// types in this file implement it.
type Command interface {
	fmt.Stringer
	command()
}

// Play replaces the current track.
type Play struct {
	Track Track
}

// Stop halts playback and unloads the current track.
type Stop struct{}

// SetVolume sets the volume; the level is clamped into [0,1] when applied.
type SetVolume struct {
	Level float64
}

// AdjustVolume changes the volume by Delta, clamped into [0,1].
type AdjustVolume struct {
	Delta float64
}

// SeekAbsolute moves playback to Position, clamped into [0, duration].
type SeekAbsolute struct {
	Position time.Duration
}

// SeekRelative moves playback by Offset from the current position.
type SeekRelative struct {
	Offset time.Duration
}

// ToggleMute flips the muted flag.
type ToggleMute struct{}

// TogglePlayback flips between playing and paused.
type TogglePlayback struct{}

// ToggleLoop flips the looping flag.
type ToggleLoop struct{}

// SetPlayback pauses or resumes. Unlike TogglePlayback, applying it twice
// has the same effect as applying it once.
type SetPlayback struct {
	Playing bool
}

func (Play) command()           {}
func (Stop) command()           {}
func (SetVolume) command()      {}
func (AdjustVolume) command()   {}
func (SeekAbsolute) command()   {}
func (SeekRelative) command()   {}
func (ToggleMute) command()     {}
func (TogglePlayback) command() {}
func (SetPlayback) command()    {}
func (ToggleLoop) command()     {}

func (c Play) String() string         { return fmt.Sprintf("play(%s)", c.Track.FilePath) }
func (Stop) String() string           { return "stop" }
func (c SetVolume) String() string    { return fmt.Sprintf("set_volume(%.2f)", c.Level) }
func (c AdjustVolume) String() string { return fmt.Sprintf("adjust_volume(%+.2f)", c.Delta) }
func (c SeekAbsolute) String() string { return fmt.Sprintf("seek(%s)", c.Position) }
func (c SeekRelative) String() string { return fmt.Sprintf("seek_relative(%s)", c.Offset) }
func (ToggleMute) String() string     { return "toggle_mute" }
func (TogglePlayback) String() string { return "toggle_playback" }
func (c SetPlayback) String() string  { return fmt.Sprintf("set_playback(%t)", c.Playing) }
func (ToggleLoop) String() string     { return "toggle_loop" }
