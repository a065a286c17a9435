// Package codectest generates audio fixtures for tests.
package codectest

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes interleaved 16-bit samples as a PCM WAV file in a
// temporary directory and returns its path.
func WriteWAV(tb testing.TB, name string, sampleRate, channels int, samples []int) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("finalize %s: %v", path, err)
	}
	return path
}

// WriteWAVFormat is WriteWAV with the format tag of the fmt chunk replaced,
// e.g. 6 for A-law. The result parses as WAV but may not decode.
func WriteWAVFormat(tb testing.TB, name string, sampleRate, channels int, format uint16, samples []int) string {
	tb.Helper()

	path := WriteWAV(tb, name, sampleRate, channels, samples)
	b, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read %s: %v", path, err)
	}
	// RIFF header, then "fmt " id and size, then the tag
	binary.LittleEndian.PutUint16(b[20:], format)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		tb.Fatalf("rewrite %s: %v", path, err)
	}
	return path
}

// Constant returns frames*channels samples of value v.
func Constant(frames, channels, v int) []int {
	s := make([]int, frames*channels)
	for i := range s {
		s[i] = v
	}
	return s
}

// Ramp returns a mono ramp where sample i equals i modulo 32768, useful to
// identify positions after a seek.
func Ramp(frames int) []int {
	s := make([]int, frames)
	for i := range s {
		s[i] = i % 32768
	}
	return s
}

// Sine returns a mono sine wave at freq Hz with the given peak amplitude.
func Sine(frames, sampleRate int, freq float64, peak int) []int {
	s := make([]int, frames)
	for i := range s {
		s[i] = int(float64(peak) * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return s
}
