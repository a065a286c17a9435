package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Environment variables that override the config file.
const (
	EnvConfig   = "MUSIC_PLAYER_CONFIG"
	EnvDataDir  = "MUSIC_PLAYER_DATA_DIR"
	EnvDevice   = "MUSIC_PLAYER_DEVICE"
	EnvLogLevel = "MUSIC_PLAYER_LOG_LEVEL"
	EnvStatsDSN = "MUSIC_PLAYER_STATS_DSN"
)

// Stats backends.
const (
	StatsJSON     = "json"
	StatsPostgres = "postgres"
	StatsNone     = "none"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	MusicDirectories []string `json:"music_directories"`
	DefaultVolume    float64  `json:"default_volume"`
	DefaultLoop      bool     `json:"default_loop"`
	Theme            string   `json:"theme"`
	KeyBindings      KeyMap   `json:"key_bindings"`
	DataDir          string   `json:"data_dir"`

	// BufferMs sizes the engine's sample ring.
	BufferMs           int    `json:"buffer_ms"`
	CommandQueueLength int    `json:"command_queue_length"`
	Device             string `json:"device"`
	DeviceBufferMs     int    `json:"device_buffer_ms"`

	VolumeStep float64  `json:"volume_step"`
	SeekStep   Duration `json:"seek_step"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	LogFile   string `json:"log_file"`

	StatsBackend string `json:"stats_backend"`
	StatsDSN     string `json:"stats_dsn"`
}

// KeyMap defines keyboard shortcuts
type KeyMap struct {
	PlayPause   string `json:"play_pause"`
	Stop        string `json:"stop"`
	Next        string `json:"next"`
	Previous    string `json:"previous"`
	VolumeUp    string `json:"volume_up"`
	VolumeDown  string `json:"volume_down"`
	SeekForward string `json:"seek_forward"`
	SeekBack    string `json:"seek_back"`
	Mute        string `json:"mute"`
	Loop        string `json:"loop"`
	Quit        string `json:"quit"`
}

// Duration is a time.Duration written as a string such as "5s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// plain numbers are seconds
		var secs float64
		if err := json.Unmarshal(b, &secs); err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		MusicDirectories:   []string{},
		DefaultVolume:      1.0,
		Theme:              "dark",
		DataDir:            "./data",
		BufferMs:           100,
		CommandQueueLength: 5,
		Device:             "oto",
		DeviceBufferMs:     20,
		VolumeStep:         0.05,
		SeekStep:           Duration(5 * time.Second),
		LogLevel:           "info",
		LogFormat:          "text",
		StatsBackend:       StatsJSON,
		KeyBindings: KeyMap{
			PlayPause:   " ",
			Stop:        "s",
			Next:        "n",
			Previous:    "p",
			VolumeUp:    "+",
			VolumeDown:  "-",
			SeekForward: "right",
			SeekBack:    "left",
			Mute:        "m",
			Loop:        "l",
			Quit:        "q",
		},
	}
}

// LoadConfig reads and unmarshals configuration from file. Keys missing from
// the file keep their defaults.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return GetDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// SaveConfig marshals and saves configuration to file
func SaveConfig(fs afero.Fs, config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or creates default if not exists
func LoadOrCreate(fs afero.Fs, path string) (*Config, error) {
	config, err := LoadConfig(fs, path)
	if err != nil {
		return nil, err
	}

	// Save default config if file didn't exist
	if exists, _ := afero.Exists(fs, path); !exists {
		if err := SaveConfig(fs, config, path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return config, nil
}

// Load is the full startup sequence: .env file, config file (created with
// defaults when missing), environment overrides and validation.
func Load(fs afero.Fs, path string) (*Config, error) {
	if err := LoadEnv(fs, ".env"); err != nil {
		return nil, err
	}
	if path == "" {
		path = GetConfigPath()
	}
	config, err := LoadOrCreate(fs, path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadEnv exports the variables of a dotenv file. Variables already present
// in the environment win; a missing file is not an error.
func LoadEnv(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse env file %s: %w", path, err)
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with the MUSIC_PLAYER_* variables.
func (c *Config) ApplyEnv() {
	overrides := map[string]*string{
		EnvDataDir:  &c.DataDir,
		EnvDevice:   &c.Device,
		EnvLogLevel: &c.LogLevel,
		EnvStatsDSN: &c.StatsDSN,
	}
	for name, field := range overrides {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
}

// Validate clamps the volume settings into range and rejects values the
// player cannot run with.
func (c *Config) Validate() error {
	c.DefaultVolume = lo.Clamp(c.DefaultVolume, 0, 1)
	if c.VolumeStep <= 0 {
		c.VolumeStep = GetDefaultConfig().VolumeStep
	}
	c.VolumeStep = lo.Clamp(c.VolumeStep, 0.01, 1)

	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.BufferMs < 50 || c.BufferMs > 500 {
		invalid("buffer_ms %d outside 50..500", c.BufferMs)
	}
	if c.DeviceBufferMs <= 0 || c.DeviceBufferMs > c.BufferMs {
		invalid("device_buffer_ms %d must be in 1..buffer_ms", c.DeviceBufferMs)
	}
	if c.CommandQueueLength < 1 {
		invalid("command_queue_length %d must be positive", c.CommandQueueLength)
	}
	if c.SeekStep <= 0 {
		invalid("seek_step must be positive")
	}
	if !lo.Contains([]string{"oto", "speaker", "null"}, strings.ToLower(c.Device)) {
		invalid("unknown device %q", c.Device)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		invalid("log_level: %v", err)
	}
	if !lo.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		invalid("unknown log_format %q", c.LogFormat)
	}
	switch c.StatsBackend {
	case StatsJSON, StatsNone:
	case StatsPostgres:
		if c.StatsDSN == "" {
			invalid("stats_backend postgres needs stats_dsn")
		}
	default:
		invalid("unknown stats_backend %q", c.StatsBackend)
	}
	return errors.Join(errs...)
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "musicplayer", "config.json")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(home, ".config", "musicplayer", "config.json")
}
