package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := LoadOrCreate(fs, "/cfg/config.json")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)

	exists, err := afero.Exists(fs, "/cfg/config.json")
	require.NoError(t, err)
	assert.True(t, exists)

	again, err := LoadConfig(fs, "/cfg/config.json")
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.json", []byte(`{
		"default_volume": 0.4,
		"buffer_ms": 200,
		"seek_step": "10s",
		"key_bindings": {"quit": "x"}
	}`), 0644))

	cfg, err := LoadConfig(fs, "config.json")
	require.NoError(t, err)

	assert.Equal(t, 0.4, cfg.DefaultVolume)
	assert.Equal(t, 200, cfg.BufferMs)
	assert.Equal(t, Duration(10*time.Second), cfg.SeekStep)
	assert.Equal(t, "x", cfg.KeyBindings.Quit)
	assert.Equal(t, 5, cfg.CommandQueueLength)
	assert.Equal(t, "oto", cfg.Device)
}

func TestLoadConfig_Malformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.json", []byte(`{"buffer_ms": `), 0644))

	_, err := LoadConfig(fs, "config.json")
	assert.Error(t, err)
}

func TestDuration_NumericSeconds(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`2.5`)))
	assert.Equal(t, Duration(2500*time.Millisecond), d)

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"buffer too small", func(c *Config) { c.BufferMs = 10 }, true},
		{"buffer too large", func(c *Config) { c.BufferMs = 1000 }, true},
		{"device period longer than ring", func(c *Config) { c.DeviceBufferMs = 150 }, true},
		{"empty queue", func(c *Config) { c.CommandQueueLength = 0 }, true},
		{"unknown device", func(c *Config) { c.Device = "alsa" }, true},
		{"device name case", func(c *Config) { c.Device = "Speaker" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"postgres without dsn", func(c *Config) { c.StatsBackend = StatsPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.StatsBackend = StatsPostgres
			c.StatsDSN = "postgres://localhost/player"
		}, false},
		{"stats off", func(c *Config) { c.StatsBackend = StatsNone }, false},
		{"zero seek step", func(c *Config) { c.SeekStep = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ClampsVolume(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.DefaultVolume = 3
	cfg.VolumeStep = -1
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.0, cfg.DefaultVolume)
	assert.Equal(t, 0.05, cfg.VolumeStep)

	cfg.DefaultVolume = -0.5
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.DefaultVolume)
}

func TestLoad_EnvOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ".env", []byte(
		"MUSIC_PLAYER_DEVICE=null\nMUSIC_PLAYER_LOG_LEVEL=warn\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/etc/player.json", []byte(
		`{"device": "speaker", "data_dir": "/srv/music"}`), 0644))

	// the process environment wins over .env, which wins over the file
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDevice, "")
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvStatsDSN, "")

	cfg, err := Load(fs, "/etc/player.json")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "speaker", cfg.Device, "an empty variable is already set, so .env does not apply")
	assert.Equal(t, "/srv/music", cfg.DataDir)
}

func TestLoad_DotEnvApplies(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ".env", []byte(
		"MUSIC_PLAYER_STATS_DSN=postgres://db/stats\n"), 0644))

	t.Setenv(EnvConfig, "/home/u/.config/musicplayer/config.json")
	unsetForTest(t, EnvStatsDSN)

	cfg, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/stats", cfg.StatsDSN)

	exists, _ := afero.Exists(fs, "/home/u/.config/musicplayer/config.json")
	assert.True(t, exists)
}

func TestLoad_Invalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "c.json", []byte(`{"buffer_ms": 5}`), 0644))
	t.Setenv(EnvDevice, "")
	t.Setenv(EnvLogLevel, "")

	_, err := Load(fs, "c.json")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/musicplayer/config.json", GetConfigPath())

	t.Setenv(EnvConfig, "/explicit.json")
	assert.Equal(t, "/explicit.json", GetConfigPath())
}

// unsetForTest removes name from the environment and restores it afterwards.
func unsetForTest(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}
