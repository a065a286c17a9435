package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutput(t *testing.T) {
	fs := afero.NewMemMapFs()

	logger, closer, err := New(fs, Options{Level: "debug", Format: "json", File: "/var/log/tplay/player.log"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger.WithField("track", "abc").Info("started")

	data, err := afero.ReadFile(fs, "/var/log/tplay/player.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"track":"abc"`)
}

func TestNew_Defaults(t *testing.T) {
	logger, closer, err := New(afero.NewMemMapFs(), Options{Level: "loud"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel(), "unknown levels fall back to info")
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
