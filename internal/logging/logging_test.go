package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	require.Equal(t, zerolog.Disabled, ParseLevel("none"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestSetupLogFile(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "radio.log")
	closeFn, err := Setup(Config{Level: "debug", File: path})
	require.NoError(t, err)
	require.True(t, Enabled(zerolog.DebugLevel))
	require.False(t, Enabled(zerolog.TraceLevel))

	log.Debug().Str("channel", "room").Msg("joined")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"channel":"room"`)
}

func TestSetupBadLogFile(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	_, err := Setup(Config{File: filepath.Join(t.TempDir(), "missing", "radio.log")})
	require.Error(t, err)
}

func TestConsoleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(consoleWriter(&buf))
	logger.Warn().Msg("reconnecting")
	require.Contains(t, buf.String(), "WRN")
	require.Contains(t, buf.String(), "reconnecting")
}
