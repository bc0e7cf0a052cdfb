package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-timetrack-client/internal/config"
	"github.com/jrsteele09/go-timetrack-client/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONOutsideDev(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_NAME", "tt-test")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logger := logging.New(config.New(), &buf)
	logger.Debug().Str("k", "v").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "tt-test", line["app"])
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "debug", line["level"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("LOG_LEVEL", "chatty")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logger := logging.New(config.New(), &buf)
	logger.Debug().Msg("dropped")
	require.Zero(t, buf.Len())
}

func TestNewUsesPlainConsoleInDev(t *testing.T) {
	t.Setenv("ENV", "DEV")
	t.Setenv("LOG_LEVEL", "info")

	var buf bytes.Buffer
	logger := logging.New(config.New(), &buf)
	logger.Info().Msg("hello")

	require.Contains(t, buf.String(), "hello")
	require.NotContains(t, buf.String(), "\x1b[")
}
