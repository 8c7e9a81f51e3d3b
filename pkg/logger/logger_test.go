package logger_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-push-notifier/pkg/logger"
)

func TestNewLogger_FiltersByLevelAndTagsService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var console bytes.Buffer

	l, err := logger.NewLogger(path, "weather_push", logger.Options{Level: "warn", Console: &console})
	require.NoError(t, err)

	l.Info().Msg("quiet")
	l.Warn().Str("city", "Barcelona").Msg("loud")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}

	require.Len(t, entries, 1)
	assert.Equal(t, "loud", entries[0]["message"])
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "weather_push", entries[0]["service"])
	assert.Equal(t, "Barcelona", entries[0]["city"])
	assert.Contains(t, entries[0], "caller")

	assert.Contains(t, console.String(), "loud")
	assert.NotContains(t, console.String(), "quiet")
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer

	l, err := logger.NewLogger("", "push_relay", logger.Options{Console: &console})
	require.NoError(t, err)

	l.Debug().Msg("visible")
	assert.Contains(t, console.String(), "logger ready")
	assert.Contains(t, console.String(), "visible")
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := logger.NewLogger("", "weather_push", logger.Options{Level: "loud", Console: &bytes.Buffer{}})
	assert.Error(t, err)
}
