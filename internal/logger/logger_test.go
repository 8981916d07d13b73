package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quests/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DEBUG, logger.ParseLevel("debug"))
	assert.Equal(t, logger.WARN, logger.ParseLevel("WARNING"))
	assert.Equal(t, logger.ERROR, logger.ParseLevel("error"))
	assert.Equal(t, logger.INFO, logger.ParseLevel("nonsense"))
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(logger.WARN), logger.WithColors(false))

	log.Info("hidden")
	log.Warn("shown %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "shown 1")
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithColors(false)).
		WithPrefix("quest_repo").
		WithFields(map[string]any{"zeta": 1, "alpha": "a"}).
		WithError(errors.New("boom"))

	log.Info("inserted")

	out := buf.String()
	assert.Contains(t, out, "[quest_repo]")
	assert.Contains(t, out, "alpha=a error=boom zeta=1")
}

func TestLogger_WithErrorNil(t *testing.T) {
	log := logger.New()
	assert.Same(t, log, log.WithError(nil))
}

func TestContext_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithColors(false)).WithField("request_id", "r-1")

	ctx := logger.NewContext(context.Background(), log)
	logger.FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), "request_id=r-1")
	assert.Same(t, logger.Default(), logger.FromContext(context.Background()))
}

func TestWithFile_WritesWithoutColors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quests.log")
	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithColors(true),
		logger.WithFile(logger.FileConfig{Path: path, MaxSizeMB: 1}),
	)

	log.Error("disk full")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "disk full")
	assert.NotContains(t, string(data), "\033[")
	assert.Contains(t, buf.String(), "\033[31m")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatJSON)).
		WithPrefix("db").
		WithField("attempt", 2)

	log.Warn("ping failed: %s", "timeout")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "ping failed: timeout", line["msg"])
	assert.Equal(t, "db", line["component"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.NotContains(t, buf.String(), "\033[")
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, logger.FormatJSON, logger.ParseFormat(" JSON "))
	assert.Equal(t, logger.FormatText, logger.ParseFormat("text"))
	assert.Equal(t, logger.FormatText, logger.ParseFormat(""))
}
