package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func newLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	l, ok := logger.New().(*logger.Logger)
	require.True(t, ok)

	buf := &bytes.Buffer{}
	l.SetOutput(buf)
	return l, buf
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newLogger(t)

	l.Debug("hidden")
	l.Info("Resolving 3 packages")
	l.Warn("skipping malformed line 4")

	assert.Equal(t, "Resolving 3 packages\n! skipping malformed line 4\n", buf.String())
}

func TestLogger_SetLevel(t *testing.T) {
	l, buf := newLogger(t)

	l.SetLevel(slog.LevelDebug)
	l.Debug("cache hit")
	l.SetLevel(slog.LevelWarn)
	l.Info("hidden")
	l.Warn("visible")

	assert.Equal(t, "○ cache hit\n! visible\n", buf.String())
}

func TestLogger_ErrorChain(t *testing.T) {
	l, buf := newLogger(t)

	err := zerr.Wrap(
		zerr.With(zerr.Wrap(errors.New("exit status 1"), "external tool failed"), "tool", "oslili"),
		"package resolution failed",
	)
	l.Error(err)

	g := goldie.New(t)
	g.Assert(t, "logger_error_chain", buf.Bytes())
}

func TestLogger_ErrorNil(t *testing.T) {
	l, buf := newLogger(t)

	l.Error(nil)

	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	l, buf := newLogger(t)

	l.SetJSON(true)
	l.Info("hello")
	l.Error(errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "operation failed", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
}

func TestLogger_SetFile(t *testing.T) {
	l, buf := newLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	require.NoError(t, l.SetFile(path))
	l.Debug("only in file")
	l.Info("both")
	require.NoError(t, l.Close())

	assert.Equal(t, "both\n", buf.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"only in file"`)
	assert.Contains(t, lines[1], `"msg":"both"`)
}
