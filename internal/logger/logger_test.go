package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want charmlog.Level
	}{
		{"debug", charmlog.DebugLevel},
		{"INFO", charmlog.InfoLevel},
		{" warn ", charmlog.WarnLevel},
		{"error", charmlog.ErrorLevel},
		{"bogus", charmlog.InfoLevel},
		{"", charmlog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")

	log.Info("hidden message")
	log.Warn("visible message", "folder", "0001_x")

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "visible message")
	assert.Contains(t, out, "0001_x")
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With("component", "writeq")
	log.Debug("drained")
	assert.Contains(t, buf.String(), "component=writeq")
}

func TestNewWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generator.log")
	var console bytes.Buffer

	log, closer := New(Config{Level: "info", File: path, Console: &console})
	log.Info("file only", "n", 1)
	log.Error("both sinks")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"file only"`)
	assert.Contains(t, string(data), `"msg":"both sinks"`)

	assert.NotContains(t, console.String(), "file only")
	assert.Contains(t, console.String(), "both sinks")
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error("nothing happens")
	log.With("a", 1).Info("still nothing")
}
