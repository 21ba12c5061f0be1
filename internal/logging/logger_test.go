package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewWithOptions_FileReceivesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sakura.log")
	logger, closer, err := NewWithOptions(Options{Level: slog.LevelDebug, File: path})
	require.NoError(t, err)

	logger.Debug("file complete", "path", "src/App.tsx", "error", "none")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec))
	assert.Equal(t, "file complete", rec["msg"])
	assert.Equal(t, "src/App.tsx", rec["path"])
	assert.Equal(t, "none", rec["err"])
}

func TestNewWithOptions_UnknownFormat(t *testing.T) {
	_, _, err := NewWithOptions(Options{Format: "xml"})
	assert.Error(t, err)
}
