package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura"
)

// NewWorkspace creates a workspace with opts.
// It fails the test immediately on error.
func NewWorkspace(t *testing.T, opts ...sakura.Option) *sakura.Workspace {
	t.Helper()
	ws, err := sakura.New(opts...)
	require.NoError(t, err, "Failed to create workspace")
	return ws
}

// WriteTree creates a temporary directory holding files, keyed by slash-separated
// relative path, and returns its absolute path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}
