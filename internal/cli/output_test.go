package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/vfs"
)

func TestWriteTree(t *testing.T) {
	tree := vfs.BuildTree([]string{"src/App.tsx", "src/components/Cart.tsx", "index.html"})

	var buf bytes.Buffer
	require.NoError(t, WriteTree(&buf, tree))

	want := "├── index.html\n" +
		"└── src/\n" +
		"    ├── App.tsx\n" +
		"    └── components/\n" +
		"        └── Cart.tsx\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFiles(t *testing.T) {
	files := []domain.File{
		{Path: "a.ts", Content: "one", IsComplete: true},
		{Path: "b.ts", Content: "tw", IsComplete: false},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFiles(&buf, files))
	assert.Equal(t, "==> a.ts <==\none\n\n==> b.ts (incomplete) <==\ntw\n", buf.String())
}

func TestWriteProject(t *testing.T) {
	dir := t.TempDir()
	files := []domain.File{
		{Path: "src/App.tsx", Content: "app", IsComplete: true},
		{Path: "/index.html", Content: "<div/>", IsComplete: true},
		{Path: "src/partial.ts", Content: "half", IsComplete: false},
	}

	written, err := WriteProject(dir, files)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App.tsx", "/index.html"}, written)

	b, err := os.ReadFile(filepath.Join(dir, "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "app", string(b))

	_, err = os.Stat(filepath.Join(dir, "index.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "src", "partial.ts"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteProject_RejectsEscapes(t *testing.T) {
	for _, p := range []string{"../evil.sh", "src/../../evil.sh", ".."} {
		t.Run(p, func(t *testing.T) {
			_, err := WriteProject(t.TempDir(), []domain.File{{Path: p, Content: "x", IsComplete: true}})
			assert.Error(t, err)
		})
	}
}

func TestWriteFiles_StripsControlCharacters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFiles(&buf, []domain.File{{Path: "a\x1b.ts", Content: "x\x1b[2Jy", IsComplete: true}}))
	assert.Equal(t, "==> a.ts <==\nx[2Jy\n", buf.String())
}
