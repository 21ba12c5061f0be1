package vfs_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/vfs"
)

func TestFileSystem_AddFileSetsActive(t *testing.T) {
	fs := vfs.New()
	fs.AddFile("src/App.tsx", "x", true)
	fs.AddFile("src/main.tsx", "y", false)

	assert.Equal(t, "src/main.tsx", fs.ActiveFile())
	f, ok := fs.GetFile("src/App.tsx")
	require.True(t, ok)
	assert.True(t, f.IsComplete)

	_, ok = fs.GetFile("missing")
	assert.False(t, ok)
}

func TestFileSystem_UpdateNeverRegressesCompletion(t *testing.T) {
	fs := vfs.New()
	fs.UpdateFileContent("a.ts", "v1", false)
	fs.UpdateFileContent("a.ts", "v2", true)
	fs.UpdateFileContent("a.ts", "v3", false)

	f, _ := fs.GetFile("a.ts")
	assert.Equal(t, domain.File{Path: "a.ts", Content: "v3", IsComplete: true}, f)
	assert.Empty(t, fs.ActiveFile(), "updates do not select files")
}

func TestFileSystem_AllFilesInsertionOrder(t *testing.T) {
	fs := vfs.New()
	fs.UpdateFileContent("z.ts", "", false)
	fs.UpdateFileContent("a.ts", "", false)
	fs.UpdateFileContent("z.ts", "changed", false)

	var paths []string
	for _, f := range fs.AllFiles() {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"z.ts", "a.ts"}, paths)
}

func TestFileSystem_SetActiveFile(t *testing.T) {
	fs := vfs.New()
	fs.SetActiveFile("a.ts")
	assert.Equal(t, "a.ts", fs.ActiveFile())
	fs.SetActiveFile("")
	assert.Empty(t, fs.ActiveFile())
}

func TestFileSystem_AddDependency(t *testing.T) {
	fs := vfs.New()

	added := fs.AddDependency("npm install lucide-react")
	assert.Equal(t, []string{"lucide-react"}, added)

	assert.Nil(t, fs.AddDependency("npm install lucide-react"))
	assert.Nil(t, fs.AddDependency("npm run dev"))

	fs.AddDependency("npm install --save-dev vite @types/react -D")
	assert.Equal(t, []string{"@types/react", "lucide-react", "vite"}, fs.Dependencies())
}

func TestFileSystem_ResetAndState(t *testing.T) {
	fs := vfs.New()
	fs.SetProjectTitle("Demo")
	fs.AddFile("a.ts", "x", true)
	fs.AddDependency("npm install react")

	st := fs.State()
	assert.Equal(t, "Demo", st.ProjectTitle)
	assert.Equal(t, "a.ts", st.ActiveFile)
	assert.Equal(t, []string{"react"}, st.Dependencies)
	assert.Len(t, st.Files, 1)

	v := fs.Version()
	fs.Reset()
	assert.Greater(t, fs.Version(), v)
	assert.Equal(t, domain.VirtualFSState{Files: []domain.File{}, Dependencies: []string{}}, fs.State())
}

func TestFileSystem_VersionOnlyMovesOnChange(t *testing.T) {
	fs := vfs.New()
	fs.UpdateFileContent("a.ts", "x", true)
	v := fs.Version()

	fs.UpdateFileContent("a.ts", "x", false)
	fs.SetActiveFile("")
	fs.SetProjectTitle("")
	assert.Equal(t, v, fs.Version())
}

func TestFileSystem_ConcurrentReaders(t *testing.T) {
	fs := vfs.New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			fs.UpdateFileContent("src/a.ts", string(rune('a'+i%26)), i == 199)
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = fs.FileTree()
				_ = fs.State()
			}
		}()
	}
	wg.Wait()

	f, _ := fs.GetFile("src/a.ts")
	assert.True(t, f.IsComplete)
}
