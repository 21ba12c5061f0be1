package vfs

import (
	"slices"
	"sync"

	"github.com/aretw0/sakura/pkg/domain"
)

// FileSystem holds the projected project state.
type FileSystem struct {
	mu      sync.RWMutex
	files   domain.FileSet
	deps    map[string]struct{}
	active  string
	title   string
	version uint64
}

// New creates an empty FileSystem.
func New() *FileSystem {
	return &FileSystem{deps: make(map[string]struct{})}
}

// SetProjectTitle sets the title shown above the tree.
func (fs *FileSystem) SetProjectTitle(title string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.title == title {
		return
	}
	fs.title = title
	fs.version++
}

// AddFile inserts or replaces a file and makes it the active file.
func (fs *FileSystem) AddFile(path, content string, isComplete bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files.Set(domain.File{Path: path, Content: content, IsComplete: isComplete})
	fs.active = path
	fs.version++
}

// UpdateFileContent inserts or updates a file without changing the active file.
// Completion is sticky: once a path was recorded complete it stays complete.
func (fs *FileSystem) UpdateFileContent(path, content string, isComplete bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prev, ok := fs.files.Get(path)
	next := domain.File{Path: path, Content: content, IsComplete: isComplete || prev.IsComplete}
	if ok && prev == next {
		return
	}
	fs.files.Set(next)
	fs.version++
}

// SetActiveFile selects path. An empty path clears the selection.
func (fs *FileSystem) SetActiveFile(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.active == path {
		return
	}
	fs.active = path
	fs.version++
}

// AddDependency records the packages of an install-style shell command.
// It returns the package names that were not known before.
func (fs *FileSystem) AddDependency(command string) []string {
	pkgs := ParseInstallCommand(command)
	if len(pkgs) == 0 {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	var added []string
	for _, pkg := range pkgs {
		if _, ok := fs.deps[pkg]; ok {
			continue
		}
		fs.deps[pkg] = struct{}{}
		added = append(added, pkg)
	}
	if len(added) > 0 {
		fs.version++
	}
	return added
}

// Reset clears everything.
func (fs *FileSystem) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files = domain.FileSet{}
	fs.deps = make(map[string]struct{})
	fs.active = ""
	fs.title = ""
	fs.version++
}

// GetFile returns the file stored under path.
func (fs *FileSystem) GetFile(path string) (domain.File, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.files.Get(path)
}

// AllFiles returns every file in insertion order.
func (fs *FileSystem) AllFiles() []domain.File {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.files.Files()
}

// Paths returns every path in insertion order.
func (fs *FileSystem) Paths() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.files.Paths()
}

// FileTree derives the folder tree from the current paths.
func (fs *FileSystem) FileTree() []*domain.FileTreeNode {
	return BuildTree(fs.Paths())
}

// ActiveFile returns the selected path, empty when none.
func (fs *FileSystem) ActiveFile() string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.active
}

// ProjectTitle returns the title.
func (fs *FileSystem) ProjectTitle() string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.title
}

// Dependencies returns the recorded package names, sorted.
func (fs *FileSystem) Dependencies() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.sortedDeps()
}

// Version increases on every mutation that changed something.
// Readers use it to detect staleness cheaply.
func (fs *FileSystem) Version() uint64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.version
}

// State returns a copy of the whole state.
func (fs *FileSystem) State() domain.VirtualFSState {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return domain.VirtualFSState{
		Files:        fs.files.Files(),
		Dependencies: fs.sortedDeps(),
		ActiveFile:   fs.active,
		ProjectTitle: fs.title,
	}
}

func (fs *FileSystem) sortedDeps() []string {
	deps := make([]string, 0, len(fs.deps))
	for d := range fs.deps {
		deps = append(deps, d)
	}
	slices.Sort(deps)
	return deps
}
