package domain

import (
	"encoding/json"
	"slices"
)

// File is a single project file. Inside an Artifact it is the parsed file; inside the
// virtual file system it is the projected file. Both share the same shape.
type File struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	IsComplete bool   `json:"is_complete"`
}

// FileSet is an insertion-ordered mapping of path to File.
// The zero value is ready to use.
type FileSet struct {
	order  []string
	byPath map[string]File
}

// Set inserts or replaces the file stored under f.Path.
// Replacing keeps the original insertion position.
func (s *FileSet) Set(f File) {
	if s.byPath == nil {
		s.byPath = make(map[string]File)
	}
	if _, ok := s.byPath[f.Path]; !ok {
		s.order = append(s.order, f.Path)
	}
	s.byPath[f.Path] = f
}

// Get returns the file stored under path.
func (s *FileSet) Get(path string) (File, bool) {
	f, ok := s.byPath[path]
	return f, ok
}

// Len returns the number of files.
func (s *FileSet) Len() int {
	return len(s.order)
}

// Paths returns the paths in insertion order.
func (s *FileSet) Paths() []string {
	return slices.Clone(s.order)
}

// Files returns the files in insertion order.
func (s *FileSet) Files() []File {
	files := make([]File, 0, len(s.order))
	for _, p := range s.order {
		files = append(files, s.byPath[p])
	}
	return files
}

// Clone returns an independent copy.
func (s *FileSet) Clone() FileSet {
	out := FileSet{order: slices.Clone(s.order)}
	if s.byPath != nil {
		out.byPath = make(map[string]File, len(s.byPath))
		for k, v := range s.byPath {
			out.byPath[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the set as an ordered array of files.
func (s FileSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Files())
}

// UnmarshalJSON decodes an ordered array of files.
func (s *FileSet) UnmarshalJSON(data []byte) error {
	var files []File
	if err := json.Unmarshal(data, &files); err != nil {
		return err
	}
	*s = FileSet{}
	for _, f := range files {
		s.Set(f)
	}
	return nil
}

// Artifact is one parsed project-generation reply.
type Artifact struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Files         FileSet  `json:"files"`
	ShellCommands []string `json:"shell_commands"`
	IsComplete    bool     `json:"is_complete"`

	// CurrentFile is the path still being streamed, empty when no file action is open.
	CurrentFile string `json:"current_file,omitempty"`
}

// NewArtifact creates an empty, incomplete artifact.
func NewArtifact(id, title string) *Artifact {
	return &Artifact{
		ID:            id,
		Title:         title,
		ShellCommands: []string{},
	}
}

// Clone returns the snapshot handed to readers: the Artifact value is copied together with
// its file set and command list, so later parser mutations never show through.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	out := *a
	out.Files = a.Files.Clone()
	out.ShellCommands = slices.Clone(a.ShellCommands)
	if out.ShellCommands == nil {
		out.ShellCommands = []string{}
	}
	return &out
}

// HasShellCommand reports whether cmd was already recorded (exact string equality).
func (a *Artifact) HasShellCommand(cmd string) bool {
	return slices.Contains(a.ShellCommands, cmd)
}
