package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/sakura/internal/presentation/tui"
	"github.com/aretw0/sakura/pkg/domain"
)

// WriteTree prints the tree with box-drawing guides. Folders end with a slash.
func WriteTree(w io.Writer, tree []*domain.FileTreeNode) error {
	return writeTree(w, tree, "")
}

func writeTree(w io.Writer, nodes []*domain.FileTreeNode, indent string) error {
	for i, n := range nodes {
		last := i == len(nodes)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		name := tui.Sanitize(n.Name)
		if n.IsFolder() {
			name += "/"
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", indent, branch, name); err != nil {
			return err
		}
		if n.IsFolder() {
			if err := writeTree(w, n.Children, indent+next); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteFiles prints every file under a "==> path <==" header. Control characters are
// stripped; WriteProject keeps the content as is.
func WriteFiles(w io.Writer, files []domain.File) error {
	for i, f := range files {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		marker := ""
		if !f.IsComplete {
			marker = " (incomplete)"
		}
		if _, err := fmt.Fprintf(w, "==> %s%s <==\n%s\n", tui.Sanitize(f.Path), marker, tui.Sanitize(f.Content)); err != nil {
			return err
		}
	}
	return nil
}

// WriteProject writes the complete files under dir and returns the paths written.
// Paths escaping dir are rejected.
func WriteProject(dir string, files []domain.File) ([]string, error) {
	var written []string
	for _, f := range files {
		if !f.IsComplete {
			continue
		}
		target, err := safeJoin(dir, f.Path)
		if err != nil {
			return written, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("failed to create folder for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}

func safeJoin(dir, p string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(p, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to write outside the project: %q", p)
	}
	return filepath.Join(dir, clean), nil
}
