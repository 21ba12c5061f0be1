package dsl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/sakura/internal/markup"
	"github.com/aretw0/sakura/pkg/domain"
)

// ErrUnrepresentable reports a value the markup cannot carry.
var ErrUnrepresentable = errors.New("value cannot be represented in markup")

// Builder manages the artifact construction.
type Builder struct {
	grammar markup.Grammar
	id      string
	title   string
	prose   string
	actions []*ActionBuilder
	open    bool
}

// New creates a new artifact builder.
func New(id, title string) *Builder {
	return &Builder{grammar: markup.DefaultGrammar(), id: id, title: title}
}

// Grammar sets the tag names to render.
func (b *Builder) Grammar(g markup.Grammar) *Builder {
	b.grammar = g.WithDefaults()
	return b
}

// Prose sets the text written before the artifact.
func (b *Builder) Prose(text string) *Builder {
	b.prose = text
	return b
}

// File appends a file action. If a file action for path exists, it returns the existing
// builder.
func (b *Builder) File(path string) *ActionBuilder {
	for _, a := range b.actions {
		if a.kind == actionFile && a.path == path {
			return a
		}
	}
	a := &ActionBuilder{kind: actionFile, path: path, builder: b}
	b.actions = append(b.actions, a)
	return a
}

// Shell appends a shell action.
func (b *Builder) Shell(command string) *ActionBuilder {
	a := &ActionBuilder{kind: actionShell, content: command, builder: b}
	b.actions = append(b.actions, a)
	return a
}

// Open leaves the artifact without its close tag, as a reply cut mid-stream.
func (b *Builder) Open() *Builder {
	b.open = true
	return b
}

// Build renders the reply.
func (b *Builder) Build() (string, error) {
	if err := b.grammar.WithDefaults().Validate(); err != nil {
		return "", err
	}
	g := b.grammar.WithDefaults()
	for _, attr := range []string{b.id, b.title} {
		if strings.Contains(attr, `"`) {
			return "", fmt.Errorf("%w: attribute %q contains a double quote", ErrUnrepresentable, attr)
		}
	}

	var sb strings.Builder
	if b.prose != "" {
		sb.WriteString(b.prose)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "<%s id=\"%s\" title=\"%s\">\n", g.ArtifactTag, b.id, b.title)
	for i, a := range b.actions {
		if err := a.render(&sb, g); err != nil {
			return "", err
		}
		if a.partial {
			if i != len(b.actions)-1 {
				return "", fmt.Errorf("only the last action can be partial")
			}
			return sb.String(), nil
		}
	}
	if !b.open {
		fmt.Fprintf(&sb, "</%s>\n", g.ArtifactTag)
	}
	return sb.String(), nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() string {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// FromFiles creates a builder with one file action per file, in order.
func FromFiles(id, title string, files []domain.File) *Builder {
	b := New(id, title)
	for _, f := range files {
		b.File(f.Path).Content(f.Content)
	}
	return b
}

// skippedDirs are never packed.
var skippedDirs = []string{".git", "node_modules", "dist", "build"}

// FromDir creates a builder from the regular files under dir, with slash-separated paths
// relative to dir in lexical order.
func FromDir(dir, id, title string) (*Builder, error) {
	var files []domain.File
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && slices.Contains(skippedDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, domain.File{Path: filepath.ToSlash(rel), Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	return FromFiles(id, title, files), nil
}
