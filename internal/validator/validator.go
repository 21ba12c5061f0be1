// Package validator lints a model reply against the artifact markup.
//
// It reports what the parser tolerates silently: tags it skips, actions left open, files
// written twice and paths that would escape the project. It does not look inside file
// contents.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/sakura/internal/markup"
	"github.com/aretw0/sakura/internal/runtime"
	"github.com/aretw0/sakura/pkg/domain"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding. Path is set when the finding concerns a file.
type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Path != "" {
		return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Severity, i.Message)
}

// Report is the result of Validate.
type Report struct {
	Issues   []Issue          `json:"issues"`
	Artifact *domain.Artifact `json:"artifact"`
}

// Errors returns the number of error-level issues.
func (r Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Err summarizes the error-level issues, or returns nil when there are none.
func (r Report) Err() error {
	var msgs []string
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.String())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(msgs), strings.Join(msgs, "\n- "))
}

// Validate parses reply with grammar and lints the result. The error is only set for an
// invalid grammar.
func Validate(reply string, grammar markup.Grammar) (Report, error) {
	m, err := grammar.Compile()
	if err != nil {
		return Report{}, err
	}

	var (
		artifacts int
		writes    = make(map[string]int)
	)
	hooks := domain.LifecycleHooks{
		OnTransition: func(e *domain.TransitionEvent) {
			switch {
			case e.From == domain.StateScanning && e.To == domain.StateInArtifact:
				artifacts++
			case e.To == domain.StateInFileAction:
				writes[e.Path]++
			}
		},
	}
	p := runtime.NewParser(runtime.WithMatcher(m), runtime.WithLifecycleHooks(hooks))
	p.ParseFullContent(reply)
	art := p.Artifact()

	v := &validation{}
	v.checkTags(m, reply)

	switch {
	case artifacts == 0:
		v.warn("", "no artifact found")
	case artifacts > 1:
		v.warn("", fmt.Sprintf("%d artifacts found, only the last one is kept", artifacts))
	}

	if art != nil {
		switch p.State() {
		case domain.StateInFileAction:
			v.error(art.CurrentFile, "file action is not closed")
		case domain.StateInShellAction:
			v.error("", "shell action is not closed")
		}
		if !art.IsComplete {
			v.error("", fmt.Sprintf("artifact %q is not closed", art.ID))
		}
		for _, f := range art.Files.Files() {
			v.checkFile(f, writes[f.Path])
		}
	}

	return Report{Issues: v.issues, Artifact: art}, nil
}

type validation struct {
	issues []Issue
}

func (v *validation) error(path, msg string) {
	v.issues = append(v.issues, Issue{Severity: SeverityError, Path: path, Message: msg})
}

func (v *validation) warn(path, msg string) {
	v.issues = append(v.issues, Issue{Severity: SeverityWarning, Path: path, Message: msg})
}

func (v *validation) checkTags(m *markup.Matcher, reply string) {
	artifacts, actions := m.OpenTags(reply)
	for _, attrs := range artifacts {
		if attrs["id"] == "" || attrs["title"] == "" {
			v.error("", "artifact tag without id or title is ignored")
		}
	}
	for _, attrs := range actions {
		switch attrs["type"] {
		case "file":
			if attrs["filePath"] == "" {
				v.error("", "file action without filePath is ignored")
			}
		case "shell":
		default:
			v.warn(attrs["filePath"], fmt.Sprintf("action of type %q is ignored", attrs["type"]))
		}
	}
}

func (v *validation) checkFile(f domain.File, writes int) {
	segs := strings.Split(f.Path, "/")
	switch {
	case slices.Contains(segs, ".."):
		v.error(f.Path, "path escapes the project")
	case strings.HasPrefix(f.Path, "/"):
		v.warn(f.Path, "absolute path, the leading slash is dropped")
	case strings.Contains(f.Path, "//"):
		v.warn(f.Path, "empty path segment")
	}
	if writes > 1 {
		v.warn(f.Path, fmt.Sprintf("written %d times, the last version wins", writes))
	}
	if f.IsComplete && f.Content == "" {
		v.warn(f.Path, "file is empty")
	}
}
