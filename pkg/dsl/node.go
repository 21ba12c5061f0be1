package dsl

import (
	"fmt"
	"strings"

	"github.com/aretw0/sakura/internal/markup"
)

type actionKind string

const (
	actionFile  actionKind = "file"
	actionShell actionKind = "shell"
)

// ActionBuilder provides a fluent API for configuring an action.
type ActionBuilder struct {
	kind    actionKind
	path    string
	content string
	partial bool
	builder *Builder
}

// Content sets the body of the action: the file content or the shell command.
func (a *ActionBuilder) Content(content string) *ActionBuilder {
	a.content = content
	return a
}

// Partial leaves the action without its close tag. Only the last action may be partial;
// nothing after it is rendered.
func (a *ActionBuilder) Partial() *ActionBuilder {
	a.partial = true
	return a
}

// Done returns the artifact builder to continue the chain.
func (a *ActionBuilder) Done() *Builder {
	return a.builder
}

func (a *ActionBuilder) render(sb *strings.Builder, g markup.Grammar) error {
	closeTag := "</" + g.ActionTag + ">"
	if strings.Contains(a.content, closeTag) {
		return fmt.Errorf("%w: %s action %q contains %s", ErrUnrepresentable, a.kind, a.path, closeTag)
	}

	switch a.kind {
	case actionFile:
		if strings.Contains(a.path, `"`) {
			return fmt.Errorf("%w: path %q contains a double quote", ErrUnrepresentable, a.path)
		}
		fmt.Fprintf(sb, "<%s type=\"file\" filePath=\"%s\">\n%s", g.ActionTag, a.path, a.content)
	default:
		fmt.Fprintf(sb, "<%s type=\"shell\">\n%s", g.ActionTag, a.content)
	}
	if !a.partial {
		fmt.Fprintf(sb, "\n%s\n", closeTag)
	}
	return nil
}
