package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/vfs"
)

// Summary renders a workspace snapshot as markdown: title, status, files, dependencies
// and shell commands.
func Summary(snap domain.WorkspaceSnapshot) string {
	var sb strings.Builder

	title := snap.FS.ProjectTitle
	if title == "" {
		title = "Untitled project"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	art := snap.Artifact
	switch {
	case art == nil && len(snap.FS.Files) == 0:
		sb.WriteString("_No artifact found._\n")
		return sb.String()
	case art == nil:
		sb.WriteString("**Status:** idle\n\n")
	case art.IsComplete:
		fmt.Fprintf(&sb, "**Status:** complete (`%s`)\n\n", art.ID)
	case art.CurrentFile != "":
		fmt.Fprintf(&sb, "**Status:** writing `%s`\n\n", art.CurrentFile)
	default:
		fmt.Fprintf(&sb, "**Status:** streaming (`%s`)\n\n", art.ID)
	}

	if len(snap.FS.Files) > 0 {
		sb.WriteString("## Files\n\n")
		files, folders := vfs.CountNodes(snap.Tree)
		fmt.Fprintf(&sb, "%s in %s\n\n", plural(files, "file"), plural(folders, "folder"))
		sb.WriteString("| Path | Language | Size | Done |\n")
		sb.WriteString("|---|---|---:|:---:|\n")
		for _, f := range snap.FS.Files {
			done := "✓"
			if !f.IsComplete {
				done = "…"
			}
			path := "`" + f.Path + "`"
			if f.Path == snap.FS.ActiveFile {
				path = "**" + path + "**"
			}
			fmt.Fprintf(&sb, "| %s | %s | %d | %s |\n", path, domain.LanguageFor(f.Path), len(f.Content), done)
		}
		sb.WriteString("\n")
	}

	if len(snap.FS.Dependencies) > 0 {
		sb.WriteString("## Dependencies\n\n")
		for _, d := range snap.FS.Dependencies {
			fmt.Fprintf(&sb, "- `%s`\n", d)
		}
		sb.WriteString("\n")
	}

	if art != nil && len(art.ShellCommands) > 0 {
		sb.WriteString("## Commands\n\n```sh\n")
		for _, c := range art.ShellCommands {
			sb.WriteString(c + "\n")
		}
		sb.WriteString("```\n")
	}

	return sb.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// StatusLine renders a one-line progress indicator for a parser state, colored for the
// terminal profile.
func StatusLine(state domain.ParserState, art *domain.Artifact) string {
	p := termenv.ColorProfile()

	label, color := "scanning", "#9ca3af"
	switch state {
	case domain.StateInArtifact:
		label, color = "artifact", "#818cf8"
	case domain.StateInFileAction:
		label, color = "writing", "#f472b6"
	case domain.StateInShellAction:
		label, color = "shell", "#fbbf24"
	}

	var detail string
	if art != nil {
		detail = fmt.Sprintf(" %s files=%d commands=%d", art.ID, art.Files.Len(), len(art.ShellCommands))
		if art.CurrentFile != "" {
			detail += " " + art.CurrentFile
		}
		if art.IsComplete {
			label, color = "done", "#34d399"
		}
	}
	return termenv.String(fmt.Sprintf("[%s]", label)).Foreground(p.Color(color)).Bold().String() + detail
}
