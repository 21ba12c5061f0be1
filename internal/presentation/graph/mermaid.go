package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/sakura/pkg/domain"
)

// RootID is the Mermaid ID of the project node.
const RootID = "project"

// TreeOverlay contains live workspace data to visualize on the tree.
type TreeOverlay struct {
	// ActiveFile is highlighted as the selected file.
	ActiveFile string
	// Incomplete lists files whose action has not closed yet.
	Incomplete []string
}

// GenerateMermaid produces a Mermaid flowchart of a project tree.
// It applies semantic styling:
// - Project: ((Circle)) labeled with the title
// - Folder: [/Parallelogram/] with a trailing slash
// - File: [Rectangle]
// It also applies overlay styles (Active/Incomplete) if provided.
func GenerateMermaid(title string, tree []*domain.FileTreeNode, overlay *TreeOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	if title == "" {
		title = "project"
	}
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", RootID, escapeLabel(title)))
	writeNodes(&sb, RootID, tree)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef incomplete fill:#fff3e0,stroke:#ef6c00,stroke-dasharray:4 2,color:#000;\n")
		sb.WriteString("    classDef active fill:#fce4ec,stroke:#ad1457,stroke-width:3px,color:#000;\n")

		seen := make(map[string]bool)
		for _, p := range overlay.Incomplete {
			id := nodeID(p)
			if !seen[id] && p != "" {
				seen[id] = true
				sb.WriteString(fmt.Sprintf("    class %s incomplete;\n", id))
			}
		}
		if overlay.ActiveFile != "" {
			sb.WriteString(fmt.Sprintf("    class %s active;\n", nodeID(overlay.ActiveFile)))
		}
	}

	return sb.String()
}

func writeNodes(sb *strings.Builder, parentID string, nodes []*domain.FileTreeNode) {
	for _, n := range nodes {
		id := nodeID(n.Path)
		opener, closer, label := "[", "]", n.Name
		if n.IsFolder() {
			opener, closer, label = "[/", "/]", n.Name+"/"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, escapeLabel(label), closer))
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", parentID, id))
		if n.IsFolder() {
			writeNodes(sb, id, n.Children)
		}
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// nodeID derives a Mermaid-safe ID from a path.
func nodeID(p string) string {
	return "n_" + sanitizeMermaidID(strings.Trim(p, "/"))
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "@", "_")
	return s
}
