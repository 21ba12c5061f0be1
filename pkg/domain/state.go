package domain

// ParserState defines where the streaming parser currently is in the tag grammar.
type ParserState string

const (
	StateScanning      ParserState = "scanning"        // Outside any artifact
	StateInArtifact    ParserState = "in_artifact"     // Waiting for an action or the artifact close
	StateInFileAction  ParserState = "in_file_action"  // Streaming file content
	StateInShellAction ParserState = "in_shell_action" // Streaming a shell command
)

// NodeType distinguishes files from folders in a FileTreeNode.
type NodeType string

const (
	NodeTypeFile   NodeType = "file"
	NodeTypeFolder NodeType = "folder"
)

// FileTreeNode is one entry of the derived project tree.
// Folders carry Children; files never do.
type FileTreeNode struct {
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Type     NodeType        `json:"type"`
	Children []*FileTreeNode `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *FileTreeNode) IsFolder() bool {
	return n.Type == NodeTypeFolder
}

// VirtualFSState is a copy-on-read snapshot of the virtual file system.
type VirtualFSState struct {
	Files        []File   `json:"files"`
	Dependencies []string `json:"dependencies"`

	// ActiveFile is the selected path, empty when nothing is selected.
	ActiveFile   string `json:"active_file,omitempty"`
	ProjectTitle string `json:"project_title"`
}

// WorkspaceSnapshot bundles everything a reader needs to redraw: the live artifact
// (nil before the first artifact tag), the file system state and its tree.
type WorkspaceSnapshot struct {
	Artifact    *Artifact       `json:"artifact"`
	ParserState ParserState     `json:"parser_state"`
	FS          VirtualFSState  `json:"fs"`
	Tree        []*FileTreeNode `json:"tree"`

	// Expanded lists the folders holding the active file, outermost first. A file explorer
	// opens them so the file being written stays visible.
	Expanded []string `json:"expanded,omitempty"`
}
