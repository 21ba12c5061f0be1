package domain

// ArtifactDiff represents the changes between two artifact snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type ArtifactDiff struct {
	// ArtifactID is always present to identify the target.
	ArtifactID string `json:"artifact_id"`

	// Title is set when the title changed (or on initial load).
	Title *string `json:"title,omitempty"`

	// Files contains files that were added or whose content or completion changed.
	// Clients should upsert these by path.
	Files []File `json:"files,omitempty"`

	// NewCommands contains shell commands appended since the old snapshot.
	NewCommands []string `json:"new_commands,omitempty"`

	// CurrentFile is set when the currently-writing file changed. An empty string means
	// no file is being written anymore.
	CurrentFile *string `json:"current_file,omitempty"`

	// IsComplete is set when the completion flag changed.
	IsComplete *bool `json:"is_complete,omitempty"`

	// Replaced is true when the new snapshot does not extend the old one (another
	// artifact, or a re-parse of a shorter prefix); clients should discard their local
	// copy before applying the diff.
	Replaced bool `json:"replaced,omitempty"`
}

// Diff calculates the difference between oldArt and newArt.
// If oldArt is nil, it returns a diff representing the entire newArt (initial load).
// It returns nil when newArt is nil or nothing changed.
func Diff(oldArt, newArt *Artifact) *ArtifactDiff {
	if newArt == nil {
		return nil
	}

	diff := &ArtifactDiff{ArtifactID: newArt.ID}

	if oldArt != nil && !Extends(oldArt, newArt) {
		diff.Replaced = true
		oldArt = nil
	}

	if oldArt == nil || oldArt.Title != newArt.Title {
		diff.Title = &newArt.Title
	}
	if oldArt == nil || oldArt.CurrentFile != newArt.CurrentFile {
		if oldArt != nil || newArt.CurrentFile != "" {
			diff.CurrentFile = &newArt.CurrentFile
		}
	}
	if oldArt == nil {
		if newArt.IsComplete {
			diff.IsComplete = &newArt.IsComplete
		}
	} else if oldArt.IsComplete != newArt.IsComplete {
		diff.IsComplete = &newArt.IsComplete
	}

	diff.Files = diffFiles(oldArt, newArt)
	diff.NewCommands = diffCommands(oldArt, newArt)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFiles(old, new *Artifact) []File {
	var changed []File
	for _, f := range new.Files.Files() {
		if old != nil {
			if prev, ok := old.Files.Get(f.Path); ok && prev == f {
				continue
			}
		}
		changed = append(changed, f)
	}
	return changed
}

// Extends reports whether new is a forward progression of old: same artifact, no file
// dropped and the old command list is a prefix of the new one.
func Extends(old, new *Artifact) bool {
	if old.ID != new.ID || new.Files.Len() < old.Files.Len() {
		return false
	}
	for _, p := range old.Files.Paths() {
		if _, ok := new.Files.Get(p); !ok {
			return false
		}
	}
	if len(new.ShellCommands) < len(old.ShellCommands) {
		return false
	}
	for i, cmd := range old.ShellCommands {
		if new.ShellCommands[i] != cmd {
			return false
		}
	}
	return true
}

// diffCommands assumes the append-only behavior of the command list.
func diffCommands(old, new *Artifact) []string {
	if old == nil {
		if len(new.ShellCommands) == 0 {
			return nil
		}
		return append([]string(nil), new.ShellCommands...)
	}
	if len(new.ShellCommands) > len(old.ShellCommands) {
		return append([]string(nil), new.ShellCommands[len(old.ShellCommands):]...)
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ArtifactDiff) IsEmpty() bool {
	return d.Title == nil &&
		d.CurrentFile == nil &&
		d.IsComplete == nil &&
		len(d.Files) == 0 &&
		len(d.NewCommands) == 0 &&
		!d.Replaced
}
