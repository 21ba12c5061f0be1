package markup

import (
	"regexp"
	"strings"
)

// TagKind identifies a recognized tag.
type TagKind int

const (
	KindArtifactOpen TagKind = iota
	KindArtifactClose
	KindFileOpen
	KindShellOpen
)

func (k TagKind) String() string {
	switch k {
	case KindArtifactOpen:
		return "artifact-open"
	case KindArtifactClose:
		return "artifact-close"
	case KindFileOpen:
		return "file-open"
	case KindShellOpen:
		return "shell-open"
	default:
		return "unknown"
	}
}

// Tag is one recognized tag inside a buffer. Start and End are byte offsets of the whole
// tag text, End exclusive.
type Tag struct {
	Kind  TagKind
	Start int
	End   int

	// ID and Title are set for artifact-open, Path for file-open.
	ID    string
	Title string
	Path  string
}

// Matcher finds tags of one Grammar. It is stateless and safe for concurrent use.
type Matcher struct {
	grammar       Grammar
	artifactOpen  *regexp.Regexp
	actionOpen    *regexp.Regexp
	artifactClose string
	actionClose   string
}

// Grammar returns the grammar the matcher was compiled from.
func (m *Matcher) Grammar() Grammar {
	return m.grammar
}

// ActionClose returns the literal action-close tag.
func (m *Matcher) ActionClose() string {
	return m.actionClose
}

// FindArtifactOpen returns the first artifact-open tag carrying a non-empty id and title.
// Malformed candidates are skipped.
func (m *Matcher) FindArtifactOpen(buf string) (Tag, bool) {
	for _, loc := range m.artifactOpen.FindAllStringSubmatchIndex(buf, -1) {
		attrs := ParseAttributes(group(buf, loc))
		if attrs["id"] == "" || attrs["title"] == "" {
			continue
		}
		return Tag{
			Kind:  KindArtifactOpen,
			Start: loc[0],
			End:   loc[1],
			ID:    attrs["id"],
			Title: attrs["title"],
		}, true
	}
	return Tag{}, false
}

// FindInArtifact returns the earliest of: a file-open tag with a non-empty filePath, a
// shell-open tag, or the artifact-close tag. Action tags of other types are skipped.
func (m *Matcher) FindInArtifact(buf string) (Tag, bool) {
	var found Tag
	ok := false

	for _, loc := range m.actionOpen.FindAllStringSubmatchIndex(buf, -1) {
		attrs := ParseAttributes(group(buf, loc))
		switch {
		case attrs["type"] == "file" && attrs["filePath"] != "":
			found = Tag{Kind: KindFileOpen, Start: loc[0], End: loc[1], Path: attrs["filePath"]}
			ok = true
		case attrs["type"] == "shell":
			found = Tag{Kind: KindShellOpen, Start: loc[0], End: loc[1]}
			ok = true
		default:
			continue
		}
		break
	}

	if i := strings.Index(buf, m.artifactClose); i >= 0 && (!ok || i < found.Start) {
		return Tag{Kind: KindArtifactClose, Start: i, End: i + len(m.artifactClose)}, true
	}
	return found, ok
}

// FindActionClose returns the offset of the action-close tag, or -1.
func (m *Matcher) FindActionClose(buf string) int {
	return strings.Index(buf, m.actionClose)
}

// Drainable returns how many leading bytes of an action payload buffer without a close tag
// can be consumed. A trailing fragment that may be the start of the close tag is held back.
func (m *Matcher) Drainable(buf string) int {
	return len(buf) - longestPrefixSuffix(buf, m.actionClose)
}

func group(buf string, loc []int) string {
	if len(loc) < 4 || loc[2] < 0 {
		return ""
	}
	return buf[loc[2]:loc[3]]
}

// OpenTags returns the attributes of every artifact-open and action-open tag in buf,
// including the malformed ones the parser skips.
func (m *Matcher) OpenTags(buf string) (artifacts, actions []map[string]string) {
	for _, loc := range m.artifactOpen.FindAllStringSubmatchIndex(buf, -1) {
		artifacts = append(artifacts, ParseAttributes(group(buf, loc)))
	}
	for _, loc := range m.actionOpen.FindAllStringSubmatchIndex(buf, -1) {
		actions = append(actions, ParseAttributes(group(buf, loc)))
	}
	return artifacts, actions
}
