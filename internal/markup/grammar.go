// Package markup recognizes the tag mini-language that model replies use to describe a project:
// an artifact tag wrapping file and shell action tags.
package markup

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultArtifactTag = "boltArtifact"
	DefaultActionTag   = "boltAction"
)

var tagNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Grammar names the two tags of the mini-language.
// The tag spelling is configurable; the structure is not.
type Grammar struct {
	ArtifactTag string `yaml:"artifact_tag" mapstructure:"artifact_tag"`
	ActionTag   string `yaml:"action_tag" mapstructure:"action_tag"`
}

// DefaultGrammar returns the grammar emitted by the default system prompt.
func DefaultGrammar() Grammar {
	return Grammar{ArtifactTag: DefaultArtifactTag, ActionTag: DefaultActionTag}
}

// Validate checks that both tag names are usable XML-like names and differ.
func (g Grammar) Validate() error {
	if !tagNamePattern.MatchString(g.ArtifactTag) {
		return fmt.Errorf("invalid artifact tag name %q", g.ArtifactTag)
	}
	if !tagNamePattern.MatchString(g.ActionTag) {
		return fmt.Errorf("invalid action tag name %q", g.ActionTag)
	}
	if g.ArtifactTag == g.ActionTag {
		return fmt.Errorf("artifact and action tags must differ, both are %q", g.ActionTag)
	}
	return nil
}

// WithDefaults fills empty tag names from DefaultGrammar.
func (g Grammar) WithDefaults() Grammar {
	if g.ArtifactTag == "" {
		g.ArtifactTag = DefaultArtifactTag
	}
	if g.ActionTag == "" {
		g.ActionTag = DefaultActionTag
	}
	return g
}

// Compile builds the Matcher for the grammar.
func (g Grammar) Compile() (*Matcher, error) {
	g = g.WithDefaults()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		grammar:       g,
		artifactOpen:  regexp.MustCompile(`<` + regexp.QuoteMeta(g.ArtifactTag) + `(\s[^>]*)?>`),
		actionOpen:    regexp.MustCompile(`<` + regexp.QuoteMeta(g.ActionTag) + `(\s[^>]*)?>`),
		artifactClose: "</" + g.ArtifactTag + ">",
		actionClose:   "</" + g.ActionTag + ">",
	}, nil
}

// MustCompile is like Compile but panics on an invalid grammar.
func (g Grammar) MustCompile() *Matcher {
	m, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return m
}

var attributePattern = regexp.MustCompile(`([A-Za-z_:][A-Za-z0-9_:.-]*)\s*=\s*"([^"]*)"`)

// ParseAttributes extracts key="value" pairs in any order.
// When a key repeats, the first occurrence wins.
func ParseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attributePattern.FindAllStringSubmatch(s, -1) {
		if _, seen := attrs[m[1]]; !seen {
			attrs[m[1]] = m[2]
		}
	}
	return attrs
}

// longestPrefixSuffix returns the length of the longest proper prefix of tag that is a
// suffix of buf.
func longestPrefixSuffix(buf, tag string) int {
	n := min(len(tag)-1, len(buf))
	for ; n > 0; n-- {
		if strings.HasSuffix(buf, tag[:n]) {
			return n
		}
	}
	return 0
}
