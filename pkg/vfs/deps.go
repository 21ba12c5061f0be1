package vfs

import (
	"regexp"
	"strings"
)

var (
	commandSeparator = regexp.MustCompile(`&&|\|\||[;|\n]`)
	installPattern   = regexp.MustCompile(`(?:^|\s)\S+\s+install(?:\s+(.*))?$`)
)

// ParseInstallCommand extracts package names from "<tool> install <args...>" commands.
// Compound commands are split on shell separators and every install segment is read.
// Flag-like tokens (leading "-") are dropped.
func ParseInstallCommand(command string) []string {
	var pkgs []string
	for _, segment := range commandSeparator.Split(command, -1) {
		m := installPattern.FindStringSubmatch(strings.TrimSpace(segment))
		if m == nil {
			continue
		}
		for _, tok := range strings.Fields(m[1]) {
			if strings.HasPrefix(tok, "-") {
				continue
			}
			pkgs = append(pkgs, tok)
		}
	}
	return pkgs
}
