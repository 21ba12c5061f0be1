package domain

import (
	"path"
	"strings"
)

// LanguageFor maps a file path to the syntax-highlighting language used by code viewers.
// Unknown extensions fall back to typescript, the dominant language of generated projects.
func LanguageFor(filePath string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filePath), ".")) {
	case "tsx", "ts":
		return "typescript"
	case "jsx", "js":
		return "javascript"
	case "json":
		return "json"
	case "html":
		return "markup"
	case "css":
		return "css"
	default:
		return "typescript"
	}
}
