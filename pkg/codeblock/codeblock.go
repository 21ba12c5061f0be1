// Package codeblock extracts fenced Markdown code blocks from assistant replies that carry
// no artifact markup, and renders the previewable one as a standalone HTML page.
package codeblock

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"
)

// DefaultLanguage is used for fences without an info string.
const DefaultLanguage = "text"

var fence = regexp.MustCompile("```(\\w+)?(?:[ \\t]+(\\S+))?\\n([\\s\\S]*?)```")

// Block is one fenced code block.
type Block struct {
	Language string `json:"language"`
	FileName string `json:"file_name,omitempty"`
	Code     string `json:"code"`
}

// Extract returns the non-empty fenced blocks of text in order. Code is trimmed.
func Extract(text string) []Block {
	var blocks []Block
	for _, m := range fence.FindAllStringSubmatch(text, -1) {
		code := strings.TrimSpace(m[3])
		if code == "" {
			continue
		}
		lang := m[1]
		if lang == "" {
			lang = DefaultLanguage
		}
		blocks = append(blocks, Block{Language: lang, FileName: m[2], Code: code})
	}
	return blocks
}

var previewable = map[string]bool{
	"html":       true,
	"jsx":        true,
	"tsx":        true,
	"javascript": true,
	"js":         true,
	"typescript": true,
	"ts":         true,
	"react":      true,
}

// IsPreviewable reports whether a block of lang can be rendered by PreviewHTML.
func IsPreviewable(lang string) bool {
	return previewable[strings.ToLower(lang)]
}

// Previewable returns the last previewable block.
func Previewable(blocks []Block) (Block, bool) {
	for i := len(blocks) - 1; i >= 0; i-- {
		if IsPreviewable(blocks[i].Language) {
			return blocks[i], true
		}
	}
	return Block{}, false
}

var page = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Preview</title>
  <script src="https://unpkg.com/react@18/umd/react.development.js"></script>
  <script src="https://unpkg.com/react-dom@18/umd/react-dom.development.js"></script>
  <script src="https://unpkg.com/@babel/standalone/babel.min.js"></script>
  <script src="https://cdn.tailwindcss.com"></script>
</head>
<body>
  <div id="root"></div>
  <script type="text/babel" data-presets="react,typescript">
    const { useState, useEffect, useRef, useMemo, useCallback } = React;

{{.}}

    const Root = typeof App !== "undefined" ? App : (typeof Component !== "undefined" ? Component : null);
    if (Root) {
      ReactDOM.createRoot(document.getElementById("root")).render(<Root />);
    }
  </script>
</body>
</html>
`))

var moduleLine = regexp.MustCompile(`(?m)^\s*(?:import\s.*|export\s+default\s+\w+;?)\s*$`)

// PreviewHTML renders b as a standalone page. HTML blocks are returned unchanged; script
// blocks lose their import lines and are mounted as App (or Component) with React, Babel
// and Tailwind loaded from a CDN.
func PreviewHTML(b Block) (string, error) {
	if strings.EqualFold(b.Language, "html") {
		return b.Code, nil
	}
	code := moduleLine.ReplaceAllString(b.Code, "")
	code = strings.ReplaceAll(code, "export default function", "function")

	var buf bytes.Buffer
	if err := page.Execute(&buf, code); err != nil {
		return "", err
	}
	return buf.String(), nil
}
