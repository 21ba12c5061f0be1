// Package anthropic drives a workspace with the text deltas of Anthropic Messages API
// replies: live through the official SDK, or from a recorded event stream.
package anthropic

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLine bounds one SSE line; a single delta never comes close.
const maxLine = 1 << 20

// APIError is an "error" event sent inside the stream.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic stream error (%s): %s", e.Type, e.Message)
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *APIError `json:"error"`
}

// Decoder extracts text deltas from an SSE body.
// Lines that are not "data:" lines, and data that is not valid JSON, are ignored.
type Decoder struct {
	scanner *bufio.Scanner
	done    bool
}

// NewDecoder reads events from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Decoder{scanner: scanner}
}

// Next returns the next non-empty text delta. It returns io.EOF after message_stop or at
// the end of the body, and an *APIError when the stream reports one.
func (d *Decoder) Next() (string, error) {
	for !d.done && d.scanner.Scan() {
		data, ok := strings.CutPrefix(d.scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta != nil && ev.Delta.Text != "" {
				return ev.Delta.Text, nil
			}
		case "message_stop":
			d.done = true
		case "error":
			d.done = true
			if ev.Error == nil {
				ev.Error = &APIError{Type: "unknown"}
			}
			return "", ev.Error
		}
	}
	if err := d.scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read event stream: %w", err)
	}
	return "", io.EOF
}
