package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Mode selects how deltas reach the target.
type Mode string

const (
	// ModeIncremental feeds every delta as a chunk.
	ModeIncremental Mode = "incremental"
	// ModeFull re-feeds the whole accumulated message on every delta.
	ModeFull Mode = "full"
)

// ParseMode validates a mode name. Empty means incremental.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeIncremental:
		return ModeIncremental, nil
	case ModeFull:
		return ModeFull, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %s or %s)", s, ModeIncremental, ModeFull)
}

// Target is what Drive feeds; *sakura.Workspace satisfies it.
type Target interface {
	ParseChunk(text string)
	ParseFullContent(text string)
}

// Drive decodes the SSE stream r and feeds target until the stream ends or ctx is done.
// It returns the accumulated message text, also on error.
func Drive(ctx context.Context, r io.Reader, target Target, mode Mode) (string, error) {
	dec := NewDecoder(r)
	f := feeder{target: target, mode: mode}

	for {
		if err := ctx.Err(); err != nil {
			return f.text(), err
		}

		delta, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return f.text(), nil
		}
		if err != nil {
			return f.text(), err
		}
		f.feed(delta)
	}
}

// feeder hands text deltas to a target in the chosen mode.
type feeder struct {
	target  Target
	mode    Mode
	message strings.Builder
}

func (f *feeder) feed(delta string) {
	f.message.WriteString(delta)
	switch f.mode {
	case ModeFull:
		f.target.ParseFullContent(f.message.String())
	default:
		f.target.ParseChunk(delta)
	}
}

func (f *feeder) text() string {
	return f.message.String()
}
