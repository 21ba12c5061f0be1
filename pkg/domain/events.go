package domain

import (
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventChunk            EventType = "chunk"
	EventTransition       EventType = "transition"
	EventFileComplete     EventType = "file_complete"
	EventShellCommand     EventType = "shell_command"
	EventArtifactComplete EventType = "artifact_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// ChunkEvent is emitted for every ParseChunk call.
type ChunkEvent struct {
	EventBase
	Bytes    int `json:"bytes"`
	Buffered int `json:"buffered"`
}

// TransitionEvent is emitted whenever the parser changes state.
type TransitionEvent struct {
	EventBase
	From       ParserState `json:"from"`
	To         ParserState `json:"to"`
	ArtifactID string      `json:"artifact_id,omitempty"`
	Path       string      `json:"path,omitempty"`
}

// FileEvent is emitted when a file action closes.
type FileEvent struct {
	EventBase
	ArtifactID string `json:"artifact_id"`
	Path       string `json:"path"`
	Size       int    `json:"size"`
}

// ShellEvent is emitted when a new (not yet seen) shell command closes.
type ShellEvent struct {
	EventBase
	ArtifactID string `json:"artifact_id"`
	Command    string `json:"command"`
}

// ArtifactEvent is emitted when the artifact close tag is seen.
type ArtifactEvent struct {
	EventBase
	ArtifactID string `json:"artifact_id"`
	Title      string `json:"title"`
	Files      int    `json:"files"`
	Commands   int    `json:"commands"`
}

// LifecycleHooks defines callbacks for parser observability.
// Hooks run synchronously inside ParseChunk and must not call back into the parser.
type LifecycleHooks struct {
	OnChunk            func(*ChunkEvent)
	OnTransition       func(*TransitionEvent)
	OnFileComplete     func(*FileEvent)
	OnShellCommand     func(*ShellEvent)
	OnArtifactComplete func(*ArtifactEvent)
}

// MergeHooks returns hooks that call every non-nil callback of each argument in order.
func MergeHooks(all ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range all {
		out.OnChunk = chain(out.OnChunk, h.OnChunk)
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnFileComplete = chain(out.OnFileComplete, h.OnFileComplete)
		out.OnShellCommand = chain(out.OnShellCommand, h.OnShellCommand)
		out.OnArtifactComplete = chain(out.OnArtifactComplete, h.OnArtifactComplete)
	}
	return out
}

func chain[E any](a, b func(*E)) func(*E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e *E) {
		a(e)
		b(e)
	}
}

// SnapshotEvent is what publishers fan out for a session: the full snapshot plus the
// diff against the previously published one.
type SnapshotEvent struct {
	SessionID string        `json:"session_id"`
	Sequence  uint64        `json:"sequence"`
	Artifact  *Artifact     `json:"artifact,omitempty"`
	Diff      *ArtifactDiff `json:"diff,omitempty"`
	Reset     bool          `json:"reset,omitempty"`
}
