package sakura

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/internal/markup"
	"github.com/aretw0/sakura/internal/runtime"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/vfs"
)

// Workspace is the high-level entry point: one parser and the file system it feeds.
// Mutating calls are serialized; reads are safe from any goroutine.
type Workspace struct {
	mu     sync.RWMutex
	parser *runtime.Parser
	fs     *vfs.FileSystem

	grammar       markup.Grammar
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	followWriting bool

	current  *domain.Artifact
	pending  *domain.Artifact
	writing  string
	replayed map[string]struct{}
	message  strings.Builder

	subMu       sync.Mutex
	subscribers []subscriber
	nextSubID   int
}

type subscriber struct {
	id int
	fn func(*domain.Artifact)
}

// Option defines a functional option for configuring the Workspace.
type Option func(*Workspace)

// WithGrammar sets the tag names of the markup (default: boltArtifact / boltAction).
func WithGrammar(g markup.Grammar) Option {
	return func(w *Workspace) {
		w.grammar = g
	}
}

// WithLifecycleHooks registers observability hooks on the parser.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workspace) {
		w.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithFollowWriting controls whether the file being written becomes the active file
// (default: true).
func WithFollowWriting(follow bool) Option {
	return func(w *Workspace) {
		w.followWriting = follow
	}
}

// New creates a Workspace.
func New(opts ...Option) (*Workspace, error) {
	w := &Workspace{
		fs:            vfs.New(),
		grammar:       markup.DefaultGrammar(),
		logger:        logging.NewNop(),
		followWriting: true,
		replayed:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	matcher, err := w.grammar.Compile()
	if err != nil {
		return nil, fmt.Errorf("invalid grammar: %w", err)
	}

	w.parser = runtime.NewParser(
		runtime.WithMatcher(matcher),
		runtime.WithLifecycleHooks(w.hooks),
		runtime.WithLogger(w.logger),
	)
	w.parser.Subscribe(w.replay)
	return w, nil
}

// ParseChunk feeds a text increment. The file system sees the outcome of the whole call.
//
// While a file is streaming, a trailing fragment that may begin its close tag ("<", "</b")
// is held back from the provisional content until the next chunk decides it. A stream that
// stalls there shows the file without that fragment; the final parse is unaffected.
func (w *Workspace) ParseChunk(text string) {
	w.mu.Lock()
	w.message.WriteString(text)
	w.parser.ParseChunk(text)
	w.apply()
	art := w.current.Clone()
	w.mu.Unlock()

	w.notify(art)
}

// ParseFullContent re-parses the whole accumulated message from a clean parser.
// The file system is not cleared and only receives the final result, so content already
// shown never disappears, not even while the call runs.
func (w *Workspace) ParseFullContent(text string) {
	w.mu.Lock()
	w.message.Reset()
	w.message.WriteString(text)
	w.parser.ParseFullContent(text)
	w.apply()
	art := w.current.Clone()
	w.mu.Unlock()

	w.notify(art)
}

// ResetParser clears the parser only.
func (w *Workspace) ResetParser() {
	w.mu.Lock()
	w.parser.Reset()
	w.message.Reset()
	w.mu.Unlock()

	w.notify(nil)
}

// Reset starts a new conversation turn: parser and file system are cleared.
func (w *Workspace) Reset() {
	w.mu.Lock()
	w.parser.Reset()
	w.message.Reset()
	w.fs.Reset()
	w.writing = ""
	w.replayed = make(map[string]struct{})
	w.mu.Unlock()

	w.logger.Debug("workspace reset")
	w.notify(nil)
}

// Artifact returns a copy of the parser's current artifact, or nil.
func (w *Workspace) Artifact() *domain.Artifact {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Clone()
}

// Message returns the raw text fed since the last reset.
func (w *Workspace) Message() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.message.String()
}

// ParserState returns the parser's machine state.
func (w *Workspace) ParserState() domain.ParserState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.parser.State()
}

// FS returns the file system. It is safe for concurrent reads.
func (w *Workspace) FS() *vfs.FileSystem {
	return w.fs
}

// Grammar returns the effective tag grammar.
func (w *Workspace) Grammar() markup.Grammar {
	return w.grammar.WithDefaults()
}

// Snapshot returns a consistent view of the artifact, the file system and its tree.
func (w *Workspace) Snapshot() domain.WorkspaceSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := w.fs.State()
	paths := make([]string, len(st.Files))
	for i, f := range st.Files {
		paths[i] = f.Path
	}
	return domain.WorkspaceSnapshot{
		Artifact:    w.current.Clone(),
		ParserState: w.parser.State(),
		FS:          st,
		Tree:        vfs.BuildTree(paths),
		Expanded:    vfs.AncestorFolders(st.ActiveFile),
	}
}

// Subscribe registers fn to receive the artifact after every ParseChunk or ParseFullContent
// call, and nil after a reset. fn runs on the caller's goroutine. The returned func
// unsubscribes.
func (w *Workspace) Subscribe(fn func(*domain.Artifact)) func() {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	id := w.nextSubID
	w.nextSubID++
	w.subscribers = append(w.subscribers, subscriber{id: id, fn: fn})
	return func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		w.subscribers = slices.DeleteFunc(slices.Clone(w.subscribers), func(s subscriber) bool {
			return s.id == id
		})
	}
}

func (w *Workspace) notify(art *domain.Artifact) {
	w.subMu.Lock()
	subs := w.subscribers
	w.subMu.Unlock()

	for _, s := range subs {
		s.fn(art)
	}
}

// replay records a parser snapshot. Snapshots are projected onto the file system by apply,
// once per call, plus once at every artifact boundary so a replaced artifact still lands.
// It runs under w.mu.
func (w *Workspace) replay(art *domain.Artifact) {
	if w.pending != nil && (art == nil || !domain.Extends(w.pending, art)) {
		w.apply()
	}
	w.current = art
	w.pending = art
	if art != nil && art.CurrentFile != "" {
		w.writing = art.CurrentFile
	}
}

// apply projects the pending snapshot onto the file system. It runs under w.mu.
func (w *Workspace) apply() {
	art, writing := w.pending, w.writing
	w.pending, w.writing = nil, ""
	if art == nil {
		return
	}

	w.fs.SetProjectTitle(art.Title)
	for _, f := range art.Files.Files() {
		if prev, ok := w.fs.GetFile(f.Path); ok && !f.IsComplete && shrinks(prev, f) {
			continue
		}
		w.fs.UpdateFileContent(f.Path, f.Content, f.IsComplete)
	}
	if w.followWriting && writing != "" {
		w.fs.SetActiveFile(writing)
	}
	for _, cmd := range art.ShellCommands {
		if _, ok := w.replayed[cmd]; ok {
			continue
		}
		w.replayed[cmd] = struct{}{}
		if added := w.fs.AddDependency(cmd); len(added) > 0 {
			w.logger.Debug("dependencies added", "packages", added)
		}
	}
}

// shrinks reports whether an incomplete update would hide content already shown: the file
// completed before, or the update is a strict prefix of what is stored.
func shrinks(prev, next domain.File) bool {
	if prev.IsComplete {
		return true
	}
	return len(next.Content) < len(prev.Content) && strings.HasPrefix(prev.Content, next.Content)
}
