package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/internal/presentation/graph"
	"github.com/aretw0/sakura/internal/presentation/tui"
	"github.com/aretw0/sakura/pkg/adapters/anthropic"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/session"
)

// Format selects what RunParse prints once the input is consumed.
type Format string

const (
	FormatSummary Format = "summary"
	FormatTree    Format = "tree"
	FormatFiles   Format = "files"
	FormatMermaid Format = "mermaid"
	FormatNone    Format = "none"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatSummary, FormatTree, FormatFiles, FormatMermaid, FormatNone:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want summary, tree, files, mermaid or none)", s)
}

// ParseOptions contains all the configuration for the parse command.
type ParseOptions struct {
	// Input is a file path; empty or "-" reads stdin.
	Input string
	// ChunkSize splits plain input into increments of this many bytes; 0 feeds it at once.
	ChunkSize int
	Mode      anthropic.Mode
	// SSE treats the input as an Anthropic Messages event stream.
	SSE bool
	// JSON emits one snapshot event per line while parsing.
	JSON   bool
	Format Format
	// OutDir receives the complete files when set.
	OutDir string
	// Source, when set, replaces Input: it produces the reply and feeds it to the target.
	Source func(ctx context.Context, target anthropic.Target, mode anthropic.Mode) (string, error)
	// Progress receives a status line on every change when set.
	Progress io.Writer
}

// sessionID names the single session a CLI run drives.
const sessionID = "cli"

type jsonlPublisher struct {
	emitter *JSONLEmitter[domain.SnapshotEvent]
}

func (p jsonlPublisher) Publish(ctx context.Context, ev domain.SnapshotEvent) error {
	return p.emitter.EmitOne(ev)
}

// RunParse feeds the input into a fresh workspace, then prints the result.
func RunParse(ctx context.Context, factory session.Factory, opts ParseOptions, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (domain.WorkspaceSnapshot, error) {
	var managerOpts []session.Option
	if opts.JSON {
		managerOpts = append(managerOpts, session.WithPublisher(jsonlPublisher{
			emitter: NewJSONLEmitter[domain.SnapshotEvent](stdout, nil),
		}))
	}
	if logger != nil {
		managerOpts = append(managerOpts, session.WithLogger(logger))
	}
	mgr := session.NewManager(factory, managerOpts...)
	if _, err := mgr.Create(ctx, sessionID); err != nil {
		return domain.WorkspaceSnapshot{}, err
	}
	defer mgr.Delete(context.Background(), sessionID)

	var snap domain.WorkspaceSnapshot
	err := mgr.WithWorkspace(ctx, sessionID, func(ctx context.Context, ws *sakura.Workspace) error {
		if opts.Progress != nil {
			defer ws.Subscribe(func(art *domain.Artifact) {
				fmt.Fprintf(opts.Progress, "\r\033[K%s", tui.StatusLine(ws.ParserState(), art))
			})()
			defer fmt.Fprintln(opts.Progress)
		}
		if err := feed(ctx, ws, opts, stdin); err != nil {
			return err
		}
		snap = ws.Snapshot()
		return nil
	})
	if err != nil {
		return snap, err
	}

	if opts.OutDir != "" {
		written, err := WriteProject(opts.OutDir, snap.FS.Files)
		if err != nil {
			return snap, err
		}
		if logger != nil {
			logger.Info("project written", "dir", opts.OutDir, "files", len(written))
		}
	}

	return snap, Render(stdout, snap, opts.Format)
}

func feed(ctx context.Context, ws *sakura.Workspace, opts ParseOptions, stdin io.Reader) error {
	if opts.Source != nil {
		_, err := opts.Source(ctx, ws, opts.Mode)
		return err
	}
	if opts.SSE {
		r, err := OpenInput(opts.Input, stdin)
		if err != nil {
			return err
		}
		defer r.Close()
		_, err = anthropic.Drive(ctx, r, ws, opts.Mode)
		return err
	}

	text, err := ReadInput(opts.Input, stdin)
	if err != nil {
		return err
	}
	return FeedText(ctx, ws, text, opts.ChunkSize, opts.Mode)
}

// FeedText drives target with text split into chunks of about size bytes, never splitting
// a UTF-8 sequence. In full mode every step re-parses the prefix read so far.
func FeedText(ctx context.Context, target anthropic.Target, text string, size int, mode anthropic.Mode) error {
	if size <= 0 {
		size = len(text)
	}
	for start := 0; start < len(text); {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(text))
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}
		if mode == anthropic.ModeFull {
			target.ParseFullContent(text[:end])
		} else {
			target.ParseChunk(text[start:end])
		}
		start = end
	}
	return nil
}

// Render prints snap in the given format.
func Render(w io.Writer, snap domain.WorkspaceSnapshot, format Format) error {
	switch format {
	case FormatNone:
		return nil
	case FormatTree:
		return WriteTree(w, snap.Tree)
	case FormatFiles:
		return WriteFiles(w, snap.FS.Files)
	case FormatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(snap.FS.ProjectTitle, snap.Tree, overlayOf(snap)))
		return err
	default:
		out, err := tui.NewRenderer()(tui.Summary(snap))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
}

func overlayOf(snap domain.WorkspaceSnapshot) *graph.TreeOverlay {
	overlay := &graph.TreeOverlay{ActiveFile: snap.FS.ActiveFile}
	for _, f := range snap.FS.Files {
		if !f.IsComplete {
			overlay.Incomplete = append(overlay.Incomplete, f.Path)
		}
	}
	return overlay
}
