package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/internal/config"
	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/internal/testutils"
	"github.com/aretw0/sakura/pkg/adapters/anthropic"
	"github.com/aretw0/sakura/pkg/domain"
)

const reply = `Here you go.
<boltArtifact id="todo" title="Todo App">
<boltAction type="file" filePath="src/App.tsx">export default function App() { return "héllo"; }</boltAction>
<boltAction type="shell">npm install zustand</boltAction>
<boltAction type="file" filePath="index.html"><div id="root"></div></boltAction>
</boltArtifact>`

func testFactory() func() (*sakura.Workspace, error) {
	return NewFactory(config.Default(), logging.NewNop())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("mermaid")
	require.NoError(t, err)
	assert.Equal(t, FormatMermaid, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestFeedText_ModesAgree(t *testing.T) {
	ctx := context.Background()
	for _, size := range []int{0, 1, 3, 7, 64} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			inc := testutils.NewWorkspace(t)
			full := testutils.NewWorkspace(t)

			require.NoError(t, FeedText(ctx, inc, reply, size, anthropic.ModeIncremental))
			require.NoError(t, FeedText(ctx, full, reply, size, anthropic.ModeFull))

			assert.Equal(t, full.Artifact(), inc.Artifact())
			assert.Equal(t, reply, inc.Message())
			assert.True(t, inc.Artifact().IsComplete)
		})
	}
}

type chunkRecorder struct {
	chunks []string
}

func (r *chunkRecorder) ParseChunk(s string)       { r.chunks = append(r.chunks, s) }
func (r *chunkRecorder) ParseFullContent(s string) {}

func TestFeedText_KeepsRunesWhole(t *testing.T) {
	rec := &chunkRecorder{}
	require.NoError(t, FeedText(context.Background(), rec, "aé€b", 1, anthropic.ModeIncremental))
	assert.Equal(t, []string{"a", "é", "€", "b"}, rec.chunks)
}

func TestFeedText_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &chunkRecorder{}
	err := FeedText(ctx, rec, reply, 4, anthropic.ModeIncremental)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.chunks)
}

func TestRunParse_Formats(t *testing.T) {
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatTree, []string{"├── index.html", "└── src/", "App.tsx"}},
		{FormatFiles, []string{"==> src/App.tsx <==", "==> index.html <=="}},
		{FormatMermaid, []string{"graph TD", `project(("Todo App"))`}},
		{FormatSummary, []string{"Todo App", "zustand", "src/App.tsx"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var out bytes.Buffer
			snap, err := RunParse(context.Background(), testFactory(), ParseOptions{
				ChunkSize: 5,
				Format:    tt.format,
			}, strings.NewReader(reply), &out, nil)
			require.NoError(t, err)
			assert.Len(t, snap.FS.Files, 2)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestRunParse_JSONEvents(t *testing.T) {
	var out bytes.Buffer
	_, err := RunParse(context.Background(), testFactory(), ParseOptions{
		ChunkSize: 16,
		JSON:      true,
		Format:    FormatNone,
	}, strings.NewReader(reply), &out, logging.NewNop())
	require.NoError(t, err)

	var events []domain.SnapshotEvent
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var ev domain.SnapshotEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NotEmpty(t, events)
	for i, ev := range events {
		assert.Equal(t, sessionID, ev.SessionID)
		assert.Equal(t, uint64(i+1), ev.Sequence)
	}
	last := events[len(events)-1]
	require.NotNil(t, last.Artifact)
	assert.True(t, last.Artifact.IsComplete)
}

func TestRunParse_SSEAndOutDir(t *testing.T) {
	var stream strings.Builder
	for i := 0; i < len(reply); i += 10 {
		delta, err := json.Marshal(map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]string{"type": "text_delta", "text": reply[i:min(i+10, len(reply))]},
		})
		require.NoError(t, err)
		fmt.Fprintf(&stream, "event: content_block_delta\ndata: %s\n\n", delta)
	}
	stream.WriteString("event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")

	input := filepath.Join(t.TempDir(), "reply.sse")
	require.NoError(t, os.WriteFile(input, []byte(stream.String()), 0o644))
	outDir := t.TempDir()

	snap, err := RunParse(context.Background(), testFactory(), ParseOptions{
		Input:  input,
		SSE:    true,
		Format: FormatNone,
		OutDir: outDir,
	}, nil, &bytes.Buffer{}, logging.NewNop())
	require.NoError(t, err)
	require.NotNil(t, snap.Artifact)
	assert.Equal(t, []string{"zustand"}, snap.FS.Dependencies)

	b, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, `<div id="root"></div>`, string(b))
}

func TestRunParse_MissingInput(t *testing.T) {
	_, err := RunParse(context.Background(), testFactory(), ParseOptions{
		Input: filepath.Join(t.TempDir(), "nope.txt"),
	}, nil, &bytes.Buffer{}, nil)
	assert.Error(t, err)
}

func TestRunParse_SourceAndProgress(t *testing.T) {
	var stream strings.Builder
	delta, err := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"delta": map[string]string{"type": "text_delta", "text": reply},
	})
	require.NoError(t, err)
	fmt.Fprintf(&stream, "data: %s\n\ndata: {\"type\":\"message_stop\"}\n\n", delta)

	var progress bytes.Buffer
	snap, err := RunParse(context.Background(), testFactory(), ParseOptions{
		Source: func(ctx context.Context, target anthropic.Target, mode anthropic.Mode) (string, error) {
			return anthropic.Drive(ctx, strings.NewReader(stream.String()), target, mode)
		},
		Progress: &progress,
		Format:   FormatNone,
	}, nil, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	require.NotNil(t, snap.Artifact)
	assert.True(t, snap.Artifact.IsComplete)
	assert.Contains(t, progress.String(), "\r")
}
