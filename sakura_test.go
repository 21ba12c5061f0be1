package sakura_test

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/internal/markup"
	"github.com/aretw0/sakura/pkg/domain"
)

const reply = `I'll build it.
<boltArtifact id="shop" title="Shop">
<boltAction type="file" filePath="src/App.tsx">export const App = () => <main/>;</boltAction>
<boltAction type="shell">npm install lucide-react</boltAction>
<boltAction type="file" filePath="src/components/Cart.tsx">export const Cart = 1;</boltAction>
<boltAction type="shell">npm install lucide-react</boltAction>
<boltAction type="file" filePath="index.html"><div id="root"></div></boltAction>
</boltArtifact>
Done.`

func newWorkspace(t *testing.T, opts ...sakura.Option) *sakura.Workspace {
	t.Helper()
	ws, err := sakura.New(opts...)
	require.NoError(t, err)
	return ws
}

func TestWorkspace_EndToEnd(t *testing.T) {
	ws := newWorkspace(t)
	ws.ParseChunk(reply)

	snap := ws.Snapshot()
	require.NotNil(t, snap.Artifact)
	assert.True(t, snap.Artifact.IsComplete)
	assert.Equal(t, domain.StateScanning, snap.ParserState)

	assert.Equal(t, "Shop", snap.FS.ProjectTitle)
	assert.Equal(t, []string{"lucide-react"}, snap.FS.Dependencies)
	assert.Equal(t, []string{"npm install lucide-react"}, snap.Artifact.ShellCommands)
	assert.Len(t, snap.FS.Files, 3)
	for _, f := range snap.FS.Files {
		assert.True(t, f.IsComplete, f.Path)
	}

	// Sorted paths: index.html, then src/ holding App.tsx and components/.
	require.Len(t, snap.Tree, 2)
	assert.Equal(t, "index.html", snap.Tree[0].Name)
	src := snap.Tree[1]
	assert.Equal(t, domain.NodeTypeFolder, src.Type)
	require.Len(t, src.Children, 2)
	assert.Equal(t, "App.tsx", src.Children[0].Name)
	assert.Equal(t, "components", src.Children[1].Name)
}

func TestWorkspace_IncrementalEqualsFullReparse(t *testing.T) {
	incremental := newWorkspace(t)
	full := newWorkspace(t)

	for i := 0; i < len(reply); i += 5 {
		end := min(i+5, len(reply))
		incremental.ParseChunk(reply[i:end])
		full.ParseFullContent(reply[:end])
	}

	assert.Equal(t, full.Artifact(), incremental.Artifact())
	assert.Equal(t, full.FS().State(), incremental.FS().State())
}

func TestWorkspace_FollowsFileBeingWritten(t *testing.T) {
	ws := newWorkspace(t)
	ws.ParseChunk(`<boltArtifact id="a" title="T"><boltAction type="file" filePath="src/a.ts">partial`)

	assert.Equal(t, "src/a.ts", ws.FS().ActiveFile())
	f, ok := ws.FS().GetFile("src/a.ts")
	require.True(t, ok)
	assert.Equal(t, "partial", f.Content)
	assert.False(t, f.IsComplete)
	assert.Equal(t, "src/a.ts", ws.Artifact().CurrentFile)
	assert.Equal(t, []string{"src"}, ws.Snapshot().Expanded)

	ws.ParseChunk(` done</boltAction><boltAction type="file" filePath="src/b.ts">`)
	assert.Equal(t, "src/b.ts", ws.FS().ActiveFile())
	f, _ = ws.FS().GetFile("src/a.ts")
	assert.Equal(t, domain.File{Path: "src/a.ts", Content: "partial done", IsComplete: true}, f)
}

func TestWorkspace_StalledCloseTagFragmentIsHeldBack(t *testing.T) {
	ws := newWorkspace(t)
	ws.ParseChunk(`<boltArtifact id="a" title="T"><boltAction type="file" filePath="a.ts">x <`)
	f, _ := ws.FS().GetFile("a.ts")
	assert.Equal(t, "x", f.Content)

	ws.ParseChunk(`y`)
	f, _ = ws.FS().GetFile("a.ts")
	assert.Equal(t, "x <y", f.Content)
	assert.False(t, f.IsComplete)
}

func TestWorkspace_WithoutFollowWriting(t *testing.T) {
	ws := newWorkspace(t, sakura.WithFollowWriting(false))
	ws.ParseChunk(`<boltArtifact id="a" title="T"><boltAction type="file" filePath="a.ts">x`)
	assert.Empty(t, ws.FS().ActiveFile())
}

func TestWorkspace_ParserResetKeepsFiles(t *testing.T) {
	ws := newWorkspace(t)
	ws.ParseChunk(reply)
	ws.ResetParser()

	assert.Nil(t, ws.Artifact())
	assert.Len(t, ws.FS().AllFiles(), 3)

	// Re-streaming a shorter prefix never regresses completed files.
	cut := strings.Index(reply, "export const Cart")
	ws.ParseFullContent(reply[:cut])
	f, _ := ws.FS().GetFile("src/components/Cart.tsx")
	assert.True(t, f.IsComplete)
	assert.Equal(t, "export const Cart = 1;", f.Content)
}

func TestWorkspace_FullReparseNeverShrinksVisibleContent(t *testing.T) {
	ws := newWorkspace(t)
	msg := `<boltArtifact id="a" title="T"><boltAction type="file" filePath="a.ts">const x = 1;`
	ws.ParseFullContent(msg)
	want, ok := ws.FS().GetFile("a.ts")
	require.True(t, ok)
	require.NotEmpty(t, want.Content)

	var (
		wg     sync.WaitGroup
		stop   atomic.Bool
		reads  atomic.Int64
		shrunk atomic.Int64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			f, _ := ws.FS().GetFile("a.ts")
			reads.Add(1)
			if f.Content != want.Content {
				shrunk.Add(1)
			}
		}
	}()
	for range 2000 {
		ws.ParseFullContent(msg)
	}
	stop.Store(true)
	wg.Wait()

	assert.Positive(t, reads.Load())
	assert.Zero(t, shrunk.Load())
	assert.Equal(t, "a.ts", ws.FS().ActiveFile())
}

func TestWorkspace_SecondArtifactInOneChunkKeepsFirstFiles(t *testing.T) {
	ws := newWorkspace(t)
	ws.ParseChunk(`<boltArtifact id="a" title="A"><boltAction type="file" filePath="a.ts">1</boltAction></boltArtifact>` +
		`<boltArtifact id="b" title="B"><boltAction type="file" filePath="b.ts">2</boltAction>`)

	assert.Equal(t, "b", ws.Artifact().ID)
	assert.Equal(t, "B", ws.FS().ProjectTitle())
	a, ok := ws.FS().GetFile("a.ts")
	require.True(t, ok)
	assert.Equal(t, domain.File{Path: "a.ts", Content: "1", IsComplete: true}, a)
	b, ok := ws.FS().GetFile("b.ts")
	require.True(t, ok)
	assert.True(t, b.IsComplete)
	assert.Equal(t, "b.ts", ws.FS().ActiveFile())
}

func TestWorkspace_ResetClearsEverything(t *testing.T) {
	ws := newWorkspace(t)
	ws.ParseChunk(reply)
	ws.Reset()

	snap := ws.Snapshot()
	assert.Nil(t, snap.Artifact)
	assert.Empty(t, snap.FS.Files)
	assert.Empty(t, snap.FS.Dependencies)
	assert.Empty(t, snap.FS.ProjectTitle)
	assert.Empty(t, snap.Tree)
	assert.Empty(t, snap.Expanded)

	ws.ParseChunk(reply)
	assert.Equal(t, []string{"lucide-react"}, ws.FS().Dependencies())
}

func TestWorkspace_Subscribe(t *testing.T) {
	ws := newWorkspace(t)
	var got []*domain.Artifact
	cancel := ws.Subscribe(func(a *domain.Artifact) { got = append(got, a) })

	ws.ParseChunk("prose only")
	ws.ParseChunk(`<boltArtifact id="a" title="T">`)
	ws.Reset()

	require.Len(t, got, 3)
	assert.Nil(t, got[0])
	require.NotNil(t, got[1])
	assert.Equal(t, "a", got[1].ID)
	assert.Nil(t, got[2])

	cancel()
	ws.ParseChunk(reply)
	assert.Len(t, got, 3)
}

func TestWorkspace_CustomGrammar(t *testing.T) {
	ws := newWorkspace(t, sakura.WithGrammar(markup.Grammar{ArtifactTag: "project", ActionTag: "step"}))
	ws.ParseChunk(`<project id="p" title="P"><step type="shell">npm install zod</step></project>`)

	assert.Equal(t, []string{"zod"}, ws.FS().Dependencies())
	assert.Equal(t, "project", ws.Grammar().ArtifactTag)
}

func TestWorkspace_InvalidGrammar(t *testing.T) {
	_, err := sakura.New(sakura.WithGrammar(markup.Grammar{ArtifactTag: "x y"}))
	assert.Error(t, err)
}

func TestWorkspace_LifecycleHooks(t *testing.T) {
	var completed []string
	ws := newWorkspace(t, sakura.WithLifecycleHooks(domain.LifecycleHooks{
		OnFileComplete: func(e *domain.FileEvent) { completed = append(completed, e.Path) },
	}))
	ws.ParseChunk(reply)
	assert.Equal(t, []string{"src/App.tsx", "src/components/Cart.tsx", "index.html"}, completed)
}

func TestWorkspace_Message(t *testing.T) {
	ws := newWorkspace(t)
	ws.ParseChunk(reply[:20])
	ws.ParseChunk(reply[20:])
	assert.Equal(t, reply, ws.Message())

	ws.ParseFullContent(reply[:10])
	assert.Equal(t, reply[:10], ws.Message())

	ws.ResetParser()
	assert.Empty(t, ws.Message())
}
