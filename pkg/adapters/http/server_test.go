package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura/internal/validator"
	"github.com/aretw0/sakura/pkg/adapters/memory"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/session"
)

const reply = "Sure.\n" +
	"<boltArtifact id=\"counter\" title=\"Counter\">\n" +
	"<boltAction type=\"shell\">npm install zustand</boltAction>\n" +
	"<boltAction type=\"file\" filePath=\"src/App.tsx\">export default function App() { return null }</boltAction>\n" +
	"</boltArtifact>\n" +
	"Or as a snippet:\n" +
	"```tsx\nexport default function App() { return <p>1</p> }\n```\n"

func newTestHandler(t *testing.T) (http.Handler, *session.Manager) {
	t.Helper()
	feed := memory.NewBroadcaster()
	mgr := session.NewManager(nil, session.WithPublisher(feed))
	h, err := NewHandler(mgr, WithFeed(feed))
	require.NoError(t, err)
	return h, mgr
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, r))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestLoadSpec(t *testing.T) {
	spec, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, spec.Paths.Find("/sessions/{id}/events"))
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])

	w = do(t, h, "GET", "/info", "")
	info := decode[map[string]string](t, w)
	assert.Equal(t, "sakura-http", info["app"])
	assert.Equal(t, "0.1.0", info["api_version"])
	assert.NotEmpty(t, info["version"])

	w = do(t, h, "GET", "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	h, _ := newTestHandler(t)
	w := do(t, h, "OPTIONS", "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "POST", "/sessions?id=s1", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", decode[session.Info](t, w).ID)
	assert.Equal(t, "/sessions/s1", w.Header().Get("Location"))

	w = do(t, h, "POST", "/sessions?id=s1", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, "POST", "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	generated := decode[session.Info](t, w).ID
	assert.NotEmpty(t, generated)

	w = do(t, h, "GET", "/sessions", "")
	assert.ElementsMatch(t, []string{"s1", generated}, decode[[]string](t, w))

	w = do(t, h, "DELETE", "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Error, "session not found")
}

func TestParseAndRead(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/sessions?id=s1", "").Code)

	w := do(t, h, "POST", "/sessions/s1/chunks", reply[:40])
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, "POST", "/sessions/s1/chunks", reply[40:])
	require.Equal(t, http.StatusOK, w.Code)

	art := decode[domain.Artifact](t, w)
	assert.Equal(t, "counter", art.ID)
	assert.True(t, art.IsComplete)
	assert.Equal(t, []string{"npm install zustand"}, art.ShellCommands)

	w = do(t, h, "GET", "/sessions/s1/tree", "")
	tree := decode[[]domain.FileTreeNode](t, w)
	require.Len(t, tree, 1)
	assert.Equal(t, "src", tree[0].Name)

	w = do(t, h, "GET", "/sessions/s1/files", "")
	assert.Len(t, decode[[]domain.File](t, w), 1)

	w = do(t, h, "GET", "/sessions/s1/files/src/App.tsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	f := decode[fileBody](t, w)
	assert.True(t, f.IsComplete)
	assert.Equal(t, "typescript", f.Language)

	w = do(t, h, "GET", "/sessions/s1/files/src/App.tsx?raw=true", "")
	assert.Equal(t, "export default function App() { return null }", w.Body.String())

	w = do(t, h, "GET", "/sessions/s1/files/missing.ts", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/sessions/s1/dependencies", "")
	assert.Equal(t, []string{"zustand"}, decode[[]string](t, w))

	w = do(t, h, "GET", "/sessions/s1/snapshot", "")
	snap := decode[domain.WorkspaceSnapshot](t, w)
	assert.Equal(t, "Counter", snap.FS.ProjectTitle)
	assert.Equal(t, domain.StateScanning, snap.ParserState)

	w = do(t, h, "GET", "/sessions/s1/codeblocks", "")
	blocks := decode[[]map[string]string](t, w)
	require.Len(t, blocks, 1)
	assert.Equal(t, "tsx", blocks[0]["language"])

	w = do(t, h, "GET", "/sessions/s1/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "function App()")
	assert.Equal(t, "sandbox allow-scripts", w.Header().Get("Content-Security-Policy"))
}

func TestGetPreview_Sandboxed(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/sessions?id=p", "").Code)
	body := "```html\n<script>fetch('/sessions/p',{method:'DELETE'})</script>\n```"
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/sessions/p/content", body).Code)

	w := do(t, h, "GET", "/sessions/p/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sandbox allow-scripts", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Body.String(), "<script>fetch(")
}

func TestValidateMessage(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/sessions?id=s1", "").Code)

	w := do(t, h, "GET", "/sessions/s1/validate", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[validator.Report](t, w)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, validator.SeverityWarning, report.Issues[0].Severity)

	do(t, h, "POST", "/sessions/s1/chunks", `<boltArtifact id="a" title="A"><boltAction type="file" filePath="x.ts">1`)
	w = do(t, h, "GET", "/sessions/s1/validate", "")
	report = decode[validator.Report](t, w)
	assert.Equal(t, 2, report.Errors())
	require.NotNil(t, report.Artifact)
	assert.Equal(t, "x.ts", report.Artifact.CurrentFile)

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/sessions/nope/validate", "").Code)
}

func TestFullContentAndReset(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/sessions?id=s1", "").Code)

	w := do(t, h, "PUT", "/sessions/s1/content", reply)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.Artifact](t, w).IsComplete)

	w = do(t, h, "POST", "/sessions/s1/reset?scope=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/sessions/s1/reset?scope=parser", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/sessions/s1/artifact", "")
	assert.Equal(t, "null", strings.TrimSpace(w.Body.String()))
	w = do(t, h, "GET", "/sessions/s1/files", "")
	assert.Len(t, decode[[]domain.File](t, w), 1)

	w = do(t, h, "POST", "/sessions/s1/reset", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/sessions/s1/files", "")
	assert.Empty(t, decode[[]domain.File](t, w))
	w = do(t, h, "GET", "/sessions/s1/preview", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetActiveFile(t *testing.T) {
	h, mgr := newTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/sessions?id=s1", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/sessions/s1/content", reply).Code)

	w := do(t, h, "PUT", "/sessions/s1/active", `{"path":"nope.ts"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "PUT", "/sessions/s1/active", `{"path":""}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	ws, err := mgr.Workspace("s1")
	require.NoError(t, err)
	assert.Empty(t, ws.FS().ActiveFile())

	w = do(t, h, "PUT", "/sessions/s1/active", `{"path":"src/App.tsx"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "src/App.tsx", ws.FS().ActiveFile())

	w = do(t, h, "PUT", "/sessions/s1/active", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, tc := range []struct{ method, path string }{
		{"POST", "/sessions/x/chunks"},
		{"GET", "/sessions/x/tree"},
		{"GET", "/sessions/x/files/a.ts"},
		{"GET", "/sessions/x/events"},
		{"DELETE", "/sessions/x"},
	} {
		w := do(t, h, tc.method, tc.path, "hello")
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}
}

func TestSubscribeEvents(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions?id=s1", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/sessions/s1/events", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	lines := bufio.NewReader(stream.Body)
	name, _ := readEvent(t, lines)
	require.Equal(t, "ping", name)

	resp, err = http.Post(srv.URL+"/sessions/s1/chunks", "text/plain", strings.NewReader(reply))
	require.NoError(t, err)
	resp.Body.Close()

	name, data := readEvent(t, lines)
	require.Equal(t, "snapshot", name)
	var ev domain.SnapshotEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, uint64(1), ev.Sequence)
	require.NotNil(t, ev.Diff)
	assert.Equal(t, []string{"npm install zustand"}, ev.Diff.NewCommands)

	resp, err = http.Post(srv.URL+"/sessions/s1/reset", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	name, data = readEvent(t, lines)
	assert.Equal(t, "reset", name)
	assert.Contains(t, data, `"reset":true`)
}

// readEvent returns the name and data of the next SSE event.
func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" || data != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestWatchFilter(t *testing.T) {
	title := "T"
	complete := true
	tests := []struct {
		name  string
		watch string
		ev    domain.SnapshotEvent
		want  bool
	}{
		{"no filter", "", domain.SnapshotEvent{Diff: &domain.ArtifactDiff{}}, true},
		{"reset always passes", "files", domain.SnapshotEvent{Reset: true}, true},
		{"replaced always passes", "commands", domain.SnapshotEvent{Diff: &domain.ArtifactDiff{Replaced: true}}, true},
		{"files match", "files", domain.SnapshotEvent{Diff: &domain.ArtifactDiff{Files: []domain.File{{Path: "a"}}}}, true},
		{"commands miss", "commands", domain.SnapshotEvent{Diff: &domain.ArtifactDiff{Files: []domain.File{{Path: "a"}}}}, false},
		{"status title", "status", domain.SnapshotEvent{Diff: &domain.ArtifactDiff{Title: &title}}, true},
		{"status completion", " status ,files", domain.SnapshotEvent{Diff: &domain.ArtifactDiff{IsComplete: &complete}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseWatch(tt.watch).matches(tt.ev))
		})
	}
}

func TestMetricsRouteDisabled(t *testing.T) {
	h, err := NewHandler(session.NewManager(nil), WithMetricsRoute(false), WithCORS(false))
	require.NoError(t, err)

	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, h, "GET", "/sessions/x/events", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
