package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/internal/markup"
	"github.com/aretw0/sakura/internal/validator"
	"github.com/aretw0/sakura/pkg/codeblock"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/session"
)

const treeURITemplate = "sakura://sessions/{id}/tree"

// Server exposes session workspaces as MCP tools and resources.
type Server struct {
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		logger:   logging.NewNop(),
		mcpServer: server.NewMCPServer("sakura-mcp", strings.TrimSpace(sakura.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Workspace session ID"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a workspace session. Omit session_id to get a random one."),
		mcp.WithString("session_id", mcp.Description("Explicit session ID (optional)")),
	), s.handleCreateSession)

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List live workspace sessions."),
	), s.handleListSessions)

	s.mcpServer.AddTool(mcp.NewTool("parse_content",
		mcp.WithDescription("Feed assistant reply text into a session. The session is created when missing."),
		sessionArg(),
		mcp.WithString("content", mcp.Required(), mcp.Description("Reply text")),
		mcp.WithString("mode",
			mcp.Description("chunk appends an increment, full replaces the whole message"),
			mcp.Enum("chunk", "full"),
		),
	), s.handleParseContent)

	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Reset a session. scope=parser keeps the files."),
		sessionArg(),
		mcp.WithString("scope", mcp.Enum("all", "parser")),
	), s.handleReset)

	s.mcpServer.AddTool(mcp.NewTool("get_artifact",
		mcp.WithDescription("Get the parsed artifact of a session (null before the first artifact tag)."),
		sessionArg(),
	), s.handleGetArtifact)

	s.mcpServer.AddTool(mcp.NewTool("get_file_tree",
		mcp.WithDescription("Get the project tree of a session."),
		sessionArg(),
	), s.handleGetFileTree)

	s.mcpServer.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the paths of a session's files with their completion flag."),
		sessionArg(),
	), s.handleListFiles)

	s.mcpServer.AddTool(mcp.NewTool("get_file",
		mcp.WithDescription("Get the content of one file."),
		sessionArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path")),
	), s.handleGetFile)

	s.mcpServer.AddTool(mcp.NewTool("extract_code_blocks",
		mcp.WithDescription("Extract fenced code blocks from content, or from a session's message."),
		mcp.WithString("content", mcp.Description("Text to scan")),
		mcp.WithString("session_id", mcp.Description("Session whose message is scanned when content is empty")),
	), s.handleExtractCodeBlocks)

	s.mcpServer.AddTool(mcp.NewTool("validate_reply",
		mcp.WithDescription("Lint reply markup: skipped tags, unclosed actions, duplicate or escaping paths."),
		mcp.WithString("content", mcp.Description("Reply text to lint")),
		mcp.WithString("session_id", mcp.Description("Session whose message is linted when content is empty")),
	), s.handleValidateReply)
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.sessions.Create(ctx, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create failed: %v", err)), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(ids)
}

func (s *Server) handleParseContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := request.GetString("mode", "chunk")
	if mode != "chunk" && mode != "full" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q", mode)), nil
	}

	if !s.sessions.Exists(id) {
		if _, err := s.sessions.Create(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionExists) {
			return mcp.NewToolResultError(fmt.Sprintf("create failed: %v", err)), nil
		}
	}

	var art *domain.Artifact
	err = s.sessions.WithWorkspace(ctx, id, func(ctx context.Context, ws *sakura.Workspace) error {
		if mode == "full" {
			ws.ParseFullContent(content)
		} else {
			ws.ParseChunk(content)
		}
		art = ws.Artifact()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
	}
	return jsonResult(art)
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope := request.GetString("scope", "all")
	err = s.sessions.WithWorkspace(ctx, id, func(ctx context.Context, ws *sakura.Workspace) error {
		if scope == "parser" {
			ws.ResetParser()
		} else {
			ws.Reset()
		}
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) handleGetArtifact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.read(request, func(ws *sakura.Workspace) (any, error) {
		return ws.Artifact(), nil
	})
}

func (s *Server) handleGetFileTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.read(request, func(ws *sakura.Workspace) (any, error) {
		return ws.FS().FileTree(), nil
	})
}

type fileEntry struct {
	Path       string `json:"path"`
	IsComplete bool   `json:"is_complete"`
	Active     bool   `json:"active,omitempty"`
}

func (s *Server) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.read(request, func(ws *sakura.Workspace) (any, error) {
		active := ws.FS().ActiveFile()
		files := ws.FS().AllFiles()
		out := make([]fileEntry, len(files))
		for i, f := range files {
			out[i] = fileEntry{Path: f.Path, IsComplete: f.IsComplete, Active: f.Path == active}
		}
		return out, nil
	})
}

func (s *Server) handleGetFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := s.workspace(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, ok := ws.FS().GetFile(path)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", domain.ErrFileNotFound, path)), nil
	}
	return mcp.NewToolResultText(f.Content), nil
}

func (s *Server) handleExtractCodeBlocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, _, err := s.contentOrMessage(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blocks := codeblock.Extract(content)
	if blocks == nil {
		blocks = []codeblock.Block{}
	}
	return jsonResult(blocks)
}

func (s *Server) handleValidateReply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, grammar, err := s.contentOrMessage(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := validator.Validate(content, grammar)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if report.Issues == nil {
		report.Issues = []validator.Issue{}
	}
	return jsonResult(report)
}

// contentOrMessage returns the content argument, or the message of the session_id
// argument with its grammar.
func (s *Server) contentOrMessage(request mcp.CallToolRequest) (string, markup.Grammar, error) {
	if content := request.GetString("content", ""); content != "" {
		return content, markup.DefaultGrammar(), nil
	}
	if request.GetString("session_id", "") == "" {
		return "", markup.Grammar{}, errors.New("content or session_id is required")
	}
	ws, err := s.workspace(request)
	if err != nil {
		return "", markup.Grammar{}, err
	}
	return ws.Message(), ws.Grammar(), nil
}

func (s *Server) workspace(request mcp.CallToolRequest) (*sakura.Workspace, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return nil, err
	}
	return s.sessions.Workspace(id)
}

func (s *Server) read(request mcp.CallToolRequest, fn func(*sakura.Workspace) (any, error)) (*mcp.CallToolResult, error) {
	ws, err := s.workspace(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := fn(ws)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(treeURITemplate, "Session File Tree",
		mcp.WithTemplateDescription("Project tree of a workspace session"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readTree)
}

func (s *Server) readTree(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimSuffix(strings.TrimPrefix(uri, "sakura://sessions/"), "/tree")
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid resource uri: %s", uri)
	}
	ws, err := s.sessions.Workspace(id)
	if err != nil {
		return nil, err
	}
	jsonBytes, err := json.Marshal(ws.FS().FileTree())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
