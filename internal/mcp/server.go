package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"easel/internal/domain"
	"easel/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "easel-mcp"
	serverVersion = "1.0.0"

	instructions = "Easel MCP server: read and write canvas objects in .easel files. " +
		"Use list_documents to discover files, read_document to read the full object tree, " +
		"read_node for a single object, and create_node/update_node/delete_nodes to modify. " +
		"Every call reads the file from disk and writes it back; there is no session state."
)

// Server is the MCP server for easel documents. Every tool is a thin
// wrapper around one CanvasService operation.
type Server struct {
	mcp    *server.MCPServer
	canvas *service.CanvasService
}

// Deps holds the services the MCP server calls into.
type Deps struct {
	Canvas *service.CanvasService
}

// New creates and configures a new MCP server with all tools and prompts.
func New(ctx context.Context, deps Deps) *Server {
	s := &Server{canvas: deps.Canvas}

	s.mcp = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithInstructions(instructions),
	)

	s.registerDocumentTools()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	if s == nil || s.mcp == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	log.Println("[MCP] Starting stdio server...")
	if err := server.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to indented JSON and wraps it in a text tool result.
// Markup in text nodes is left unescaped.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(strings.TrimSuffix(buf.String(), "\n")), nil
}

// errorResult turns a service error into a tool error result whose message
// starts with the error kind.
func errorResult(tool string, err error) *mcp.CallToolResult {
	msg := err.Error()
	kind := domain.ErrorKind(err)
	if kind == nil {
		kind = domain.ErrIO
	}
	if !strings.HasPrefix(msg, kind.Error()) {
		msg = kind.Error() + ": " + msg
	}
	if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidArgument) {
		log.Printf("[MCP] %s: %v", tool, err)
	}
	return mcp.NewToolResultError(msg)
}

func invalidArgument(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(domain.ErrInvalidArgument.Error() + ": " + fmt.Sprintf(format, args...))
}

func boolPtr(v bool) *bool { return &v }
