package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easel/internal/service"
	"easel/internal/storage"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := New(context.Background(), Deps{Canvas: service.NewCanvasService(storage.NewFileStore())})
	return s, t.TempDir()
}

func newCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

// ── Server ─────────────────────────────────────────────────

func TestNewConfiguresServer(t *testing.T) {
	s, _ := newTestServer(t)
	require.NotNil(t, s.mcp)
	require.NotNil(t, s.canvas)
}

func TestServeStdioRequiresConfiguredServer(t *testing.T) {
	var s *Server
	assert.Error(t, s.ServeStdio())
	assert.Error(t, (&Server{}).ServeStdio())
}

// ── Tool schemas ───────────────────────────────────────────

func TestCreateNodeTool_SchemaDefaults(t *testing.T) {
	tool := createNodeTool()
	assert.Equal(t, "create_node", tool.Name)
	assert.ElementsMatch(t, []string{"path", "type"}, tool.InputSchema.Required)

	want := map[string]float64{
		"x": 100, "y": 100, "width": 200, "height": 200, "fontSize": 16,
	}
	for name, def := range want {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		require.True(t, ok, name)
		assert.Equal(t, "number", prop["type"], name)
		assert.Equal(t, def, prop["default"], name)
	}
}

func TestToolSchemas_RequiredArguments(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		required []string
	}{
		{createDocumentTool(), []string{"path"}},
		{listDocumentsTool(), []string{"directory"}},
		{readDocumentTool(), []string{"path"}},
		{readNodeTool(), []string{"path", "id"}},
		{updateNodeTool(), []string{"path", "id", "properties"}},
		{deleteNodesTool(), []string{"path", "ids"}},
	}
	for _, tt := range tests {
		t.Run(tt.tool.Name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.required, tt.tool.InputSchema.Required)
		})
	}
}

// ── Handlers ───────────────────────────────────────────────

func TestNodeToolsLifecycle(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()
	path := filepath.Join(dir, "tools.easel")

	res, err := s.handleCreateDocument(ctx, newCallToolRequest("create_document", map[string]any{"path": path}))
	require.NoError(t, err)
	assert.Equal(t, "Untitled", decodeResult(t, res)["name"])

	res, err = s.handleCreateNode(ctx, newCallToolRequest("create_node", map[string]any{
		"path": path, "type": "ellipse", "width": 40.0, "height": 20.0, "name": "dot",
	}))
	require.NoError(t, err)
	created := decodeResult(t, res)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Ellipse", created["type"])
	assert.Equal(t, 20.0, created["rx"])
	assert.Equal(t, 10.0, created["ry"])
	assert.Equal(t, 100.0, created["left"])

	res, err = s.handleUpdateNode(ctx, newCallToolRequest("update_node", map[string]any{
		"path": path, "id": id, "properties": map[string]any{"fill": "#ff0000", "type": "Rect"},
	}))
	require.NoError(t, err)
	updated := decodeResult(t, res)
	assert.Equal(t, "#ff0000", updated["fill"])
	assert.Equal(t, "Ellipse", updated["type"])

	res, err = s.handleReadNode(ctx, newCallToolRequest("read_node", map[string]any{"path": path, "id": id}))
	require.NoError(t, err)
	assert.Equal(t, "dot", decodeResult(t, res)["name"])

	res, err = s.handleDeleteNodes(ctx, newCallToolRequest("delete_nodes", map[string]any{
		"path": path, "ids": []any{id, "ghost"},
	}))
	require.NoError(t, err)
	deleted := decodeResult(t, res)
	assert.Equal(t, []any{id}, deleted["deleted"])
	assert.Equal(t, []any{"ghost"}, deleted["notFound"])

	res, err = s.handleReadNode(ctx, newCallToolRequest("read_node", map[string]any{"path": path, "id": id}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(resultText(t, res), "not found:"), resultText(t, res))
}

func TestCreateNode_UsesSchemaDefaults(t *testing.T) {
	s, dir := newTestServer(t)
	path := filepath.Join(dir, "implicit.easel")

	res, err := s.handleCreateNode(context.Background(), newCallToolRequest("create_node", map[string]any{
		"path": path, "type": "rect",
	}))
	require.NoError(t, err)
	node := decodeResult(t, res)
	assert.Equal(t, 100.0, node["left"])
	assert.Equal(t, 100.0, node["top"])
	assert.Equal(t, 200.0, node["width"])
	assert.Equal(t, 200.0, node["height"])

	res, err = s.handleCreateNode(context.Background(), newCallToolRequest("create_node", map[string]any{
		"path": path, "type": "text",
	}))
	require.NoError(t, err)
	assert.Equal(t, 16.0, decodeResult(t, res)["fontSize"])

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateTools_KeepExplicitEmptyArguments(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()
	path := filepath.Join(dir, "explicit.easel")

	res, err := s.handleCreateDocument(ctx, newCallToolRequest("create_document", map[string]any{"path": path, "name": ""}))
	require.NoError(t, err)
	assert.Equal(t, "", decodeResult(t, res)["name"])

	res, err = s.handleCreateNode(ctx, newCallToolRequest("create_node", map[string]any{
		"path": path, "type": "text", "fontSize": 0.0, "name": "", "fill": "",
	}))
	require.NoError(t, err)
	node := decodeResult(t, res)
	assert.Equal(t, 0.0, node["fontSize"])
	assert.Equal(t, "", node["name"])
	assert.Equal(t, "", node["fill"])
	assert.Equal(t, "Text", node["text"])
}

func TestToolErrors_CarryKindPrefix(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()
	path := filepath.Join(dir, "err.easel")
	broken := filepath.Join(dir, "broken.easel")
	require.NoError(t, os.WriteFile(broken, []byte("not json"), 0644))

	_, err := s.handleCreateDocument(ctx, newCallToolRequest("create_document", map[string]any{"path": path}))
	require.NoError(t, err)

	tests := []struct {
		name   string
		call   func() (*mcp.CallToolResult, error)
		prefix string
	}{
		{
			name: "create existing document",
			call: func() (*mcp.CallToolResult, error) {
				return s.handleCreateDocument(ctx, newCallToolRequest("create_document", map[string]any{"path": path}))
			},
			prefix: "already exists:",
		},
		{
			name: "unknown node type",
			call: func() (*mcp.CallToolResult, error) {
				return s.handleCreateNode(ctx, newCallToolRequest("create_node", map[string]any{"path": path, "type": "star"}))
			},
			prefix: "invalid argument:",
		},
		{
			name: "missing path",
			call: func() (*mcp.CallToolResult, error) {
				return s.handleReadDocument(ctx, newCallToolRequest("read_document", map[string]any{}))
			},
			prefix: "invalid argument:",
		},
		{
			name: "properties not an object",
			call: func() (*mcp.CallToolResult, error) {
				return s.handleUpdateNode(ctx, newCallToolRequest("update_node", map[string]any{"path": path, "id": "x", "properties": "fill=red"}))
			},
			prefix: "invalid argument:",
		},
		{
			name: "ids not an array",
			call: func() (*mcp.CallToolResult, error) {
				return s.handleDeleteNodes(ctx, newCallToolRequest("delete_nodes", map[string]any{"path": path, "ids": "a,b"}))
			},
			prefix: "invalid argument:",
		},
		{
			name: "unparseable document",
			call: func() (*mcp.CallToolResult, error) {
				return s.handleReadDocument(ctx, newCallToolRequest("read_document", map[string]any{"path": broken}))
			},
			prefix: "format error:",
		},
		{
			name: "missing document",
			call: func() (*mcp.CallToolResult, error) {
				return s.handleReadDocument(ctx, newCallToolRequest("read_document", map[string]any{"path": filepath.Join(dir, "nope.easel")}))
			},
			prefix: "not found:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			require.NoError(t, err)
			require.True(t, res.IsError)
			text := resultText(t, res)
			assert.True(t, strings.HasPrefix(text, tt.prefix), text)
		})
	}
}

func TestReadDocument_ReturnsCanvasTree(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()
	path := filepath.Join(dir, "tree.easel")

	_, err := s.handleCreateNode(ctx, newCallToolRequest("create_node", map[string]any{
		"path": path, "type": "text", "text": "<b>hi</b>",
	}))
	require.NoError(t, err)

	res, err := s.handleReadDocument(ctx, newCallToolRequest("read_document", map[string]any{"path": path}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "<b>hi</b>")

	tree := decodeResult(t, res)
	assert.Equal(t, "7.0.0", tree["version"])
	objects, ok := tree["objects"].([]any)
	require.True(t, ok)
	assert.Len(t, objects, 1)
}

func TestListDocuments(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleCreateDocument(ctx, newCallToolRequest("create_document", map[string]any{
		"path": filepath.Join(dir, "a.easel"), "name": "A",
	}))
	require.NoError(t, err)

	res, err := s.handleListDocuments(ctx, newCallToolRequest("list_documents", map[string]any{"directory": dir}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var infos []service.DocumentInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "A", infos[0].Name)
	assert.Equal(t, 0, infos[0].ObjectCount)
}

// ── Prompts ────────────────────────────────────────────────

func TestDesignCanvasPrompt(t *testing.T) {
	s, _ := newTestServer(t)

	var req mcp.GetPromptRequest
	req.Params.Name = "design_canvas"
	req.Params.Arguments = map[string]string{"path": "/tmp/x.easel", "subject": "a login form"}

	res, err := s.handleDesignCanvasPrompt(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text, ok := res.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "/tmp/x.easel")
	assert.Contains(t, text.Text, "a login form")

	req.Params.Arguments = map[string]string{"path": "/tmp/x.easel"}
	_, err = s.handleDesignCanvasPrompt(context.Background(), req)
	assert.Error(t, err)
}
