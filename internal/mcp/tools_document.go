package mcpserver

import (
	"context"

	"easel/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerDocumentTools() {
	s.mcp.AddTool(createDocumentTool(), s.handleCreateDocument)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(readDocumentTool(), s.handleReadDocument)
	s.mcp.AddTool(readNodeTool(), s.handleReadNode)
	s.mcp.AddTool(createNodeTool(), s.handleCreateNode)
	s.mcp.AddTool(updateNodeTool(), s.handleUpdateNode)
	s.mcp.AddTool(deleteNodesTool(), s.handleDeleteNodes)
}

// ── Tool definitions ───────────────────────────────────────

func pathArg() mcp.ToolOption {
	return mcp.WithString("path", mcp.Description("Path to the .easel file"), mcp.Required())
}

func createDocumentTool() mcp.Tool {
	return mcp.NewTool("create_document",
		mcp.WithDescription("Create a new empty .easel canvas file at the given path"),
		mcp.WithString("path", mcp.Description("Path where the new .easel file should be created"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Name for the canvas"), mcp.DefaultString(domain.DefaultName)),
	)
}

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List .easel files under a directory with their paths, names, and object counts"),
		mcp.WithString("directory", mcp.Description("Directory path to search for .easel files"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	)
}

func readDocumentTool() mcp.Tool {
	return mcp.NewTool("read_document",
		mcp.WithDescription("Read the full canvas object tree from an .easel file"),
		pathArg(),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	)
}

func readNodeTool() mcp.Tool {
	return mcp.NewTool("read_node",
		mcp.WithDescription("Get the properties of a single canvas object by its ID, searching top-level objects and the children of groups and frames"),
		pathArg(),
		mcp.WithString("id", mcp.Description("Object ID to retrieve"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	)
}

func createNodeTool() mcp.Tool {
	return mcp.NewTool("create_node",
		mcp.WithDescription("Create a new canvas object (rect, ellipse, text, or frame). The file is created if it does not exist."),
		pathArg(),
		mcp.WithString("type",
			mcp.Description("Object type: rect, ellipse, text, or frame"),
			mcp.Required(),
			mcp.Enum(domain.KindRect, domain.KindEllipse, domain.KindText, domain.KindFrame),
		),
		mcp.WithNumber("x", mcp.Description("X position (left)"), mcp.DefaultNumber(domain.DefaultPosition)),
		mcp.WithNumber("y", mcp.Description("Y position (top)"), mcp.DefaultNumber(domain.DefaultPosition)),
		mcp.WithNumber("width", mcp.Description("Width of the object"), mcp.DefaultNumber(domain.DefaultSize)),
		mcp.WithNumber("height", mcp.Description("Height of the object"), mcp.DefaultNumber(domain.DefaultSize)),
		mcp.WithString("fill", mcp.Description("Fill color (hex)")),
		mcp.WithString("stroke", mcp.Description("Stroke color (hex)")),
		mcp.WithString("name", mcp.Description("Optional name for the object")),
		mcp.WithString("text", mcp.Description("Text content (only for type=text)")),
		mcp.WithNumber("fontSize", mcp.Description("Font size (only for type=text)"), mcp.DefaultNumber(domain.DefaultFontSize)),
	)
}

func updateNodeTool() mcp.Tool {
	return mcp.NewTool("update_node",
		mcp.WithDescription("Update properties of an existing canvas object by its ID. Properties are merged; id and type cannot be changed."),
		pathArg(),
		mcp.WithString("id", mcp.Description("Object ID to update"), mcp.Required()),
		mcp.WithObject("properties",
			mcp.Description("Properties to update (e.g. left, top, width, height, fill, stroke, name, text, fontSize)"),
			mcp.Required(),
		),
	)
}

func deleteNodesTool() mcp.Tool {
	return mcp.NewTool("delete_nodes",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete one or more canvas objects by their IDs. IDs that do not exist are reported, not treated as errors."),
		pathArg(),
		mcp.WithArray("ids",
			mcp.Description("Array of object IDs to delete"),
			mcp.Required(),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, err := requireString(args, "path")
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	name := domain.DefaultName
	if v, ok := args["name"].(string); ok {
		name = v
	}
	doc, err := s.canvas.CreateDocument(ctx, path, name)
	if err != nil {
		return errorResult("create_document", err), nil
	}
	return jsonResult(map[string]string{
		"path":    path,
		"name":    doc.Name,
		"message": "Created new .easel file",
	})
}

func (s *Server) handleListDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := requireString(req.GetArguments(), "directory")
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	infos, err := s.canvas.ListDocuments(ctx, dir)
	if err != nil {
		return errorResult("list_documents", err), nil
	}
	return jsonResult(infos)
}

func (s *Server) handleReadDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := requireString(req.GetArguments(), "path")
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	doc, err := s.canvas.ReadDocument(ctx, path)
	if err != nil {
		return errorResult("read_document", err), nil
	}
	return jsonResult(doc.Canvas)
}

func (s *Server) handleReadNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, err := requireString(args, "path")
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	id, err := requireString(args, "id")
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	node, err := s.canvas.ReadNode(ctx, path, id)
	if err != nil {
		return errorResult("read_node", err), nil
	}
	return jsonResult(node)
}

func (s *Server) handleCreateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, err := requireString(args, "path")
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	spec, err := nodeSpec(args)
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	node, err := s.canvas.CreateNode(ctx, path, spec)
	if err != nil {
		return errorResult("create_node", err), nil
	}
	return jsonResult(node)
}

func (s *Server) handleUpdateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, err := requireString(args, "path")
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	id, err := requireString(args, "id")
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	props, ok := args["properties"].(map[string]any)
	if !ok {
		return invalidArgument("properties must be an object"), nil
	}

	node, err := s.canvas.UpdateNode(ctx, path, id, domain.PropsFromMap(props))
	if err != nil {
		return errorResult("update_node", err), nil
	}
	return jsonResult(node)
}

func (s *Server) handleDeleteNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, err := requireString(args, "path")
	if err != nil {
		return invalidArgument("%v", err), nil
	}
	ids, err := getStrings(args, "ids")
	if err != nil {
		return invalidArgument("%v", err), nil
	}

	res, err := s.canvas.DeleteNodes(ctx, path, ids)
	if err != nil {
		return errorResult("delete_nodes", err), nil
	}
	return jsonResult(res)
}
