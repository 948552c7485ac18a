package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("design_canvas",
		mcp.WithPromptDescription("Lay out a canvas in an .easel file from a short description"),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("Path to the .easel file to draw into"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("subject",
			mcp.ArgumentDescription("What the canvas should show, e.g. a login screen wireframe"),
			mcp.RequiredArgument(),
		),
	), s.handleDesignCanvasPrompt)
}

func (s *Server) handleDesignCanvasPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	path := req.Params.Arguments["path"]
	subject := req.Params.Arguments["subject"]
	if path == "" || subject == "" {
		return nil, fmt.Errorf("path and subject are required")
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Design %s", subject),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Design "%s" on the canvas stored at %s. Follow these steps:

1. Use read_document to see what is already on the canvas (create_node creates the file if it is missing).
2. Start with a frame (create_node type=frame) sized to hold the whole design.
3. Add rect, ellipse and text nodes inside the frame's bounds. Give every node a name.
4. Use update_node to adjust position (left, top), size and colors after checking the result with read_node.
5. Remove leftovers with delete_nodes.

Keep a consistent spacing grid (multiples of 8) and no more than three fill colors.`, subject, path),
				},
			},
		},
	}, nil
}
