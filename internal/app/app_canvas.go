package app

// ─────────────────────────────────────────────────────────────
// Canvas Handlers: thin delegates to LibraryService
// ─────────────────────────────────────────────────────────────

import (
	"easel/internal/domain"
	"easel/internal/service"
)

// ── Library ────────────────────────────────────────────────

// ListCanvases registers documents that appeared on disk, then returns the
// library in sort order.
func (a *App) ListCanvases() ([]domain.CanvasMeta, error) {
	return a.library.ListCanvases(a.ctx)
}

func (a *App) CreateCanvas(name string) (*domain.CanvasMeta, error) {
	return a.library.CreateCanvas(a.ctx, name)
}

func (a *App) RenameCanvas(id, name string) error {
	return a.library.RenameCanvas(a.ctx, id, name)
}

func (a *App) DeleteCanvas(id string) error {
	return a.library.DeleteCanvas(a.ctx, id)
}

// ImportEaselFile copies an .easel file from anywhere on disk into the
// library under a new id.
func (a *App) ImportEaselFile(path string) (*domain.CanvasMeta, error) {
	return a.library.ImportFile(a.ctx, path)
}

// ── Editor state ───────────────────────────────────────────

// GetCanvasState returns nil when the canvas has no document yet.
func (a *App) GetCanvasState(canvasID string) (*domain.CanvasState, error) {
	return a.library.GetCanvasState(a.ctx, canvasID)
}

func (a *App) SaveCanvasState(canvasID, canvasJSON string, zoom float64, viewportTransform string) error {
	return a.library.SaveCanvasState(a.ctx, canvasID, canvasJSON, zoom, viewportTransform)
}

// ── Nodes ──────────────────────────────────────────────────

func (a *App) GetCanvasNode(canvasID, nodeID string) (*domain.Node, error) {
	return a.library.GetNode(a.ctx, canvasID, nodeID)
}

func (a *App) CreateCanvasNode(canvasID string, input CreateNodeInput) (*domain.Node, error) {
	return a.library.CreateNode(a.ctx, canvasID, input.spec())
}

func (a *App) UpdateCanvasNode(canvasID, nodeID string, properties map[string]any) (*domain.Node, error) {
	return a.library.UpdateNode(a.ctx, canvasID, nodeID, domain.PropsFromMap(properties))
}

func (a *App) DeleteCanvasNodes(canvasID string, ids []string) (*service.DeleteResult, error) {
	return a.library.DeleteNodes(a.ctx, canvasID, ids)
}
