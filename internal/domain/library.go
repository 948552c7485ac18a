package domain

import "time"

// CanvasMeta is the library entry of a canvas whose document lives at
// <canvases dir>/<ID>.easel.
type CanvasMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanvasState is the editor's view of a document: the canvas tree and the
// viewport, both as JSON text.
type CanvasState struct {
	CanvasID          string    `json:"canvasId"`
	CanvasJSON        string    `json:"canvasJson"`
	Zoom              float64   `json:"zoom"`
	ViewportTransform string    `json:"viewportTransform"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type ChatSession struct {
	ID        string    `json:"id"`
	CanvasID  string    `json:"canvasId"`
	Model     string    `json:"model"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type CanvasStore interface {
	CreateCanvas(c *CanvasMeta) error
	GetCanvas(id string) (*CanvasMeta, error)
	ListCanvases() ([]CanvasMeta, error)
	CanvasExists(id string) (bool, error)
	CountCanvases() (int, error)
	RenameCanvas(id, name string) error
	TouchCanvas(id string) error
	DeleteCanvas(id string) error
}

type ChatStore interface {
	CreateSession(s *ChatSession) error
	ListSessions(canvasID string) ([]ChatSession, error)
	DeleteSession(id string) error
	DeleteSessionsByCanvas(canvasID string) error

	SaveMessage(m *ChatMessage) error
	GetMessages(sessionID string) ([]ChatMessage, error)
	ClearMessages(sessionID string) error
}
