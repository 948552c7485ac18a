package app

import "easel/internal/domain"

// ── Chat ───────────────────────────────────────────────────

func (a *App) CreateChatSession(canvasID, model, name string) (*domain.ChatSession, error) {
	return a.chats.CreateSession(canvasID, model, name)
}

func (a *App) ListChatSessions(canvasID string) ([]domain.ChatSession, error) {
	return a.chats.ListSessions(canvasID)
}

func (a *App) DeleteChatSession(id string) error {
	return a.chats.DeleteSession(id)
}

func (a *App) SaveChatMessage(sessionID, role, content string) (*domain.ChatMessage, error) {
	return a.chats.SaveMessage(sessionID, role, content)
}

func (a *App) GetChatMessages(sessionID string) ([]domain.ChatMessage, error) {
	return a.chats.GetMessages(sessionID)
}

func (a *App) ClearChatMessages(sessionID string) error {
	return a.chats.ClearMessages(sessionID)
}
