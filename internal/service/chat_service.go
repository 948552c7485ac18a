package service

import (
	"fmt"

	"github.com/google/uuid"

	"easel/internal/domain"
)

// ChatService manages the assistant chat sessions of each canvas.
type ChatService struct {
	store domain.ChatStore
}

func NewChatService(store domain.ChatStore) *ChatService {
	return &ChatService{store: store}
}

func (s *ChatService) CreateSession(canvasID, model, name string) (*domain.ChatSession, error) {
	cs := &domain.ChatSession{
		ID:       uuid.New().String(),
		CanvasID: canvasID,
		Model:    model,
		Name:     name,
	}
	if err := s.store.CreateSession(cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *ChatService) ListSessions(canvasID string) ([]domain.ChatSession, error) {
	return s.store.ListSessions(canvasID)
}

func (s *ChatService) DeleteSession(id string) error {
	return s.store.DeleteSession(id)
}

// SaveMessage appends a message to a session. role is free-form but must
// not be empty.
func (s *ChatService) SaveMessage(sessionID, role, content string) (*domain.ChatMessage, error) {
	if role == "" {
		return nil, fmt.Errorf("%w: message role is required", domain.ErrInvalidArgument)
	}
	m := &domain.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if err := s.store.SaveMessage(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ChatService) GetMessages(sessionID string) ([]domain.ChatMessage, error) {
	return s.store.GetMessages(sessionID)
}

func (s *ChatService) ClearMessages(sessionID string) error {
	return s.store.ClearMessages(sessionID)
}
