package storage

import (
	"fmt"
	"time"

	"easel/internal/domain"
)

// ChatStore implements domain.ChatStore on the metadata database.
type ChatStore struct {
	db *DB
}

func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) CreateSession(cs *domain.ChatSession) error {
	now := time.Now().UTC()
	cs.CreatedAt = now
	cs.UpdatedAt = now
	_, err := s.db.exec(
		`INSERT INTO chat_sessions (id, canvas_id, model, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		cs.ID, cs.CanvasID, cs.Model, cs.Name, formatTime(cs.CreatedAt), formatTime(cs.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create chat session: %w", err)
	}
	return nil
}

func (s *ChatStore) ListSessions(canvasID string) ([]domain.ChatSession, error) {
	rows, err := s.db.query(
		`SELECT id, canvas_id, model, name, created_at, updated_at FROM chat_sessions WHERE canvas_id = ? ORDER BY created_at`,
		canvasID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		var cs domain.ChatSession
		var created, updated string
		if err := rows.Scan(&cs.ID, &cs.CanvasID, &cs.Model, &cs.Name, &created, &updated); err != nil {
			return nil, err
		}
		cs.CreatedAt, _ = parseTime(created)
		cs.UpdatedAt, _ = parseTime(updated)
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages.
func (s *ChatStore) DeleteSession(id string) error {
	if _, err := s.db.exec(`DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	_, err := s.db.exec(`DELETE FROM chat_sessions WHERE id = ?`, id)
	return err
}

func (s *ChatStore) DeleteSessionsByCanvas(canvasID string) error {
	if _, err := s.db.exec(
		`DELETE FROM chat_messages WHERE session_id IN (SELECT id FROM chat_sessions WHERE canvas_id = ?)`,
		canvasID,
	); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	_, err := s.db.exec(`DELETE FROM chat_sessions WHERE canvas_id = ?`, canvasID)
	return err
}

// SaveMessage inserts m and bumps its session's updated_at.
func (s *ChatStore) SaveMessage(m *domain.ChatMessage) error {
	m.CreatedAt = time.Now().UTC()
	if _, err := s.db.exec(
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Role, m.Content, formatTime(m.CreatedAt),
	); err != nil {
		return fmt.Errorf("save chat message: %w", err)
	}
	_, err := s.db.exec(`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, formatTime(m.CreatedAt), m.SessionID)
	return err
}

func (s *ChatStore) GetMessages(sessionID string) ([]domain.ChatMessage, error) {
	rows, err := s.db.query(
		`SELECT id, session_id, role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var created string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = parseTime(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *ChatStore) ClearMessages(sessionID string) error {
	_, err := s.db.exec(`DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
	return err
}
