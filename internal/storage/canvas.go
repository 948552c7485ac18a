package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"easel/internal/domain"
)

// CanvasStore implements domain.CanvasStore on the metadata database.
type CanvasStore struct {
	db *DB
}

func NewCanvasStore(db *DB) *CanvasStore {
	return &CanvasStore{db: db}
}

// CreateCanvas inserts c. Zero timestamps are set to now, so a canvas
// registered from an existing document can keep the document's own.
func (s *CanvasStore) CreateCanvas(c *domain.CanvasMeta) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	_, err := s.db.exec(
		`INSERT INTO canvases (id, name, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SortOrder, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create canvas: %w", err)
	}
	return nil
}

func (s *CanvasStore) GetCanvas(id string) (*domain.CanvasMeta, error) {
	row := s.db.queryRow(`SELECT id, name, sort_order, created_at, updated_at FROM canvases WHERE id = ?`, id)
	c, err := scanCanvas(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: canvas %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get canvas: %w", err)
	}
	return c, nil
}

func (s *CanvasStore) ListCanvases() ([]domain.CanvasMeta, error) {
	rows, err := s.db.query(`SELECT id, name, sort_order, created_at, updated_at FROM canvases ORDER BY sort_order, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var canvases []domain.CanvasMeta
	for rows.Next() {
		c, err := scanCanvas(rows)
		if err != nil {
			return nil, err
		}
		canvases = append(canvases, *c)
	}
	return canvases, rows.Err()
}

func (s *CanvasStore) CanvasExists(id string) (bool, error) {
	var n int
	if err := s.db.queryRow(`SELECT COUNT(*) FROM canvases WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *CanvasStore) CountCanvases() (int, error) {
	var n int
	err := s.db.queryRow(`SELECT COUNT(*) FROM canvases`).Scan(&n)
	return n, err
}

func (s *CanvasStore) RenameCanvas(id, name string) error {
	_, err := s.db.exec(`UPDATE canvases SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(time.Now()), id)
	return err
}

func (s *CanvasStore) TouchCanvas(id string) error {
	_, err := s.db.exec(`UPDATE canvases SET updated_at = ? WHERE id = ?`, formatTime(time.Now()), id)
	return err
}

func (s *CanvasStore) DeleteCanvas(id string) error {
	_, err := s.db.exec(`DELETE FROM canvases WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCanvas(row rowScanner) (*domain.CanvasMeta, error) {
	var c domain.CanvasMeta
	var created, updated string
	if err := row.Scan(&c.ID, &c.Name, &c.SortOrder, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &c, nil
}
