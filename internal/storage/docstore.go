package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"easel/internal/domain"
)

// DocStore implements domain.DocumentGateway on the metadata database: the
// documents table is the only copy, keyed by path.
type DocStore struct {
	db *DB
}

func NewDocStore(db *DB) *DocStore {
	return &DocStore{db: db}
}

func (s *DocStore) Load(ctx context.Context, path string) (*domain.Document, error) {
	var body string
	err := s.db.conn.QueryRowContext(ctx,
		s.db.dialect.rebind(`SELECT body FROM documents WHERE path = ?`), path,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
	}
	doc, err := domain.ParseDocument([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Save writes the whole document in one upsert statement.
func (s *DocStore) Save(ctx context.Context, path string, doc *domain.Document) error {
	data, err := domain.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	stmt := s.db.dialect.rebind(s.db.dialect.upsert("documents", "path", []string{"body", "updated_at"}))
	if _, err := s.db.conn.ExecContext(ctx, stmt, path, string(data), formatTime(time.Now())); err != nil {
		return fmt.Errorf("%w: save %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

func (s *DocStore) Exists(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		s.db.dialect.rebind(`SELECT COUNT(*) FROM documents WHERE path = ?`), path,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", domain.ErrIO, path, err)
	}
	return n > 0, nil
}

// List returns the stored paths under dir with the document extension.
func (s *DocStore) List(ctx context.Context, dir string) ([]string, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT path FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrIO, dir, err)
	}
	defer rows.Close()

	prefix := listPrefix(dir)
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", domain.ErrIO, dir, err)
		}
		clean := filepath.Clean(p)
		if prefix == "" && filepath.IsAbs(clean) {
			continue
		}
		if strings.HasPrefix(clean, prefix) && filepath.Ext(p) == domain.Extension {
			paths = append(paths, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrIO, dir, err)
	}
	return paths, nil
}

// listPrefix is the path prefix of documents below dir, or "" for the
// current directory, which holds every relative path.
func listPrefix(dir string) string {
	clean := filepath.Clean(dir)
	if clean == "." {
		return ""
	}
	return clean + string(filepath.Separator)
}

// Delete removes the document at path. Missing documents are not an error.
func (s *DocStore) Delete(ctx context.Context, path string) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.dialect.rebind(`DELETE FROM documents WHERE path = ?`), path)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrIO, path, err)
	}
	return nil
}
