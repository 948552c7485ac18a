package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"easel/internal/domain"
)

// FileStore keeps each document in its own file. It implements
// domain.DocumentGateway with the file as the source of truth.
type FileStore struct {
	// afterStage runs between writing the staging file and the rename.
	afterStage func(tmpPath string) error
}

func NewFileStore() *FileStore {
	return &FileStore{}
}

// StagingPath returns the sibling a document is written to before it is
// renamed over path: the last extension is replaced by .easel.tmp.
func StagingPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + domain.Extension + ".tmp"
}

func (s *FileStore) Load(_ context.Context, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
	}
	doc, err := domain.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func (s *FileStore) Save(_ context.Context, path string, doc *domain.Document) error {
	data, err := domain.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", domain.ErrIO, dir, err)
	}

	tmp := StagingPath(path)
	if err := writeSynced(tmp, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, tmp, err)
	}
	if s.afterStage != nil {
		if err := s.afterStage(tmp); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrIO, err)
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domain.ErrIO, tmp, err)
	}
	if err := syncDir(dir); err != nil {
		return fmt.Errorf("%w: sync %s: %v", domain.ErrIO, dir, err)
	}
	return nil
}

func (s *FileStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %v", domain.ErrIO, path, err)
}

// Delete removes the document at path. Missing documents are not an error.
func (s *FileStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// List walks dir for *.easel files. Unreadable subdirectories are skipped and
// a missing dir lists as empty.
func (s *FileStore) List(ctx context.Context, dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() && filepath.Ext(path) == domain.Extension {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrIO, dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir flushes the directory entry after a rename. Windows cannot open a
// directory for sync.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
