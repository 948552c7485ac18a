package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"easel/internal/domain"
	"easel/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Library Service: the desktop app's canvas list
// ─────────────────────────────────────────────────────────────

// DocumentStore is a document gateway that can also remove documents.
type DocumentStore interface {
	domain.DocumentGateway
	Delete(ctx context.Context, path string) error
}

// LegacyStates exposes the canvas_states table of older databases.
type LegacyStates interface {
	LegacyCanvasStates() ([]storage.LegacyCanvasState, error)
	DropLegacyCanvasStates() error
}

// LibraryService keeps the canvas metadata table and the documents under
// the canvases directory in step. Every document write it performs holds
// the canvas's path lock.
type LibraryService struct {
	canvases domain.CanvasStore
	chats    domain.ChatStore
	docs     DocumentStore
	files    domain.DocumentGateway
	legacy   LegacyStates
	canvas   *CanvasService
	dir      string
	emitter  EventEmitter
	locks    PathLocks
}

// NewLibraryService creates a LibraryService storing documents as
// <dir>/<canvas id>.easel through docs. legacy may be nil.
func NewLibraryService(
	canvases domain.CanvasStore,
	chats domain.ChatStore,
	docs DocumentStore,
	legacy LegacyStates,
	dir string,
	emitter EventEmitter,
) *LibraryService {
	return &LibraryService{
		canvases: canvases,
		chats:    chats,
		docs:     docs,
		files:    storage.NewFileStore(),
		legacy:   legacy,
		canvas:   NewCanvasService(docs),
		dir:      dir,
		emitter:  emitter,
	}
}

// Dir returns the canvases directory.
func (s *LibraryService) Dir() string {
	return s.dir
}

// CanvasPath returns where the document of canvas id is stored.
func (s *LibraryService) CanvasPath(id string) string {
	return filepath.Join(s.dir, id+domain.Extension)
}

// CanvasID returns the canvas id a document path belongs to, or false if
// the path is not directly inside the canvases directory.
func (s *LibraryService) CanvasID(path string) (string, bool) {
	if filepath.Ext(path) != domain.Extension || filepath.Clean(filepath.Dir(path)) != filepath.Clean(s.dir) {
		return "", false
	}
	id := strings.TrimSuffix(filepath.Base(path), domain.Extension)
	return id, id != ""
}

// WaitIdle blocks until no document write is in flight or ctx is done.
func (s *LibraryService) WaitIdle(ctx context.Context) {
	s.locks.WaitAll(ctx)
}

// ── Startup ────────────────────────────────────────────────

// Init exports the rows of a legacy canvas_states table into documents and
// then drops the table. Rows whose document already exists are left alone,
// so a partial run can be repeated.
func (s *LibraryService) Init(ctx context.Context) error {
	if s.legacy == nil {
		return nil
	}
	states, err := s.legacy.LegacyCanvasStates()
	if err != nil {
		return fmt.Errorf("read legacy canvas states: %w", err)
	}

	failed := 0
	for _, st := range states {
		if err := s.migrateLegacyState(ctx, st); err != nil {
			log.Printf("[library] failed to migrate canvas %s: %v", st.CanvasID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("migrate legacy canvas states: %d of %d failed", failed, len(states))
	}
	if len(states) > 0 {
		log.Printf("[library] migrated %d legacy canvas state(s)", len(states))
	}
	return s.legacy.DropLegacyCanvasStates()
}

func (s *LibraryService) migrateLegacyState(ctx context.Context, st storage.LegacyCanvasState) error {
	path := s.CanvasPath(st.CanvasID)
	unlock := s.locks.Lock(path)
	defer unlock()

	exists, err := s.docs.Exists(ctx, path)
	if err != nil || exists {
		return err
	}

	doc := domain.NewDocument(st.Name)
	if err := json.Unmarshal([]byte(st.CanvasJSON), &doc.Canvas); err != nil {
		doc.Canvas = domain.NewCanvas()
	}
	var transform []float64
	if err := json.Unmarshal([]byte(st.ViewportTransform), &transform); err != nil || len(transform) != 6 {
		transform = domain.DefaultViewport().Transform
	}
	doc.Viewport = domain.Viewport{Zoom: st.Zoom, Transform: transform}
	if doc.Viewport.Zoom <= 0 {
		doc.Viewport.Zoom = 1
	}
	if !st.CreatedAt.IsZero() {
		doc.CreatedAt = st.CreatedAt
	}
	if !st.UpdatedAt.IsZero() {
		doc.UpdatedAt = st.UpdatedAt
	}
	return s.docs.Save(context.WithoutCancel(ctx), path, doc)
}

// ── Canvas list ────────────────────────────────────────────

// Reconcile registers documents in the canvases directory that have no
// metadata row, taking name and timestamps from the document and appending
// them after the current canvases. Unreadable documents are skipped. It
// returns how many canvases were added; a reconcile already in progress
// makes it a no-op.
func (s *LibraryService) Reconcile(ctx context.Context) (int, error) {
	unlock, ok := s.locks.TryLock("reconcile")
	if !ok {
		return 0, nil
	}
	defer unlock()

	paths, err := s.docs.List(ctx, s.dir)
	if err != nil {
		return 0, fmt.Errorf("list canvases dir: %w", err)
	}
	count, err := s.canvases.CountCanvases()
	if err != nil {
		return 0, fmt.Errorf("count canvases: %w", err)
	}

	added := 0
	for _, p := range paths {
		id, ok := s.CanvasID(p)
		if !ok {
			continue
		}
		exists, err := s.canvases.CanvasExists(id)
		if err != nil || exists {
			continue
		}
		doc, err := s.docs.Load(ctx, p)
		if err != nil {
			log.Printf("[library] reconcile: skipping %s: %v", p, err)
			continue
		}
		meta := &domain.CanvasMeta{
			ID:        id,
			Name:      doc.Name,
			SortOrder: count + added,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		}
		if err := s.canvases.CreateCanvas(meta); err != nil {
			log.Printf("[library] reconcile: register %s: %v", id, err)
			continue
		}
		added++
	}

	if added > 0 {
		log.Printf("[library] reconcile: registered %d canvas(es)", added)
		s.emitter.Emit(ctx, EventLibraryChanged, added)
	}
	return added, nil
}

// ListCanvases reconciles the canvases directory and returns the canvases
// in sort order.
func (s *LibraryService) ListCanvases(ctx context.Context) ([]domain.CanvasMeta, error) {
	if _, err := s.Reconcile(ctx); err != nil {
		log.Printf("[library] reconcile failed: %v", err)
	}
	return s.canvases.ListCanvases()
}

// CreateCanvas registers a new canvas at the end of the list and writes its
// empty document.
func (s *LibraryService) CreateCanvas(ctx context.Context, name string) (*domain.CanvasMeta, error) {
	if name == "" {
		name = domain.DefaultName
	}
	count, err := s.canvases.CountCanvases()
	if err != nil {
		return nil, fmt.Errorf("count canvases: %w", err)
	}

	doc := domain.NewDocument(name)
	meta := &domain.CanvasMeta{
		ID:        uuid.New().String(),
		Name:      name,
		SortOrder: count,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if err := s.canvases.CreateCanvas(meta); err != nil {
		return nil, err
	}

	path := s.CanvasPath(meta.ID)
	unlock := s.locks.Lock(path)
	defer unlock()
	if err := s.docs.Save(context.WithoutCancel(ctx), path, doc); err != nil {
		return nil, err
	}
	return meta, nil
}

// RenameCanvas renames the canvas in the metadata table and, if it exists,
// in its document.
func (s *LibraryService) RenameCanvas(ctx context.Context, id, name string) error {
	if _, err := s.canvases.GetCanvas(id); err != nil {
		return err
	}
	if err := s.canvases.RenameCanvas(id, name); err != nil {
		return fmt.Errorf("rename canvas: %w", err)
	}

	path := s.CanvasPath(id)
	unlock := s.locks.Lock(path)
	defer unlock()

	doc, err := s.docs.Load(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	doc.Name = name
	return s.docs.Save(context.WithoutCancel(ctx), path, doc)
}

// DeleteCanvas removes the canvas, its chat sessions and its document.
func (s *LibraryService) DeleteCanvas(ctx context.Context, id string) error {
	if err := s.canvases.DeleteCanvas(id); err != nil {
		return fmt.Errorf("delete canvas: %w", err)
	}
	if s.chats != nil {
		if err := s.chats.DeleteSessionsByCanvas(id); err != nil {
			log.Printf("[library] delete chat sessions of %s: %v", id, err)
		}
	}

	path := s.CanvasPath(id)
	unlock := s.locks.Lock(path)
	defer unlock()
	return s.docs.Delete(context.WithoutCancel(ctx), path)
}

// ImportFile copies the document at sourcePath, a file outside the library,
// into the library under a new canvas id.
func (s *LibraryService) ImportFile(ctx context.Context, sourcePath string) (*domain.CanvasMeta, error) {
	doc, err := s.files.Load(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	count, err := s.canvases.CountCanvases()
	if err != nil {
		return nil, fmt.Errorf("count canvases: %w", err)
	}

	meta := &domain.CanvasMeta{
		ID:        uuid.New().String(),
		Name:      doc.Name,
		SortOrder: count,
	}
	if err := s.canvases.CreateCanvas(meta); err != nil {
		return nil, err
	}

	path := s.CanvasPath(meta.ID)
	unlock := s.locks.Lock(path)
	defer unlock()
	if err := s.docs.Save(context.WithoutCancel(ctx), path, doc); err != nil {
		return nil, err
	}
	return meta, nil
}

// ── Editor state ───────────────────────────────────────────

// GetCanvasState returns the editor view of a canvas, or nil if the canvas
// has no document.
func (s *LibraryService) GetCanvasState(ctx context.Context, id string) (*domain.CanvasState, error) {
	doc, err := s.docs.Load(ctx, s.CanvasPath(id))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	canvasJSON, err := json.Marshal(doc.Canvas)
	if err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	transform, err := json.Marshal(doc.Viewport.Transform)
	if err != nil {
		return nil, fmt.Errorf("encode viewport: %w", err)
	}
	return &domain.CanvasState{
		CanvasID:          id,
		CanvasJSON:        string(canvasJSON),
		Zoom:              doc.Viewport.Zoom,
		ViewportTransform: string(transform),
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}

// SaveCanvasState replaces the canvas tree and viewport of a canvas with the
// editor's copy. A missing document is created under the canvas's name.
func (s *LibraryService) SaveCanvasState(ctx context.Context, id, canvasJSON string, zoom float64, viewportTransform string) error {
	var canvas domain.Canvas
	if err := json.Unmarshal([]byte(canvasJSON), &canvas); err != nil {
		return fmt.Errorf("%w: canvas json: %v", domain.ErrInvalidArgument, err)
	}
	var transform []float64
	if err := json.Unmarshal([]byte(viewportTransform), &transform); err != nil {
		return fmt.Errorf("%w: viewport transform: %v", domain.ErrInvalidArgument, err)
	}
	if zoom <= 0 || len(transform) != 6 {
		return fmt.Errorf("%w: viewport needs a positive zoom and 6 transform values", domain.ErrInvalidArgument)
	}

	path := s.CanvasPath(id)
	unlock := s.locks.Lock(path)
	defer unlock()

	doc, err := s.docs.Load(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		name := domain.DefaultName
		if meta, err := s.canvases.GetCanvas(id); err == nil {
			name = meta.Name
		}
		doc, err = domain.NewDocument(name), nil
	}
	if err != nil {
		return err
	}

	doc.Canvas = canvas
	doc.Viewport = domain.Viewport{Zoom: zoom, Transform: transform}
	doc.Touch()
	if err := s.docs.Save(context.WithoutCancel(ctx), path, doc); err != nil {
		return err
	}
	return s.canvases.TouchCanvas(id)
}

// ── Nodes ──────────────────────────────────────────────────

func (s *LibraryService) GetNode(ctx context.Context, canvasID, nodeID string) (*domain.Node, error) {
	return s.canvas.ReadNode(ctx, s.CanvasPath(canvasID), nodeID)
}

func (s *LibraryService) CreateNode(ctx context.Context, canvasID string, spec domain.NodeSpec) (*domain.Node, error) {
	path := s.CanvasPath(canvasID)
	unlock := s.locks.Lock(path)
	defer unlock()

	n, err := s.canvas.CreateNode(ctx, path, spec)
	if err != nil {
		return nil, err
	}
	s.nodesChanged(ctx, canvasID)
	return n, nil
}

func (s *LibraryService) UpdateNode(ctx context.Context, canvasID, nodeID string, fields *domain.Props) (*domain.Node, error) {
	path := s.CanvasPath(canvasID)
	unlock := s.locks.Lock(path)
	defer unlock()

	n, err := s.canvas.UpdateNode(ctx, path, nodeID, fields)
	if err != nil {
		return nil, err
	}
	s.nodesChanged(ctx, canvasID)
	return n, nil
}

func (s *LibraryService) DeleteNodes(ctx context.Context, canvasID string, ids []string) (*DeleteResult, error) {
	path := s.CanvasPath(canvasID)
	unlock := s.locks.Lock(path)
	defer unlock()

	res, err := s.canvas.DeleteNodes(ctx, path, ids)
	if err != nil {
		return nil, err
	}
	s.nodesChanged(ctx, canvasID)
	return res, nil
}

func (s *LibraryService) nodesChanged(ctx context.Context, canvasID string) {
	if err := s.canvases.TouchCanvas(canvasID); err != nil {
		log.Printf("[library] touch canvas %s: %v", canvasID, err)
	}
	s.emitter.Emit(ctx, EventCanvasChanged, canvasID)
}
