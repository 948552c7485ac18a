package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"easel/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Canvas Service: document operations shared by every caller
// ─────────────────────────────────────────────────────────────

// CanvasService runs each document operation as one load, mutate, save
// cycle against its gateway. It keeps no cache and takes no locks, so two
// concurrent writers to the same path race and the last save wins.
type CanvasService struct {
	docs domain.DocumentGateway
}

// NewCanvasService creates a CanvasService over docs.
func NewCanvasService(docs domain.DocumentGateway) *CanvasService {
	return &CanvasService{docs: docs}
}

// Gateway returns the document gateway the service writes through.
func (s *CanvasService) Gateway() domain.DocumentGateway {
	return s.docs
}

// DocumentInfo summarizes a document for listings.
type DocumentInfo struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	ObjectCount int    `json:"objectCount"`
}

// DeleteResult splits the requested ids into removed and missing ones.
type DeleteResult struct {
	Deleted  []string `json:"deleted"`
	NotFound []string `json:"notFound"`
}

// save persists doc even if the caller's context is cancelled mid-call.
func (s *CanvasService) save(ctx context.Context, path string, doc *domain.Document) error {
	return s.docs.Save(context.WithoutCancel(ctx), path, doc)
}

// CreateDocument writes a new empty document named name, which may be empty.
// It fails with ErrAlreadyExists if path is taken.
func (s *CanvasService) CreateDocument(ctx context.Context, path, name string) (*domain.Document, error) {
	exists, err := s.docs.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path)
	}

	doc := domain.NewDocument(name)
	if err := s.save(ctx, path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments summarizes every document under dir. Documents that fail to
// load are skipped.
func (s *CanvasService) ListDocuments(ctx context.Context, dir string) ([]DocumentInfo, error) {
	paths, err := s.docs.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	infos := make([]DocumentInfo, 0, len(paths))
	for _, p := range paths {
		doc, err := s.docs.Load(ctx, p)
		if err != nil {
			log.Printf("[canvas] skipping %s: %v", p, err)
			continue
		}
		infos = append(infos, DocumentInfo{Path: p, Name: doc.Name, ObjectCount: doc.ObjectCount()})
	}
	return infos, nil
}

// ReadDocument loads the whole document at path.
func (s *CanvasService) ReadDocument(ctx context.Context, path string) (*domain.Document, error) {
	return s.docs.Load(ctx, path)
}

// ReadNode returns the node with the given id at either tree level.
func (s *CanvasService) ReadNode(ctx context.Context, path, id string) (*domain.Node, error) {
	doc, err := s.docs.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	n, ok := doc.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: node %s", domain.ErrNotFound, id)
	}
	return n, nil
}

// CreateNode appends a node built from spec. A missing document is created
// with the default name first.
func (s *CanvasService) CreateNode(ctx context.Context, path string, spec domain.NodeSpec) (*domain.Node, error) {
	doc, err := s.docs.Load(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		doc, err = domain.NewDocument(domain.DefaultName), nil
	}
	if err != nil {
		return nil, err
	}

	n, err := doc.CreateNode(spec)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, path, doc); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNode merges fields into the node with the given id.
func (s *CanvasService) UpdateNode(ctx context.Context, path, id string, fields *domain.Props) (*domain.Node, error) {
	doc, err := s.docs.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	n, err := doc.UpdateNode(id, fields)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, path, doc); err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNodes removes the listed nodes. Ids that match nothing are reported,
// not treated as errors; the document is saved either way.
func (s *CanvasService) DeleteNodes(ctx context.Context, path string, ids []string) (*DeleteResult, error) {
	doc, err := s.docs.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	deleted := doc.DeleteNodes(ids)
	removed := make(map[string]bool, len(deleted))
	for _, id := range deleted {
		removed[id] = true
	}
	notFound := []string{}
	for _, id := range ids {
		if !removed[id] {
			notFound = append(notFound, id)
		}
	}

	if err := s.save(ctx, path, doc); err != nil {
		return nil, err
	}
	return &DeleteResult{Deleted: deleted, NotFound: notFound}, nil
}
