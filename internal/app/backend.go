package app

import (
	"context"
	"fmt"
	"log"

	"easel/internal/config"
	"easel/internal/service"
	"easel/internal/storage"
)

// Backend is the storage stack selected by Config: the metadata database
// plus the document gateway for the configured profile.
type Backend struct {
	Config   config.Config
	DB       *storage.DB
	Canvases *storage.CanvasStore
	Chats    *storage.ChatStore
	Docs     service.DocumentStore

	mongo *storage.MongoStore
}

// OpenBackend opens the metadata database and the document store. The
// caller owns the result and must Close it.
func OpenBackend(ctx context.Context, cfg config.Config) (*Backend, error) {
	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := &Backend{
		Config:   cfg,
		DB:       db,
		Canvases: storage.NewCanvasStore(db),
		Chats:    storage.NewChatStore(db),
	}

	switch cfg.DocumentStore {
	case config.StoreSQL:
		b.Docs = storage.NewDocStore(db)
	case config.StoreMongo:
		m, err := storage.OpenMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open document store: %w", err)
		}
		b.mongo = m
		b.Docs = m
	default:
		b.Docs = storage.NewFileStore()
	}

	log.Printf("[backend] documents=%s database=%s data=%s", cfg.DocumentStore, cfg.DBDriver, cfg.DataDir)
	return b, nil
}

// WatchesFiles reports whether documents live on the local filesystem and
// can be watched for external edits.
func (b *Backend) WatchesFiles() bool {
	return b.Config.WatchFiles && b.Config.DocumentStore == config.StoreFile
}

// Close releases the document store and the database.
func (b *Backend) Close(ctx context.Context) error {
	if b.mongo != nil {
		if err := b.mongo.Close(ctx); err != nil {
			log.Printf("[backend] close mongo: %v", err)
		}
	}
	return b.DB.Close()
}
