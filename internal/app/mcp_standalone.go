package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"easel/internal/config"
	mcpserver "easel/internal/mcp"
	"easel/internal/service"
	"easel/internal/storage"
)

// ServeMCP runs easel as a standalone MCP server on stdin/stdout with no GUI.
// Logs go to stderr so stdout stays clean for JSON-RPC.
func ServeMCP(cfg config.Config) error {
	log.SetOutput(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	canvas, closeFn, err := OpenCanvasService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{Canvas: canvas})

	log.Println("[MCP] Starting standalone stdio server...")
	return mcpSrv.ServeStdio()
}

// openGateway returns the document gateway for the configured profile. The
// file profile needs no database, so the metadata store is only opened for
// the sql and mongo profiles.
func openGateway(ctx context.Context, cfg config.Config) (service.DocumentStore, func(), error) {
	if cfg.DocumentStore == config.StoreFile {
		return storage.NewFileStore(), func() {}, nil
	}
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open document store: %w", err)
	}
	return backend.Docs, func() {
		if err := backend.Close(context.Background()); err != nil {
			log.Printf("[MCP] close backend: %v", err)
		}
	}, nil
}

// OpenCanvasService opens the configured document store for one-shot
// callers such as the CLI. The returned func releases it.
func OpenCanvasService(ctx context.Context, cfg config.Config) (*service.CanvasService, func(), error) {
	gateway, closeFn, err := openGateway(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return service.NewCanvasService(gateway), closeFn, nil
}
