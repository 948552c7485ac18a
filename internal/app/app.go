package app

import (
	"context"
	"fmt"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"easel/internal/config"
	"easel/internal/service"
	"easel/internal/storage"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context

	backend *Backend
	library *service.LibraryService
	chats   *service.ChatService
	prefs   *service.PreferencesService
	watcher *service.LibraryWatcher
}

// New creates a new App.
func New() *App {
	return &App{}
}

// wailsEmitter forwards service events to the frontend.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	cfg, err := config.Load()
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load config: %v", err)
		return
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open storage: %v", err)
		return
	}

	if err := a.start(ctx, backend, wailsEmitter{}); err != nil {
		wailsRuntime.LogErrorf(ctx, "Startup: %v", err)
	}

	size := a.prefs.LoadWindowSize()
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)
	wailsRuntime.LogInfof(ctx, "Library ready at %s", backend.Config.CanvasDir())
}

// BeforeClose saves the window size. It never prevents closing.
func (a *App) BeforeClose(ctx context.Context) bool {
	if a.prefs != nil {
		w, h := wailsRuntime.WindowGetSize(ctx)
		if err := a.prefs.SaveWindowSize(w, h); err != nil {
			wailsRuntime.LogErrorf(ctx, "Save window size: %v", err)
		}
	}
	return false
}

// start wires the services over backend. Errors from the legacy migration
// and the watcher are returned after the services are usable.
func (a *App) start(ctx context.Context, backend *Backend, emitter service.EventEmitter) error {
	a.ctx = ctx
	a.backend = backend
	a.library = service.NewLibraryService(
		backend.Canvases,
		backend.Chats,
		backend.Docs,
		backend.DB,
		backend.Config.CanvasDir(),
		emitter,
	)
	a.chats = service.NewChatService(backend.Chats)
	a.prefs = service.NewPreferencesService(storage.NewSettingsStore(backend.DB))

	if err := a.library.Init(ctx); err != nil {
		return fmt.Errorf("migrate legacy canvases: %w", err)
	}

	a.watcher = service.NewLibraryWatcher(a.library, emitter)
	if err := a.watcher.Start(ctx, backend.Config.ReconcileSchedule, backend.WatchesFiles()); err != nil {
		return fmt.Errorf("start library watcher: %w", err)
	}
	return nil
}

// Shutdown is called when the app is closing. In-flight document writes
// get a few seconds to finish before the database is closed.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.library != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		a.library.WaitIdle(waitCtx)
		cancel()
	}
	if a.backend != nil {
		a.backend.Close(ctx)
	}
}
