package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// debounceDelay coalesces the burst of events a single save produces.
const debounceDelay = 500 * time.Millisecond

// ─────────────────────────────────────────────────────────────
// LibraryWatcher: notices documents changed by other processes
// ─────────────────────────────────────────────────────────────

// LibraryWatcher reconciles the library on a cron schedule and, for file
// backed libraries, watches the canvases directory so edits made outside the
// app (by the MCP server, for instance) reach the frontend as
// canvas:changed events.
type LibraryWatcher struct {
	lib     *LibraryService
	emitter EventEmitter

	mu        sync.Mutex
	cancel    context.CancelFunc
	watcher   *fsnotify.Watcher
	cronSched *cron.Cron
	wg        sync.WaitGroup
}

// NewLibraryWatcher creates a stopped watcher for lib.
func NewLibraryWatcher(lib *LibraryService, emitter EventEmitter) *LibraryWatcher {
	return &LibraryWatcher{lib: lib, emitter: emitter}
}

// Start schedules reconciliation with the cron expression schedule (empty
// disables it) and, if watchFiles is set, starts watching the canvases
// directory. Calling Start again restarts both.
func (w *LibraryWatcher) Start(ctx context.Context, schedule string, watchFiles bool) error {
	w.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(schedule, func() {
			if _, err := w.lib.Reconcile(watchCtx); err != nil {
				log.Printf("library cron: reconcile failed: %v", err)
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
		}
		c.Start()
		w.cronSched = c
		log.Printf("library cron: reconciling %s", schedule)
	}

	if !watchFiles {
		return nil
	}

	if err := os.MkdirAll(w.lib.Dir(), 0755); err != nil {
		return fmt.Errorf("create canvases dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.lib.Dir()); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", w.lib.Dir(), err)
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.loop(watchCtx, watcher)

	log.Printf("library watcher: watching %s", w.lib.Dir())
	return nil
}

func (w *LibraryWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()

	// Each armed timer holds a count on w.wg until it fires or is stopped,
	// so Stop also waits for callbacks already running.
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			if t.Stop() {
				w.wg.Done()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			id, ok := w.lib.CanvasID(event.Name)
			if !ok {
				continue
			}
			if t, exists := timers[id]; exists && t.Stop() {
				w.wg.Done()
			}
			cid := id
			w.wg.Add(1)
			timers[id] = time.AfterFunc(debounceDelay, func() {
				defer w.wg.Done()
				if ctx.Err() != nil {
					return
				}
				w.documentChanged(ctx, cid)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("library watcher: error: %v", err)
		}
	}
}

// documentChanged registers an unknown canvas and tells the frontend the
// document changed.
func (w *LibraryWatcher) documentChanged(ctx context.Context, id string) {
	exists, err := w.lib.canvases.CanvasExists(id)
	if err == nil && !exists {
		if _, err := w.lib.Reconcile(ctx); err != nil {
			log.Printf("library watcher: reconcile failed: %v", err)
		}
	}
	w.emitter.Emit(ctx, EventCanvasChanged, id)
}

// Stop tears down the watcher and the schedule and waits for the event loop
// and any running debounce callback to finish.
func (w *LibraryWatcher) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
	if w.cronSched != nil {
		<-w.cronSched.Stop().Done()
		w.cronSched = nil
	}
	w.mu.Unlock()

	w.wg.Wait()
}
