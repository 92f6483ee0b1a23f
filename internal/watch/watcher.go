// Package watch hot-reloads card source files. It observes a directory
// for *.card.go files and submits every settled write through the
// catalog's save pipeline, so an author can develop a code card in their
// editor and see it mount on the dashboard without touching the UI.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cardsmith/internal/card"
	"cardsmith/internal/catalog"
	"cardsmith/internal/logging"
)

// Suffix marks files the watcher cares about.
const Suffix = ".card.go"

// Watcher submits changed card source files to the catalog.
type Watcher struct {
	catalog *catalog.Catalog
	dir     string

	// onSave is called with the card id after a successful save; the UI
	// hooks a refresh message in here. May be nil.
	onSave func(id string)

	mu          sync.Mutex
	fsw         *fsnotify.Watcher
	debounce    map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// New creates a watcher over dir. The directory does not have to exist
// yet; Start creates it.
func New(cat *catalog.Catalog, dir string, debounce time.Duration, onSave func(id string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		catalog:     cat,
		dir:         dir,
		onSave:      onSave,
		fsw:         fsw,
		debounce:    make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a
// goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		logging.WatchWarn("Failed to create watch dir %s: %v (continuing anyway)", w.dir, err)
	}
	if err := w.fsw.Add(w.dir); err != nil {
		logging.WatchWarn("Initial watch of %s failed: %v", w.dir, err)
	} else {
		logging.Watch("Watching %s for %s files", w.dir, Suffix)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		logging.WatchWarn("Error closing watcher: %v", err)
	}
	logging.Watch("Watcher stopped")
}

// Running reports whether the event loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.WatchWarn("Watcher error: %v", err)

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

// handleEvent records a relevant event for debounced processing. Editors
// fire bursts of writes per save; only the settle time matters.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, Suffix) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	w.mu.Lock()
	w.debounce[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled submits every file whose last event is older than the
// debounce window.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, last := range w.debounce {
		if now.Sub(last) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounce, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.submit(ctx, path)
	}
}

// submit reads a source file and saves it as a code card. The file name
// is the card identity: a second write to the same file updates the card
// it created.
func (w *Watcher) submit(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		logging.WatchWarn("Failed to read %s: %v", path, err)
		return
	}

	title := strings.TrimSuffix(filepath.Base(path), Suffix)

	def := w.existingByTitle(title)
	if def != nil {
		def.Code.SourceCode = string(content)
	} else {
		def = &card.Definition{
			Title: title,
			Tier:  card.TierCode,
			Code:  &card.CodePayload{SourceCode: string(content)},
		}
	}

	saved, err := w.catalog.Save(ctx, def)
	if err != nil {
		logging.WatchWarn("Card source %s rejected: %v", filepath.Base(path), err)
		return
	}

	logging.Watch("Card %s saved from %s", saved.ID, filepath.Base(path))
	if w.onSave != nil {
		w.onSave(saved.ID)
	}
}

// existingByTitle finds the code card a file previously created, so
// repeat writes update it in place and keep its width and description.
func (w *Watcher) existingByTitle(title string) *card.Definition {
	for _, def := range w.catalog.ListAll() {
		if def.Tier == card.TierCode && def.Title == title {
			return def
		}
	}
	return nil
}
