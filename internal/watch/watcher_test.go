package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cardsmith/internal/catalog"
	"cardsmith/internal/store"
)

const validSource = `func Render(c *Card) (string, error) {
	return Sprintf("up %d", len(c.Rows())), nil
}`

func newWatchCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cs, err := store.NewCardStore(filepath.Join(t.TempDir(), "cards.db"))
	if err != nil {
		t.Fatalf("Failed to create card store: %v", err)
	}
	t.Cleanup(func() { cs.Close() })

	cat, err := catalog.New(catalog.Config{Store: cs})
	if err != nil {
		t.Fatalf("Failed to create catalog: %v", err)
	}
	return cat
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestSubmitRejectsBrokenSource(t *testing.T) {
	cat := newWatchCatalog(t)
	dir := t.TempDir()

	w, err := New(cat, dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { w.fsw.Close() })

	path := filepath.Join(dir, "broken.card.go")
	writeFile(t, path, "func( {")

	w.submit(context.Background(), path)

	if n := cat.Count(); n != 0 {
		t.Errorf("Broken source registered %d cards, want 0", n)
	}
}

func TestSubmitIgnoresMissingFile(t *testing.T) {
	cat := newWatchCatalog(t)
	dir := t.TempDir()

	w, err := New(cat, dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { w.fsw.Close() })

	w.submit(context.Background(), filepath.Join(dir, "gone.card.go"))

	if n := cat.Count(); n != 0 {
		t.Errorf("Missing file registered %d cards, want 0", n)
	}
}

func TestSubmitDerivesTitleFromFileName(t *testing.T) {
	cat := newWatchCatalog(t)
	dir := t.TempDir()

	w, err := New(cat, dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { w.fsw.Close() })

	path := filepath.Join(dir, "cpu_usage.card.go")
	writeFile(t, path, validSource)
	w.submit(context.Background(), path)

	defs := cat.ListAll()
	if len(defs) != 1 {
		t.Fatalf("Catalog has %d cards, want 1", len(defs))
	}
	if defs[0].Title != "cpu_usage" {
		t.Errorf("Title = %q, want cpu_usage", defs[0].Title)
	}
}

func TestWatcherStartStopIdempotent(t *testing.T) {
	cat := newWatchCatalog(t)
	dir := t.TempDir()

	w, err := New(cat, dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if !w.Running() {
		t.Error("Running = false after Start")
	}

	w.Stop()
	if w.Running() {
		t.Error("Running = true after Stop")
	}
	w.Stop() // second stop is a no-op
}
