//go:build integration

package watch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cardsmith/internal/card"
)

// Exercises the real fsnotify event path; behind a build tag because it
// depends on filesystem event timing.

func waitForSave(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the watcher to save")
		return ""
	}
}

func TestWatcherSavesAndUpdatesCard(t *testing.T) {
	cat := newWatchCatalog(t)
	dir := t.TempDir()

	savedCh := make(chan string, 8)
	w, err := New(cat, dir, 50*time.Millisecond, func(id string) { savedCh <- id })
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "uptime.card.go"), validSource)
	id := waitForSave(t, savedCh)

	entry, err := cat.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Definition().Title != "uptime" {
		t.Errorf("Title = %q, want the file stem", entry.Definition().Title)
	}
	if entry.Tier() != card.TierCode {
		t.Errorf("Tier = %s, want code", entry.Tier())
	}

	// A second write to the same file updates the card it created.
	writeFile(t, filepath.Join(dir, "uptime.card.go"), validSource+"\n")
	second := waitForSave(t, savedCh)
	if second != id {
		t.Errorf("Second save created card %s, want update of %s", second, id)
	}
	if n := len(cat.ListAll()); n != 1 {
		t.Errorf("Catalog has %d cards after a repeat write, want 1", n)
	}
}
