package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"cardsmith/internal/card"
	"cardsmith/internal/scope"
	"cardsmith/internal/store"
)

const counterSource = `func Render(c *Card) (string, error) {
	return Sprintf("%s: %d rows", c.Title(), len(c.Rows())), nil
}`

func newTestStore(t *testing.T) *store.CardStore {
	t.Helper()
	cs, err := store.NewCardStore(filepath.Join(t.TempDir(), "cards.db"))
	if err != nil {
		t.Fatalf("Failed to create card store: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func newTestCatalog(t *testing.T, cs *store.CardStore) *Catalog {
	t.Helper()
	cat, err := New(Config{Store: cs})
	if err != nil {
		t.Fatalf("Failed to create catalog: %v", err)
	}
	return cat
}

func counterCard() *card.Definition {
	return &card.Definition{
		Title: "Counter",
		Tier:  card.TierCode,
		Code:  &card.CodePayload{SourceCode: counterSource},
	}
}

func listCard(title string) *card.Definition {
	return &card.Definition{
		Title:        title,
		Tier:         card.TierDeclarative,
		DefaultWidth: 6,
		Declarative: &card.DeclarativePayload{
			DataSource: card.DataSourceStatic,
			StaticData: []card.Row{{"name": "item-1"}},
			Columns:    []card.Column{{Field: "name", Label: "Name"}},
			Layout:     card.LayoutList,
		},
	}
}

func TestSaveCodeCardEndToEnd(t *testing.T) {
	cat := newTestCatalog(t, newTestStore(t))

	saved, err := cat.Save(context.Background(), counterCard())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !strings.HasPrefix(saved.ID, "t2-") {
		t.Errorf("ID = %q, want a t2- id", saved.ID)
	}
	if saved.DefaultWidth != card.DefaultWidth {
		t.Errorf("DefaultWidth = %d, want normalized %d", saved.DefaultWidth, card.DefaultWidth)
	}
	if saved.Code.CompiledCode == "" {
		t.Error("CompiledCode is empty after a successful save")
	}
	if len(saved.Code.SourceHash) != 64 {
		t.Errorf("SourceHash = %q, want a sha256 hex digest", saved.Code.SourceHash)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Error("Timestamps not assigned on create")
	}

	entry, err := cat.Lookup(saved.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Component() == nil {
		t.Fatal("Code card registered without a component")
	}
	out, err := entry.Component().Render(scope.NewCard("Counter", 6, []map[string]any{{"n": 1}, {"n": 2}}, nil))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Counter: 2 rows" {
		t.Errorf("Render = %q, want %q", out, "Counter: 2 rows")
	}
}

func TestSaveBadSourcePersistsNothing(t *testing.T) {
	cs := newTestStore(t)
	cat := newTestCatalog(t, cs)

	_, err := cat.Save(context.Background(), &card.Definition{
		Title: "Bad",
		Tier:  card.TierCode,
		Code:  &card.CodePayload{SourceCode: "func( {"},
	})
	var cerr *card.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("Save returned %T (%v), want *card.CompileError", err, err)
	}
	if cerr.Error() == "" {
		t.Error("Compile error has an empty message")
	}

	if cat.Count() != 0 {
		t.Errorf("Registry has %d entries after a failed save, want 0", cat.Count())
	}
	defs, err := cs.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("Store has %d definitions after a failed save, want 0", len(defs))
	}
}

func TestSaveDeclarativeNeverCompiles(t *testing.T) {
	cat := newTestCatalog(t, newTestStore(t))

	saved, err := cat.Save(context.Background(), listCard("Items"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Tier != card.TierDeclarative {
		t.Errorf("Tier = %s, want declarative", saved.Tier)
	}
	if saved.Code != nil {
		t.Error("Declarative save grew a code payload")
	}

	entry, err := cat.Lookup(saved.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Component() != nil {
		t.Error("Declarative card has a sandbox component; it must render host-side only")
	}
}

func TestSaveAtomicOnEditFailure(t *testing.T) {
	cs := newTestStore(t)
	cat := newTestCatalog(t, cs)

	saved, err := cat.Save(context.Background(), counterCard())
	if err != nil {
		t.Fatalf("Initial save failed: %v", err)
	}

	edit := saved.Clone()
	edit.Code.SourceCode = "func Broken( {"
	if _, err := cat.Save(context.Background(), edit); err == nil {
		t.Fatal("Save of broken edit succeeded")
	}

	// The working definition must still be registered and stored.
	entry, err := cat.Lookup(saved.ID)
	if err != nil {
		t.Fatalf("Lookup after failed edit: %v", err)
	}
	out, err := entry.Component().Render(scope.NewCard("Counter", 6, nil, nil))
	if err != nil {
		t.Fatalf("Render after failed edit: %v", err)
	}
	if out != "Counter: 0 rows" {
		t.Errorf("Render = %q, want the original behavior", out)
	}

	stored, err := cs.Get(saved.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Code.SourceCode != counterSource {
		t.Error("Failed edit leaked into the store")
	}
}

func TestSaveReusesArtifactWhenSourceUnchanged(t *testing.T) {
	cat := newTestCatalog(t, newTestStore(t))

	saved, err := cat.Save(context.Background(), counterCard())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	edit := saved.Clone()
	edit.Title = "Counter v2"
	edit.Code.CompiledCode = "// tampered" // submitted artifacts are never trusted
	resaved, err := cat.Save(context.Background(), edit)
	if err != nil {
		t.Fatalf("Re-save failed: %v", err)
	}

	if resaved.Title != "Counter v2" {
		t.Errorf("Title = %q, want the edited title", resaved.Title)
	}
	if resaved.Code.CompiledCode != saved.Code.CompiledCode {
		t.Error("Unchanged source did not reuse the compiled artifact")
	}
	if resaved.Code.SourceHash != saved.Code.SourceHash {
		t.Error("Unchanged source changed the source hash")
	}
	if !resaved.CreatedAt.Equal(saved.CreatedAt) {
		t.Error("Re-save rewrote CreatedAt")
	}
	if !resaved.UpdatedAt.After(saved.UpdatedAt) && !resaved.UpdatedAt.Equal(saved.UpdatedAt) {
		t.Error("Re-save moved UpdatedAt backwards")
	}
}

func TestSaveValidationErrors(t *testing.T) {
	cs := newTestStore(t)
	cat := newTestCatalog(t, cs)

	tests := []struct {
		name      string
		def       *card.Definition
		wantField string
	}{
		{
			name:      "missing title",
			def:       &card.Definition{Tier: card.TierCode, Code: &card.CodePayload{SourceCode: counterSource}},
			wantField: "title",
		},
		{
			name:      "code without source",
			def:       &card.Definition{Title: "Empty", Tier: card.TierCode, Code: &card.CodePayload{}},
			wantField: "sourceCode",
		},
		{
			name:      "declarative without columns",
			def:       &card.Definition{Title: "NoCols", Tier: card.TierDeclarative, Declarative: &card.DeclarativePayload{DataSource: card.DataSourceStatic, StaticData: []card.Row{}}},
			wantField: "columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cat.Save(context.Background(), tt.def)
			var verr *card.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Save returned %T (%v), want *card.ValidationError", err, err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}

	defs, err := cs.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("Validation failures persisted %d definitions", len(defs))
	}
}

func TestSaveTierIsImmutable(t *testing.T) {
	cat := newTestCatalog(t, newTestStore(t))

	saved, err := cat.Save(context.Background(), listCard("Items"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	flip := counterCard()
	flip.ID = saved.ID
	_, err = cat.Save(context.Background(), flip)
	var verr *card.ValidationError
	if !errors.As(err, &verr) || verr.Field != "tier" {
		t.Errorf("Tier flip returned %v, want a tier validation error", err)
	}
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	cs := newTestStore(t)
	cat := newTestCatalog(t, cs)

	saved, err := cat.Save(context.Background(), counterCard())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := cat.Delete(context.Background(), saved.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := cat.Lookup(saved.ID); !errors.Is(err, card.ErrUnknownCardType) {
		t.Errorf("Lookup after delete returned %v, want ErrUnknownCardType", err)
	}
	if n := len(cat.ListAll()); n != 0 {
		t.Errorf("ListAll has %d definitions after delete, want 0", n)
	}
	if _, err := cs.Get(saved.ID); !errors.Is(err, card.ErrNotFound) {
		t.Errorf("Store still has the definition: %v", err)
	}
	if err := cat.Delete(context.Background(), saved.ID); !errors.Is(err, card.ErrUnknownCardType) {
		t.Errorf("Second delete returned %v, want ErrUnknownCardType", err)
	}
}

func TestRegisterCardTypeIdempotent(t *testing.T) {
	cat := newTestCatalog(t, newTestStore(t))

	saved, err := cat.Save(context.Background(), listCard("Items"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := cat.RegisterCardType(saved.ID, saved.DefaultWidth); err != nil {
		t.Fatalf("Same-width registration failed: %v", err)
	}
	if cat.Count() != 1 {
		t.Errorf("Count = %d after idempotent registration, want 1", cat.Count())
	}

	if err := cat.RegisterCardType(saved.ID, 8); err != nil {
		t.Fatalf("Width update failed: %v", err)
	}
	entry, err := cat.Lookup(saved.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Width() != 8 {
		t.Errorf("Width = %d after update, want 8", entry.Width())
	}

	if err := cat.RegisterCardType("t1-missing", 6); !errors.Is(err, card.ErrUnknownCardType) {
		t.Errorf("Unknown-id registration returned %v, want ErrUnknownCardType", err)
	}
	var verr *card.ValidationError
	if err := cat.RegisterCardType(saved.ID, 5); !errors.As(err, &verr) {
		t.Errorf("Off-grid width returned %v, want a validation error", err)
	}
}

func TestRebuildRestoresFromStore(t *testing.T) {
	cs := newTestStore(t)
	first := newTestCatalog(t, cs)

	code, err := first.Save(context.Background(), counterCard())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	decl, err := first.Save(context.Background(), listCard("Items"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Fresh process: a new catalog over the same database.
	second := newTestCatalog(t, cs)
	if err := second.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if second.Count() != 2 {
		t.Fatalf("Count = %d after rebuild, want 2", second.Count())
	}
	entry, err := second.Lookup(code.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	out, err := entry.Component().Render(scope.NewCard("Counter", 6, nil, nil))
	if err != nil {
		t.Fatalf("Render after rebuild failed: %v", err)
	}
	if out != "Counter: 0 rows" {
		t.Errorf("Render = %q after rebuild", out)
	}
	if _, err := second.Lookup(decl.ID); err != nil {
		t.Errorf("Declarative card missing after rebuild: %v", err)
	}
}

func TestRebuildRecompilesMissingArtifact(t *testing.T) {
	cs := newTestStore(t)

	// A definition persisted without its artifact (e.g. written by an
	// older build).
	def := counterCard()
	def.ID = "t2-1-seed"
	if err := cs.Save(def); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	cat := newTestCatalog(t, cs)
	if err := cat.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	entry, err := cat.Lookup("t2-1-seed")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Component() == nil {
		t.Fatal("Recompiled card has no component")
	}

	// The fresh artifact must be cached back so the next start is fast.
	stored, err := cs.Get("t2-1-seed")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Code.CompiledCode == "" {
		t.Error("Recompiled artifact was not persisted")
	}
}

func TestRebuildMarksLoadError(t *testing.T) {
	cs := newTestStore(t)

	def := &card.Definition{
		ID:           "t2-2-broken",
		Title:        "Broken",
		Tier:         card.TierCode,
		DefaultWidth: 6,
		Code:         &card.CodePayload{SourceCode: "func( {", CompiledCode: "garbage"},
	}
	if err := cs.Save(def); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	cat := newTestCatalog(t, cs)
	if err := cat.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if _, err := cat.Lookup("t2-2-broken"); !errors.Is(err, card.ErrUnknownCardType) {
		t.Errorf("Broken card is registered: %v", err)
	}

	defs := cat.ListAll()
	if len(defs) != 1 {
		t.Fatalf("ListAll = %d definitions, want the broken one kept", len(defs))
	}
	if defs[0].LoadError == "" {
		t.Error("LoadError not set on the failed definition")
	}

	if err := cat.RegisterCardType("t2-2-broken", 6); err == nil {
		t.Error("Registering a load-error card succeeded")
	}
}

type fakeEmbedder struct {
	vecs map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	title, _, _ := strings.Cut(text, "\n")
	vec, ok := f.vecs[title]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", title)
	}
	return vec, nil
}

func TestSimilarFindsNearestCards(t *testing.T) {
	cs := newTestStore(t)
	sims, err := store.NewSimilarityStore(filepath.Join(t.TempDir(), "similarity.db"))
	if err != nil {
		t.Fatalf("Failed to create similarity store: %v", err)
	}
	t.Cleanup(func() { sims.Close() })

	embedder := &fakeEmbedder{vecs: map[string][]float32{
		"CPU Usage": {1, 0},
		"CPU Load":  {0.9, 0.1},
		"Revenue":   {0, 1},
	}}
	cat, err := New(Config{Store: cs, Similarity: sims, Embedder: embedder})
	if err != nil {
		t.Fatalf("Failed to create catalog: %v", err)
	}

	ctx := context.Background()
	usage, err := cat.Save(ctx, listCard("CPU Usage"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	load, err := cat.Save(ctx, listCard("CPU Load"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := cat.Save(ctx, listCard("Revenue")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := cat.Similar(usage.ID, 5)
	if len(got) != 2 {
		t.Fatalf("Similar returned %d neighbors, want 2", len(got))
	}
	if got[0].CardID != load.ID {
		t.Errorf("Nearest neighbor = %s, want the other CPU card", got[0].CardID)
	}

	if got := cat.Similar("t1-unknown", 5); got != nil {
		t.Errorf("Similar for an unindexed id = %v, want nil", got)
	}

	// Deleted cards drop out of the results.
	if err := cat.Delete(ctx, load.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got = cat.Similar(usage.ID, 5)
	for _, n := range got {
		if n.CardID == load.ID {
			t.Error("Similar still returns a deleted card")
		}
	}
}
