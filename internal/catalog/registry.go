// Package catalog owns the live card registry: the process-scoped map
// from card id to its runnable form. It is initialized exactly once per
// process by Rebuild and mutated only through Save, Delete and
// RegisterCardType; the render path reads it through Lookup. There is no
// ambient global instance.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cardsmith/internal/card"
	"cardsmith/internal/compiler"
	"cardsmith/internal/logging"
	"cardsmith/internal/runtime"
	"cardsmith/internal/store"
)

// Embedder produces the similarity vector for a card's descriptive text.
// Satisfied by the aigen clients.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Entry is one registered card, ready for the render path. Component is
// nil for declarative cards, which render through the generic engine.
// Callers must treat the definition as read-only; ListAll hands out
// private clones for anything that wants to mutate.
type Entry struct {
	def       *card.Definition
	component *runtime.Component
	width     int
}

// Definition returns the registered definition snapshot.
func (e *Entry) Definition() *card.Definition { return e.def }

// Component returns the sandboxed instance, or nil for declarative cards.
func (e *Entry) Component() *runtime.Component { return e.component }

// Width returns the grid span the card is mounted with.
func (e *Entry) Width() int { return e.width }

// Tier returns the registered definition's tier.
func (e *Entry) Tier() card.Tier { return e.def.Tier }

// Config wires the catalog's collaborators. Store is required; the
// similarity pair is optional and degrades to "no similar cards".
type Config struct {
	Store      *store.CardStore
	Similarity *store.SimilarityStore
	Embedder   Embedder

	// MaxSourceBytes overrides the compiler's source size cap when
	// positive.
	MaxSourceBytes int
}

// Catalog is the card registry plus its mutation pipeline. All heavy
// work (validation, compilation, instantiation, persistence) happens
// off-lock; the write lock is held only for the final map swap, so
// render-path reads never block on an in-flight save.
type Catalog struct {
	store    *store.CardStore
	sims     *store.SimilarityStore
	embedder Embedder
	compiler *compiler.Compiler
	factory  *runtime.Factory

	mu      sync.RWMutex
	entries map[string]*Entry           // registered, mountable cards
	defs    map[string]*card.Definition // every known definition, load-error ones included
}

// New creates an empty catalog. Call Rebuild to load persisted
// definitions before serving lookups.
func New(cfg Config) (*Catalog, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog requires a card store")
	}
	comp := compiler.New()
	if cfg.MaxSourceBytes > 0 {
		comp.MaxSourceBytes = cfg.MaxSourceBytes
	}
	return &Catalog{
		store:    cfg.Store,
		sims:     cfg.Similarity,
		embedder: cfg.Embedder,
		compiler: comp,
		factory:  runtime.NewFactory(),
		entries:  make(map[string]*Entry),
		defs:     make(map[string]*card.Definition),
	}, nil
}

// Save validates, compiles (code tier), instantiates and persists a
// definition, then publishes it to the registry in one swap. Any failure
// before the swap persists nothing and registers nothing: on an edit the
// previously working definition stays untouched and mounted. Returns the
// finalized definition.
func (c *Catalog) Save(ctx context.Context, submitted *card.Definition) (*card.Definition, error) {
	if submitted == nil {
		return nil, card.NewValidationError("", "definition is nil")
	}
	def := submitted.Clone()

	prev := c.definition(def.ID)
	if prev == nil && def.ID != "" {
		// Not in memory (e.g. saved by another process); the store is
		// still authoritative for edit semantics.
		if stored, err := c.store.Get(def.ID); err == nil {
			prev = stored
		}
	}

	card.Normalize(def)
	if err := card.Validate(def, prev); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if def.ID == "" {
		def.ID = card.NewID(def.Tier, now)
	}
	def.CreatedAt = now
	if prev != nil {
		def.CreatedAt = prev.CreatedAt
	}
	def.UpdatedAt = now
	def.LoadError = ""

	var component *runtime.Component
	if def.Tier == card.TierCode {
		if err := c.prepareCode(def, prev); err != nil {
			var cerr *card.CompileError
			if errors.As(err, &cerr) {
				logging.AuditCompileRejected(def.ID, len(cerr.Findings))
			}
			return nil, err
		}
		comp, err := c.factory.Instantiate(def.Code.CompiledCode)
		if err != nil {
			return nil, err
		}
		component = comp
	}

	if err := c.store.Save(def); err != nil {
		return nil, fmt.Errorf("failed to persist card %s: %w", def.ID, err)
	}

	c.mu.Lock()
	c.defs[def.ID] = def
	c.entries[def.ID] = &Entry{def: def, component: component, width: def.DefaultWidth}
	c.mu.Unlock()

	logging.Catalog("Saved card %s (tier=%s, title=%q)", def.ID, def.Tier, def.Title)
	logging.AuditCardSaved(def.ID, string(def.Tier))
	c.indexDefinition(ctx, def)

	return def.Clone(), nil
}

// prepareCode fills the definition's compiled artifact: reused from prev
// when the source is unchanged, recompiled otherwise. Submitted
// CompiledCode is never trusted.
func (c *Catalog) prepareCode(def *card.Definition, prev *card.Definition) error {
	if prev != nil && prev.Code != nil &&
		prev.Code.SourceCode == def.Code.SourceCode && prev.Code.CompiledCode != "" {
		def.Code.CompiledCode = prev.Code.CompiledCode
		def.Code.SourceHash = prev.Code.SourceHash
		logging.CatalogDebug("Source unchanged for %s, reusing compiled artifact", def.ID)
		return nil
	}

	artifact, err := c.compiler.Compile(def.Code.SourceCode)
	if err != nil {
		return err
	}
	def.Code.CompiledCode = artifact.Code
	def.Code.SourceHash = artifact.SourceHash
	return nil
}

// Delete removes a definition from storage, the registry and the
// similarity index. Deleting an unknown id returns ErrUnknownCardType;
// later lookups of the id behave the same way.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(id); err != nil {
		if errors.Is(err, card.ErrNotFound) {
			return fmt.Errorf("%w: %s", card.ErrUnknownCardType, id)
		}
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}

	c.mu.Lock()
	delete(c.defs, id)
	delete(c.entries, id)
	c.mu.Unlock()

	if c.sims != nil {
		if err := c.sims.DeleteEmbedding(id); err != nil {
			logging.CatalogWarn("Failed to drop embedding for deleted card %s: %v", id, err)
		}
	}

	logging.Catalog("Deleted card %s", id)
	logging.AuditCardDeleted(id)
	return nil
}

// ListAll returns a snapshot of every known definition, load-error ones
// included, sorted by creation time (id as tiebreak). The clones are the
// caller's to mutate.
func (c *Catalog) ListAll() []*card.Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]*card.Definition, 0, len(c.defs))
	for _, def := range c.defs {
		defs = append(defs, def.Clone())
	}
	sort.Slice(defs, func(i, j int) bool {
		if !defs[i].CreatedAt.Equal(defs[j].CreatedAt) {
			return defs[i].CreatedAt.Before(defs[j].CreatedAt)
		}
		return defs[i].ID < defs[j].ID
	})
	return defs
}

// RegisterCardType mounts a known card id at the given width. Repeating
// a registration with the same width is a no-op; a different width
// updates the single entry in place. Unknown ids fail with
// ErrUnknownCardType, definitions stuck in load-error state report that
// error instead of registering.
func (c *Catalog) RegisterCardType(id string, width int) error {
	if !card.ValidWidth(width) {
		return card.NewValidationError("defaultWidth", "width %d is not one of %v", width, card.ValidWidths)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[id]; ok {
		if entry.width != width {
			logging.CatalogDebug("Card %s width %d -> %d", id, entry.width, width)
			entry.width = width
		}
		return nil
	}

	def, ok := c.defs[id]
	if !ok {
		return fmt.Errorf("%w: %s", card.ErrUnknownCardType, id)
	}
	return fmt.Errorf("card %s failed to load and cannot be mounted: %s", id, def.LoadError)
}

// Lookup resolves a registered card for the render path. Unknown ids
// return ErrUnknownCardType; the host skips that slot with a warning
// rather than failing the frame.
func (c *Catalog) Lookup(id string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", card.ErrUnknownCardType, id)
	}
	return entry, nil
}

// Count returns the number of registered (mountable) cards.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Similar returns the ids of stored cards nearest to the given card in
// the similarity index, best match first. Best-effort: an empty result
// means the index is disabled, the card has no embedding yet, or the
// lookup failed (logged, never fatal).
func (c *Catalog) Similar(id string, limit int) []store.Neighbor {
	if c.sims == nil {
		return nil
	}
	vec, err := c.sims.Embedding(id)
	if err != nil {
		logging.CatalogWarn("Failed to read embedding for %s: %v", id, err)
		return nil
	}
	if vec == nil {
		return nil
	}
	neighbors, err := c.sims.Nearest(vec, id, limit)
	if err != nil {
		logging.CatalogWarn("Similarity search for %s failed: %v", id, err)
		return nil
	}

	// The index may lag deletes; only report cards that still exist.
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := neighbors[:0]
	for _, n := range neighbors {
		if _, ok := c.defs[n.CardID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// definition returns the live stored definition for id, or nil.
func (c *Catalog) definition(id string) *card.Definition {
	if id == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defs[id]
}

// indexDefinition refreshes the card's similarity embedding. Best-effort:
// generation failures are logged and never fail the save they follow.
func (c *Catalog) indexDefinition(ctx context.Context, def *card.Definition) {
	if c.embedder == nil || c.sims == nil {
		return
	}
	vec, err := c.embedder.Embed(ctx, embedText(def))
	if err != nil {
		logging.CatalogWarn("Failed to embed card %s: %v", def.ID, err)
		return
	}
	if err := c.sims.UpsertEmbedding(def.ID, vec); err != nil {
		logging.CatalogWarn("Failed to index card %s: %v", def.ID, err)
	}
}

// embedText is the similarity document for a definition: title,
// description and, for declarative cards, the column fields.
func embedText(def *card.Definition) string {
	parts := []string{def.Title}
	if def.Description != "" {
		parts = append(parts, def.Description)
	}
	if def.Declarative != nil {
		for _, col := range def.Declarative.Columns {
			parts = append(parts, col.Field)
		}
	}
	return strings.Join(parts, "\n")
}
