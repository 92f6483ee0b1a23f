package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cardsmith/internal/card"
	"cardsmith/internal/logging"
	"cardsmith/internal/runtime"
)

// rebuildWorkers bounds concurrent instantiation during Rebuild. Each
// worker builds its own interpreter, so the limit caps peak memory, not
// correctness.
const rebuildWorkers = 4

// Rebuild loads every persisted definition and republishes the registry
// in one atomic swap. Declarative cards wrap directly into the generic
// renderer. Code cards re-instantiate from their cached compiled
// artifact; compilation is re-run only when the artifact is missing or
// the factory rejects it. A definition that still fails is kept with
// LoadError set and skipped from registration, never dropped silently.
func (c *Catalog) Rebuild(ctx context.Context) error {
	defs, err := c.store.List()
	if err != nil {
		return fmt.Errorf("failed to load card definitions: %w", err)
	}
	// Rows written by older builds may lack widths or layouts.
	for _, def := range defs {
		card.Normalize(def)
	}

	components := make([]*runtime.Component, len(defs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildWorkers)
	for i, def := range defs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if def.Tier != card.TierCode {
				return nil
			}
			components[i] = c.loadComponent(def)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	entries := make(map[string]*Entry, len(defs))
	known := make(map[string]*card.Definition, len(defs))
	failed := 0
	for i, def := range defs {
		known[def.ID] = def
		if def.LoadError != "" {
			failed++
			continue
		}
		entries[def.ID] = &Entry{def: def, component: components[i], width: def.DefaultWidth}
	}

	c.mu.Lock()
	c.entries = entries
	c.defs = known
	c.mu.Unlock()

	logging.Boot("Registry rebuilt: %d cards registered, %d in error state", len(entries), failed)
	return nil
}

// loadComponent restores a code card's sandboxed instance, recompiling
// from source when the cached artifact is unusable. On failure it sets
// def.LoadError and returns nil.
func (c *Catalog) loadComponent(def *card.Definition) *runtime.Component {
	blob := def.Code.CompiledCode

	if blob != "" {
		comp, err := c.factory.Instantiate(blob)
		if err == nil {
			return comp
		}
		logging.BootWarn("Cached artifact for %s rejected (%v), recompiling from source", def.ID, err)
	}

	artifact, err := c.compiler.Compile(def.Code.SourceCode)
	if err != nil {
		def.LoadError = err.Error()
		logging.BootWarn("Card %s failed to load: %v", def.ID, err)
		logging.AuditCardLoadFailed(def.ID, err)
		return nil
	}
	comp, err := c.factory.Instantiate(artifact.Code)
	if err != nil {
		def.LoadError = err.Error()
		logging.BootWarn("Card %s failed to load: %v", def.ID, err)
		logging.AuditCardLoadFailed(def.ID, err)
		return nil
	}

	// Cache the fresh artifact so the next start skips this path.
	def.Code.CompiledCode = artifact.Code
	def.Code.SourceHash = artifact.SourceHash
	if err := c.store.Save(def); err != nil {
		logging.BootWarn("Failed to persist recompiled artifact for %s: %v", def.ID, err)
	}
	return comp
}
