// Package store persists card definitions and their similarity embeddings
// to SQLite. CardStore is the system of record: the catalog registry is
// rebuilt from it on every start, so nothing in here is cache.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cardsmith/internal/card"
	"cardsmith/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is RFC3339 UTC at fixed millisecond precision. Constant
// width keeps ORDER BY created_at chronological.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// CardStore persists card definitions to SQLite.
//
// Storage location: <data dir>/cards.db
//
// Payload columns are tier-specific: declarative definitions keep their
// payload as JSON in declarative_json, code definitions keep the author
// source plus the cached compiled artifact. Exactly one side is
// populated per row.
type CardStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewCardStore opens (creating if needed) the definition database at dbPath.
func NewCardStore(dbPath string) (*CardStore, error) {
	logging.StoreDebug("Initializing CardStore at path: %s", dbPath)

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create CardStore directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open CardStore database at %s: %v", dbPath, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &CardStore{db: db, dbPath: dbPath}
	if err := store.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize CardStore schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("CardStore initialized at %s", dbPath)
	return store, nil
}

// initialize creates the database schema.
func (s *CardStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS card_definitions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		tier TEXT NOT NULL,
		default_width INTEGER NOT NULL DEFAULT 6,
		declarative_json TEXT,
		source_code TEXT,
		compiled_code TEXT,
		source_hash TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_card_definitions_tier ON card_definitions(tier);
	CREATE INDEX IF NOT EXISTS idx_card_definitions_created ON card_definitions(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save upserts a definition. An existing row keeps its original
// created_at, so re-saving a card never rewrites its creation history.
func (s *CardStore) Save(def *card.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.ID == "" {
		return fmt.Errorf("definition has no id")
	}

	row, err := payloadColumns(def)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdStr := now.Format(timeLayout)
	if !def.CreatedAt.IsZero() {
		createdStr = def.CreatedAt.UTC().Format(timeLayout)
	}
	updatedStr := now.Format(timeLayout)
	if !def.UpdatedAt.IsZero() {
		updatedStr = def.UpdatedAt.UTC().Format(timeLayout)
	}

	tx, err := s.db.Begin()
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to start save transaction for %s: %v", def.ID, err)
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var existingCreated string
	err = tx.QueryRow("SELECT created_at FROM card_definitions WHERE id = ?", def.ID).Scan(&existingCreated)
	switch {
	case err == nil:
		createdStr = existingCreated
	case errors.Is(err, sql.ErrNoRows):
		// first save for this id
	default:
		return err
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO card_definitions
		(id, title, description, tier, default_width, declarative_json,
		 source_code, compiled_code, source_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.Title, def.Description, string(def.Tier), def.DefaultWidth,
		row.declarativeJSON, row.sourceCode, row.compiledCode, row.sourceHash,
		createdStr, updatedStr,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save card definition %s: %v", def.ID, err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}

	logging.StoreDebug("Saved card definition: %s (tier=%s, title=%q)", def.ID, def.Tier, def.Title)
	return nil
}

// Get retrieves a definition by id. Returns card.ErrNotFound when no row
// matches.
func (s *CardStore) Get(id string) (*card.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r definitionRow
	err := s.db.QueryRow(`
		SELECT id, title, description, tier, default_width, declarative_json,
		       source_code, compiled_code, source_hash, created_at, updated_at
		FROM card_definitions WHERE id = ?`, id).Scan(r.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, card.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return r.toDefinition()
}

// List returns every stored definition ordered by creation time (id as a
// stable tiebreak). Rows that fail to scan or carry a corrupt payload
// are logged and skipped so one bad row cannot take down the catalog.
func (s *CardStore) List() ([]*card.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, title, description, tier, default_width, declarative_json,
		       source_code, compiled_code, source_hash, created_at, updated_at
		FROM card_definitions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*card.Definition
	for rows.Next() {
		var r definitionRow
		if err := rows.Scan(r.fields()...); err != nil {
			logging.Get(logging.CategoryStore).Warn("Skipping unreadable card row: %v", err)
			continue
		}
		def, err := r.toDefinition()
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Skipping corrupt card definition %s: %v", r.id, err)
			continue
		}
		defs = append(defs, def)
	}

	return defs, rows.Err()
}

// Delete removes a definition. Returns card.ErrNotFound when the id does
// not exist.
func (s *CardStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM card_definitions WHERE id = ?", id)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to delete card definition %s: %v", id, err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return card.ErrNotFound
	}

	logging.Store("Deleted card definition: %s", id)
	return nil
}

// Close closes the database connection.
func (s *CardStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		logging.Store("Closing CardStore at %s", s.dbPath)
		return s.db.Close()
	}
	return nil
}

// payloadRow carries the tier-specific column values for one definition.
type payloadRow struct {
	declarativeJSON string
	sourceCode      string
	compiledCode    string
	sourceHash      string
}

// payloadColumns splits a definition's payload into column values,
// rejecting definitions whose payload does not match their tier.
func payloadColumns(def *card.Definition) (payloadRow, error) {
	switch def.Tier {
	case card.TierDeclarative:
		if def.Declarative == nil {
			return payloadRow{}, fmt.Errorf("definition %s has tier %s but no payload", def.ID, def.Tier)
		}
		b, err := json.Marshal(def.Declarative)
		if err != nil {
			return payloadRow{}, fmt.Errorf("failed to serialize declarative payload: %w", err)
		}
		return payloadRow{declarativeJSON: string(b)}, nil
	case card.TierCode:
		if def.Code == nil {
			return payloadRow{}, fmt.Errorf("definition %s has tier %s but no payload", def.ID, def.Tier)
		}
		return payloadRow{
			sourceCode:   def.Code.SourceCode,
			compiledCode: def.Code.CompiledCode,
			sourceHash:   def.Code.SourceHash,
		}, nil
	default:
		return payloadRow{}, fmt.Errorf("definition %s has unknown tier %q", def.ID, def.Tier)
	}
}

// definitionRow is the scan target for one card_definitions row.
type definitionRow struct {
	id, title, description, tier string
	defaultWidth                 int
	declarativeJSON              string
	sourceCode                   string
	compiledCode                 string
	sourceHash                   string
	createdAt, updatedAt         string
}

func (r *definitionRow) fields() []any {
	return []any{
		&r.id, &r.title, &r.description, &r.tier, &r.defaultWidth,
		&r.declarativeJSON, &r.sourceCode, &r.compiledCode, &r.sourceHash,
		&r.createdAt, &r.updatedAt,
	}
}

// toDefinition rebuilds the in-memory definition from scanned columns.
func (r *definitionRow) toDefinition() (*card.Definition, error) {
	def := &card.Definition{
		ID:           r.id,
		Title:        r.title,
		Description:  r.description,
		Tier:         card.Tier(r.tier),
		DefaultWidth: r.defaultWidth,
	}
	def.CreatedAt, _ = time.Parse(time.RFC3339, r.createdAt)
	def.UpdatedAt, _ = time.Parse(time.RFC3339, r.updatedAt)

	switch def.Tier {
	case card.TierDeclarative:
		var payload card.DeclarativePayload
		if err := json.Unmarshal([]byte(r.declarativeJSON), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse declarative payload: %w", err)
		}
		def.Declarative = &payload
	case card.TierCode:
		def.Code = &card.CodePayload{
			SourceCode:   r.sourceCode,
			CompiledCode: r.compiledCode,
			SourceHash:   r.sourceHash,
		}
	default:
		return nil, fmt.Errorf("unknown tier %q", r.tier)
	}

	return def, nil
}
