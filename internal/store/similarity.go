package store

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cardsmith/internal/logging"

	sqlite "modernc.org/sqlite"
)

func init() {
	// Deterministic: the same pair of blobs always yields the same
	// distance, so SQLite may cache and reorder calls freely.
	_ = sqlite.RegisterDeterministicScalarFunction("vector_distance_cos", 2, vectorDistanceCos)
}

// SimilarityStore keeps one embedding per card for "cards like this one"
// lookups. It runs on the pure-Go driver so similarity search works in
// cgo-free builds; binaries built with the sqlite_vec tag additionally
// get the native vec0 extension (see init_vec.go).
type SimilarityStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Neighbor is one similar-card hit. Distance is cosine distance: 0 for
// an identical direction, 1 for orthogonal vectors.
type Neighbor struct {
	CardID   string
	Distance float64
}

// NewSimilarityStore opens (creating if needed) the embedding database
// at dbPath.
func NewSimilarityStore(dbPath string) (*SimilarityStore, error) {
	logging.StoreDebug("Initializing SimilarityStore at path: %s", dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create SimilarityStore directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open SimilarityStore database at %s: %v", dbPath, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SimilarityStore{db: db, dbPath: dbPath}
	if err := store.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize SimilarityStore schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("SimilarityStore initialized at %s", dbPath)
	return store, nil
}

// initialize creates the database schema.
func (s *SimilarityStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS card_embeddings (
		card_id TEXT PRIMARY KEY,
		dim INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertEmbedding stores the embedding for a card, replacing any
// previous one.
func (s *SimilarityStore) UpsertEmbedding(cardID string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cardID == "" {
		return fmt.Errorf("embedding has no card id")
	}
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding for card %s", cardID)
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO card_embeddings (card_id, dim, embedding, updated_at)
		VALUES (?, ?, ?, ?)`,
		cardID, len(vec), encodeVector(vec), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to store embedding for %s: %v", cardID, err)
		return err
	}

	logging.StoreDebug("Stored embedding for %s (dim=%d)", cardID, len(vec))
	return nil
}

// Nearest returns the limit closest cards to the query vector, nearest
// first. The row identified by excludeID (typically the query card
// itself) is left out, as are embeddings of a different dimension.
func (s *SimilarityStore) Nearest(query []float32, excludeID string, limit int) ([]Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(`
		SELECT card_id, vector_distance_cos(embedding, ?) AS distance
		FROM card_embeddings
		WHERE card_id != ? AND dim = ?
		ORDER BY distance ASC, card_id
		LIMIT ?`,
		encodeVector(query), excludeID, len(query), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.CardID, &n.Distance); err != nil {
			continue
		}
		neighbors = append(neighbors, n)
	}

	return neighbors, rows.Err()
}

// Embedding returns a card's stored vector, or nil (no error) when the
// card has not been embedded yet.
func (s *SimilarityStore) Embedding(cardID string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob []byte
	err := s.db.QueryRow("SELECT embedding FROM card_embeddings WHERE card_id = ?", cardID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeVector(blob)
}

// DeleteEmbedding removes a card's embedding. A missing row is not an
// error: similarity data is best-effort and must never fail the
// catalog's delete path.
func (s *SimilarityStore) DeleteEmbedding(cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM card_embeddings WHERE card_id = ?", cardID)
	return err
}

// Close closes the database connection.
func (s *SimilarityStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		logging.Store("Closing SimilarityStore at %s", s.dbPath)
		return s.db.Close()
	}
	return nil
}

// vectorDistanceCos is the vector_distance_cos SQL function: cosine
// distance between two float32-LE blobs.
func vectorDistanceCos(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vector_distance_cos expects 2 arguments")
	}
	a, err := decodeVector(args[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeVector(args[1])
	if err != nil {
		return nil, err
	}
	if len(a) == 0 || len(b) == 0 {
		return float64(1), nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("vector_distance_cos: dimension mismatch %d vs %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		af := float64(a[i])
		bf := float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return float64(1), nil
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float64(1 - cos), nil
}

// encodeVector packs a float32 vector little-endian, 4 bytes per
// component. This is the layout vector_distance_cos decodes.
func encodeVector(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// decodeVector converts supported driver.Value types into a float32
// slice.
func decodeVector(v driver.Value) ([]float32, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(x)%4 != 0 {
			return nil, fmt.Errorf("vector_distance_cos: blob length %d not a multiple of 4", len(x))
		}
		out := make([]float32, len(x)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(x[i*4:]))
		}
		return out, nil
	case string:
		return decodeVector([]byte(x))
	default:
		return nil, fmt.Errorf("vector_distance_cos: unsupported type %T", v)
	}
}
