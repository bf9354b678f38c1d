package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const (
	// DefaultTopK is the maximum number of documents returned per query.
	DefaultTopK = 20

	// DefaultScoreThreshold is the minimum cosine similarity for a match.
	DefaultScoreThreshold = 0.3

	indexFileName = "index.db"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    embedding BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS index_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Index is the searchable reference corpus: every chunk of the corpus with
// its embedding, bound to the embedder that produced them. It is built (or
// loaded) once at startup and safe for concurrent reads afterwards.
type Index struct {
	store    *Store
	embedder Embedder
}

// OpenIndex returns the reference index with load-or-create semantics keyed
// by dir. A persisted index found at dir is loaded as-is; otherwise the
// corpus at corpusPath is chunked, embedded and persisted to dir. A missing
// corpus with no persisted index is a fatal condition for the caller.
func OpenIndex(ctx context.Context, dir, corpusPath string, embedder Embedder) (*Index, error) {
	dbPath := filepath.Join(dir, indexFileName)
	if _, err := os.Stat(dbPath); err == nil {
		store, err := loadStore(ctx, dbPath, embedder.ModelName())
		if err != nil {
			return nil, fmt.Errorf("loading persisted index: %w", err)
		}
		return &Index{store: store, embedder: embedder}, nil
	}

	text, err := LoadCorpus(corpusPath)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	chunks := SplitText(text, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("corpus at %s produced no chunks", corpusPath)
	}
	docs := make([]Document, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %d: %w", i+1, len(chunks), err)
		}
		docs = append(docs, Document{
			ID:        fmt.Sprintf("corpus-%d", i+1),
			Content:   chunk,
			Embedding: vec,
		})
	}

	if err := persistStore(ctx, dbPath, embedder.ModelName(), docs); err != nil {
		return nil, fmt.Errorf("persisting index: %w", err)
	}

	store := NewStore()
	store.Add(docs...)
	return &Index{store: store, embedder: embedder}, nil
}

// Retrieve embeds query with the index's embedder and returns up to k
// documents scoring at least threshold, best first. An empty result is valid.
func (ix *Index) Retrieve(ctx context.Context, query string, k int, threshold float32) ([]SearchResult, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.store.Search(vec, k, threshold), nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return ix.store.Len()
}

func persistStore(ctx context.Context, dbPath, model string, docs []Document) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, indexSchema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO index_meta(key, value) VALUES('model', ?)`, model); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents(id, content, embedding) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.ID, d.Content, encodeEmbedding(d.Embedding)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func loadStore(ctx context.Context, dbPath, model string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var storedModel string
	err = db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = 'model'`).Scan(&storedModel)
	if err != nil {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}
	// Documents embedded with one model cannot be scored against queries
	// embedded with another.
	if storedModel != model {
		return nil, fmt.Errorf("index was built with model %q, configured model is %q (delete %s to rebuild)", storedModel, model, dbPath)
	}

	rows, err := db.QueryContext(ctx, `SELECT id, content, embedding FROM documents ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	store := NewStore()
	for rows.Next() {
		var d Document
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Content, &blob); err != nil {
			return nil, err
		}
		d.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		store.Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if store.Len() == 0 {
		return nil, fmt.Errorf("persisted index at %s contains no documents", dbPath)
	}
	return store, nil
}

// encodeEmbedding encodes a vector as a little-endian sequence of IEEE 754
// float32 values; the length is derived from the blob size on decode.
func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not a multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
