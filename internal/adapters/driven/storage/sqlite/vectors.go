package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/kbassist/internal/adapters/driven/vector"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex on the vectors table.
type vectorIndex struct {
	store      *Store
	collection string
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Connect checks the database is reachable.
func (v *vectorIndex) Connect(ctx context.Context) error {
	if err := v.store.db.PingContext(ctx); err != nil {
		return vector.Unavailable("sqlite ping", err)
	}
	return nil
}

// EnsureCollection registers the collection dimension on first call.
func (v *vectorIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrIndexUnavailable, dimension)
	}
	if _, err := v.store.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, dimension) VALUES (?, ?)", v.collection, dimension); err != nil {
		return vector.Unavailable("sqlite create collection", err)
	}

	existing, err := v.dimension(ctx)
	if err != nil {
		return err
	}
	if existing != dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, want %d",
			domain.ErrIndexUnavailable, v.collection, existing, dimension)
	}
	return nil
}

func (v *vectorIndex) dimension(ctx context.Context) (int, error) {
	var dim int
	err := v.store.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", v.collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: collection %q not created", domain.ErrIndexUnavailable, v.collection)
	}
	if err != nil {
		return 0, vector.Unavailable("sqlite collection", err)
	}
	return dim, nil
}

// Insert stores a batch in one transaction.
func (v *vectorIndex) Insert(ctx context.Context, documentID int64, chunks []string, embeddings [][]float32, metadata []string) error {
	dim, err := v.dimension(ctx)
	if err != nil {
		return err
	}
	records, err := vector.Records(documentID, chunks, embeddings, metadata, dim)
	if err != nil {
		return err
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return vector.Unavailable("sqlite begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, collection, document_id, chunk_id, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return vector.Unavailable("sqlite prepare", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, v.collection, r.DocumentID, r.ChunkID,
			r.Content, r.Metadata, float32SliceToBytes(r.Embedding)); err != nil {
			return vector.Unavailable("sqlite insert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return vector.Unavailable("sqlite commit", err)
	}
	return nil
}

// Search scans every vector in the collection.
func (v *vectorIndex) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]domain.VectorHit, error) {
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_id, content, metadata, embedding
		FROM vectors WHERE collection = ?
	`, v.collection)
	if err != nil {
		return nil, vector.Unavailable("sqlite search", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		var h domain.VectorHit
		var blob []byte
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.ChunkID, &h.Content, &h.Metadata, &blob); err != nil {
			return nil, vector.Unavailable("sqlite scan", err)
		}
		h.Embedding = bytesToFloat32Slice(blob)
		h.Score = domain.CosineSimilarity(query, h.Embedding)
		if h.Score >= threshold {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, vector.Unavailable("sqlite search", err)
	}
	return vector.Rank(hits, limit, threshold), nil
}

// DeleteByDocument removes every vector of a document.
func (v *vectorIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	if _, err := v.store.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE collection = ? AND document_id = ?", v.collection, documentID); err != nil {
		return vector.Unavailable("sqlite delete", err)
	}
	return nil
}

// Stats reports the collection size.
func (v *vectorIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats := domain.IndexStats{Backend: "sqlite", Collection: v.collection}
	var dim sql.NullInt64
	err := v.store.db.QueryRowContext(ctx, `
		SELECT (SELECT dimension FROM collections WHERE name = ?),
		       (SELECT COUNT(*) FROM vectors WHERE collection = ?)
	`, v.collection, v.collection).Scan(&dim, &stats.TotalVectors)
	if err != nil {
		return stats, vector.Unavailable("sqlite stats", err)
	}
	stats.Dimension = int(dim.Int64)
	return stats, nil
}

// Close is a no-op; the owning Store closes the database.
func (v *vectorIndex) Close() error {
	return nil
}
