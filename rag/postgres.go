package rag

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rag_documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    document TEXT NOT NULL,
    metadata JSONB,
    embedding vector NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (collection, id)
);
`

// PostgresStore implements VectorStore with Postgres and pgvector
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and creates the schema
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to Postgres")
	}
	if _, err = db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &PostgresStore{db: db}, nil
}

// Reset deletes all documents of the collection
func (s *PostgresStore) Reset(ctx context.Context, collection string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM rag_documents WHERE collection = $1`, collection)
	if err != nil {
		return errors.Wrapf(err, "failed to reset collection %s", collection)
	}
	return nil
}

// Upsert stores the documents with their embeddings
func (s *PostgresStore) Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return errors.Newf("documents and embeddings mismatch: %d != %d", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, doc := range docs {
		if doc.ID == "" {
			return errors.New("document ID is required")
		}
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to encode metadata")
		}
		batch.Queue(`
			INSERT INTO rag_documents (collection, id, document, metadata, embedding)
			VALUES ($1, $2, $3, $4::jsonb, $5::vector)
			ON CONFLICT (collection, id) DO UPDATE
			SET document = EXCLUDED.document, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
			collection, doc.ID, doc.Text, string(meta), formatVector(embeddings[i]))
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return errors.Wrap(err, "failed to store documents")
	}
	return nil
}

// Query returns up to topK documents ordered by cosine distance
func (s *PostgresStore) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, document, COALESCE(metadata::text, '{}'), (embedding <=> $2::vector) AS distance
		FROM rag_documents
		WHERE collection = $1
		ORDER BY embedding <=> $2::vector, id
		LIMIT $3`,
		collection, formatVector(embedding), topK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query documents")
	}
	defer rows.Close()

	var res []Result
	for rows.Next() {
		var r Result
		var meta string
		if err = rows.Scan(&r.ID, &r.Text, &meta, &r.Distance); err != nil {
			return nil, errors.Wrap(err, "failed to read document")
		}
		if meta != "" && meta != "null" {
			if err = json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
				logger.ContextKV(ctx, xlog.WARNING, "reason", "metadata", "id", r.ID, "err", err.Error())
			}
		}
		res = append(res, r)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read documents")
	}
	return res, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// formatVector returns pgvector text literal
func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
