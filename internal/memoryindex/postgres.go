package memoryindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresIndex stores memory records in PostgreSQL with pgvector and ranks
// matches by cosine distance.
type PostgresIndex struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

func NewPostgresIndex(ctx context.Context, databaseURL string, embedder Embedder) (*PostgresIndex, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_records (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			kind TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, embedder.Dimension()),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}

	return &PostgresIndex{pool: pool, embedder: embedder}, nil
}

func (ix *PostgresIndex) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("memory record id is required")
	}
	vec, err := ix.embedder.Embed(ctx, rec.Text)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", rec.ID, err)
	}

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	// ON CONFLICT keeps upserts idempotent per id: re-adding the same id
	// replaces the row instead of duplicating a match.
	_, err = ix.pool.Exec(ctx,
		`INSERT INTO memory_records (id, content, kind, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5::vector)
		 ON CONFLICT (id) DO UPDATE
		 SET content = EXCLUDED.content, kind = EXCLUDED.kind,
		     metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
		rec.ID,
		rec.Text,
		string(rec.Kind),
		meta,
		vectorLiteral(vec),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (ix *PostgresIndex) Query(ctx context.Context, queryText string, k int) ([]string, error) {
	if k < 1 {
		return nil, nil
	}
	vec, err := ix.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := ix.pool.Query(ctx,
		`SELECT content FROM memory_records
		 ORDER BY embedding <=> $1::vector, id LIMIT $2`,
		vectorLiteral(vec),
		k,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, k)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		out = append(out, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return out, nil
}

func (ix *PostgresIndex) Close() error {
	ix.pool.Close()
	return nil
}

// vectorLiteral renders a float32 slice in pgvector's input format.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
