package rag

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VectorStore is the pgvector-backed knowledge base the semantic fallback
// searches when an exact issue lookup misses.
type VectorStore struct {
	db *pgxpool.Pool
}

func NewVectorStore(db *pgxpool.Pool) *VectorStore {
	return &VectorStore{db: db}
}

type SnippetRecord struct {
	ID        int64
	Content   string
	Embedding []float32
}

// Store inserts a knowledge-base snippet with its embedding.
func (s *VectorStore) Store(ctx context.Context, record *SnippetRecord) error {
	query := `
		INSERT INTO kb_snippets (content, embedding, created_at)
		VALUES ($1, $2, NOW())
	`
	_, err := s.db.Exec(ctx, query, record.Content, pgVector(record.Embedding))
	return err
}

type SearchResult struct {
	ID      int64
	Score   float64
	Content string
}

// Search performs cosine similarity search over the snippet table.
func (s *VectorStore) Search(ctx context.Context, embedding []float32, limit int) ([]*SearchResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT id, 1 - (embedding <=> $1) as score, content
		FROM kb_snippets
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, pgVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Score, &r.Content); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}

	return results, rows.Err()
}

// pgVector formats a float32 slice as a pgvector literal.
func pgVector(embedding []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
