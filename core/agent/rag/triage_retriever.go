// Package rag provides the semantic-similarity fallback over the knowledge
// base: embed the cleaned message body, search pgvector, and hand ordered
// snippets to the reply drafter.
package rag

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

const embedMaxLen = 8000

// ErrNoStore is returned when indexing is attempted without a backing
// database.
var ErrNoStore = errors.New("knowledge base store not configured")

// snippetStore is the surface the retriever needs from VectorStore.
type snippetStore interface {
	Store(ctx context.Context, record *SnippetRecord) error
	Search(ctx context.Context, embedding []float32, limit int) ([]*SearchResult, error)
}

// Retriever implements out.SnippetSearcher. A nil store (no database
// configured) is valid: retrieval degrades to an empty result, never an
// error, so the pipeline keeps drafting without context.
type Retriever struct {
	store    snippetStore
	embedder *Embedder
	log      zerolog.Logger
}

func NewRetriever(store *VectorStore, embedder *Embedder, log zerolog.Logger) *Retriever {
	r := &Retriever{
		embedder: embedder,
		log:      log.With().Str("component", "rag_retriever").Logger(),
	}
	if store != nil {
		r.store = store
	}
	return r
}

// Snippets returns up to k knowledge-base snippets similar to text, best
// match first.
func (r *Retriever) Snippets(ctx context.Context, text string, k int) ([]string, error) {
	if r.store == nil || text == "" {
		return nil, nil
	}

	embedding, err := r.embedder.Embed(ctx, r.embedder.PrepareText(text, embedMaxLen))
	if err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, nil
	}

	results, err := r.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, err
	}

	snippets := make([]string, 0, len(results))
	for _, res := range results {
		snippets = append(snippets, res.Content)
	}

	r.log.Debug().Int("requested", k).Int("returned", len(snippets)).Msg("snippet retrieval")
	return snippets, nil
}

// IndexSnippet embeds content and inserts it into the knowledge base.
func (r *Retriever) IndexSnippet(ctx context.Context, content string) error {
	if r.store == nil {
		return ErrNoStore
	}

	embedding, err := r.embedder.Embed(ctx, r.embedder.PrepareText(content, embedMaxLen))
	if err != nil {
		return err
	}

	if err := r.store.Store(ctx, &SnippetRecord{Content: content, Embedding: embedding}); err != nil {
		return err
	}

	r.log.Info().Int("content_len", len(content)).Msg("snippet indexed")
	return nil
}
