package rag

import (
	"context"

	"triage_server/core/port/out"
)

type Embedder struct {
	client out.LLMClient
}

func NewEmbedder(client out.LLMClient) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embedding(ctx, text)
}

// PrepareText truncates text for embedding.
func (e *Embedder) PrepareText(text string, maxLen int) string {
	if len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}
