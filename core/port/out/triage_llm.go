package out

import "context"

// LLMClient is the generative collaborator used for reply drafting and
// snippet embedding. Calls are blocking; callers bound them with a context
// timeout.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// ReplyDrafter turns the triage context into reply text.
type ReplyDrafter interface {
	Draft(ctx context.Context, issue *IssueContext, cleanBody string, snippets []string) (string, error)
}

// IssueContext carries the matched issue record into the drafting prompt.
type IssueContext struct {
	IssueNumber int
	Issue       string
	Solution    string
	Device      string
}

// SnippetSearcher retrieves knowledge-base snippets semantically similar to
// free text. An empty result is not an error; implementations tolerate an
// unconfigured backing store.
type SnippetSearcher interface {
	Snippets(ctx context.Context, text string, k int) ([]string, error)
}

// SnippetIndexer adds snippets to the knowledge base. Unlike retrieval,
// indexing against an unconfigured store is an error.
type SnippetIndexer interface {
	IndexSnippet(ctx context.Context, content string) error
}
