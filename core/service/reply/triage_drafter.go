// Package reply assembles the tech-support drafting prompt and calls the
// generative collaborator behind its own timeout boundary.
package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
)

// replyTemplate is the letter skeleton the model is asked to fill in.
const replyTemplate = `
Dear customer,

issue number:

issue:

solution:

Feel free to contact us

Best Regards,
Tech Support
`

const defaultTimeout = 45 * time.Second

// Drafter implements out.ReplyDrafter over an LLM client.
type Drafter struct {
	llm     out.LLMClient
	timeout time.Duration
	log     zerolog.Logger
}

func NewDrafter(llm out.LLMClient, timeout time.Duration, log zerolog.Logger) *Drafter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Drafter{
		llm:     llm,
		timeout: timeout,
		log:     log.With().Str("component", "reply_drafter").Logger(),
	}
}

// Draft generates the reply text. issue may be nil when the exact lookup
// missed; the prompt then leans on the retrieved snippets alone.
func (d *Drafter) Draft(ctx context.Context, issue *out.IssueContext, cleanBody string, snippets []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	prompt := buildPrompt(issue, cleanBody, snippets)

	start := time.Now()
	text, err := d.llm.Complete(ctx, prompt)
	if err != nil {
		return "", apperr.DraftFailed(err)
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.DraftFailed(fmt.Errorf("empty completion"))
	}

	d.log.Debug().
		Dur("elapsed", time.Since(start)).
		Bool("issue_matched", issue != nil).
		Int("snippets", len(snippets)).
		Msg("reply drafted")

	return text, nil
}

func buildPrompt(issue *out.IssueContext, cleanBody string, snippets []string) string {
	var sb strings.Builder
	sb.WriteString("Consider yourself as tech supporter. ")

	if issue != nil {
		fmt.Fprintf(&sb, "Here is the matched issue number %d, issue: %s, solution: %s",
			issue.IssueNumber, issue.Issue, issue.Solution)
		if issue.Device != "" {
			fmt.Fprintf(&sb, ", device: %s", issue.Device)
		}
		sb.WriteString(". ")
	} else {
		sb.WriteString("No exact issue record matched. ")
	}

	if len(snippets) > 0 {
		sb.WriteString("Here are possible issues from the knowledge base: ")
		for i, s := range snippets {
			fmt.Fprintf(&sb, "(%d) %s ", i+1, s)
		}
	}

	fmt.Fprintf(&sb, "The customer wrote: %q. ", cleanBody)
	sb.WriteString("Generate the final output as a clean email, mention issue number, issue and solution (descriptive), ")
	sb.WriteString("try to give one or more solutions, generate in 150 words, here is the template:")
	sb.WriteString(replyTemplate)

	return sb.String()
}
