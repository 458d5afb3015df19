// Package assist holds the two LLM-backed text steps: per-match issue
// synopses and draft ticket generation from a user's message.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/dupewatch-io/dupewatch/internal/provider"
	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

// Summarizer produces a short synopsis of a matched issue from its current
// summary and recent comments.
type Summarizer struct {
	Provider  provider.Provider
	MaxTokens int // default 1024
}

// Synopsis summarizes an issue in bullet points.
func (s *Summarizer) Synopsis(ctx context.Context, issue protocol.IssueContext) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "JIRA Key: %s\n\nSummary:\n- %s\n\nLatest Comments:\n", issue.Key, issue.Summary)
	b.WriteString(strings.Join(issue.Comments, "\n"))

	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	out, err := s.Provider.Complete(ctx, provider.CompletionRequest{
		Prompt:      "Please summarize the following JIRA issue in bullet points:\n\n" + b.String(),
		MaxTokens:   maxTokens,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("assist: synopsis for %s: %w", issue.Key, err)
	}
	return strings.TrimSpace(out), nil
}

// Drafter generates a ticket summary/description pair from raw user text.
type Drafter struct {
	Provider  provider.Provider
	MaxTokens int // default 1024
}

// ErrEmptyInput is returned before any model call when there is no text to
// draft from.
var ErrEmptyInput = fmt.Errorf("assist: no input text provided")

const draftPrompt = `Based on the following user input, write a clear and concise JIRA ticket summary and description.
Avoid generic preambles. Return only the result in the format below without extra commentary.

Format:
Summary: <short summary>
Description: <detailed description>

User Input:
"""%s"""`

// Draft asks the model for a summary/description pair. The response is
// parsed leniently: a missing field comes back empty, never as an error.
func (d *Drafter) Draft(ctx context.Context, userText string) (summary, description string, err error) {
	if strings.TrimSpace(userText) == "" {
		return "", "", ErrEmptyInput
	}

	maxTokens := d.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	out, err := d.Provider.Complete(ctx, provider.CompletionRequest{
		Prompt:      fmt.Sprintf(draftPrompt, userText),
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", "", fmt.Errorf("assist: draft: %w", err)
	}

	summary, description = ParseDraft(out)
	return summary, description, nil
}
