// Package triage turns inbound mentions into a duplicate-check
// conversation: search for similar prior tickets, summarize each hit in
// the thread, and offer a pre-filled creation form when none of them fit.
package triage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	slackconn "github.com/dupewatch-io/dupewatch/internal/connector/slack"
	"github.com/dupewatch-io/dupewatch/internal/dedup"
	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

// Searcher finds prior tickets similar to free text.
type Searcher interface {
	Search(ctx context.Context, query string) ([]protocol.Match, error)
}

// IssueSource reads and creates issues in the tracker.
type IssueSource interface {
	FetchIssue(ctx context.Context, key string) (string, error)
	FetchComments(ctx context.Context, key string) ([]string, error)
	Create(ctx context.Context, fields protocol.TicketFields) (protocol.CreatedTicket, error)
}

// Summarizer condenses a matched issue into a short synopsis.
type Summarizer interface {
	Synopsis(ctx context.Context, issue protocol.IssueContext) (string, error)
}

// Drafter proposes a summary/description pair from raw user text.
type Drafter interface {
	Draft(ctx context.Context, userText string) (summary, description string, err error)
}

// Messenger delivers messages and opens the creation form.
type Messenger interface {
	Post(ctx context.Context, channel, threadTS, text string, blocks []slack.Block) error
	OpenTicketModal(ctx context.Context, triggerID string, draft protocol.Draft) error
}

// Triager orchestrates the whole flow. It keeps no conversational state
// of its own: the thread, the button value, and the modal metadata carry
// everything between invocations.
type Triager struct {
	store   dedup.Store
	search  Searcher
	issues  IssueSource
	summary Summarizer
	drafter Drafter
	msg     Messenger
	logger  *slog.Logger
}

// New creates a Triager.
func New(store dedup.Store, search Searcher, issues IssueSource, summary Summarizer, drafter Drafter, msg Messenger, logger *slog.Logger) *Triager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Triager{
		store:   store,
		search:  search,
		issues:  issues,
		summary: summary,
		drafter: drafter,
		msg:     msg,
		logger:  logger,
	}
}

// Handle routes a normalized notification to the right flow.
func (t *Triager) Handle(ctx context.Context, n protocol.Notification) error {
	switch n.Kind {
	case protocol.KindMention:
		return t.HandleMention(ctx, n)
	case protocol.KindAction:
		return t.HandleAction(ctx, n)
	case protocol.KindSubmission:
		return t.HandleSubmission(ctx, n)
	default:
		return fmt.Errorf("triage: unknown notification kind %q", n.Kind)
	}
}

// HandleMention runs the duplicate check for a fresh mention. A
// notification id that was already marked is dropped with no side
// effects at all. A store failure is logged and treated as unseen:
// a duplicate message beats a silently ignored user.
func (t *Triager) HandleMention(ctx context.Context, n protocol.Notification) error {
	if n.ID != "" {
		first, err := t.store.MarkIfNew(n.ID)
		if err != nil {
			t.logger.Warn("dedup store unavailable, processing anyway", "id", n.ID, "error", err)
		} else if !first {
			t.logger.Debug("duplicate event dropped", "id", n.ID)
			return nil
		}
	}

	if err := t.msg.Post(ctx, n.Channel, n.ThreadTS, slackconn.AckText(n.UserID), nil); err != nil {
		t.logger.Warn("ack delivery failed", "channel", n.Channel, "error", err)
	}

	matches, err := t.search.Search(ctx, n.Text)
	if err != nil {
		return fmt.Errorf("triage: search: %w", err)
	}

	if len(matches) == 0 {
		if err := t.msg.Post(ctx, n.Channel, n.ThreadTS, "No similar JIRA tickets found.", slackconn.NoMatchBlocks()); err != nil {
			return fmt.Errorf("triage: post no-match notice: %w", err)
		}
		return nil
	}

	for i, m := range matches {
		if err := t.postMatch(ctx, n, i+1, m); err != nil {
			t.logger.Warn("skipping match", "key", m.Key, "error", err)
		}
	}

	draft := t.draft(ctx, n)
	blocks, err := slackconn.PromptBlocks(n.UserID, draft)
	if err != nil {
		return fmt.Errorf("triage: build prompt: %w", err)
	}
	if err := t.msg.Post(ctx, n.Channel, n.ThreadTS, "Would you like to create a new ticket?", blocks); err != nil {
		return fmt.Errorf("triage: post prompt: %w", err)
	}
	return nil
}

// postMatch assembles and posts the block for one candidate. Any failure
// along the way skips this match only.
func (t *Triager) postMatch(ctx context.Context, n protocol.Notification, rank int, m protocol.Match) error {
	summary, err := t.issues.FetchIssue(ctx, m.Key)
	if err != nil {
		return fmt.Errorf("fetch issue: %w", err)
	}
	comments, err := t.issues.FetchComments(ctx, m.Key)
	if err != nil {
		return fmt.Errorf("fetch comments: %w", err)
	}

	synopsis, err := t.summary.Synopsis(ctx, protocol.IssueContext{
		Key:      m.Key,
		Summary:  summary,
		Comments: comments,
	})
	if err != nil {
		return fmt.Errorf("synopsis: %w", err)
	}

	blocks := slackconn.MatchBlocks(rank, m, summary, synopsis)
	if err := t.msg.Post(ctx, n.Channel, n.ThreadTS, fmt.Sprintf("Match %d: %s", rank, m.Key), blocks); err != nil {
		return fmt.Errorf("post: %w", err)
	}
	return nil
}

// draft produces the modal prefill. A drafting failure degrades to the
// raw message text in both fields so the user always gets a usable form.
func (t *Triager) draft(ctx context.Context, n protocol.Notification) protocol.Draft {
	summary, description, err := t.drafter.Draft(ctx, n.Text)
	if err != nil {
		t.logger.Warn("draft generation failed, falling back to raw text", "error", err)
		summary, description = n.Text, n.Text
	}
	return protocol.Draft{
		Channel:     n.Channel,
		ThreadTS:    n.ThreadTS,
		Summary:     summary,
		Description: description,
		UserMessage: n.Text,
	}
}

// HandleAction opens the creation form from the draft attached to the
// button click.
func (t *Triager) HandleAction(ctx context.Context, n protocol.Notification) error {
	if n.Draft == nil {
		return fmt.Errorf("triage: action without draft")
	}
	if err := t.msg.OpenTicketModal(ctx, n.TriggerID, *n.Draft); err != nil {
		return fmt.Errorf("triage: open form: %w", err)
	}
	return nil
}

// HandleSubmission creates the ticket from the submitted form and reports
// the outcome to the originating thread. Creation is attempted once;
// the failure notice invites the user to resubmit instead.
func (t *Triager) HandleSubmission(ctx context.Context, n protocol.Notification) error {
	if n.Fields == nil {
		return fmt.Errorf("triage: submission without fields")
	}

	created, err := t.issues.Create(ctx, *n.Fields)
	if err != nil {
		t.logger.Error("ticket creation failed", "error", err)
		if postErr := t.msg.Post(ctx, n.Channel, n.ThreadTS, slackconn.FailureText(err.Error()), nil); postErr != nil {
			return fmt.Errorf("triage: post failure notice: %w", postErr)
		}
		return nil
	}

	t.logger.Info("ticket created", "key", created.Key)
	if err := t.msg.Post(ctx, n.Channel, n.ThreadTS, slackconn.ConfirmationText(*n.Fields, created), nil); err != nil {
		return fmt.Errorf("triage: post confirmation: %w", err)
	}
	return nil
}
