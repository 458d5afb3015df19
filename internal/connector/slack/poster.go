package slackconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/slack-go/slack"

	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

const (
	maxPostAttempts = 3
	transportWait   = 2 * time.Second
)

// API is the subset of the Slack Web API the poster needs.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
}

// Poster delivers messages with a bounded retry policy:
//   - success → done
//   - rate limited → wait 2^attempt seconds, retry
//   - any other API error → stop, report failure
//   - transport error or non-200 → wait 2s, retry
//
// Exhausting all attempts reports failure; callers log and move on.
type Poster struct {
	api    API
	logger *slog.Logger
	sleep  func(time.Duration)
}

// NewPoster creates a Poster over a Slack API client.
func NewPoster(api API, logger *slog.Logger) *Poster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poster{
		api:    api,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Post sends a message to a channel, threaded if threadTS is set.
func (p *Poster) Post(ctx context.Context, channel, threadTS, text string, blocks []slack.Block) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}

	for attempt := 1; attempt <= maxPostAttempts; attempt++ {
		_, _, err := p.api.PostMessageContext(ctx, channel, opts...)
		if err == nil {
			return nil
		}

		var rateLimited *slack.RateLimitedError
		if errors.As(err, &rateLimited) {
			wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			p.logger.Warn("slack rate limited, backing off", "attempt", attempt, "wait", wait)
			p.sleep(wait)
			continue
		}

		var apiErr slack.SlackErrorResponse
		if errors.As(err, &apiErr) {
			return fmt.Errorf("slack: post to %s: %w", channel, err)
		}

		p.logger.Warn("slack post failed, retrying", "attempt", attempt, "error", err)
		p.sleep(transportWait)
	}

	return fmt.Errorf("slack: post to %s failed after %d attempts", channel, maxPostAttempts)
}

// OpenTicketModal opens the creation form pre-filled from the draft.
// Modal opens are not retried; the trigger id expires in seconds anyway.
func (p *Poster) OpenTicketModal(ctx context.Context, triggerID string, draft protocol.Draft) error {
	view, err := TicketModal(draft)
	if err != nil {
		return err
	}
	if _, err := p.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("slack: open modal: %w", err)
	}
	return nil
}
