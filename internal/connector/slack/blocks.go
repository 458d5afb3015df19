package slackconn

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

// OpenTicketModalAction is the action id on the create-ticket button.
const OpenTicketModalAction = "open_ticket_modal"

// AckText is posted to the thread as soon as a mention is accepted.
func AckText(userID string) string {
	return fmt.Sprintf("👀 <@%s>, hold tight! We're checking for similar tickets...", userID)
}

// NoMatchBlocks renders the notice for a search with no qualifying matches.
// This branch deliberately offers no create-ticket prompt.
func NoMatchBlocks() []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(mrkdwn(":mag: *No similar JIRA tickets found.*"), nil, nil),
		slack.NewSectionBlock(mrkdwn(":white_check_mark: You're all set to proceed!"), nil, nil),
	}
}

// MatchBlocks renders one candidate match. rank is 1-based; the top match
// gets a trophy.
func MatchBlocks(rank int, m protocol.Match, issueSummary, synopsis string) []slack.Block {
	trophy := ""
	if rank == 1 {
		trophy = ":trophy: "
	}
	header := slack.NewTextBlockObject(slack.PlainTextType,
		fmt.Sprintf("%sMatch %d: %s", trophy, rank, m.Key), true, false)

	fields := []*slack.TextBlockObject{
		mrkdwn("*Summary:*\n" + issueSummary),
		mrkdwn(fmt.Sprintf("*Score:*\n%.4f", m.Score)),
		mrkdwn("*Status:*\n" + m.Status),
		mrkdwn("*Priority:*\n" + m.Priority),
	}

	return []slack.Block{
		slack.NewHeaderBlock(header),
		slack.NewSectionBlock(nil, fields, nil),
		slack.NewSectionBlock(mrkdwn(fmt.Sprintf("*Link:* <%s|%s>", m.URL, m.Key)), nil, nil),
		slack.NewSectionBlock(mrkdwn(fmt.Sprintf("*Summary from AI:*\n```%s```", strings.TrimSpace(synopsis))), nil, nil),
		slack.NewDividerBlock(),
	}
}

// PromptBlocks renders the create-ticket prompt. The draft rides along as
// the button's opaque value; the conversation UI is the state carrier.
func PromptBlocks(userID string, draft protocol.Draft) ([]slack.Block, error) {
	value, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("slack: encode draft: %w", err)
	}

	text := fmt.Sprintf("Hi <@%s>! Would you like to create a new ticket? "+
		"We'll use AI to generate a summary/description from your message.", userID)
	button := slack.NewButtonBlockElement(OpenTicketModalAction, string(value),
		slack.NewTextBlockObject(slack.PlainTextType, "Create Jira Ticket", true, false))

	return []slack.Block{
		slack.NewSectionBlock(mrkdwn(text), nil, nil),
		slack.NewActionBlock(OpenTicketModalAction, button),
	}, nil
}

// ConfirmationText renders the post-creation message; every submitted
// value appears literally along with the canonical link.
func ConfirmationText(fields protocol.TicketFields, created protocol.CreatedTicket) string {
	var b strings.Builder
	b.WriteString("🎟️ *Your JIRA Ticket Has Been Created!*\n\n")
	fmt.Fprintf(&b, "*📝 Summary:* `%s`\n", fields.Summary)
	fmt.Fprintf(&b, "*🧾 Description:* `%s`\n", fields.Description)
	fmt.Fprintf(&b, "*🏷️ Brand:* `%s`\n", fields.Brand)
	fmt.Fprintf(&b, "*🌐 Environment:* `%s`\n", fields.Environment)
	fmt.Fprintf(&b, "*📌 Issue Type:* `%s`\n", fields.IssueType)
	fmt.Fprintf(&b, "*⚠️ Priority:* `%s`\n", fields.Priority)
	fmt.Fprintf(&b, "*🧩 Component:* `%s`\n\n", fields.Component)
	b.WriteString("🛠️ *Need changes or want to attach files?*\nClick the link to update the ticket directly.\n\n")
	fmt.Fprintf(&b, "🔗 *View Ticket:* <%s|%s>\n", created.URL, created.Key)
	return b.String()
}

// FailureText renders the creation-failure notice with the error detail.
func FailureText(detail string) string {
	return fmt.Sprintf("❌ Failed to create the JIRA ticket. Please try again or contact support.\n_Error: %s_", detail)
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// StripMention removes the <@BOTID> mention from message text.
func StripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	text = strings.Replace(text, mention, "", 1)
	return strings.TrimSpace(text)
}
