package slackconn

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

func TestMatchBlocks_TopMatchTrophy(t *testing.T) {
	m := protocol.Match{Key: "CJ-100", Score: 0.81, Status: "Open", Priority: "High-P1", URL: "https://example.atlassian.net/browse/CJ-100"}

	blocks := MatchBlocks(1, m, "Payments failing", "- root cause unknown")
	header, ok := blocks[0].(*slack.HeaderBlock)
	if !ok {
		t.Fatalf("first block is %T, want header", blocks[0])
	}
	if !strings.HasPrefix(header.Text.Text, ":trophy: ") {
		t.Errorf("top match header = %q, want trophy prefix", header.Text.Text)
	}

	blocks = MatchBlocks(2, m, "Payments failing", "synopsis")
	header = blocks[0].(*slack.HeaderBlock)
	if strings.Contains(header.Text.Text, ":trophy:") {
		t.Errorf("rank 2 should not carry a trophy: %q", header.Text.Text)
	}
}

func TestMatchBlocks_FieldsAndLink(t *testing.T) {
	m := protocol.Match{Key: "CJ-100", Score: 0.8125, Status: "Open", Priority: "High-P1", URL: "https://x/browse/CJ-100"}
	blocks := MatchBlocks(1, m, "Payments failing", "synopsis")

	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(blocks))
	}

	section := blocks[1].(*slack.SectionBlock)
	var joined strings.Builder
	for _, f := range section.Fields {
		joined.WriteString(f.Text)
		joined.WriteString("\n")
	}
	for _, want := range []string{"0.8125", "Open", "High-P1", "Payments failing"} {
		if !strings.Contains(joined.String(), want) {
			t.Errorf("fields missing %q:\n%s", want, joined.String())
		}
	}

	link := blocks[2].(*slack.SectionBlock)
	if !strings.Contains(link.Text.Text, "<https://x/browse/CJ-100|CJ-100>") {
		t.Errorf("link section = %q", link.Text.Text)
	}

	if _, ok := blocks[4].(*slack.DividerBlock); !ok {
		t.Errorf("last block is %T, want divider", blocks[4])
	}
}

func TestNoMatchBlocks(t *testing.T) {
	blocks := NoMatchBlocks()
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	first := blocks[0].(*slack.SectionBlock)
	if !strings.Contains(first.Text.Text, "No similar JIRA tickets found") {
		t.Errorf("notice text = %q", first.Text.Text)
	}
	for _, b := range blocks {
		if _, ok := b.(*slack.ActionBlock); ok {
			t.Error("no-match notice must not contain an action block")
		}
	}
}

func TestPromptBlocks_CarriesDraft(t *testing.T) {
	draft := protocol.Draft{
		Channel:     "C42",
		ThreadTS:    "1712.0001",
		Summary:     "Payments down",
		Description: "Payments fail for brand X",
		UserMessage: "payments failing for brand X",
	}

	blocks, err := PromptBlocks("U777", draft)
	if err != nil {
		t.Fatalf("prompt blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	actions := blocks[1].(*slack.ActionBlock)
	button := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	if button.ActionID != OpenTicketModalAction {
		t.Errorf("action id = %q", button.ActionID)
	}

	var got protocol.Draft
	if err := json.Unmarshal([]byte(button.Value), &got); err != nil {
		t.Fatalf("button value is not draft JSON: %v", err)
	}
	if got != draft {
		t.Errorf("round-tripped draft = %+v, want %+v", got, draft)
	}
}

func TestConfirmationText_ContainsAllValues(t *testing.T) {
	fields := protocol.TicketFields{
		Summary:     "Payments down",
		Description: "Payments fail on submit",
		IssueType:   "Bug",
		Priority:    "High-P1",
		Brand:       "Fortress",
		Environment: "Prod",
		Component:   "API",
	}
	created := protocol.CreatedTicket{Key: "CJ-142", URL: "https://x/browse/CJ-142"}

	text := ConfirmationText(fields, created)
	for _, want := range []string{
		"Payments down", "Payments fail on submit", "Bug", "High-P1",
		"Fortress", "Prod", "API", "CJ-142", "https://x/browse/CJ-142",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("confirmation missing %q", want)
		}
	}
}

func TestFailureText(t *testing.T) {
	text := FailureText(`jira: create issue (status 400): {"errors":{"priority":"required"}}`)
	if !strings.Contains(text, "status 400") {
		t.Errorf("failure text should carry detail: %q", text)
	}
}

func TestStripMention(t *testing.T) {
	tests := []struct {
		input string
		botID string
		want  string
	}{
		{"<@U123> hello", "U123", "hello"},
		{"hey <@U123> there", "U123", "hey  there"},
		{"no mention here", "U123", "no mention here"},
		{"<@U999> hello", "U123", "<@U999> hello"},
	}

	for _, tt := range tests {
		got := StripMention(tt.input, tt.botID)
		if got != tt.want {
			t.Errorf("StripMention(%q, %q) = %q, want %q", tt.input, tt.botID, got, tt.want)
		}
	}
}
