package slackconn

import (
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

// TicketModalCallbackID identifies the creation form on view_submission.
const TicketModalCallbackID = "ticket_creation_modal"

// Block and action ids for the form inputs.
const (
	issueTypeBlock   = "issuetype_block"
	issueTypeInput   = "issuetype_input"
	summaryBlock     = "summary_block"
	summaryInput     = "summary_input"
	descriptionBlock = "description_block"
	descriptionInput = "description_input"
	priorityBlock    = "priority_block"
	priorityInput    = "priority_input"
	brandBlock       = "brand_block"
	brandInput       = "brand_input"
	envBlock         = "env_block"
	envInput         = "env_input"
	componentBlock   = "component_block"
	componentInput   = "component_input"
)

// modalMetadata is the hidden state carried on the view; the user never
// sees it, and it's the only way channel/thread survive to submission.
type modalMetadata struct {
	Channel     string `json:"channel"`
	ThreadTS    string `json:"thread_ts"`
	UserMessage string `json:"user_message"`
}

// TicketModal builds the creation form pre-filled from the draft.
func TicketModal(draft protocol.Draft) (slack.ModalViewRequest, error) {
	meta, err := json.Marshal(modalMetadata{
		Channel:     draft.Channel,
		ThreadTS:    draft.ThreadTS,
		UserMessage: draft.UserMessage,
	})
	if err != nil {
		return slack.ModalViewRequest{}, fmt.Errorf("slack: encode modal metadata: %w", err)
	}

	summaryEl := slack.NewPlainTextInputBlockElement(nil, summaryInput)
	summaryEl.Multiline = true
	summaryEl.InitialValue = draft.Summary

	descriptionEl := slack.NewPlainTextInputBlockElement(nil, descriptionInput)
	descriptionEl.Multiline = true
	descriptionEl.InitialValue = draft.Description

	blocks := []slack.Block{
		selectInput(issueTypeBlock, issueTypeInput, "Issue Type", "Choose issue type", protocol.IssueTypes),
		slack.NewInputBlock(summaryBlock, plain("Summary"), nil, summaryEl),
		slack.NewInputBlock(descriptionBlock, plain("Description"), nil, descriptionEl),
		selectInput(priorityBlock, priorityInput, "Priority", "Choose priority", protocol.Priorities),
		selectInput(brandBlock, brandInput, "Brand", "Choose brand", protocol.Brands),
		selectInput(envBlock, envInput, "Environment", "Choose environment", protocol.Environments),
		selectInput(componentBlock, componentInput, "Component", "Choose component", protocol.Components),
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      TicketModalCallbackID,
		PrivateMetadata: string(meta),
		Title:           plain("Create New Ticket"),
		Submit:          plain("Submit"),
		Close:           plain("Cancel"),
		Blocks:          slack.Blocks{BlockSet: blocks},
	}, nil
}

// SubmittedTicket extracts the form values and hidden metadata from a
// view_submission callback.
func SubmittedTicket(view slack.View) (protocol.TicketFields, protocol.Draft, error) {
	if view.State == nil {
		return protocol.TicketFields{}, protocol.Draft{}, fmt.Errorf("slack: submission has no state")
	}
	values := view.State.Values

	fields := protocol.TicketFields{
		Summary:     values[summaryBlock][summaryInput].Value,
		Description: values[descriptionBlock][descriptionInput].Value,
		IssueType:   values[issueTypeBlock][issueTypeInput].SelectedOption.Value,
		Priority:    values[priorityBlock][priorityInput].SelectedOption.Value,
		Brand:       values[brandBlock][brandInput].SelectedOption.Value,
		Environment: values[envBlock][envInput].SelectedOption.Value,
		Component:   values[componentBlock][componentInput].SelectedOption.Value,
	}

	var meta modalMetadata
	if view.PrivateMetadata != "" {
		if err := json.Unmarshal([]byte(view.PrivateMetadata), &meta); err != nil {
			return protocol.TicketFields{}, protocol.Draft{}, fmt.Errorf("slack: decode modal metadata: %w", err)
		}
	}

	draft := protocol.Draft{
		Channel:     meta.Channel,
		ThreadTS:    meta.ThreadTS,
		UserMessage: meta.UserMessage,
	}
	return fields, draft, nil
}

func selectInput(blockID, actionID, label, placeholder string, options []string) *slack.InputBlock {
	opts := make([]*slack.OptionBlockObject, len(options))
	for i, o := range options {
		opts[i] = slack.NewOptionBlockObject(o, plain(o), nil)
	}
	el := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain(placeholder), actionID, opts...)
	return slack.NewInputBlock(blockID, plain(label), nil, el)
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}
