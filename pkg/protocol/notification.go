package protocol

// NotificationKind distinguishes the three inbound Slack callback shapes.
type NotificationKind string

const (
	KindMention    NotificationKind = "mention"
	KindAction     NotificationKind = "action"
	KindSubmission NotificationKind = "submission"
)

// Notification is a normalized inbound event from the conversation platform.
// Immutable once constructed; ID is the deduplication key.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Channel   string           `json:"channel"`
	ThreadTS  string           `json:"thread_ts"`
	UserID    string           `json:"user_id"`
	Text      string           `json:"text"`
	TriggerID string           `json:"trigger_id,omitempty"`

	// Draft is attached to action notifications (the button's opaque value)
	// and submissions (modal private metadata).
	Draft *Draft `json:"draft,omitempty"`
	// Fields is attached to submission notifications only.
	Fields *TicketFields `json:"fields,omitempty"`
}

// Draft is the pre-filled summary/description pair carried through the
// interactive flow as opaque metadata. The conversation UI is the state
// carrier; drafts are never stored server-side between steps.
type Draft struct {
	Channel     string `json:"channel"`
	ThreadTS    string `json:"thread_ts"`
	Summary     string `json:"summary_prefill"`
	Description string `json:"description_prefill"`
	UserMessage string `json:"user_message"`
}
