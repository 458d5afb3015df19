package protocol

// Match is a candidate duplicate from the similarity index. Produced fresh
// per search call; never persisted.
type Match struct {
	Key      string  `json:"key"`
	Score    float64 `json:"score"` // normalized [0,1]
	Status   string  `json:"status"`
	Priority string  `json:"priority"`
	URL      string  `json:"url"`
}

// IssueContext is the current state of a tracked issue, fetched fresh for
// summarization.
type IssueContext struct {
	Key      string   `json:"key"`
	Summary  string   `json:"summary"`
	Comments []string `json:"comments"`
}

// TicketFields is the fixed field set for issue creation.
type TicketFields struct {
	Project     string   `json:"project"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	IssueType   string   `json:"issue_type"`
	Priority    string   `json:"priority"`
	Brand       string   `json:"brand"`
	Environment string   `json:"environment"`
	Component   string   `json:"component"`
	Labels      []string `json:"labels,omitempty"`
}

// CreatedTicket is the tracker's canonical identity for a new issue.
type CreatedTicket struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Allowed value domains for the creation form's select fields.
var (
	IssueTypes   = []string{"Bug", "Task", "Story"}
	Priorities   = []string{"Low-P3", "Medium-P2", "High-P1", "Highest-P0"}
	Brands       = []string{"Fortress", "Indigi", "Sunoco", "Aape"}
	Environments = []string{"Prod", "Golive", "UAT", "Demo"}
	Components   = []string{"API", "Badges", "AWS", "Engage", "CDP", "Loyalty"}
)
