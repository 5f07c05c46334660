package ai

import "context"

// PhraseRequest is the already selected explanation content for one match.
// A phraser may reword it but never adds or drops reasons.
type PhraseRequest struct {
	OrganizationName string   `json:"organizationName,omitempty"`
	ProgramID        string   `json:"programId"`
	ProgramTitle     string   `json:"programTitle"`
	Agency           string   `json:"agency,omitempty"`
	Score            float64  `json:"score"`
	Tier             string   `json:"tier"`
	Summary          string   `json:"summary"`
	Reasons          []string `json:"reasons"`
	Cautions         []string `json:"cautions,omitempty"`
	Recommendation   string   `json:"recommendation"`
}

// Phrasing is the reworded text. Reasons is either empty or has exactly one
// entry per requested reason.
type Phrasing struct {
	Summary        string
	Recommendation string
	Reasons        []string
	Confidence     float64
	Raw            string
}

type Phraser interface {
	Phrase(ctx context.Context, req PhraseRequest) (*Phrasing, error)
}
