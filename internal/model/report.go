package model

import "time"

// Validation report modes.
const (
	ModeDeterministic      = "deterministic"
	ModeDeterministicAndAI = "deterministic_and_ai"
)

// Summary aggregates issue counts for a validation report. Per-severity
// totals always equal the sum of per-code counts at that severity.
type Summary struct {
	TotalEntities  int               `json:"total_entities"`
	TotalRelations int               `json:"total_relations"`
	TotalIssues    int               `json:"issues_total"`
	BySeverity     map[Severity]int  `json:"by_severity"`
	ByCode         map[IssueCode]int `json:"by_code"`
	Questions      int               `json:"questions"`
}

// ValidationReport is the complete output of one validation run.
type ValidationReport struct {
	GeneratedAt            time.Time `json:"generated_at"`
	KnowledgeBaseID        string    `json:"knowledge_base_id"`
	SnapshotID             string    `json:"snapshot_id"`
	ReferenceVersion       string    `json:"reference_version,omitempty"`
	Mode                   string    `json:"mode"`
	Summary                Summary   `json:"summary"`
	Issues                 []Issue   `json:"issues"`
	ClarificationQuestions []string  `json:"clarification_questions"`
	AIReport               string    `json:"ai_report,omitempty"`
}

// IssuesWithCode returns the issues carrying the given code, in report order.
func (r *ValidationReport) IssuesWithCode(code IssueCode) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Code == code {
			out = append(out, issue)
		}
	}
	return out
}
