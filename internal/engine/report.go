package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/kval/internal/model"
)

// questionCodes is the documented subset of issue codes that yield a
// clarification question when the issue is high severity or worse.
var questionCodes = map[model.IssueCode]bool{
	model.CodeConflictingFacts:        true,
	model.CodeRelationshipCycle:       true,
	model.CodeUnknownProvenanceSource: true,
}

// BuildReport aggregates check output into the final report. Summary counts
// are grouped both by severity and by code; the per-severity totals equal
// the sums of per-code counts because both tally the same issue slice. Mode
// is deterministic_and_ai iff a non-empty aiReport was supplied.
func BuildReport(snap *model.Snapshot, pol *model.Policy, issues []model.Issue, aiReport string) *model.ValidationReport {
	if issues == nil {
		issues = []model.Issue{}
	}

	bySeverity := make(map[model.Severity]int)
	byCode := make(map[model.IssueCode]int)
	for _, issue := range issues {
		bySeverity[issue.Severity]++
		byCode[issue.Code]++
	}

	questions := clarificationQuestions(issues)

	mode := model.ModeDeterministic
	if aiReport != "" {
		mode = model.ModeDeterministicAndAI
	}

	return &model.ValidationReport{
		GeneratedAt:      time.Now().UTC(),
		KnowledgeBaseID:  snap.KnowledgeBaseID,
		SnapshotID:       snap.SnapshotID,
		ReferenceVersion: snap.ReferenceVersion,
		Mode:             mode,
		Summary: model.Summary{
			TotalEntities:  len(snap.Entities),
			TotalRelations: len(snap.Relations),
			TotalIssues:    len(issues),
			BySeverity:     bySeverity,
			ByCode:         byCode,
			Questions:      len(questions),
		},
		Issues:                 issues,
		ClarificationQuestions: questions,
		AIReport:               aiReport,
	}
}

// clarificationQuestions derives one policy-owner question per qualifying
// issue, preserving issue order and dropping exact duplicates.
func clarificationQuestions(issues []model.Issue) []string {
	questions := []string{}
	seen := make(map[string]bool)
	for _, issue := range issues {
		if !questionCodes[issue.Code] || !issue.Severity.AtLeast(model.SeverityHigh) {
			continue
		}
		q := questionFor(issue)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		questions = append(questions, q)
	}
	return questions
}

// questionFor phrases a single issue as a question the reference-policy
// owner should answer.
func questionFor(issue model.Issue) string {
	switch issue.Code {
	case model.CodeConflictingFacts:
		subject, _ := issue.Details["subject"].(string)
		unit, _ := issue.Details["unit"].(string)
		values, _ := issue.Details["values"].([]string)
		if subject == "" || len(values) == 0 {
			return ""
		}
		return fmt.Sprintf("Which %s value is authoritative for %q: %s?",
			unitLabel(unit), subject, strings.Join(values, " or "))
	case model.CodeRelationshipCycle:
		return fmt.Sprintf("Is the dependency cycle %s intentional, or should one of its links be removed?",
			issue.RelationRef)
	case model.CodeUnknownProvenanceSource:
		entityName, _ := issue.Details["entity_name"].(string)
		sourceID, _ := issue.Details["source_id"].(string)
		if entityName == "" || sourceID == "" {
			return ""
		}
		return fmt.Sprintf("Which source document should entity %q cite instead of the unknown reference %q?",
			entityName, sourceID)
	default:
		return ""
	}
}
