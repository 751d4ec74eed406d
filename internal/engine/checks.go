package engine

import (
	"fmt"
	"strings"

	"github.com/sells-group/kval/internal/model"
)

// CheckFunc inspects a snapshot against a policy and returns zero or more
// issues. Checks are pure: they never mutate their inputs and never fail —
// malformed-but-decodable input becomes a MALFORMED_FIELD issue.
type CheckFunc func(snap *model.Snapshot, pol *model.Policy) []model.Issue

// Check pairs a stable name with its implementation.
type Check struct {
	Name string
	Fn   CheckFunc
}

// Registry returns all checks in their fixed execution order. Report issue
// ordering follows this order, so reordering entries is a breaking change
// for consumers that diff reports.
func Registry() []Check {
	return []Check{
		{"duplicate_entity_name", checkDuplicateNames},
		{"conflicting_facts", checkConflictingFacts},
		{"obsolete_entity", checkObsoleteEntities},
		{"missing_domain", checkMissingDomain},
		{"low_reliability", checkLowReliability},
		{"missing_provenance", checkMissingProvenance},
		{"unknown_provenance_source", checkUnknownProvenance},
		{"prohibited_term", checkProhibitedTerms},
		{"forbidden_status", checkForbiddenStatus},
		{"missing_required_domain", checkRequiredDomains},
		{"relationship_cycle", checkRelationCycles},
	}
}

// severityFor is the fixed code→severity mapping. LOW_RELIABILITY is the one
// code with a dynamic severity: it escalates from warning to high when the
// reliability falls below half the policy threshold (see checkLowReliability).
var severityFor = map[model.IssueCode]model.Severity{
	model.CodeRelationshipCycle:       model.SeverityCritical,
	model.CodeConflictingFacts:        model.SeverityCritical,
	model.CodeDuplicateEntityName:     model.SeverityHigh,
	model.CodeMissingProvenance:       model.SeverityHigh,
	model.CodeUnknownProvenanceSource: model.SeverityHigh,
	model.CodeProhibitedTerm:          model.SeverityHigh,
	model.CodeMissingRequiredDomain:   model.SeverityHigh,
	model.CodeLowReliability:          model.SeverityWarning,
	model.CodeObsoleteEntity:          model.SeverityWarning,
	model.CodeMissingDomain:           model.SeverityWarning,
	model.CodeForbiddenStatus:         model.SeverityWarning,
	model.CodeMalformedField:          model.SeverityInfo,
}

// RunAllChecks executes the full registry and concatenates the results.
// Checks are independent; none sees another's output, and no deduplication
// happens across checks.
func RunAllChecks(snap *model.Snapshot, pol *model.Policy) []model.Issue {
	var issues []model.Issue
	for _, c := range Registry() {
		issues = append(issues, c.Fn(snap, pol)...)
	}
	return issues
}

// checkDuplicateNames flags groups of entities sharing the same name.
// Matching is case-sensitive and exact; one issue per duplicate group.
func checkDuplicateNames(snap *model.Snapshot, _ *model.Policy) []model.Issue {
	byName := make(map[string][]string)
	var order []string
	for _, e := range snap.Entities {
		if len(byName[e.Name]) == 0 {
			order = append(order, e.Name)
		}
		byName[e.Name] = append(byName[e.Name], e.ID)
	}

	var issues []model.Issue
	for _, name := range order {
		ids := uniqueStrings(byName[name])
		if len(ids) < 2 {
			continue
		}
		issues = append(issues, model.Issue{
			Code:     model.CodeDuplicateEntityName,
			Severity: severityFor[model.CodeDuplicateEntityName],
			Message: fmt.Sprintf("Duplicate entity name %q used by %d entities: %s.",
				name, len(ids), strings.Join(ids, ", ")),
			EntityIDs:       ids,
			Details:         map[string]any{"name": name},
			SuggestedAction: "Merge the duplicates or rename the entities distinctly.",
		})
	}
	return issues
}

// checkObsoleteEntities flags entities last updated before the policy's
// minimum valid date. Date comparison, never string comparison; unparsable
// dates degrade to MALFORMED_FIELD info issues.
func checkObsoleteEntities(snap *model.Snapshot, pol *model.Policy) []model.Issue {
	if pol.MinValidDate == "" {
		return nil
	}
	minValid, err := model.ParseDate(pol.MinValidDate)
	if err != nil {
		return []model.Issue{malformedField("policy.min_valid_date", pol.MinValidDate, nil)}
	}

	var issues []model.Issue
	for _, e := range snap.Entities {
		if e.UpdatedAt == "" {
			continue
		}
		updated, err := model.ParseDate(e.UpdatedAt)
		if err != nil {
			issues = append(issues, malformedField("updated_at", e.UpdatedAt, []string{e.ID}))
			continue
		}
		if updated.Before(minValid) {
			issues = append(issues, model.Issue{
				Code:     model.CodeObsoleteEntity,
				Severity: severityFor[model.CodeObsoleteEntity],
				Message: fmt.Sprintf("Entity %q is obsolete: updated_at=%s is older than min_valid_date=%s.",
					e.Name, e.UpdatedAt, pol.MinValidDate),
				EntityIDs: []string{e.ID},
				Details: map[string]any{
					"updated_at":     e.UpdatedAt,
					"min_valid_date": pol.MinValidDate,
				},
				SuggestedAction: "Refresh this entity from a newer document.",
			})
		}
	}
	return issues
}

// checkMissingDomain flags entities with no domain assigned.
func checkMissingDomain(snap *model.Snapshot, _ *model.Policy) []model.Issue {
	var issues []model.Issue
	for _, e := range snap.Entities {
		if e.Domain != "" {
			continue
		}
		issues = append(issues, model.Issue{
			Code:            model.CodeMissingDomain,
			Severity:        severityFor[model.CodeMissingDomain],
			Message:         fmt.Sprintf("Entity %q has no domain.", e.Name),
			EntityIDs:       []string{e.ID},
			SuggestedAction: "Assign the entity a domain from the taxonomy.",
		})
	}
	return issues
}

// checkLowReliability flags entities below the reliability threshold.
// Severity escalates to high when reliability is below half the threshold.
// Out-of-range reliability or confidence values are malformed input, not
// low reliability.
func checkLowReliability(snap *model.Snapshot, pol *model.Policy) []model.Issue {
	var issues []model.Issue
	for _, e := range snap.Entities {
		if e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1) {
			issues = append(issues, malformedField("confidence", fmt.Sprintf("%v", *e.Confidence), []string{e.ID}))
		}
		if e.Reliability == nil {
			continue
		}
		r := *e.Reliability
		if r < 0 || r > 1 {
			issues = append(issues, malformedField("reliability", fmt.Sprintf("%v", r), []string{e.ID}))
			continue
		}
		if r >= pol.MinReliability {
			continue
		}
		sev := severityFor[model.CodeLowReliability]
		if r < pol.MinReliability/2 {
			sev = model.SeverityHigh
		}
		issues = append(issues, model.Issue{
			Code:     model.CodeLowReliability,
			Severity: sev,
			Message: fmt.Sprintf("Entity %q reliability %.2f is below threshold %.2f.",
				e.Name, r, pol.MinReliability),
			EntityIDs: []string{e.ID},
			Details: map[string]any{
				"reliability":     r,
				"min_reliability": pol.MinReliability,
			},
			SuggestedAction: "Link stronger evidence to raise confidence in this entity.",
		})
	}
	return issues
}

// checkMissingProvenance flags entities with empty provenance when the
// policy requires provenance.
func checkMissingProvenance(snap *model.Snapshot, pol *model.Policy) []model.Issue {
	if !pol.RequireProvenance {
		return nil
	}
	var issues []model.Issue
	for _, e := range snap.Entities {
		if len(e.Provenance) > 0 {
			continue
		}
		issues = append(issues, model.Issue{
			Code:            model.CodeMissingProvenance,
			Severity:        severityFor[model.CodeMissingProvenance],
			Message:         fmt.Sprintf("Entity %q has no provenance.", e.Name),
			EntityIDs:       []string{e.ID},
			SuggestedAction: "Attach one or more source document ids to provenance.",
		})
	}
	return issues
}

// checkUnknownProvenance flags provenance references that do not resolve to
// a document in source_docs. One issue per dangling reference.
func checkUnknownProvenance(snap *model.Snapshot, _ *model.Policy) []model.Issue {
	known := make(map[string]bool, len(snap.SourceDocs))
	for _, doc := range snap.SourceDocs {
		known[doc.ID] = true
	}

	var issues []model.Issue
	for _, e := range snap.Entities {
		for _, ref := range e.Provenance {
			if known[ref] {
				continue
			}
			issues = append(issues, model.Issue{
				Code:     model.CodeUnknownProvenanceSource,
				Severity: severityFor[model.CodeUnknownProvenanceSource],
				Message: fmt.Sprintf("Entity %q cites unknown source document %q.",
					e.Name, ref),
				EntityIDs:       []string{e.ID},
				Details:         map[string]any{"source_id": ref, "entity_name": e.Name},
				SuggestedAction: "Add the missing document to source_docs or fix the provenance id.",
			})
		}
	}
	return issues
}

// checkProhibitedTerms flags entities whose name or facts contain a
// prohibited term. Matching is case-insensitive substring within a single
// field, so multi-word terms never match across the name/fact boundary.
// One issue per (entity, term) pair.
func checkProhibitedTerms(snap *model.Snapshot, pol *model.Policy) []model.Issue {
	if len(pol.ProhibitedTerms) == 0 {
		return nil
	}
	var issues []model.Issue
	for _, e := range snap.Entities {
		fields := make([]string, 0, len(e.Facts)+1)
		fields = append(fields, strings.ToLower(e.Name))
		for _, fact := range e.Facts {
			fields = append(fields, strings.ToLower(fact))
		}
		for _, term := range pol.ProhibitedTerms {
			if term == "" || !anyContains(fields, strings.ToLower(term)) {
				continue
			}
			issues = append(issues, model.Issue{
				Code:     model.CodeProhibitedTerm,
				Severity: severityFor[model.CodeProhibitedTerm],
				Message: fmt.Sprintf("Entity %q contains prohibited term %q.",
					e.Name, term),
				EntityIDs:       []string{e.ID},
				Details:         map[string]any{"term": term},
				SuggestedAction: "Remove or replace the prohibited language.",
			})
		}
	}
	return issues
}

// checkForbiddenStatus flags entities whose status is in the policy's
// forbidden set. Exact match.
func checkForbiddenStatus(snap *model.Snapshot, pol *model.Policy) []model.Issue {
	if len(pol.ForbiddenStatuses) == 0 {
		return nil
	}
	forbidden := make(map[string]bool, len(pol.ForbiddenStatuses))
	for _, s := range pol.ForbiddenStatuses {
		forbidden[s] = true
	}

	var issues []model.Issue
	for _, e := range snap.Entities {
		if !forbidden[e.Status] {
			continue
		}
		issues = append(issues, model.Issue{
			Code:            model.CodeForbiddenStatus,
			Severity:        severityFor[model.CodeForbiddenStatus],
			Message:         fmt.Sprintf("Entity %q uses forbidden status %q.", e.Name, e.Status),
			EntityIDs:       []string{e.ID},
			Details:         map[string]any{"status": e.Status},
			SuggestedAction: "Move the entity to an allowed status.",
		})
	}
	return issues
}

// checkRequiredDomains flags required domains that no entity in the snapshot
// covers. Global check: one issue per missing domain, in policy order.
func checkRequiredDomains(snap *model.Snapshot, pol *model.Policy) []model.Issue {
	if len(pol.RequiredDomains) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for _, e := range snap.Entities {
		if e.Domain != "" {
			present[e.Domain] = true
		}
	}

	var issues []model.Issue
	for _, domain := range pol.RequiredDomains {
		if present[domain] {
			continue
		}
		issues = append(issues, model.Issue{
			Code:            model.CodeMissingRequiredDomain,
			Severity:        severityFor[model.CodeMissingRequiredDomain],
			Message:         fmt.Sprintf("Required domain %q is not covered by any entity.", domain),
			Details:         map[string]any{"required_domain": domain},
			SuggestedAction: "Add at least one entity for each required domain.",
		})
	}
	return issues
}

// anyContains reports whether any field contains the substring.
func anyContains(fields []string, sub string) bool {
	for _, f := range fields {
		if strings.Contains(f, sub) {
			return true
		}
	}
	return false
}

// malformedField builds the low-noise issue used for unparsable field values.
func malformedField(field, value string, entityIDs []string) model.Issue {
	return model.Issue{
		Code:            model.CodeMalformedField,
		Severity:        severityFor[model.CodeMalformedField],
		Message:         fmt.Sprintf("Field %s has unparsable value %q.", field, value),
		EntityIDs:       entityIDs,
		Details:         map[string]any{"field": field, "value": value},
		SuggestedAction: "Correct the field value in the extractor output.",
	}
}

// uniqueStrings returns values with duplicates removed, preserving first
// occurrence order.
func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
