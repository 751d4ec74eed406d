package model

// IssueCode identifies the deterministic check that produced an issue.
type IssueCode string

const (
	CodeDuplicateEntityName     IssueCode = "DUPLICATE_ENTITY_NAME"
	CodeConflictingFacts        IssueCode = "CONFLICTING_FACTS"
	CodeObsoleteEntity          IssueCode = "OBSOLETE_ENTITY"
	CodeMissingDomain           IssueCode = "MISSING_DOMAIN"
	CodeLowReliability          IssueCode = "LOW_RELIABILITY"
	CodeMissingProvenance       IssueCode = "MISSING_PROVENANCE"
	CodeUnknownProvenanceSource IssueCode = "UNKNOWN_PROVENANCE_SOURCE"
	CodeProhibitedTerm          IssueCode = "PROHIBITED_TERM"
	CodeForbiddenStatus         IssueCode = "FORBIDDEN_STATUS"
	CodeMissingRequiredDomain   IssueCode = "MISSING_REQUIRED_DOMAIN"
	CodeRelationshipCycle       IssueCode = "RELATIONSHIP_CYCLE"

	// CodeMalformedField flags a field that was present but unparsable
	// (bad date string, out-of-range numeric). Malformed input is reported,
	// never raised.
	CodeMalformedField IssueCode = "MALFORMED_FIELD"
)

// Issue is a single machine-readable validation finding. Issues are value
// objects: produced once by a check, never mutated afterwards.
type Issue struct {
	Code            IssueCode      `json:"code"`
	Severity        Severity       `json:"severity"`
	Message         string         `json:"message"`
	EntityIDs       []string       `json:"entity_ids,omitempty"`
	RelationRef     string         `json:"relation_ref,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	SuggestedAction string         `json:"suggested_action,omitempty"`
}
