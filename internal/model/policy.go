package model

// Policy holds the reference thresholds and banned values a snapshot is
// validated against. Immutable for the duration of a validation call.
type Policy struct {
	MinValidDate      string   `json:"min_valid_date,omitempty" yaml:"min_valid_date"`
	MinReliability    float64  `json:"min_reliability" yaml:"min_reliability"`
	RequiredDomains   []string `json:"required_domains,omitempty" yaml:"required_domains"`
	ProhibitedTerms   []string `json:"prohibited_terms,omitempty" yaml:"prohibited_terms"`
	ForbiddenStatuses []string `json:"forbidden_statuses,omitempty" yaml:"forbidden_statuses"`
	RequireProvenance bool     `json:"require_provenance" yaml:"require_provenance"`
}
