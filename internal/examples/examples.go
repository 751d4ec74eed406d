// Package examples provides the built-in demo snapshot and policy plus a
// loader for example scenarios stored on disk. Scenarios are what the API
// and CLI seed the store with; the engine itself never touches this package.
package examples

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/kval/internal/model"
)

// ErrInvalidName is returned for example names that could escape the
// examples directory.
var ErrInvalidName = eris.New("examples: invalid example name")

func f64(v float64) *float64 { return &v }

// DefaultSnapshot returns the built-in demo knowledge snapshot. Callers get
// a fresh copy each call and may mutate it freely.
func DefaultSnapshot() *model.Snapshot {
	return &model.Snapshot{
		KnowledgeBaseID:  "kb-demo",
		SnapshotID:       "kb-demo-2026-02-16-001",
		ReferenceVersion: "v1",
		CreatedAt:        "2026-02-16T10:00:00Z",
		SourceDocs: []model.SourceDocument{
			{ID: "doc-policy-001", Title: "Policy Manual v2", Date: "2025-06-10", Version: "2.0"},
			{ID: "doc-sec-001", Title: "Security Runbook", Date: "2024-12-01", Version: "1.4"},
		},
		Entities: []model.Entity{
			{
				ID:     "ent-001",
				Name:   "Data Retention Policy",
				Domain: "policy",
				Facts: []string{
					"Retention period is 24 months",
					"Applies to customer data",
				},
				Reliability: f64(0.82),
				Provenance:  []string{"doc-policy-001"},
				UpdatedAt:   "2025-06-10",
				Status:      "active",
			},
			{
				ID:     "ent-002",
				Name:   "Incident Response Procedure",
				Domain: "procedure",
				Facts: []string{
					"Notify DPO within 72 hours",
					"Escalate severity 1 incidents immediately",
				},
				Reliability: f64(0.9),
				Provenance:  []string{"doc-sec-001"},
				UpdatedAt:   "2024-12-01",
				Status:      "active",
			},
		},
		Relations: []model.Relation{
			{Source: "ent-002", Type: "implements", Target: "ent-001", Confidence: f64(0.8)},
		},
	}
}

// DefaultPolicy returns the built-in reference policy.
func DefaultPolicy() *model.Policy {
	return &model.Policy{
		MinValidDate:      "2024-01-01",
		MinReliability:    0.7,
		RequiredDomains:   []string{"policy", "procedure"},
		ProhibitedTerms:   []string{"deprecated", "obsolete"},
		ForbiddenStatuses: []string{"deprecated"},
		RequireProvenance: true,
	}
}

// Scenario is a named snapshot variant used to exercise specific issue
// families against the default policy.
type Scenario struct {
	Name        string
	Description string
	Snapshot    *model.Snapshot
}

// BuiltIn returns the built-in scenarios in a stable order.
func BuiltIn() []Scenario {
	return []Scenario{
		{
			Name:        "clean",
			Description: "Default snapshot with no policy violations",
			Snapshot:    DefaultSnapshot(),
		},
		{
			Name:        "conflicting-retention",
			Description: "Two entities assert different retention periods",
			Snapshot:    conflictingRetention(),
		},
		{
			Name:        "dependency-cycle",
			Description: "Dependency relations form a cycle",
			Snapshot:    dependencyCycle(),
		},
		{
			Name:        "obsolete",
			Description: "Entity last updated before the minimum valid date",
			Snapshot:    obsoleteEntity(),
		},
	}
}

// FindBuiltIn returns the named built-in scenario, or an error when unknown.
func FindBuiltIn(name string) (Scenario, error) {
	for _, sc := range BuiltIn() {
		if sc.Name == name {
			return sc, nil
		}
	}
	return Scenario{}, eris.Errorf("examples: unknown scenario %q", name)
}

func conflictingRetention() *model.Snapshot {
	snap := DefaultSnapshot()
	snap.SnapshotID = "kb-demo-conflicting-retention"
	snap.Entities = append(snap.Entities, model.Entity{
		ID:     "ent-003",
		Name:   "Data Retention Policy",
		Domain: "policy",
		Facts: []string{
			"Retention period is 12 months",
		},
		Reliability: f64(0.75),
		Provenance:  []string{"doc-sec-001"},
		UpdatedAt:   "2025-01-15",
		Status:      "active",
	})
	return snap
}

func dependencyCycle() *model.Snapshot {
	snap := DefaultSnapshot()
	snap.SnapshotID = "kb-demo-dependency-cycle"
	snap.Entities = append(snap.Entities, model.Entity{
		ID:          "ent-003",
		Name:        "Access Review Process",
		Domain:      "procedure",
		Facts:       []string{"Quarterly review of access grants"},
		Reliability: f64(0.8),
		Provenance:  []string{"doc-sec-001"},
		UpdatedAt:   "2025-03-01",
		Status:      "active",
	})
	snap.Relations = append(snap.Relations,
		model.Relation{Source: "ent-001", Type: "depends_on", Target: "ent-002", Confidence: f64(0.9)},
		model.Relation{Source: "ent-002", Type: "depends_on", Target: "ent-003", Confidence: f64(0.9)},
		model.Relation{Source: "ent-003", Type: "depends_on", Target: "ent-001", Confidence: f64(0.9)},
	)
	return snap
}

func obsoleteEntity() *model.Snapshot {
	snap := DefaultSnapshot()
	snap.SnapshotID = "kb-demo-obsolete"
	snap.Entities = append(snap.Entities, model.Entity{
		ID:          "ent-003",
		Name:        "Legacy Backup Procedure",
		Domain:      "procedure",
		Facts:       []string{"Tape rotation every 7 days"},
		Reliability: f64(0.6),
		Provenance:  []string{},
		UpdatedAt:   "2022-05-01",
		Status:      "deprecated",
	})
	return snap
}

const (
	snapshotSuffix   = ".snapshot.json"
	policyJSONSuffix = ".policy.json"
	policyYAMLSuffix = ".policy.yaml"
)

// List returns example names found in dir, merged with the built-in
// scenario names, sorted and deduplicated. A missing directory is not an
// error; the built-ins are always available.
func List(dir string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, sc := range BuiltIn() {
		seen[sc.Name] = true
		names = append(names, sc.Name)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			sort.Strings(names)
			return names, nil
		}
		return nil, eris.Wrapf(err, "examples: read dir %s", dir)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), snapshotSuffix)
		if !ok || name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load resolves a named example: disk files under dir take precedence over
// the built-in scenario of the same name. The policy file is optional and
// falls back to the default policy.
func Load(dir, name string) (*model.Snapshot, *model.Policy, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, nil, eris.Wrapf(ErrInvalidName, "%q", name)
	}

	snapPath := filepath.Join(dir, name+snapshotSuffix)
	if _, err := os.Stat(snapPath); err == nil {
		return loadFromDisk(dir, name)
	}

	sc, err := FindBuiltIn(name)
	if err != nil {
		return nil, nil, err
	}
	return sc.Snapshot, DefaultPolicy(), nil
}

func loadFromDisk(dir, name string) (*model.Snapshot, *model.Policy, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name+snapshotSuffix))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "examples: read snapshot %s", name)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, nil, eris.Wrapf(err, "examples: parse snapshot %s", name)
	}

	pol, err := loadPolicy(dir, name)
	if err != nil {
		return nil, nil, err
	}
	return &snap, pol, nil
}

func loadPolicy(dir, name string) (*model.Policy, error) {
	if raw, err := os.ReadFile(filepath.Join(dir, name+policyJSONSuffix)); err == nil {
		var pol model.Policy
		if err := json.Unmarshal(raw, &pol); err != nil {
			return nil, eris.Wrapf(err, "examples: parse policy %s", name)
		}
		return &pol, nil
	}
	if raw, err := os.ReadFile(filepath.Join(dir, name+policyYAMLSuffix)); err == nil {
		var pol model.Policy
		if err := yaml.Unmarshal(raw, &pol); err != nil {
			return nil, eris.Wrapf(err, "examples: parse policy %s", name)
		}
		return &pol, nil
	}
	return DefaultPolicy(), nil
}

// WriteDefaults materializes the built-in scenarios as snapshot files under
// dir so users have editable starting points. Existing files are left alone.
func WriteDefaults(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "examples: create dir %s", dir)
	}
	for _, sc := range BuiltIn() {
		path := filepath.Join(dir, sc.Name+snapshotSuffix)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		raw, err := json.MarshalIndent(sc.Snapshot, "", "  ")
		if err != nil {
			return eris.Wrapf(err, "examples: marshal scenario %s", sc.Name)
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return eris.Wrapf(err, "examples: write scenario %s", sc.Name)
		}
	}
	return nil
}
