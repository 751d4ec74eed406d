package examples

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kval/internal/engine"
	"github.com/sells-group/kval/internal/model"
)

func TestDefaultSnapshotIsClean(t *testing.T) {
	report := engine.Validate(DefaultSnapshot(), DefaultPolicy(), "")
	assert.Empty(t, report.Issues)
	assert.Zero(t, report.Summary.TotalIssues)
}

func TestDefaultSnapshotReturnsFreshCopies(t *testing.T) {
	a := DefaultSnapshot()
	a.Entities[0].Name = "mutated"
	b := DefaultSnapshot()
	assert.Equal(t, "Data Retention Policy", b.Entities[0].Name)
}

func TestScenariosTriggerAdvertisedIssues(t *testing.T) {
	tests := []struct {
		scenario string
		codes    []model.IssueCode
	}{
		{"conflicting-retention", []model.IssueCode{model.CodeConflictingFacts, model.CodeDuplicateEntityName}},
		{"dependency-cycle", []model.IssueCode{model.CodeRelationshipCycle}},
		{"obsolete", []model.IssueCode{model.CodeObsoleteEntity, model.CodeLowReliability, model.CodeMissingProvenance, model.CodeForbiddenStatus}},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			sc, err := FindBuiltIn(tt.scenario)
			require.NoError(t, err)
			report := engine.Validate(sc.Snapshot, DefaultPolicy(), "")
			for _, code := range tt.codes {
				assert.NotEmpty(t, report.IssuesWithCode(code), "expected %s", code)
			}
		})
	}
}

func TestFindBuiltInUnknown(t *testing.T) {
	_, err := FindBuiltIn("no-such-scenario")
	require.Error(t, err)
}

func TestListMergesDiskAndBuiltIns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.snapshot.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	names, err := List(dir)
	require.NoError(t, err)
	assert.Contains(t, names, "custom")
	assert.Contains(t, names, "clean")
	assert.Contains(t, names, "dependency-cycle")
	assert.NotContains(t, names, "notes")
	assert.IsIncreasing(t, names)
}

func TestListMissingDirReturnsBuiltIns(t *testing.T) {
	names, err := List(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Len(t, names, len(BuiltIn()))
}

func TestLoadBuiltInFallsBackToDefaultPolicy(t *testing.T) {
	snap, pol, err := Load(t.TempDir(), "obsolete")
	require.NoError(t, err)
	assert.Equal(t, "kb-demo-obsolete", snap.SnapshotID)
	assert.Equal(t, DefaultPolicy(), pol)
}

func TestLoadDiskOverridesBuiltIn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "clean.snapshot.json"),
		[]byte(`{"knowledge_base_id":"kb-disk","snapshot_id":"snap-disk"}`),
		0o644,
	))

	snap, pol, err := Load(dir, "clean")
	require.NoError(t, err)
	assert.Equal(t, "kb-disk", snap.KnowledgeBaseID)
	assert.Equal(t, DefaultPolicy(), pol)
}

func TestLoadReadsYAMLPolicy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "strict.snapshot.json"),
		[]byte(`{"knowledge_base_id":"kb-strict","snapshot_id":"snap-strict"}`),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "strict.policy.yaml"),
		[]byte("min_reliability: 0.95\nrequired_domains:\n  - legal\n"),
		0o644,
	))

	_, pol, err := Load(dir, "strict")
	require.NoError(t, err)
	assert.InDelta(t, 0.95, pol.MinReliability, 1e-9)
	assert.Equal(t, []string{"legal"}, pol.RequiredDomains)
}

func TestLoadRejectsPathTraversal(t *testing.T) {
	for _, name := range []string{"../etc/passwd", `..\secret`, "a/b"} {
		_, _, err := Load(t.TempDir(), name)
		require.Error(t, err, name)
	}
}

func TestWriteDefaultsIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefaults(dir))

	custom := filepath.Join(dir, "clean.snapshot.json")
	require.NoError(t, os.WriteFile(custom, []byte(`{"snapshot_id":"edited"}`), 0o644))
	require.NoError(t, WriteDefaults(dir))

	raw, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "edited")

	names, err := List(dir)
	require.NoError(t, err)
	for _, sc := range BuiltIn() {
		assert.Contains(t, names, sc.Name)
	}
}
