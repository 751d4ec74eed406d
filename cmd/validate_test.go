package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kval/internal/examples"
	"github.com/sells-group/kval/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	validateSnapshotPath, validatePolicyPath, validateOutPath = "", "", ""
	validateAI = false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReadSnapshotFileDefaultsToBuiltIn(t *testing.T) {
	snap, err := readSnapshotFile("")
	require.NoError(t, err)
	assert.Equal(t, "kb-demo", snap.KnowledgeBaseID)
}

func TestReadSnapshotFileParsesJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "snap.json",
		`{"knowledge_base_id":"kb-x","snapshot_id":"snap-x"}`)
	snap, err := readSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kb-x", snap.KnowledgeBaseID)
}

func TestReadSnapshotFileRejectsBadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "snap.json", "{not json")
	_, err := readSnapshotFile(path)
	require.Error(t, err)
}

func TestReadPolicyFileFormats(t *testing.T) {
	dir := t.TempDir()

	jsonPath := writeFile(t, dir, "pol.json", `{"min_reliability":0.8}`)
	pol, err := readPolicyFile(jsonPath)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, pol.MinReliability, 1e-9)

	yamlPath := writeFile(t, dir, "pol.yaml", "min_reliability: 0.9\nrequired_domains:\n  - policy\n")
	pol, err = readPolicyFile(yamlPath)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, pol.MinReliability, 1e-9)
	assert.Equal(t, []string{"policy"}, pol.RequiredDomains)

	pol, err = readPolicyFile("")
	require.NoError(t, err)
	assert.Equal(t, examples.DefaultPolicy(), pol)
}

func TestValidateCommandWritesReport(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "report.json")

	_, err := runCommand(t, "validate", "--out", outPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var report model.ValidationReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, model.ModeDeterministic, report.Mode)
	assert.Zero(t, report.Summary.TotalIssues)
}

func TestValidateCommandFailsOnCriticalIssues(t *testing.T) {
	dir := t.TempDir()
	snap := examples.DefaultSnapshot()
	snap.Relations = append(snap.Relations,
		model.Relation{Source: "ent-001", Type: "depends_on", Target: "ent-002"},
		model.Relation{Source: "ent-002", Type: "depends_on", Target: "ent-001"},
	)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	snapPath := writeFile(t, dir, "cycle.json", string(raw))

	_, err = runCommand(t, "validate", "--snapshot", snapPath, "--out", filepath.Join(dir, "r.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "critical")
}

func TestValidateCommandMissingSnapshotFile(t *testing.T) {
	_, err := runCommand(t, "validate", "--snapshot", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
