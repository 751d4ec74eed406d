package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityLegacySourceField(t *testing.T) {
	payload := `{"id":"ent-1","name":"Retention Policy","source":"doc-1"}`

	var e Entity
	require.NoError(t, json.Unmarshal([]byte(payload), &e))
	assert.Equal(t, []string{"doc-1"}, e.Provenance)
}

func TestEntityLegacySourceIgnoredWhenProvenancePresent(t *testing.T) {
	payload := `{"id":"ent-1","name":"Retention Policy","source":"doc-legacy","provenance":["doc-new"]}`

	var e Entity
	require.NoError(t, json.Unmarshal([]byte(payload), &e))
	assert.Equal(t, []string{"doc-new"}, e.Provenance)
}

func TestSnapshotRoundTrip(t *testing.T) {
	rel := 0.82
	snap := Snapshot{
		KnowledgeBaseID: "kb-demo",
		SnapshotID:      "snap-001",
		SourceDocs:      []SourceDocument{{ID: "doc-1", Title: "Policy Manual"}},
		Entities: []Entity{{
			ID:          "ent-1",
			Name:        "Data Retention Policy",
			Domain:      "policy",
			Facts:       []string{"Retention period is 24 months"},
			Reliability: &rel,
			Provenance:  []string{"doc-1"},
			UpdatedAt:   "2025-06-10",
			Status:      "active",
		}},
		Relations: []Relation{{Source: "ent-1", Type: "implements", Target: "ent-2"}},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, snap, got)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"plain date", "2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", "2026-02-16T10:00:00Z", time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC), false},
		{"garbage", "not-a-date", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want))
		})
	}
}
