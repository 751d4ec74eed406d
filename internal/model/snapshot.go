package model

import "encoding/json"

// SourceDocument is the provenance target entities can cite.
type SourceDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date,omitempty"`
	URI     string `json:"uri,omitempty"`
	Version string `json:"version,omitempty"`
}

// Entity is a single knowledge entity extracted from source material.
// Date fields carry the wire format ("2006-01-02" or RFC 3339); the engine
// parses them and reports unparsable values as issues instead of failing.
type Entity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Domain      string   `json:"domain,omitempty"`
	Facts       []string `json:"facts,omitempty"`
	Reliability *float64 `json:"reliability,omitempty"`
	Provenance  []string `json:"provenance,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	ValidFrom   string   `json:"valid_from,omitempty"`
	ValidTo     string   `json:"valid_to,omitempty"`
	Version     string   `json:"version,omitempty"`
	Status      string   `json:"status,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// UnmarshalJSON maps the legacy singular "source" field into provenance when
// no provenance list is given, so older extractor payloads keep decoding.
func (e *Entity) UnmarshalJSON(data []byte) error {
	type entityAlias Entity
	aux := struct {
		*entityAlias
		LegacySource string `json:"source,omitempty"`
	}{entityAlias: (*entityAlias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.LegacySource != "" && len(e.Provenance) == 0 {
		e.Provenance = []string{aux.LegacySource}
	}
	return nil
}

// Relation connects two entities. Endpoints are entity ids and need not
// resolve to a known entity; unresolved endpoints are findings, not errors.
type Relation struct {
	Source     string   `json:"source"`
	Type       string   `json:"type"`
	Target     string   `json:"target"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Snapshot is one versioned extraction of documents, entities, and relations
// submitted for validation. The engine treats it as read-only.
type Snapshot struct {
	KnowledgeBaseID  string           `json:"knowledge_base_id"`
	SnapshotID       string           `json:"snapshot_id"`
	ReferenceVersion string           `json:"reference_version,omitempty"`
	CreatedAt        string           `json:"created_at,omitempty"`
	SourceDocs       []SourceDocument `json:"source_docs,omitempty"`
	Entities         []Entity         `json:"entities,omitempty"`
	Relations        []Relation       `json:"relations,omitempty"`
}
