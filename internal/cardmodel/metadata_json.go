package cardmodel

import (
	"encoding/json"
	"time"

	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
)

// knownFields lists the metadata keys cardType custom fields must never
// collide with.
var knownFields = map[string]bool{
	"title": true, "cardType": true, "workflowState": true, "rank": true,
	"labels": true, "links": true, "lastUpdated": true, "lastTransitioned": true,
}

// MarshalJSON flattens CustomFields alongside the known metadata fields, so
// the on-disk shape matches spec §6 ("plus cardType-declared custom
// fields") rather than nesting them under a "customFields" key.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.CustomFields)+8)
	for k, v := range m.CustomFields {
		out[k] = v
	}
	out["title"] = m.Title
	out["cardType"] = m.CardType
	out["workflowState"] = m.WorkflowState
	out["rank"] = string(m.Rank)
	if m.Labels == nil {
		out["labels"] = []string{}
	} else {
		out["labels"] = m.Labels
	}
	if m.Links == nil {
		out["links"] = []Link{}
	} else {
		out["links"] = m.Links
	}
	out["lastUpdated"] = m.LastUpdated
	if m.LastTransitioned != nil {
		out["lastTransitioned"] = *m.LastTransitioned
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the flattened on-disk shape back into known fields
// plus CustomFields, repairing a missing "links" array on load (spec §4.1
// "Missing links array in on-disk metadata is repaired on load").
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["title"]; ok {
		json.Unmarshal(v, &m.Title)
		delete(raw, "title")
	}
	if v, ok := raw["cardType"]; ok {
		json.Unmarshal(v, &m.CardType)
		delete(raw, "cardType")
	}
	if v, ok := raw["workflowState"]; ok {
		json.Unmarshal(v, &m.WorkflowState)
		delete(raw, "workflowState")
	}
	if v, ok := raw["rank"]; ok {
		var r string
		json.Unmarshal(v, &r)
		m.Rank = lexorank.Rank(r)
		delete(raw, "rank")
	}
	if v, ok := raw["labels"]; ok {
		json.Unmarshal(v, &m.Labels)
		delete(raw, "labels")
	}
	if v, ok := raw["links"]; ok {
		json.Unmarshal(v, &m.Links)
		delete(raw, "links")
	} else {
		m.Links = []Link{}
	}
	if v, ok := raw["lastUpdated"]; ok {
		var t time.Time
		json.Unmarshal(v, &t)
		m.LastUpdated = t
		delete(raw, "lastUpdated")
	}
	if v, ok := raw["lastTransitioned"]; ok {
		var t time.Time
		if err := json.Unmarshal(v, &t); err == nil {
			m.LastTransitioned = &t
		}
		delete(raw, "lastTransitioned")
	}

	if len(raw) > 0 {
		m.CustomFields = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			m.CustomFields[k] = val
		}
	}
	return nil
}
