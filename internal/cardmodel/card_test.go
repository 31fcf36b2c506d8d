package cardmodel

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{
		Title:         "Use Postgres",
		CardType:      "dec/cardTypes/decision",
		WorkflowState: "Draft",
		Rank:          "0|m",
		Labels:        []string{"infra"},
		Links:         []Link{{LinkType: "dec/linkTypes/blocks", CardKey: "dec_b"}},
		LastUpdated:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CustomFields:  map[string]any{"owner": "alice@example.com"},
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var m2 Metadata
	if err := json.Unmarshal(data, &m2); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if m2.Title != m.Title || m2.CardType != m.CardType || m2.WorkflowState != m.WorkflowState {
		t.Fatalf("known fields did not round-trip: %+v", m2)
	}
	if m2.CustomFields["owner"] != "alice@example.com" {
		t.Fatalf("custom field did not round-trip: %+v", m2.CustomFields)
	}

	data2, err := json.Marshal(m2)
	if err != nil {
		t.Fatalf("second marshal failed: %v", err)
	}
	if string(data) != string(data2) {
		t.Fatalf("round-trip serialisation not stable:\n%s\nvs\n%s", data, data2)
	}
}

func TestMissingLinksRepaired(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"title":"x","cardType":"dec/cardTypes/decision","workflowState":"Draft","rank":"0|m","labels":[],"lastUpdated":"2025-01-01T00:00:00Z"}`), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if m.Links == nil {
		t.Fatalf("expected links to be repaired to an empty slice, got nil")
	}
}

func TestAddLinkDedup(t *testing.T) {
	c := &Card{}
	l := Link{LinkType: "dec/linkTypes/blocks", CardKey: "dec_b"}
	if !c.AddLink(l) {
		t.Fatalf("expected first add to succeed")
	}
	if c.AddLink(l) {
		t.Fatalf("expected duplicate add to fail")
	}
	if len(c.Metadata.Links) != 1 {
		t.Fatalf("expected exactly one link, got %d", len(c.Metadata.Links))
	}
}

func TestAddAttachmentDedup(t *testing.T) {
	c := &Card{}
	a := Attachment{Card: "dec_a", Path: "a/logo.png", FileName: "logo.png"}
	if !c.AddAttachment(a) {
		t.Fatalf("expected first add to succeed")
	}
	if c.AddAttachment(a) {
		t.Fatalf("expected duplicate add to fail")
	}
}

func TestLabelUniqueness(t *testing.T) {
	c := &Card{}
	if !c.AddLabel("security") {
		t.Fatalf("expected add to succeed")
	}
	if c.AddLabel("security") {
		t.Fatalf("expected duplicate label add to fail")
	}
	if !c.RemoveLabel("security") {
		t.Fatalf("expected remove to succeed")
	}
	if c.HasLabel("security") {
		t.Fatalf("expected label to be gone")
	}
}
