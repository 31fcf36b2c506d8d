// Package cardmodel defines the Card entity and its metadata shape (spec
// §3 "Card", §6 "Card metadata JSON shape").
package cardmodel

import (
	"regexp"
	"time"

	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
)

// RootKey is the sentinel parent value for a card with no parent.
const RootKey = "ROOT"

// KeyPattern matches a well-formed card key: "<prefix>_<base36 suffix>".
var KeyPattern = regexp.MustCompile(`^[a-z]+_[0-9a-z]+$`)

// Location tags whether a card belongs to the live project tree or to a
// named template.
type Location string

// ProjectLocation is the location tag for ordinary project cards.
const ProjectLocation Location = "project"

// TemplateLocation returns the location tag for a card belonging to the
// named template (fully-qualified template resource name).
func TemplateLocation(templateName string) Location { return Location(templateName) }

// IsTemplate reports whether loc refers to a template rather than the
// project tree.
func (loc Location) IsTemplate() bool { return loc != ProjectLocation }

// Link is a typed, possibly-described reference from one card to another
// (spec §3 "links").
type Link struct {
	LinkType        string `json:"linkType"`
	CardKey         string `json:"cardKey"`
	LinkDescription string `json:"linkDescription,omitempty"`
}

// key returns the dedup key for a link: (linkType, cardKey, linkDescription).
func (l Link) key() Link {
	return Link{LinkType: l.LinkType, CardKey: l.CardKey, LinkDescription: l.LinkDescription}
}

// Attachment is a file attached to a card (spec §3 "attachments").
type Attachment struct {
	Card     string `json:"card"`
	Path     string `json:"path"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

func (a Attachment) dedupKey() [3]string {
	return [3]string{a.Card, a.Path, a.FileName}
}

// Metadata is the JSON shape persisted at "<cardDir>/index.json" (spec §6).
// Custom fields declared by the card's card type are carried in CustomFields
// rather than as literal Go struct fields, since their shape is dynamic.
type Metadata struct {
	Title            string         `json:"title"`
	CardType         string         `json:"cardType"`
	WorkflowState    string         `json:"workflowState"`
	Rank             lexorank.Rank  `json:"rank"`
	Labels           []string       `json:"labels"`
	Links            []Link         `json:"links"`
	LastUpdated      time.Time      `json:"lastUpdated"`
	LastTransitioned *time.Time     `json:"lastTransitioned,omitempty"`
	CustomFields     map[string]any `json:"-"`
}

// Card is the full in-memory representation held by the card cache (spec
// §3 "Card", §4.1).
type Card struct {
	Key         string
	Path        string
	Parent      string // RootKey, or the parent card's Key
	Children    []string
	Location    Location
	Metadata    Metadata
	Content     string
	Attachments []Attachment
}

// HasLabel reports whether the card carries the given label.
func (c *Card) HasLabel(label string) bool {
	for _, l := range c.Metadata.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AddLabel adds label if absent, preserving the unique-per-card invariant
// (spec §3 invariants). Returns false if the label was already present.
func (c *Card) AddLabel(label string) bool {
	if c.HasLabel(label) {
		return false
	}
	c.Metadata.Labels = append(c.Metadata.Labels, label)
	return true
}

// RemoveLabel removes label if present. Returns false if it was absent.
func (c *Card) RemoveLabel(label string) bool {
	for i, l := range c.Metadata.Labels {
		if l == label {
			c.Metadata.Labels = append(c.Metadata.Labels[:i], c.Metadata.Labels[i+1:]...)
			return true
		}
	}
	return false
}

// HasLink reports whether an equivalent link (by dedup key) already exists.
func (c *Card) HasLink(l Link) bool {
	k := l.key()
	for _, existing := range c.Metadata.Links {
		if existing.key() == k {
			return true
		}
	}
	return false
}

// AddLink appends l if no equivalent link exists. Returns false on
// duplicate (spec §3 "links deduplicated by (linkType, cardKey, linkDescription)").
func (c *Card) AddLink(l Link) bool {
	if c.HasLink(l) {
		return false
	}
	c.Metadata.Links = append(c.Metadata.Links, l)
	return true
}

// RemoveLink removes the first link matching linkType, cardKey, and
// description. Returns false if no matching link was found.
func (c *Card) RemoveLink(linkType, cardKey, description string) bool {
	target := Link{LinkType: linkType, CardKey: cardKey, LinkDescription: description}.key()
	for i, existing := range c.Metadata.Links {
		if existing.key() == target {
			c.Metadata.Links = append(c.Metadata.Links[:i], c.Metadata.Links[i+1:]...)
			return true
		}
	}
	return false
}

// HasAttachment reports whether an attachment with the same dedup key
// (card, path, fileName) already exists.
func (c *Card) HasAttachment(a Attachment) bool {
	k := a.dedupKey()
	for _, existing := range c.Attachments {
		if existing.dedupKey() == k {
			return true
		}
	}
	return false
}

// AddAttachment appends a if no duplicate (by (card, path, fileName))
// exists. Returns false on duplicate.
func (c *Card) AddAttachment(a Attachment) bool {
	if c.HasAttachment(a) {
		return false
	}
	c.Attachments = append(c.Attachments, a)
	return true
}

// DeleteAttachment removes the attachment matching fileName. Returns false
// if none matched.
func (c *Card) DeleteAttachment(fileName string) bool {
	for i, a := range c.Attachments {
		if a.FileName == fileName {
			c.Attachments = append(c.Attachments[:i], c.Attachments[i+1:]...)
			return true
		}
	}
	return false
}
