// Package cardcache is the single in-memory source of truth for all cards
// (project and template) during a process's lifetime (spec §4.1).
package cardcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
)

// Cache holds every card known to the project, keyed by card key. Reads are
// guarded by a RWMutex so that the file-system watcher (which may run on
// its own goroutine) and the write-locked command layer never race on the
// map itself; spec §5 still routes all mutation through a single writer at
// a time via the project's write lock.
type Cache struct {
	mu    sync.RWMutex
	cards map[string]*cardmodel.Card
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{cards: make(map[string]*cardmodel.Card)}
}

// PopulateFromPath recursively scans root for directories whose name
// matches the card-key regex, loading index.json, index.adoc, and a/*
// attachments for each. loc tags every discovered card with the given
// location ("project" or a template's fully-qualified name, see
// cardmodel.TemplateLocation). Returns engineerr.Conflict if two cards
// share a key, anywhere in the cache (spec §4.1 "Duplicate-key detection
// fails population").
func (c *Cache) PopulateFromPath(root string, loc cardmodel.Location) error {
	return c.populate(root, cardmodel.RootKey, loc)
}

func (c *Cache) populate(dir, parent string, loc cardmodel.Location) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return engineerr.Filesystem("cardcache.populate", dir, err)
	}

	for _, e := range entries {
		if !e.IsDir() || !cardmodel.KeyPattern.MatchString(e.Name()) {
			continue
		}
		key := e.Name()
		cardDir := filepath.Join(dir, key)

		card, err := loadCard(cardDir, key, parent, loc)
		if err != nil {
			return err
		}

		c.mu.Lock()
		if _, exists := c.cards[key]; exists {
			c.mu.Unlock()
			return engineerr.Conflict("cardcache.populate", key)
		}
		c.cards[key] = card
		c.mu.Unlock()

		if err := c.populate(cardDir, key, loc); err != nil {
			return err
		}
	}
	return c.populateChildrenRelationships()
}

func loadCard(cardDir, key, parent string, loc cardmodel.Location) (*cardmodel.Card, error) {
	metaPath := paths.CardMetadataFile(cardDir)
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, engineerr.Filesystem("cardcache.loadCard", metaPath, err)
	}
	var meta cardmodel.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, engineerr.Schema("cardcache.loadCard", key, err)
	}

	content, err := os.ReadFile(paths.CardContentFile(cardDir))
	if err != nil && !os.IsNotExist(err) {
		return nil, engineerr.Filesystem("cardcache.loadCard", paths.CardContentFile(cardDir), err)
	}

	var attachments []cardmodel.Attachment
	attDir := paths.CardAttachmentsDir(cardDir)
	if entries, err := os.ReadDir(attDir); err == nil {
		for _, a := range entries {
			if a.IsDir() {
				continue
			}
			attachments = append(attachments, cardmodel.Attachment{
				Card:     key,
				Path:     filepath.Join("a", a.Name()),
				FileName: a.Name(),
			})
		}
	}

	return &cardmodel.Card{
		Key:         key,
		Path:        cardDir,
		Parent:      parent,
		Location:    loc,
		Metadata:    meta,
		Content:     string(content),
		Attachments: attachments,
	}, nil
}

// populateChildrenRelationships rebuilds every card's Children slice by
// scanning the Parent field of every card currently in the cache, ordering
// each parent's children by rank (spec §4.1).
func (c *Cache) populateChildrenRelationships() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byParent := make(map[string][]string)
	for key, card := range c.cards {
		byParent[card.Parent] = append(byParent[card.Parent], key)
	}
	for parent, children := range byParent {
		sort.SliceStable(children, func(i, j int) bool {
			ci, oki := c.cards[children[i]]
			cj, okj := c.cards[children[j]]
			if !oki || !okj {
				return false
			}
			return lexorank.Less(ci.Metadata.Rank, cj.Metadata.Rank)
		})
		if parent != cardmodel.RootKey {
			if p, ok := c.cards[parent]; ok {
				p.Children = children
			}
			continue
		}
	}
	for key, card := range c.cards {
		if kids, ok := byParent[key]; ok {
			card.Children = kids
		} else {
			card.Children = nil
		}
	}
	return nil
}

// Clear empties the cache, used before a full repopulate triggered by an
// external (non-process-owned) change to the card tree.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = make(map[string]*cardmodel.Card)
}

// GetCard returns the card for key, or engineerr.NotFound.
func (c *Cache) GetCard(key string) (*cardmodel.Card, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.cards[key]
	if !ok {
		return nil, engineerr.NotFound("cardcache.GetCard", key)
	}
	return card, nil
}

// HasCard reports whether key exists in the cache.
func (c *Cache) HasCard(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cards[key]
	return ok
}

// GetCards returns every card whose location equals loc (typically
// cardmodel.ProjectLocation). Order is unspecified; callers sort as needed.
func (c *Cache) GetCards(loc cardmodel.Location) []*cardmodel.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*cardmodel.Card
	for _, card := range c.cards {
		if card.Location == loc {
			out = append(out, card)
		}
	}
	return out
}

// GetAllTemplateCards returns every card whose location is a template
// (i.e. not ProjectLocation).
func (c *Cache) GetAllTemplateCards() []*cardmodel.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*cardmodel.Card
	for _, card := range c.cards {
		if card.Location.IsTemplate() {
			out = append(out, card)
		}
	}
	return out
}

// UpdateCard upserts card, replacing any existing record for the same key
// wholesale: fields the caller leaves at their zero value are not merged
// from the existing card. To change only content, metadata, or attachments
// of an existing card, use the corresponding Update* method.
func (c *Cache) UpdateCard(card *cardmodel.Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards[card.Key] = card
}

// UpdateCardContent replaces key's content body only.
func (c *Cache) UpdateCardContent(key, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[key]
	if !ok {
		return engineerr.NotFound("cardcache.UpdateCardContent", key)
	}
	card.Content = content
	return nil
}

// UpdateCardMetadata replaces key's metadata wholesale (commands mutate a
// copy of the existing metadata and call this to commit it).
func (c *Cache) UpdateCardMetadata(key string, meta cardmodel.Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[key]
	if !ok {
		return engineerr.NotFound("cardcache.UpdateCardMetadata", key)
	}
	card.Metadata = meta
	return nil
}

// UpdateCardAttachments replaces key's attachment list wholesale.
func (c *Cache) UpdateCardAttachments(key string, attachments []cardmodel.Attachment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[key]
	if !ok {
		return engineerr.NotFound("cardcache.UpdateCardAttachments", key)
	}
	card.Attachments = attachments
	return nil
}

// AddAttachment adds an attachment to key, deduplicated by (card, path,
// fileName). Returns engineerr.Conflict on duplicate.
func (c *Cache) AddAttachment(key string, a cardmodel.Attachment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[key]
	if !ok {
		return engineerr.NotFound("cardcache.AddAttachment", key)
	}
	if !card.AddAttachment(a) {
		return engineerr.Conflict("cardcache.AddAttachment", fmt.Sprintf("%s/%s", key, a.FileName))
	}
	return nil
}

// DeleteAttachment removes fileName from key's attachments.
func (c *Cache) DeleteAttachment(key, fileName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[key]
	if !ok {
		return engineerr.NotFound("cardcache.DeleteAttachment", key)
	}
	if !card.DeleteAttachment(fileName) {
		return engineerr.NotFound("cardcache.DeleteAttachment", fileName)
	}
	return nil
}

// DeleteCard removes key and re-derives parent/child relationships.
// Callers are expected to have already cascaded to descendants (spec §4.4
// "remove" command).
func (c *Cache) DeleteCard(key string) error {
	c.mu.Lock()
	if _, ok := c.cards[key]; !ok {
		c.mu.Unlock()
		return engineerr.NotFound("cardcache.DeleteCard", key)
	}
	delete(c.cards, key)
	c.mu.Unlock()
	return c.populateChildrenRelationships()
}

// DeleteCardsFromTemplate removes every card whose Location equals the
// given template name (used when a template resource itself is deleted).
func (c *Cache) DeleteCardsFromTemplate(templateName string) error {
	loc := cardmodel.TemplateLocation(templateName)
	c.mu.Lock()
	for key, card := range c.cards {
		if card.Location == loc {
			delete(c.cards, key)
		}
	}
	c.mu.Unlock()
	return c.populateChildrenRelationships()
}

// Descendants returns every transitive child of key, key exclusive.
func (c *Cache) Descendants(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	var walk func(string)
	walk = func(k string) {
		card, ok := c.cards[k]
		if !ok {
			return
		}
		for _, child := range card.Children {
			out = append(out, child)
			walk(child)
		}
	}
	walk(key)
	return out
}

// IsDescendant reports whether candidate is a (transitive) descendant of
// ancestor, used by moveCard's cycle check (spec §4.4).
func (c *Cache) IsDescendant(ancestor, candidate string) bool {
	for _, d := range c.Descendants(ancestor) {
		if d == candidate {
			return true
		}
	}
	return false
}

// PersistCard writes a card's index.json and index.adoc beneath its Path,
// creating directories as needed; attachment files and the a/ directory
// are not written. Used by
// commands after validating a mutation, before flipping the cache (spec §5
// step ordering: validate, write files, flip cache).
func PersistCard(card *cardmodel.Card) error {
	data, err := json.MarshalIndent(card.Metadata, "", "  ")
	if err != nil {
		return engineerr.Schema("cardcache.PersistCard", card.Key, err)
	}
	if err := fsutil.WriteFileAtomic(paths.CardMetadataFile(card.Path), data, 0o644); err != nil {
		return engineerr.Filesystem("cardcache.PersistCard", card.Path, err)
	}
	if err := fsutil.WriteFileAtomic(paths.CardContentFile(card.Path), []byte(card.Content), 0o644); err != nil {
		return engineerr.Filesystem("cardcache.PersistCard", card.Path, err)
	}
	return nil
}
