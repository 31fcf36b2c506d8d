package command

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/guard"
	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
)

// MoveCard relocates key to be the last child of destination (ROOT or
// another card key), refusing cycles and project/template boundary
// crossings, and consulting the action guard before moving anything on
// disk (spec §4.4 "moveCard").
func (c *Commands) MoveCard(ctx context.Context, key, destination string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	if destination == key {
		return engineerr.Invariant("command.MoveCard", key, "a card cannot be moved into itself")
	}
	if c.proj.Cards.IsDescendant(key, destination) {
		return engineerr.Invariant("command.MoveCard", key, "destination is a descendant of the card being moved")
	}

	var destDir, destLoc string
	if destination == cardmodel.RootKey {
		destDir = paths.CardRoot(c.proj.Root)
		destLoc = string(cardmodel.ProjectLocation)
	} else {
		dest, err := c.proj.Cards.GetCard(destination)
		if err != nil {
			return err
		}
		destDir = dest.Path
		destLoc = string(dest.Location)
	}
	if destLoc != string(card.Location) {
		return engineerr.Invariant("command.MoveCard", key, "cannot move a card between the project tree and a template")
	}

	resolve := c.fieldResolverFor(card)
	guardName := guard.ActionGuardName(c.proj.Config.CardKeyPrefix, filepath.Base(card.Metadata.CardType), "onMove")
	updates, err := guard.Check(ctxOrBackground(ctx), c.proj.Engine, guardName,
		map[string]any{"cardKey": key, "destination": destination}, resolve,
		"command.MoveCard", key)
	if err != nil {
		return err
	}

	siblings := c.proj.Cards.GetCards(card.Location)
	var maxRank lexorank.Rank
	has := false
	for _, s := range siblings {
		if s.Parent != destination || s.Key == key {
			continue
		}
		if !has || lexorank.Less(maxRank, s.Metadata.Rank) {
			maxRank = s.Metadata.Rank
			has = true
		}
	}
	newRank := lexorank.After(maxRank)

	oldPath := card.Path
	newPath := paths.CardChildDir(destDir, key)
	if oldPath != newPath {
		if err := fsutil.CopyTree(oldPath, newPath); err != nil {
			return engineerr.Filesystem("command.MoveCard", newPath, err)
		}
		if err := fsutil.RemoveTree(oldPath); err != nil {
			return engineerr.Filesystem("command.MoveCard", oldPath, err)
		}
	}

	descendants := c.proj.Cards.Descendants(key)

	updated := *card
	updated.Parent = destination
	updated.Path = newPath
	updated.Metadata.Rank = newRank
	if err := cardcache.PersistCard(&updated); err != nil {
		return err
	}
	c.proj.Cards.UpdateCard(&updated)

	// The moved card's own on-disk folder was relocated by the CopyTree
	// above; every descendant's Path in the cache still points under the
	// old location and must be rewritten to match.
	for _, d := range descendants {
		dc, err := c.proj.Cards.GetCard(d)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(oldPath, dc.Path)
		if err != nil {
			continue
		}
		dup := *dc
		dup.Path = filepath.Join(newPath, rel)
		c.proj.Cards.UpdateCard(&dup)
	}

	if err := c.log(projectconfig.OpResourceUpdate, key, fmt.Sprintf("moved to %s", destination)); err != nil {
		return err
	}
	if err := c.applyFieldUpdates(updates); err != nil {
		return err
	}
	return c.proj.Engine.HandleCardChanged(&updated)
}
