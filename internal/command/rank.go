package command

import (
	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
)

// siblingsOf returns key's siblings (same parent, same location), excluding
// key itself, sorted by rank.
func (c *Commands) siblingsOf(card *cardmodel.Card) []*cardmodel.Card {
	all := c.proj.Cards.GetCards(card.Location)
	var out []*cardmodel.Card
	for _, s := range all {
		if s.Parent == card.Parent && s.Key != card.Key {
			out = append(out, s)
		}
	}
	lexorank.SortByRank(out, func(cc *cardmodel.Card) lexorank.Rank { return cc.Metadata.Rank })
	return out
}

func (c *Commands) setRank(card *cardmodel.Card, rank lexorank.Rank) error {
	updated := *card
	updated.Metadata.Rank = rank
	if err := cardcache.PersistCard(&updated); err != nil {
		return err
	}
	if err := c.proj.Cards.UpdateCardMetadata(card.Key, updated.Metadata); err != nil {
		return err
	}
	return c.log(projectconfig.OpResourceUpdate, card.Key, map[string]string{"rank": string(rank)})
}

// RankFirst assigns key a rank before its current first sibling (spec §4.4
// "rankFirst(key)").
func (c *Commands) RankFirst(key string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	siblings := c.siblingsOf(card)
	var rank lexorank.Rank
	if len(siblings) == 0 {
		rank = lexorank.After("")
	} else {
		rank = lexorank.Before(siblings[0].Metadata.Rank)
	}
	return c.setRank(card, rank)
}

// RankBefore assigns key a rank immediately before pivot, among the same
// parent (spec §4.4 "rankBefore(key, pivot)").
func (c *Commands) RankBefore(key, pivot string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	pivotCard, err := c.proj.Cards.GetCard(pivot)
	if err != nil {
		return err
	}
	if pivotCard.Parent != card.Parent {
		return engineerr.Invariant("command.RankBefore", key, "pivot is not a sibling of the card being ranked")
	}

	siblings := c.siblingsOf(card)
	var lo lexorank.Rank
	for _, s := range siblings {
		if s.Key == pivot {
			break
		}
		lo = s.Metadata.Rank
	}
	rank := lexorank.Between(lo, pivotCard.Metadata.Rank)
	return c.setRank(card, rank)
}

// RankByIndex assigns key the rank that places it at position index (0
// based) among its current siblings, widening the alphabet via
// lexorank.Between where adjacent ranks have no room (spec §4.4
// "rankByIndex(key, index)").
func (c *Commands) RankByIndex(key string, index int) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	siblings := c.siblingsOf(card)
	if index < 0 {
		index = 0
	}
	if index > len(siblings) {
		index = len(siblings)
	}

	var lo, hi lexorank.Rank
	if index > 0 {
		lo = siblings[index-1].Metadata.Rank
	}
	if index < len(siblings) {
		hi = siblings[index].Metadata.Rank
	}
	rank := lexorank.Between(lo, hi)
	return c.setRank(card, rank)
}

// Rebalance redistributes ranks evenly across every child of parent (ROOT
// or a card key), using lexorank.Rebalance(n) (spec §4.4
// "rebalance(parent?)").
func (c *Commands) Rebalance(parent string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	if parent == "" {
		parent = cardmodel.RootKey
	}
	loc := cardmodel.ProjectLocation
	if parent != cardmodel.RootKey {
		p, err := c.proj.Cards.GetCard(parent)
		if err != nil {
			return err
		}
		loc = p.Location
	}

	all := c.proj.Cards.GetCards(loc)
	var children []*cardmodel.Card
	for _, cc := range all {
		if cc.Parent == parent {
			children = append(children, cc)
		}
	}
	lexorank.SortByRank(children, func(cc *cardmodel.Card) lexorank.Rank { return cc.Metadata.Rank })
	ranks := lexorank.Rebalance(len(children))
	for i, child := range children {
		if err := c.setRank(child, ranks[i]); err != nil {
			return err
		}
	}
	return nil
}
