package command

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/guard"
	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// CreateCard instantiates every card in the named template beneath
// parentKey (or cardmodel.RootKey), synthesising fresh keys and re-ranking
// template roots to the tail of the destination's existing children while
// preserving their relative order (spec §4.4 "createCard(templateName,
// parentKey?)"). Returns the newly created cards, template roots first.
func (c *Commands) CreateCard(ctx context.Context, templateName, parentKey string) ([]*cardmodel.Card, error) {
	c.proj.Lock()
	defer c.proj.Unlock()

	if parentKey == "" {
		parentKey = cardmodel.RootKey
	}
	var parentDir string
	if parentKey == cardmodel.RootKey {
		parentDir = paths.CardRoot(c.proj.Root)
	} else {
		parent, err := c.proj.Cards.GetCard(parentKey)
		if err != nil {
			return nil, err
		}
		parentDir = parent.Path
	}

	tplName, err := resource.ParseName(templateName)
	if err != nil {
		return nil, err
	}
	tplResource, err := c.proj.Resources.ByName(tplName)
	if err != nil {
		return nil, engineerr.NotFound("command.CreateCard", templateName)
	}
	if _, ok := tplResource.Content.(*resource.Template); !ok {
		return nil, engineerr.Validation("command.CreateCard", templateName, fmt.Errorf("not a template resource"))
	}

	proto := c.proj.Cards.GetAllTemplateCards()
	var roots []*cardmodel.Card
	byParent := make(map[string][]*cardmodel.Card)
	loc := cardmodel.TemplateLocation(templateName)
	for _, p := range proto {
		if p.Location != loc {
			continue
		}
		if p.Parent == cardmodel.RootKey {
			roots = append(roots, p)
		} else {
			byParent[p.Parent] = append(byParent[p.Parent], p)
		}
	}
	lexorank.SortByRank(roots, func(p *cardmodel.Card) lexorank.Rank { return p.Metadata.Rank })

	keyMap := make(map[string]string, len(proto))
	var created []*cardmodel.Card

	var instantiate func(p *cardmodel.Card, newParentKey, newParentDir string) (*cardmodel.Card, error)
	instantiate = func(p *cardmodel.Card, newParentKey, newParentDir string) (*cardmodel.Card, error) {
		newKey, err := nextCardKey(c.proj.Config.CardKeyPrefix, c.proj.Cards.HasCard)
		if err != nil {
			return nil, err
		}
		keyMap[p.Key] = newKey
		newDir := paths.CardChildDir(newParentDir, newKey)

		meta := p.Metadata
		meta.Labels = append([]string(nil), p.Metadata.Labels...)
		meta.Links = append([]cardmodel.Link(nil), p.Metadata.Links...)
		if p.Metadata.CustomFields != nil {
			meta.CustomFields = make(map[string]any, len(p.Metadata.CustomFields))
			for k, v := range p.Metadata.CustomFields {
				meta.CustomFields[k] = v
			}
		}

		card := &cardmodel.Card{
			Key:      newKey,
			Path:     newDir,
			Parent:   newParentKey,
			Location: cardmodel.ProjectLocation,
			Metadata: meta,
			Content:  p.Content,
		}
		if err := cardcache.PersistCard(card); err != nil {
			return nil, err
		}
		c.proj.Cards.UpdateCard(card)
		created = append(created, card)

		children := append([]*cardmodel.Card(nil), byParent[p.Key]...)
		lexorank.SortByRank(children, func(ch *cardmodel.Card) lexorank.Rank { return ch.Metadata.Rank })
		for _, child := range children {
			if _, err := instantiate(child, newKey, newDir); err != nil {
				return nil, err
			}
		}
		return card, nil
	}

	existingSiblings := c.proj.Cards.GetCards(cardmodel.ProjectLocation)
	var maxRank lexorank.Rank
	hasSiblings := false
	for _, s := range existingSiblings {
		if s.Parent != parentKey {
			continue
		}
		if !hasSiblings || lexorank.Less(maxRank, s.Metadata.Rank) {
			maxRank = s.Metadata.Rank
			hasSiblings = true
		}
	}

	for _, r := range roots {
		var rank lexorank.Rank
		if hasSiblings {
			rank = lexorank.After(maxRank)
		} else {
			rank = lexorank.After("")
		}
		maxRank = rank
		hasSiblings = true

		card, err := instantiate(r, parentKey, parentDir)
		if err != nil {
			return nil, err
		}
		card.Metadata.Rank = rank
		if err := cardcache.PersistCard(card); err != nil {
			return nil, err
		}
	}

	// Template roots first, in rank order; descendants keep their
	// depth-first order behind them.
	sort.SliceStable(created, func(i, j int) bool {
		return created[i].Parent == parentKey && created[j].Parent != parentKey
	})

	for _, card := range created {
		if err := c.log(projectconfig.OpResourceCreate, card.Key, map[string]any{"templateName": templateName, "parentKey": parentKey}); err != nil {
			return nil, err
		}
	}
	if err := c.proj.Engine.HandleNewCards(created); err != nil {
		return nil, err
	}

	if len(created) > 0 {
		resolve := c.fieldResolverFor(created[0])
		guardName := guard.ActionGuardName(c.proj.Config.CardKeyPrefix, filepath.Base(created[0].Metadata.CardType), "onCreation")
		updates, err := guard.Check(ctxOrBackground(ctx), c.proj.Engine, guardName, map[string]any{"cardKey": created[0].Key}, resolve, "command.CreateCard", created[0].Key)
		if err != nil && !engineerr.Is(err, engineerr.KindNotFound) {
			return nil, err
		}
		if err := c.applyFieldUpdates(updates); err != nil {
			return nil, err
		}
	}

	return created, nil
}
