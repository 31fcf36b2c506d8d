package command

import (
	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// CreateLink links from -> to with linkType, enforcing the link type's
// source/destination card-type allowlists, a self-link ban, its
// description-enable flag, and dedup (spec §4.4 "createLink").
func (c *Commands) CreateLink(from, to, linkType, description string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	if from == to {
		return engineerr.Invariant("command.CreateLink", from, "a card cannot link to itself")
	}
	fromCard, err := c.proj.Cards.GetCard(from)
	if err != nil {
		return err
	}
	toCard, err := c.proj.Cards.GetCard(to)
	if err != nil {
		return err
	}

	ltName, err := resource.ParseName(linkType)
	if err != nil {
		return err
	}
	r, err := c.proj.Resources.ByName(ltName)
	if err != nil {
		return err
	}
	lt, ok := r.Content.(*resource.LinkType)
	if !ok {
		return engineerr.Validation("command.CreateLink", linkType, nil)
	}
	if !lt.AllowsSource(fromCard.Metadata.CardType) {
		return engineerr.Invariant("command.CreateLink", from, "card type not allowed as source of link type "+linkType)
	}
	if !lt.AllowsDestination(toCard.Metadata.CardType) {
		return engineerr.Invariant("command.CreateLink", to, "card type not allowed as destination of link type "+linkType)
	}
	if description != "" && !lt.EnableLinkDescription {
		return engineerr.Invariant("command.CreateLink", linkType, "link type does not allow descriptions")
	}

	link := cardmodel.Link{LinkType: linkType, CardKey: to, LinkDescription: description}
	updated := *fromCard
	updated.Metadata.Links = append([]cardmodel.Link(nil), fromCard.Metadata.Links...)
	if !updated.AddLink(link) {
		return engineerr.Conflict("command.CreateLink", from+"->"+to)
	}

	if err := cardcache.PersistCard(&updated); err != nil {
		return err
	}
	if err := c.proj.Cards.UpdateCardMetadata(from, updated.Metadata); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpResourceUpdate, from, map[string]string{"linkedTo": to, "linkType": linkType}); err != nil {
		return err
	}
	return c.proj.Engine.HandleCardChanged(&updated)
}

// RemoveLink removes the first link matching (to, linkType, description)
// from from's link list (spec §4.4 "removeLink").
func (c *Commands) RemoveLink(from, to, linkType, description string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	fromCard, err := c.proj.Cards.GetCard(from)
	if err != nil {
		return err
	}
	updated := *fromCard
	updated.Metadata.Links = append([]cardmodel.Link(nil), fromCard.Metadata.Links...)
	if !updated.RemoveLink(linkType, to, description) {
		return engineerr.NotFound("command.RemoveLink", from+"->"+to)
	}

	if err := cardcache.PersistCard(&updated); err != nil {
		return err
	}
	if err := c.proj.Cards.UpdateCardMetadata(from, updated.Metadata); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpResourceUpdate, from, map[string]string{"unlinkedFrom": to, "linkType": linkType}); err != nil {
		return err
	}
	return c.proj.Engine.HandleCardChanged(&updated)
}
