package command

import (
	"encoding/json"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// RemoveCard deletes key and every descendant (cascading removal of their
// on-disk folders and attachments), then regenerates the calculation
// engine's cards section (spec §4.4 "remove(kind, target, ...)" for
// cards).
func (c *Commands) RemoveCard(key string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	descendants := c.proj.Cards.Descendants(key)

	if err := fsutil.RemoveTree(card.Path); err != nil {
		return engineerr.Filesystem("command.RemoveCard", card.Path, err)
	}
	// Descendants' on-disk folders are nested beneath card.Path and were
	// already removed by the RemoveTree above; only the cache needs to
	// drop them, innermost first so populateChildrenRelationships never
	// sees a dangling parent reference mid-removal.
	for i := len(descendants) - 1; i >= 0; i-- {
		if err := c.proj.Cards.DeleteCard(descendants[i]); err != nil && !engineerr.Is(err, engineerr.KindNotFound) {
			return err
		}
	}
	if err := c.proj.Cards.DeleteCard(key); err != nil {
		return err
	}

	if err := c.log(projectconfig.OpResourceDelete, key, nil); err != nil {
		return err
	}
	return c.proj.Engine.HandleDeleteCard(card)
}

// RemoveResource deletes name's metadata file (and content folder for
// folder kinds), refusing the deletion if the resource is still referenced
// elsewhere in the project unless force is set (spec §4.4 "remove(kind,
// target, ...)" for resources).
func (c *Commands) RemoveResource(name resource.Name, force bool) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	if !force {
		if used, reason := c.resourceInUse(name); used {
			return engineerr.Invariant("command.RemoveResource", name.String(), reason)
		}
	}

	r, err := c.proj.Resources.ByName(name)
	if err != nil {
		return err
	}
	if err := resource.Delete(c.proj.Env(), r); err != nil {
		return err
	}

	if name.Kind == resource.KindTemplate {
		if err := c.proj.Cards.DeleteCardsFromTemplate(name.String()); err != nil {
			return err
		}
	}

	c.proj.Resources.RemoveResource(name)
	if err := c.log(projectconfig.OpResourceDelete, name.String(), nil); err != nil {
		return err
	}
	return c.proj.Engine.Generate("")
}

// resourceInUse reports whether any card or resource still references
// name, per kind: a cardType in use by a card, a workflow in use by a
// cardType, a linkType in use by a card link, a fieldType in use by a
// cardType's custom fields.
func (c *Commands) resourceInUse(name resource.Name) (bool, string) {
	full := name.String()
	switch name.Kind {
	case resource.KindCardType:
		for _, card := range c.proj.Cards.GetCards(cardmodel.ProjectLocation) {
			if card.Metadata.CardType == full {
				return true, "card type is used by card " + card.Key
			}
		}
	case resource.KindWorkflow:
		for _, entry := range c.proj.Resources.Resources(resource.KindCardType, "") {
			r, err := c.proj.Resources.ByName(entry.Name)
			if err != nil {
				continue
			}
			if ct, ok := r.Content.(*resource.CardType); ok && ct.Workflow == full {
				return true, "workflow is used by card type " + entry.Name.String()
			}
		}
	case resource.KindLinkType:
		for _, card := range c.proj.Cards.GetCards(cardmodel.ProjectLocation) {
			for _, l := range card.Metadata.Links {
				if l.LinkType == full {
					return true, "link type is used by card " + card.Key
				}
			}
		}
	case resource.KindFieldType:
		for _, entry := range c.proj.Resources.Resources(resource.KindCardType, "") {
			r, err := c.proj.Resources.ByName(entry.Name)
			if err != nil {
				continue
			}
			if ct, ok := r.Content.(*resource.CardType); ok {
				for _, f := range ct.CustomFields {
					if f.DataType == full {
						return true, "field type is used by card type " + entry.Name.String()
					}
				}
			}
		}
	default:
		// Templates, reports, graph models/views, and calculations have no
		// single structural owner; fall back to a textual usage() scan over
		// every card and resource body (spec §4.3 "usage(cards?) ... by
		// textual match").
		r, err := c.proj.Resources.ByName(name)
		if err != nil {
			return false, ""
		}
		refs := resource.UsageCached(r, c.cardContentsByKey(), c.resourceBodiesByName())
		if len(refs) > 0 {
			return true, full + " is referenced by " + refs[0]
		}
	}
	return false, ""
}

// cardContentsByKey returns every project card's AsciiDoc body keyed by
// card key, the corpus textual usage() scans for resource references.
func (c *Commands) cardContentsByKey() map[string]string {
	cards := c.proj.Cards.GetCards(cardmodel.ProjectLocation)
	out := make(map[string]string, len(cards))
	for _, card := range cards {
		out[card.Key] = card.Content
	}
	return out
}

// resourceBodiesByName returns every resource's JSON metadata plus content
// files concatenated, keyed by fully-qualified name, the corpus textual
// usage() scans for resource-to-resource references (e.g. a template's
// .hbs body naming a card type).
func (c *Commands) resourceBodiesByName() map[string]string {
	out := map[string]string{}
	for _, kind := range resource.AllKinds {
		for _, from := range []string{"local", "module"} {
			for _, entry := range c.proj.Resources.Resources(kind, from) {
				r, err := c.proj.Resources.ByName(entry.Name)
				if err != nil {
					continue
				}
				show, err := resource.Show(r)
				if err != nil {
					continue
				}
				raw, err := json.Marshal(show)
				if err != nil {
					continue
				}
				out[entry.Name.String()] = string(raw)
			}
		}
	}
	return out
}
