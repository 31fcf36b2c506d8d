package command

import (
	"github.com/CyberismoCom/cyberismo-engine/internal/calc"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/guard"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// fieldResolverFor returns a calc.FieldTypeResolver scoped to card's card
// type, used to coerce raw Clingo field values per §8's table when parsing
// a query result or an action-guard verdict.
func (c *Commands) fieldResolverFor(card *cardmodel.Card) calc.FieldTypeResolver {
	ct, _, err := c.resolveCardType(card)
	if err != nil {
		return func(string) resource.DataType { return resource.DataTypeShortText }
	}
	byName := make(map[string]resource.DataType, len(ct.CustomFields))
	for _, f := range ct.CustomFields {
		byName[f.Name] = resource.DataType(f.DataType)
	}
	return func(key string) resource.DataType {
		if dt, ok := byName[key]; ok {
			return dt
		}
		return resource.DataTypeShortText
	}
}

// applyFieldUpdates applies a set of action-guard updateField writes
// atomically: every target card's metadata is mutated and persisted, or
// none are (spec §4.6 "otherwise the caller applies the updateFields
// atomically").
func (c *Commands) applyFieldUpdates(updates []guard.FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	touched := make(map[string]*cardmodel.Card)
	for _, u := range updates {
		card, ok := touched[u.CardKey]
		if !ok {
			existing, err := c.proj.Cards.GetCard(u.CardKey)
			if err != nil {
				return err
			}
			cp := *existing
			cp.Metadata.CustomFields = cloneFields(existing.Metadata.CustomFields)
			card = &cp
			touched[u.CardKey] = card
		}
		if card.Metadata.CustomFields == nil {
			card.Metadata.CustomFields = map[string]any{}
		}
		card.Metadata.CustomFields[u.FieldKey] = u.Value
	}
	for key, card := range touched {
		if err := cardcache.PersistCard(card); err != nil {
			return err
		}
		if err := c.proj.Cards.UpdateCardMetadata(key, card.Metadata); err != nil {
			return err
		}
	}
	return nil
}

func cloneFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
