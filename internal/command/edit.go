package command

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/CyberismoCom/cyberismo-engine/internal/calc"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/guard"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// EditCardContent replaces key's content body (spec §4.4 "editCardContent").
func (c *Commands) EditCardContent(key, newContent string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	updated := *card
	updated.Content = newContent
	if err := cardcache.PersistCard(&updated); err != nil {
		return err
	}
	if err := c.proj.Cards.UpdateCardContent(key, newContent); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpResourceUpdate, key, map[string]string{"field": "content"}); err != nil {
		return err
	}
	return c.proj.Engine.HandleCardChanged(&updated)
}

// EditCardMetadata sets fieldKey on key to value, coercing value against
// the field's declared data type (spec §8) and refusing edits to a
// calculated field (spec §4.4 "Attempting to edit a calculated field
// fails"). value is the raw string representation; it is coerced before
// being stored.
func (c *Commands) EditCardMetadata(ctx context.Context, key, fieldKey, rawValue string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	ct, ctName, err := c.resolveCardType(card)
	if err != nil {
		return err
	}

	var dataType string
	found := false
	calculated := false
	for _, f := range ct.CustomFields {
		if f.Name == fieldKey {
			dataType = f.DataType
			calculated = f.Calculated
			found = true
			break
		}
	}
	if !found {
		return engineerr.Validation("command.EditCardMetadata", fieldKey, fmt.Errorf("card type %s declares no field %q", ctName, fieldKey))
	}
	if calculated {
		return engineerr.PermissionDenied("command.EditCardMetadata", fieldKey, "field is calculated and cannot be edited directly")
	}

	resolve := c.fieldResolverFor(card)
	guardName := guard.ActionGuardName(c.proj.Config.CardKeyPrefix, filepath.Base(card.Metadata.CardType), "onEdit")
	updates, err := guard.Check(ctxOrBackground(ctx), c.proj.Engine, guardName,
		map[string]any{"cardKey": key, "fieldKey": fieldKey, "value": rawValue}, resolve,
		"command.EditCardMetadata", key)
	if err != nil {
		return err
	}

	coerced := calc.Coerce(resource.DataType(dataType), rawValue)

	updated := *card
	updated.Metadata.CustomFields = cloneFields(card.Metadata.CustomFields)
	if updated.Metadata.CustomFields == nil {
		updated.Metadata.CustomFields = map[string]any{}
	}
	updated.Metadata.CustomFields[fieldKey] = coerced
	updated.Metadata.LastUpdated = c.now()

	if err := cardcache.PersistCard(&updated); err != nil {
		return err
	}
	if err := c.proj.Cards.UpdateCardMetadata(key, updated.Metadata); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpResourceUpdate, key, map[string]string{"fieldKey": fieldKey, "value": rawValue}); err != nil {
		return err
	}
	if err := c.applyFieldUpdates(updates); err != nil {
		return err
	}
	return c.proj.Engine.HandleCardChanged(&updated)
}
