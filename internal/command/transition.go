package command

import (
	"context"
	"path/filepath"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/guard"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
)

// Transition applies transitionName to key's workflow state: the
// transition's fromState must include the card's current state (or the
// wildcard), the onTransition action guard must not deny it, and any
// updateFields the guard's calculation returns are applied after the state
// change lands (spec §4.4 "transition(key, transitionName)").
func (c *Commands) Transition(ctx context.Context, key, transitionName string) error {
	c.proj.Lock()
	defer c.proj.Unlock()

	card, err := c.proj.Cards.GetCard(key)
	if err != nil {
		return err
	}
	ct, _, err := c.resolveCardType(card)
	if err != nil {
		return err
	}
	wf, err := c.resolveWorkflow(ct.Workflow)
	if err != nil {
		return err
	}
	t, ok := wf.FindTransition(transitionName)
	if !ok {
		return engineerr.NotFound("command.Transition", transitionName)
	}
	if card.Metadata.WorkflowState == t.ToState {
		// Re-transitioning to the state the card is already in is a no-op
		// (spec §8 "a second call with the same arguments ... idempotent
		// re-transition to same target state allowed"), even if the
		// transition's fromState no longer includes the current state.
		return nil
	}
	if !t.AllowsFrom(card.Metadata.WorkflowState) {
		return engineerr.Invariant("command.Transition", key, "transition "+transitionName+" is not allowed from state "+card.Metadata.WorkflowState)
	}

	resolve := c.fieldResolverFor(card)
	guardName := guard.ActionGuardName(c.proj.Config.CardKeyPrefix, filepath.Base(card.Metadata.CardType), "onTransition")
	updates, err := guard.Check(ctxOrBackground(ctx), c.proj.Engine, guardName,
		map[string]any{"cardKey": key, "transition": transitionName, "fromState": card.Metadata.WorkflowState, "toState": t.ToState},
		resolve, "command.Transition", key)
	if err != nil {
		return err
	}

	now := c.now()
	updated := *card
	updated.Metadata.WorkflowState = t.ToState
	updated.Metadata.LastTransitioned = &now
	updated.Metadata.LastUpdated = now
	if err := cardcache.PersistCard(&updated); err != nil {
		return err
	}
	if err := c.proj.Cards.UpdateCardMetadata(key, updated.Metadata); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpResourceUpdate, key, map[string]string{"transition": transitionName, "toState": t.ToState}); err != nil {
		return err
	}
	if err := c.applyFieldUpdates(updates); err != nil {
		return err
	}
	return c.proj.Engine.HandleCardChanged(&updated)
}
