package command

import (
	"context"
	"fmt"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// Finding is one problem surfaced by Validate: a resource/card schema
// failure or a cross-reference a Clingo validate query flagged (spec §4.4
// "validate() ... returns a list of findings").
type Finding struct {
	Target string
	Reason string
}

// Validate re-runs structural validation for every resource plus a Clingo
// "validate" query over the current model for cross-reference checks (spec
// §4.4 "validate()"). It never mutates project state.
func (c *Commands) Validate(ctx context.Context) ([]Finding, error) {
	var findings []Finding

	for _, kind := range resource.AllKinds {
		for _, from := range []string{"local", "module"} {
			for _, entry := range c.proj.Resources.Resources(kind, from) {
				r, err := c.proj.Resources.ByName(entry.Name)
				if err != nil {
					findings = append(findings, Finding{Target: entry.Name.String(), Reason: err.Error()})
					continue
				}
				if err := r.Content.Validate(); err != nil {
					findings = append(findings, Finding{Target: entry.Name.String(), Reason: err.Error()})
				}
			}
		}
	}

	for _, card := range c.proj.Cards.GetCards(cardmodel.ProjectLocation) {
		if !cardmodel.KeyPattern.MatchString(card.Key) {
			findings = append(findings, Finding{Target: card.Key, Reason: "card key fails the required pattern"})
		}
		if _, err := resource.ParseName(card.Metadata.CardType); err != nil {
			findings = append(findings, Finding{Target: card.Key, Reason: fmt.Sprintf("invalid cardType reference: %v", err)})
		}
	}

	set, err := c.proj.Engine.RunLogicProgram(ctxOrBackground(ctx), validateQuery)
	if err != nil {
		if engineerr.Is(err, engineerr.KindSolver) {
			findings = append(findings, Finding{Target: "", Reason: "validate query: " + err.Error()})
			return findings, nil
		}
		return nil, err
	}
	for _, atom := range set.Atoms {
		if atom.Name == "invalid" && len(atom.Args) >= 2 {
			findings = append(findings, Finding{Target: atom.Args[0], Reason: atom.Args[1]})
		}
	}
	return findings, nil
}

// validateQuery asks the model for any `invalid(Target, Reason)` facts a
// module's rules derive, e.g. a dangling link or an orphaned parent
// reference; cardType/workflow/linkType authors extend it by contributing
// their own rules to the resources section rather than this query itself.
const validateQuery = `
invalid(Card, "dangling link target") :- link(Card, _, Target, _), not card(Target).
invalid(Card, "parent does not exist") :- parent(Card, Parent), Parent != ROOT, not card(Parent).
#show invalid/2.
`
