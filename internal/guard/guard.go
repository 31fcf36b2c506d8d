// Package guard implements the action guard: a thin permission layer that
// runs an onTransition/onEdit/onCreation Clingo query over the current
// model and either denies the mutation outright or returns follow-up field
// writes for the caller to apply (spec §4.6).
package guard

import (
	"context"
	"fmt"

	"github.com/CyberismoCom/cyberismo-engine/internal/calc"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// FieldUpdate is one field write an action-guard query asked the caller to
// apply after the guarded command succeeds.
type FieldUpdate struct {
	CardKey  string
	FieldKey string
	Value    any
}

// Verdict is the parsed result of a guard query: either a non-empty Deny
// reason, or a set of field updates to apply atomically (spec §4.6 "an
// array of {deny?, updateFields?}").
type Verdict struct {
	Deny    string
	Updates []FieldUpdate
}

// Denied reports whether the guard query refused the action.
func (v Verdict) Denied() bool { return v.Deny != "" }

// Run executes the named action-guard query (e.g. "onTransition",
// "onEdit", "onCreation") against engine with options, and parses the
// resulting atoms into a Verdict. The query is expected to emit `deny(Card,
// Reason)` and/or `updateField(Card, Key, Value)` facts; resolve supplies
// the data type used to coerce each updateField's raw value (spec §8).
func Run(ctx context.Context, engine *calc.Engine, queryName resource.Name, options map[string]any, resolve calc.FieldTypeResolver) (Verdict, error) {
	result, err := engine.RunQueryByName(ctx, queryName, options, resolve)
	if err != nil {
		if engineerr.Is(err, engineerr.KindNotFound) {
			// No guard query declared for this action: permit unconditionally.
			return Verdict{}, nil
		}
		return Verdict{}, err
	}
	v := parseVerdict(result)
	if resolve != nil {
		for i, u := range v.Updates {
			raw, ok := u.Value.(string)
			if dt := resolve(u.FieldKey); ok && dt != "" {
				v.Updates[i].Value = calc.Coerce(dt, raw)
			}
		}
	}
	return v, nil
}

func parseVerdict(result calc.QueryResult) Verdict {
	var v Verdict
	for _, a := range result.Atoms {
		switch {
		case a.Name == "deny" && len(a.Args) >= 1:
			reason := "denied by action guard"
			if len(a.Args) >= 2 {
				reason = a.Args[1]
			}
			if v.Deny == "" {
				v.Deny = reason
			}
		case a.Name == "updateField" && len(a.Args) == 3:
			v.Updates = append(v.Updates, FieldUpdate{
				CardKey:  a.Args[0],
				FieldKey: a.Args[1],
				Value:    a.Args[2],
			})
		}
	}
	return v
}

// Check runs the named guard query and turns a deny verdict into a
// PermissionDenied error, so command handlers can call it inline:
//
//	updates, err := guard.Check(ctx, engine, guardName, opts, resolve, op, cardKey)
func Check(ctx context.Context, engine *calc.Engine, queryName resource.Name, options map[string]any, resolve calc.FieldTypeResolver, op, target string) ([]FieldUpdate, error) {
	verdict, err := Run(ctx, engine, queryName, options, resolve)
	if err != nil {
		return nil, err
	}
	if verdict.Denied() {
		return nil, engineerr.PermissionDenied(op, target, verdict.Deny)
	}
	return verdict.Updates, nil
}

// ActionGuardName builds the fully-qualified calculation resource name for
// a card type's named action-guard query (e.g. prefix/calculations/
// decision.onTransition), following the calculation-per-cardType-action
// naming convention cardType authors use for guard hooks.
func ActionGuardName(prefix, cardTypeIdentifier, action string) resource.Name {
	return resource.Name{
		Prefix:     prefix,
		Kind:       resource.KindCalculation,
		Identifier: fmt.Sprintf("%s.%s", cardTypeIdentifier, action),
	}
}
