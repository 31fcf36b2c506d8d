package resource

import (
	"fmt"
)

// OpKind is one of the four update operations a resource's update(key, op)
// entry point accepts (spec §4.3).
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpChange OpKind = "change"
	OpRank   OpKind = "rank"
	OpRemove OpKind = "remove"
)

// StringOp applies add/change/rank/remove semantics to a []string field
// (spec §4.3's generic "add<V>/change<V>/rank<V>/remove<V> on an array").
// target is the element value for add/rank/remove and the element to
// replace for change; to is the new value for change; index is the
// destination index for rank. replacement is accepted for the shape of
// spec's "remove(target, replacementValue?)" but StringOp does not read
// it; RewriteReferences does the rewrite in other lists.
func StringOp(list []string, op OpKind, target, to string, index int, replacement *string) ([]string, error) {
	switch op {
	case OpAdd:
		for _, v := range list {
			if v == target {
				return nil, fmt.Errorf("resource: %q already present", target)
			}
		}
		return append(list, target), nil

	case OpChange:
		out := make([]string, len(list))
		found := false
		for i, v := range list {
			if v == target {
				out[i] = to
				found = true
			} else {
				out[i] = v
			}
		}
		if !found {
			return nil, fmt.Errorf("resource: %q not found", target)
		}
		return out, nil

	case OpRank:
		idx := -1
		for i, v := range list {
			if v == target {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("resource: %q not found", target)
		}
		out := append([]string{}, list...)
		elem := out[idx]
		out = append(out[:idx], out[idx+1:]...)
		if index < 0 {
			index = 0
		}
		if index > len(out) {
			index = len(out)
		}
		out = append(out[:index], append([]string{elem}, out[index:]...)...)
		return out, nil

	case OpRemove:
		out := make([]string, 0, len(list))
		removed := false
		for _, v := range list {
			if v == target {
				removed = true
				continue
			}
			out = append(out, v)
		}
		if !removed {
			return nil, fmt.Errorf("resource: %q not found", target)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("resource: unknown op %q", op)
	}
}

// RewriteReferences replaces every occurrence of oldValue with newValue in
// list, used when a remove(target, replacementValue) rewrites other
// resources still referencing target before the target itself is removed
// (spec §4.3).
func RewriteReferences(list []string, oldValue, newValue string) []string {
	out := make([]string, len(list))
	for i, v := range list {
		if v == oldValue {
			out[i] = newValue
		} else {
			out[i] = v
		}
	}
	return out
}

// AddCustomField appends field to a card type's custom fields, failing on
// duplicate name.
func (c *CardType) AddCustomField(field FieldRef) error {
	for _, f := range c.CustomFields {
		if f.Name == field.Name {
			return fmt.Errorf("cardType: custom field %q already exists", field.Name)
		}
	}
	c.CustomFields = append(c.CustomFields, field)
	return nil
}

// RemoveCustomField removes the named custom field.
func (c *CardType) RemoveCustomField(name string) error {
	for i, f := range c.CustomFields {
		if f.Name == name {
			c.CustomFields = append(c.CustomFields[:i], c.CustomFields[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cardType: custom field %q not found", name)
}

// ChangeWorkflow replaces the card type's workflow reference. It takes no
// state mapping table and does not touch any card's workflowState.
func (c *CardType) ChangeWorkflow(newWorkflow string) {
	c.Workflow = newWorkflow
}

// AddState inserts a new workflow state at the end.
func (w *Workflow) AddState(s WorkflowState) error {
	for _, existing := range w.States {
		if existing.Name == s.Name {
			return fmt.Errorf("workflow: state %q already exists", s.Name)
		}
	}
	w.States = append(w.States, s)
	return nil
}

// RemoveState removes a state by name, failing if any transition still
// references it.
func (w *Workflow) RemoveState(name string) error {
	for _, t := range w.Transitions {
		if t.ToState == name {
			return fmt.Errorf("workflow: state %q is referenced by transition %q toState", name, t.Name)
		}
		for _, from := range t.FromState {
			if from == name {
				return fmt.Errorf("workflow: state %q is referenced by transition %q fromState", name, t.Name)
			}
		}
	}
	for i, s := range w.States {
		if s.Name == name {
			w.States = append(w.States[:i], w.States[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("workflow: state %q not found", name)
}

// AddTransition appends a new transition.
func (w *Workflow) AddTransition(t WorkflowTransition) error {
	for _, existing := range w.Transitions {
		if existing.Name == t.Name {
			return fmt.Errorf("workflow: transition %q already exists", t.Name)
		}
	}
	w.Transitions = append(w.Transitions, t)
	return nil
}

// RemoveTransition removes a transition by name.
func (w *Workflow) RemoveTransition(name string) error {
	for i, t := range w.Transitions {
		if t.Name == name {
			w.Transitions = append(w.Transitions[:i], w.Transitions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("workflow: transition %q not found", name)
}

// RankState moves a state to a new index within the States slice, used by
// the "rank" update op on workflow states; clamped to [0, len-1] per spec
// §4.3.
func (w *Workflow) RankState(name string, index int) error {
	idx := -1
	for i, s := range w.States {
		if s.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("workflow: state %q not found", name)
	}
	if index < 0 {
		index = 0
	}
	if index > len(w.States)-1 {
		index = len(w.States) - 1
	}
	elem := w.States[idx]
	w.States = append(w.States[:idx], w.States[idx+1:]...)
	out := make([]WorkflowState, 0, len(w.States)+1)
	out = append(out, w.States[:index]...)
	out = append(out, elem)
	out = append(out, w.States[index:]...)
	w.States = out
	return nil
}
