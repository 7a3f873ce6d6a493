package datasync

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Attributes is the JSON-attribute view of an entity, as produced by
// AttributesOf. Diffing operates on this representation.
type Attributes map[string]any

// Diff is the minimal attribute-level difference between two entity
// states. Old and New always hold identical key sets.
type Diff struct {
	Old Attributes `json:"old"`
	New Attributes `json:"new"`
}

// Empty reports whether the change set carries no changes. An empty
// diff must short-circuit any write.
func (d Diff) Empty() bool {
	return len(d.Old) == 0
}

// ChangeSet captures an entity's state before and after a local edit.
// Transform produces the wire-ready payload for the update; when nil,
// the plain diff is sent.
type ChangeSet struct {
	OldState  Attributes
	NewState  Attributes
	Transform func(*ChangeSet) any
}

func NewChangeSet(oldState, newState Attributes) *ChangeSet {
	return &ChangeSet{OldState: oldState, NewState: newState}
}

// Diff scans the old state's attributes and collects every attribute
// whose value differs in the new state. The scan is deliberately
// shallow: attributes present only on the new state are not discovered
// (entities that need that, special-case it in their own diff).
func (c *ChangeSet) Diff() Diff {
	old := Attributes{}
	updated := Attributes{}

	for attr, oldValue := range c.OldState {
		newValue := c.NewState[attr]
		if !reflect.DeepEqual(oldValue, newValue) {
			old[attr] = oldValue
			updated[attr] = newValue
		}
	}

	return Diff{Old: old, New: updated}
}

// Payload returns the body to PUT for this change set.
func (c *ChangeSet) Payload() any {
	if c.Transform != nil {
		return c.Transform(c)
	}
	return c.Diff()
}

// AttributesOf converts an entity into its JSON-attribute view.
func AttributesOf(v any) (Attributes, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	var attrs Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("entity is not a JSON object: %w", err)
	}
	return attrs, nil
}
