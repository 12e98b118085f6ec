package models

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Entity is a pathogen, condition or similar reference record. Only Name is
// required; fields the backend does not interpret are kept in Extra and
// written back unchanged.
type Entity struct {
	ID         string         `json:"id,omitempty" yaml:"id"`
	Name       string         `json:"name" yaml:"name" validate:"required"`
	Category   string         `json:"category,omitempty" yaml:"category"`
	GramStatus string         `json:"gramStatus,omitempty" yaml:"gramStatus"`
	Morphology string         `json:"morphology,omitempty" yaml:"morphology"`
	Conditions []string       `json:"conditions,omitempty" yaml:"conditions"`
	Extra      map[string]any `json:"-" yaml:",inline"`
}

var entityKnownFields = map[string]bool{
	"id": true, "name": true, "category": true, "gramStatus": true,
	"morphology": true, "conditions": true,
}

func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.fields())
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = entityFromMap(raw)
	return nil
}

// fields flattens the entity into a single map, known fields taking
// precedence over anything with the same key in Extra.
func (e Entity) fields() map[string]any {
	out := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.ID != "" {
		out["id"] = e.ID
	}
	out["name"] = e.Name
	if e.Category != "" {
		out["category"] = e.Category
	}
	if e.GramStatus != "" {
		out["gramStatus"] = e.GramStatus
	}
	if e.Morphology != "" {
		out["morphology"] = e.Morphology
	}
	if len(e.Conditions) > 0 {
		out["conditions"] = e.Conditions
	}
	return out
}

func entityFromMap(raw map[string]any) Entity {
	var e Entity
	for k, v := range raw {
		if entityKnownFields[k] {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[k] = v
	}
	e.ID = looseString(raw["id"])
	e.Name = looseString(raw["name"])
	e.Category = looseString(raw["category"])
	e.GramStatus = looseString(raw["gramStatus"])
	e.Morphology = looseString(raw["morphology"])
	if list, ok := raw["conditions"].([]any); ok {
		for _, c := range list {
			if s := looseString(c); s != "" {
				e.Conditions = append(e.Conditions, s)
			}
		}
	}
	return e
}

// looseString accepts strings and numbers; ids in older exports are numeric.
func looseString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// Matches reports whether term occurs, ignoring case, in the entity's name,
// category, gram status or morphology, or in any scalar or list value kept
// in Extra. A blank term matches everything.
func (e Entity) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	has := func(s string) bool { return strings.Contains(strings.ToLower(s), term) }
	if has(e.Name) || has(e.Category) || has(e.GramStatus) || has(e.Morphology) {
		return true
	}
	for _, v := range e.Extra {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if has(looseString(item)) {
					return true
				}
			}
			continue
		}
		if has(looseString(v)) {
			return true
		}
	}
	return false
}

// Complexity is the number of conditions an entity is linked to.
func (e Entity) Complexity() int {
	return len(e.Conditions)
}

// SharedConditions counts condition ids present on both entities.
func (e Entity) SharedConditions(other Entity) int {
	if len(e.Conditions) == 0 || len(other.Conditions) == 0 {
		return 0
	}
	set := make(map[string]bool, len(other.Conditions))
	for _, c := range other.Conditions {
		set[c] = true
	}
	n := 0
	for _, c := range e.Conditions {
		if set[c] {
			n++
		}
	}
	return n
}
