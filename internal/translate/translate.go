// Package translate turns normalized schema nodes into validator trees.
package translate

import (
	"sort"

	"github.com/mark3labs/oas2validator/internal/spec"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

// Translator converts spec.SchemaNode values into pkg/validator trees.
// References stay symbolic: each becomes a *validator.Ref carrying the
// canonical target id, to be named and bound later.
type Translator struct {
	graph *spec.Graph
}

func New(graph *spec.Graph) *Translator {
	return &Translator{graph: graph}
}

// Translate converts n. With coerce set, numeric and boolean leaves also accept
// their string wire form; references to acyclic targets are inlined so the
// coercion reaches them.
func (t *Translator) Translate(n *spec.SchemaNode, coerce bool) (validator.Schema, error) {
	if n == nil {
		return &validator.Any{}, nil
	}
	s, err := t.kind(n, coerce)
	if err != nil {
		return nil, err
	}
	if n.Nullable {
		s = nullable(s)
	}
	return s, nil
}

func (t *Translator) kind(n *spec.SchemaNode, coerce bool) (validator.Schema, error) {
	switch n.Kind {
	case spec.KindAny:
		return &validator.Any{}, nil
	case spec.KindNull:
		return &validator.Null{}, nil
	case spec.KindBoolean:
		return &validator.Boolean{Coerce: coerce}, nil
	case spec.KindString:
		return &validator.String{
			Format:    n.Format,
			Pattern:   n.Pattern,
			MinLength: n.MinLength,
			MaxLength: n.MaxLength,
		}, nil
	case spec.KindNumber, spec.KindInteger:
		return &validator.Number{
			Integer:          n.Kind == spec.KindInteger,
			Format:           n.Format,
			Minimum:          n.Minimum,
			Maximum:          n.Maximum,
			ExclusiveMinimum: n.ExclusiveMinimum,
			ExclusiveMaximum: n.ExclusiveMaximum,
			MultipleOf:       n.MultipleOf,
			Coerce:           coerce,
		}, nil
	case spec.KindLiteral:
		return &validator.Literal{Value: n.Value}, nil
	case spec.KindEnum:
		return &validator.Enum{Values: append([]any(nil), n.Values...)}, nil
	case spec.KindArray:
		return t.array(n, coerce)
	case spec.KindObject:
		return t.object(n, coerce)
	case spec.KindAnyOf, spec.KindOneOf:
		branches, err := t.branches(n.Branches, coerce)
		if err != nil {
			return nil, err
		}
		if len(branches) == 1 {
			return branches[0], nil
		}
		return &validator.Union{Branches: branches}, nil
	case spec.KindAllOf:
		return t.allOf(n, coerce)
	case spec.KindReference:
		target := t.graph.Target(n.Target)
		if target == nil || target.Node == nil {
			return nil, &spec.UnresolvedReferenceError{Pointer: n.Target, Referrer: n.Pointer}
		}
		if coerce && !target.Cyclic {
			return t.Translate(target.Node, true)
		}
		return &validator.Ref{Target: n.Target}, nil
	default:
		return nil, &spec.UnsupportedSchemaError{Keyword: "kind " + string(n.Kind), Pointer: n.Pointer}
	}
}

func (t *Translator) array(n *spec.SchemaNode, coerce bool) (validator.Schema, error) {
	a := &validator.Array{MinItems: n.MinItems, MaxItems: n.MaxItems, UniqueItems: n.UniqueItems}
	if n.Items != nil {
		items, err := t.Translate(n.Items, coerce)
		if err != nil {
			return nil, err
		}
		a.Items = items
	}
	return a, nil
}

func (t *Translator) object(n *spec.SchemaNode, coerce bool) (validator.Schema, error) {
	o := &validator.Object{
		Strict:        !n.AdditionalAllowed,
		MinProperties: n.MinProperties,
		MaxProperties: n.MaxProperties,
	}
	for _, p := range n.Properties {
		s, err := t.Translate(p.Schema, coerce)
		if err != nil {
			return nil, err
		}
		o.Properties = append(o.Properties, validator.Property{Name: p.Name, Schema: s, Required: p.Required})
	}
	if n.Additional != nil {
		s, err := t.Translate(n.Additional, coerce)
		if err != nil {
			return nil, err
		}
		o.Additional = s
	}
	return o, nil
}

func (t *Translator) branches(nodes []*spec.SchemaNode, coerce bool) ([]validator.Schema, error) {
	out := make([]validator.Schema, 0, len(nodes))
	for _, b := range nodes {
		s, err := t.Translate(b, coerce)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// allOf merges plain object branches into one object. Anything else, including
// strict or size-bounded objects, is kept as an intersection of the branches.
func (t *Translator) allOf(n *spec.SchemaNode, coerce bool) (validator.Schema, error) {
	objects := make([]*spec.SchemaNode, 0, len(n.Branches))
	for _, b := range n.Branches {
		obj := t.mergeable(b)
		if obj == nil {
			objects = nil
			break
		}
		objects = append(objects, obj)
	}
	if len(objects) == 0 {
		branches, err := t.branches(n.Branches, coerce)
		if err != nil {
			return nil, err
		}
		if len(branches) == 1 {
			return branches[0], nil
		}
		return &validator.Intersection{Branches: branches}, nil
	}

	type merged struct {
		schemas  []validator.Schema
		required bool
	}
	props := map[string]*merged{}
	for _, obj := range objects {
		for _, p := range obj.Properties {
			s, err := t.Translate(p.Schema, coerce)
			if err != nil {
				return nil, err
			}
			m := props[p.Name]
			if m == nil {
				m = &merged{}
				props[p.Name] = m
			}
			m.schemas = append(m.schemas, s)
			m.required = m.required || p.Required
		}
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	o := &validator.Object{}
	for _, name := range names {
		m := props[name]
		var s validator.Schema = m.schemas[0]
		if len(m.schemas) > 1 {
			s = &validator.Intersection{Branches: m.schemas}
		}
		o.Properties = append(o.Properties, validator.Property{Name: name, Schema: s, Required: m.required})
	}
	return o, nil
}

// mergeable returns the object node behind b when it can be folded into a
// merged allOf object, following references to acyclic targets.
func (t *Translator) mergeable(b *spec.SchemaNode) *spec.SchemaNode {
	seen := map[string]bool{}
	for b != nil && b.Kind == spec.KindReference && !b.Nullable {
		target := t.graph.Target(b.Target)
		if target == nil || target.Cyclic || seen[b.Target] {
			return nil
		}
		seen[b.Target] = true
		b = target.Node
	}
	if b == nil || b.Kind != spec.KindObject || b.Nullable {
		return nil
	}
	if !b.AdditionalAllowed || b.Additional != nil || b.MinProperties != nil || b.MaxProperties != nil {
		return nil
	}
	return b
}

func nullable(s validator.Schema) validator.Schema {
	switch s.(type) {
	case *validator.Any, *validator.Null, *validator.Nullable:
		return s
	}
	return &validator.Nullable{Schema: s}
}
