// Package goemitter renders a module as Go source built on pkg/validator.
package goemitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/mark3labs/oas2validator/internal/emitter"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

// ValidatorPath is the import path of the runtime package generated code uses.
const ValidatorPath = "github.com/mark3labs/oas2validator/pkg/validator"

// Options controls how the Go emitter renders a module.
type Options struct {
	Package string // Go package name; sanitized, defaults to "validators"
}

// Render returns gofmt-formatted Go source for m. Acyclic declarations become
// package-level variables; declarations in a reference cycle are declared
// first and assigned in init, and every reference to them is lazy.
func Render(m *emitter.Module, opts Options) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("goemitter: nil module")
	}
	pkg := PackageName(opts.Package)
	f := jen.NewFile(pkg)
	f.ImportName(ValidatorPath, "validator")
	f.HeaderComment("Code generated by oas2validator. DO NOT EDIT.")
	if title := strings.TrimSpace(m.Title); title != "" {
		f.PackageComment(fmt.Sprintf("Package %s holds validators for %s %s.", pkg, title, strings.TrimSpace(m.Version)))
	}

	r := &renderer{m: m}
	var inits []jen.Code
	for _, d := range m.Declarations {
		expr, err := r.expr(d.Schema)
		if err != nil {
			return nil, fmt.Errorf("goemitter: %s: %w", d.Name, err)
		}
		if d.Cyclic {
			f.Var().Id(d.Name).Qual(ValidatorPath, "Schema")
			inits = append(inits, jen.Id(d.Name).Op("=").Add(expr))
			continue
		}
		f.Var().Id(d.Name).Op("=").Add(expr)
	}
	if len(inits) > 0 {
		f.Line()
		f.Func().Id("init").Params().Block(inits...)
	}

	if m.Tables != nil {
		f.Line()
		f.Commentf("%s maps path, method and parameter kind to a validator.", m.RequestName)
		f.Var().Id(m.RequestName).Op("=").Qual(ValidatorPath, "RequestTable").Values(r.table(m.Tables.Request))
		f.Line()
		f.Commentf("%s maps path, method and status code to a validator.", m.ResponseName)
		f.Var().Id(m.ResponseName).Op("=").Qual(ValidatorPath, "ResponseTable").Values(r.table(m.Tables.Response))
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("goemitter: render: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	m *emitter.Module
}

func node(name string) *jen.Statement {
	return jen.Op("&").Qual(ValidatorPath, name)
}

func intPtr(n *int) jen.Code {
	return jen.Qual(ValidatorPath, "Int").Call(jen.Lit(*n))
}

func floatPtr(f *float64) jen.Code {
	return jen.Qual(ValidatorPath, "Float").Call(jen.Lit(*f))
}

func (r *renderer) expr(s validator.Schema) (jen.Code, error) {
	switch n := s.(type) {
	case *validator.Any:
		return node("Any").Values(), nil
	case *validator.Null:
		return node("Null").Values(), nil
	case *validator.Boolean:
		d := jen.Dict{}
		if n.Coerce {
			d[jen.Id("Coerce")] = jen.True()
		}
		return node("Boolean").Values(d), nil
	case *validator.String:
		d := jen.Dict{}
		if n.Format != "" {
			d[jen.Id("Format")] = jen.Lit(n.Format)
		}
		if n.Pattern != "" {
			d[jen.Id("Pattern")] = jen.Lit(n.Pattern)
		}
		if n.MinLength != nil {
			d[jen.Id("MinLength")] = intPtr(n.MinLength)
		}
		if n.MaxLength != nil {
			d[jen.Id("MaxLength")] = intPtr(n.MaxLength)
		}
		return node("String").Values(d), nil
	case *validator.Number:
		d := jen.Dict{}
		if n.Integer {
			d[jen.Id("Integer")] = jen.True()
		}
		if n.Format != "" {
			d[jen.Id("Format")] = jen.Lit(n.Format)
		}
		if n.Minimum != nil {
			d[jen.Id("Minimum")] = floatPtr(n.Minimum)
		}
		if n.Maximum != nil {
			d[jen.Id("Maximum")] = floatPtr(n.Maximum)
		}
		if n.ExclusiveMinimum {
			d[jen.Id("ExclusiveMinimum")] = jen.True()
		}
		if n.ExclusiveMaximum {
			d[jen.Id("ExclusiveMaximum")] = jen.True()
		}
		if n.MultipleOf != nil {
			d[jen.Id("MultipleOf")] = floatPtr(n.MultipleOf)
		}
		if n.Coerce {
			d[jen.Id("Coerce")] = jen.True()
		}
		return node("Number").Values(d), nil
	case *validator.Literal:
		v, err := literal(n.Value)
		if err != nil {
			return nil, err
		}
		return node("Literal").Values(jen.Dict{jen.Id("Value"): v}), nil
	case *validator.Enum:
		values := make([]jen.Code, 0, len(n.Values))
		for _, v := range n.Values {
			lit, err := literal(v)
			if err != nil {
				return nil, err
			}
			values = append(values, lit)
		}
		return node("Enum").Values(jen.Dict{jen.Id("Values"): jen.Index().Any().Values(values...)}), nil
	case *validator.Array:
		d := jen.Dict{}
		if n.Items != nil {
			items, err := r.expr(n.Items)
			if err != nil {
				return nil, err
			}
			d[jen.Id("Items")] = items
		}
		if n.MinItems != nil {
			d[jen.Id("MinItems")] = intPtr(n.MinItems)
		}
		if n.MaxItems != nil {
			d[jen.Id("MaxItems")] = intPtr(n.MaxItems)
		}
		if n.UniqueItems {
			d[jen.Id("UniqueItems")] = jen.True()
		}
		return node("Array").Values(d), nil
	case *validator.Object:
		return r.object(n)
	case *validator.Union:
		branches, err := r.list(n.Branches)
		if err != nil {
			return nil, err
		}
		return node("Union").Values(jen.Dict{jen.Id("Branches"): branches}), nil
	case *validator.Intersection:
		branches, err := r.list(n.Branches)
		if err != nil {
			return nil, err
		}
		return node("Intersection").Values(jen.Dict{jen.Id("Branches"): branches}), nil
	case *validator.Nullable:
		inner, err := r.expr(n.Schema)
		if err != nil {
			return nil, err
		}
		return node("Nullable").Values(jen.Dict{jen.Id("Schema"): inner}), nil
	case *validator.Ref:
		if n.Name == "" {
			return nil, fmt.Errorf("unnamed reference to %s", n.Target)
		}
		if r.m.IsCyclic(n.Name) {
			return lazy(n.Name), nil
		}
		return jen.Id(n.Name), nil
	default:
		return nil, fmt.Errorf("unsupported validator %T", s)
	}
}

func (r *renderer) object(n *validator.Object) (jen.Code, error) {
	d := jen.Dict{}
	if len(n.Properties) > 0 {
		props := make([]jen.Code, 0, len(n.Properties))
		for _, p := range n.Properties {
			pd := jen.Dict{jen.Id("Name"): jen.Lit(p.Name)}
			if p.Schema != nil {
				s, err := r.expr(p.Schema)
				if err != nil {
					return nil, fmt.Errorf("property %q: %w", p.Name, err)
				}
				pd[jen.Id("Schema")] = s
			}
			if p.Required {
				pd[jen.Id("Required")] = jen.True()
			}
			props = append(props, jen.Values(pd))
		}
		d[jen.Id("Properties")] = jen.Index().Qual(ValidatorPath, "Property").Values(props...)
	}
	if n.Strict {
		d[jen.Id("Strict")] = jen.True()
	}
	if n.Additional != nil {
		s, err := r.expr(n.Additional)
		if err != nil {
			return nil, err
		}
		d[jen.Id("Additional")] = s
	}
	if n.MinProperties != nil {
		d[jen.Id("MinProperties")] = intPtr(n.MinProperties)
	}
	if n.MaxProperties != nil {
		d[jen.Id("MaxProperties")] = intPtr(n.MaxProperties)
	}
	return node("Object").Values(d), nil
}

func (r *renderer) list(schemas []validator.Schema) (jen.Code, error) {
	items := make([]jen.Code, 0, len(schemas))
	for _, s := range schemas {
		c, err := r.expr(s)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return jen.Index().Qual(ValidatorPath, "Schema").Values(items...), nil
}

func (r *renderer) table(entries map[string]map[string]map[string]string) jen.Dict {
	return jen.DictFunc(func(byPath jen.Dict) {
		for path, byMethod := range entries {
			byPath[jen.Lit(path)] = jen.Values(jen.DictFunc(func(methods jen.Dict) {
				for method, byKey := range byMethod {
					methods[jen.Lit(method)] = jen.Values(jen.DictFunc(func(keys jen.Dict) {
						for key, name := range byKey {
							if r.m.IsCyclic(name) {
								keys[jen.Lit(key)] = lazy(name)
							} else {
								keys[jen.Lit(key)] = jen.Id(name)
							}
						}
					}))
				}
			}))
		}
	})
}

func lazy(name string) jen.Code {
	return jen.Qual(ValidatorPath, "Lazy").Call(
		jen.Lit(name),
		jen.Func().Params().Qual(ValidatorPath, "Schema").Block(jen.Return(jen.Id(name))),
	)
}

// literal renders a decoded JSON value.
func literal(v any) (jen.Code, error) {
	switch t := v.(type) {
	case nil:
		return jen.Nil(), nil
	case bool, string, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return jen.Lit(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return jen.Lit(f), nil
	case []any:
		items := make([]jen.Code, 0, len(t))
		for _, item := range t {
			c, err := literal(item)
			if err != nil {
				return nil, err
			}
			items = append(items, c)
		}
		return jen.Index().Any().Values(items...), nil
	case map[string]any:
		d := jen.Dict{}
		for k, item := range t {
			c, err := literal(item)
			if err != nil {
				return nil, err
			}
			d[jen.Lit(k)] = c
		}
		return jen.Map(jen.String()).Any().Values(d), nil
	default:
		return nil, fmt.Errorf("unsupported literal of type %T", v)
	}
}

// PackageName turns s into a valid Go package name.
func PackageName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "validators"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "v" + out
	}
	return out
}
