// Package zodemitter renders a module as a TypeScript file of zod schemas.
package zodemitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/oas2validator/internal/emitter"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

const indentUnit = "  "

const coerceBoolean = `z.preprocess((v) => (v === "true" ? true : v === "false" ? false : v), z.boolean())`

// coerceNumber converts only strings of validator.NumericPattern, so both
// targets agree on which wire values are numbers.
const coerceNumber = "(v) => (typeof v === \"string\" && /" + validator.NumericPattern + "/.test(v) ? Number(v) : v)"

// hostnamePattern is the RFC 1123 form the Go target checks through
// validator/v10's hostname_rfc1123 tag.
const hostnamePattern = `^([a-zA-Z0-9]{1}[a-zA-Z0-9-]{0,62}){1}(\.[a-zA-Z0-9]{1}[a-zA-Z0-9-]{0,62})*?$`

// Render returns the TypeScript source for m. Declarations in a reference
// cycle are typed z.ZodTypeAny and referenced through z.lazy.
func Render(m *emitter.Module) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("zodemitter: nil module")
	}
	r := &renderer{m: m}
	var b strings.Builder
	b.WriteString("// Code generated by oas2validator. DO NOT EDIT.\n")
	if title := strings.TrimSpace(m.Title); title != "" {
		fmt.Fprintf(&b, "// Source: %s %s\n", title, strings.TrimSpace(m.Version))
	}
	b.WriteString("\nimport { z } from \"zod\";\n")

	for _, d := range m.Declarations {
		expr, err := r.expr(d.Schema, 0)
		if err != nil {
			return nil, fmt.Errorf("zodemitter: %s: %w", d.Name, err)
		}
		b.WriteString("\n")
		if d.Cyclic {
			fmt.Fprintf(&b, "export const %s: z.ZodTypeAny = %s;\n", d.Name, expr)
		} else {
			fmt.Fprintf(&b, "export const %s = %s;\n", d.Name, expr)
		}
	}

	if m.Tables != nil {
		b.WriteString("\n")
		r.table(&b, m.RequestName, m.Tables.Request)
		b.WriteString("\n")
		r.table(&b, m.ResponseName, m.Tables.Response)
	}
	return []byte(b.String()), nil
}

type renderer struct {
	m *emitter.Module
}

func (r *renderer) expr(s validator.Schema, depth int) (string, error) {
	switch n := s.(type) {
	case *validator.Any:
		return "z.any()", nil
	case *validator.Null:
		return "z.null()", nil
	case *validator.Boolean:
		if n.Coerce {
			return coerceBoolean, nil
		}
		return "z.boolean()", nil
	case *validator.String:
		return stringExpr(n)
	case *validator.Number:
		return numberExpr(n), nil
	case *validator.Literal:
		return literalExpr(n.Value)
	case *validator.Enum:
		return enumExpr(n.Values)
	case *validator.Array:
		items := "z.any()"
		if n.Items != nil {
			var err error
			if items, err = r.expr(n.Items, depth); err != nil {
				return "", err
			}
		}
		out := "z.array(" + items + ")"
		if n.MinItems != nil {
			out += fmt.Sprintf(".min(%d)", *n.MinItems)
		}
		if n.MaxItems != nil {
			out += fmt.Sprintf(".max(%d)", *n.MaxItems)
		}
		if n.UniqueItems {
			out += `.refine((items) => new Set(items.map((item) => JSON.stringify(item))).size === items.length, { message: "items must be unique" })`
		}
		return out, nil
	case *validator.Object:
		return r.object(n, depth)
	case *validator.Union:
		branches, err := r.list(n.Branches, depth)
		if err != nil {
			return "", err
		}
		switch len(branches) {
		case 0:
			return "z.never()", nil
		case 1:
			return branches[0], nil
		}
		return "z.union([" + strings.Join(branches, ", ") + "])", nil
	case *validator.Intersection:
		branches, err := r.list(n.Branches, depth)
		if err != nil {
			return "", err
		}
		if len(branches) == 0 {
			return "z.any()", nil
		}
		out := branches[0]
		for _, b := range branches[1:] {
			out = "z.intersection(" + out + ", " + b + ")"
		}
		return out, nil
	case *validator.Nullable:
		inner, err := r.expr(n.Schema, depth)
		if err != nil {
			return "", err
		}
		return inner + ".nullable()", nil
	case *validator.Ref:
		if n.Name == "" {
			return "", fmt.Errorf("unnamed reference to %s", n.Target)
		}
		if r.m.IsCyclic(n.Name) {
			return "z.lazy(() => " + n.Name + ")", nil
		}
		return n.Name, nil
	default:
		return "", fmt.Errorf("unsupported validator %T", s)
	}
}

func (r *renderer) list(schemas []validator.Schema, depth int) ([]string, error) {
	out := make([]string, 0, len(schemas))
	for _, s := range schemas {
		e, err := r.expr(s, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *renderer) object(n *validator.Object, depth int) (string, error) {
	var b strings.Builder
	if len(n.Properties) == 0 {
		b.WriteString("z.object({})")
	} else {
		pad := strings.Repeat(indentUnit, depth+1)
		b.WriteString("z.object({\n")
		for _, p := range n.Properties {
			prop := "z.any()"
			if p.Schema != nil {
				var err error
				if prop, err = r.expr(p.Schema, depth+1); err != nil {
					return "", fmt.Errorf("property %q: %w", p.Name, err)
				}
			}
			if !p.Required {
				prop += ".optional()"
			}
			fmt.Fprintf(&b, "%s%s: %s,\n", pad, quote(p.Name), prop)
		}
		b.WriteString(strings.Repeat(indentUnit, depth) + "})")
	}
	switch {
	case n.Strict:
		b.WriteString(".strict()")
	case n.Additional != nil:
		extra, err := r.expr(n.Additional, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(".catchall(" + extra + ")")
	default:
		b.WriteString(".passthrough()")
	}
	if n.MinProperties != nil {
		fmt.Fprintf(&b, `.refine((v) => Object.keys(v).length >= %d, { message: "must have at least %d properties" })`, *n.MinProperties, *n.MinProperties)
	}
	if n.MaxProperties != nil {
		fmt.Fprintf(&b, `.refine((v) => Object.keys(v).length <= %d, { message: "must have at most %d properties" })`, *n.MaxProperties, *n.MaxProperties)
	}
	return b.String(), nil
}

var stringFormats = map[string]string{
	"email":     ".email()",
	"uuid":      ".uuid()",
	"date-time": ".datetime({ offset: true })",
	"date":      ".date()",
	"time":      ".time()",
	"uri":       ".url()",
	"url":       ".url()",
	"ipv4":      `.ip({ version: "v4" })`,
	"ipv6":      `.ip({ version: "v6" })`,
	"byte":      ".base64()",
}

func stringExpr(n *validator.String) (string, error) {
	out := "z.string()"
	if n.MinLength != nil {
		out += fmt.Sprintf(".min(%d)", *n.MinLength)
	}
	if n.MaxLength != nil {
		out += fmt.Sprintf(".max(%d)", *n.MaxLength)
	}
	if n.Pattern != "" {
		out += ".regex(new RegExp(" + quote(n.Pattern) + "))"
	}
	// Formats without a zod check are annotations and render nothing.
	if n.Format == "hostname" {
		out += ".regex(new RegExp(" + quote(hostnamePattern) + "))"
	}
	out += stringFormats[n.Format]
	return out, nil
}

func numberExpr(n *validator.Number) string {
	out := "z.number()"
	if n.Integer {
		out += ".int()"
	}
	switch n.Format {
	case "int32":
		out += fmt.Sprintf(".gte(%d).lte(%d)", math.MinInt32, math.MaxInt32)
	case "int64":
		out += fmt.Sprintf(".gte(%d).lte(%d)", int64(math.MinInt64), int64(math.MaxInt64))
	}
	if n.Minimum != nil {
		if n.ExclusiveMinimum {
			out += ".gt(" + number(*n.Minimum) + ")"
		} else {
			out += ".gte(" + number(*n.Minimum) + ")"
		}
	}
	if n.Maximum != nil {
		if n.ExclusiveMaximum {
			out += ".lt(" + number(*n.Maximum) + ")"
		} else {
			out += ".lte(" + number(*n.Maximum) + ")"
		}
	}
	if n.MultipleOf != nil && *n.MultipleOf > 0 {
		out += ".multipleOf(" + number(*n.MultipleOf) + ")"
	}
	if n.Coerce {
		return "z.preprocess(" + coerceNumber + ", " + out + ".finite())"
	}
	return out
}

func literalExpr(v any) (string, error) {
	switch v.(type) {
	case nil:
		return "z.null()", nil
	case string, bool, float64, float32, int, int64, json.Number:
		js, err := jsonText(v)
		if err != nil {
			return "", err
		}
		return "z.literal(" + js + ")", nil
	case []any, map[string]any:
		js, err := jsonText(v)
		if err != nil {
			return "", err
		}
		return "z.any().refine((v) => JSON.stringify(v) === JSON.stringify(" + js + "))", nil
	default:
		return "", fmt.Errorf("unsupported literal of type %T", v)
	}
}

func enumExpr(values []any) (string, error) {
	if len(values) == 0 {
		return "z.never()", nil
	}
	if len(values) == 1 {
		return literalExpr(values[0])
	}
	allStrings := true
	for _, v := range values {
		if _, ok := v.(string); !ok {
			allStrings = false
			break
		}
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		var (
			s   string
			err error
		)
		if allStrings {
			s, err = jsonText(v)
		} else {
			s, err = literalExpr(v)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	if allStrings {
		return "z.enum([" + strings.Join(parts, ", ") + "])", nil
	}
	return "z.union([" + strings.Join(parts, ", ") + "])", nil
}

func (r *renderer) table(b *strings.Builder, name string, entries map[string]map[string]map[string]string) {
	fmt.Fprintf(b, "export const %s = {\n", name)
	for _, path := range sortedKeys(entries) {
		fmt.Fprintf(b, "%s%s: {\n", indentUnit, quote(path))
		for _, method := range sortedKeys(entries[path]) {
			byKey := entries[path][method]
			if len(byKey) == 0 {
				fmt.Fprintf(b, "%s%s: {},\n", strings.Repeat(indentUnit, 2), quote(method))
				continue
			}
			fmt.Fprintf(b, "%s%s: {\n", strings.Repeat(indentUnit, 2), quote(method))
			for _, key := range sortedKeys(byKey) {
				fmt.Fprintf(b, "%s%s: %s,\n", strings.Repeat(indentUnit, 3), quote(key), byKey[key])
			}
			fmt.Fprintf(b, "%s},\n", strings.Repeat(indentUnit, 2))
		}
		fmt.Fprintf(b, "%s},\n", indentUnit)
	}
	b.WriteString("} as const;\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// quote renders s as a JSON string, which is also a valid TypeScript string.
func quote(s string) string {
	out, _ := jsonText(s)
	return out
}

func jsonText(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
