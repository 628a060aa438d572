package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/davecgh/go-spew/spew"

	"github.com/mark3labs/oas2validator/pkg/validator"
)

// dump is the fallback encoding for values JSON cannot represent, such as a
// NaN literal or a map with float keys in a hand-built tree.
var dump = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// fingerprinter computes structural hashes of validator trees. A reference
// hashes as its target, except a reference back into a target still being
// hashed, which hashes as that target's id.
type fingerprinter struct {
	targets  map[string]validator.Schema
	active   map[string]bool
	byTarget map[string]string
	memo     map[validator.Schema]string
}

func newFingerprinter(targets map[string]validator.Schema) *fingerprinter {
	return &fingerprinter{
		targets:  targets,
		active:   map[string]bool{},
		byTarget: map[string]string{},
		memo:     map[validator.Schema]string{},
	}
}

func (f *fingerprinter) of(s validator.Schema) string {
	if s == nil {
		return ""
	}
	if r, ok := s.(*validator.Ref); ok {
		return f.ref(r)
	}
	if fp, ok := f.memo[s]; ok {
		return fp
	}
	fp := sum(f.canonical(s))
	f.memo[s] = fp
	return fp
}

func (f *fingerprinter) ref(r *validator.Ref) string {
	if r.Target == "" {
		return sum(map[string]any{"k": "decl", "name": r.Name})
	}
	if f.active[r.Target] {
		return sum(map[string]any{"k": "cycle", "target": r.Target})
	}
	if fp, ok := f.byTarget[r.Target]; ok {
		return fp
	}
	f.active[r.Target] = true
	fp := f.of(f.targets[r.Target])
	delete(f.active, r.Target)
	f.byTarget[r.Target] = fp
	return fp
}

func (f *fingerprinter) canonical(s validator.Schema) map[string]any {
	switch n := s.(type) {
	case *validator.Any:
		return map[string]any{"k": "any"}
	case *validator.Null:
		return map[string]any{"k": "null"}
	case *validator.Boolean:
		return map[string]any{"k": "boolean", "coerce": n.Coerce}
	case *validator.String:
		return map[string]any{
			"k":         "string",
			"format":    n.Format,
			"pattern":   n.Pattern,
			"minLength": n.MinLength,
			"maxLength": n.MaxLength,
		}
	case *validator.Number:
		return map[string]any{
			"k":                "number",
			"integer":          n.Integer,
			"format":           n.Format,
			"minimum":          n.Minimum,
			"maximum":          n.Maximum,
			"exclusiveMinimum": n.ExclusiveMinimum,
			"exclusiveMaximum": n.ExclusiveMaximum,
			"multipleOf":       n.MultipleOf,
			"coerce":           n.Coerce,
		}
	case *validator.Literal:
		return map[string]any{"k": "literal", "value": n.Value}
	case *validator.Enum:
		return map[string]any{"k": "enum", "values": n.Values}
	case *validator.Array:
		return map[string]any{
			"k":           "array",
			"items":       f.of(n.Items),
			"minItems":    n.MinItems,
			"maxItems":    n.MaxItems,
			"uniqueItems": n.UniqueItems,
		}
	case *validator.Object:
		props := make([]any, 0, len(n.Properties))
		for _, p := range n.Properties {
			props = append(props, []any{p.Name, f.of(p.Schema), p.Required})
		}
		return map[string]any{
			"k":             "object",
			"properties":    props,
			"strict":        n.Strict,
			"additional":    f.of(n.Additional),
			"minProperties": n.MinProperties,
			"maxProperties": n.MaxProperties,
		}
	case *validator.Union:
		return map[string]any{"k": "union", "branches": f.all(n.Branches)}
	case *validator.Intersection:
		return map[string]any{"k": "intersection", "branches": f.all(n.Branches)}
	case *validator.Nullable:
		return map[string]any{"k": "nullable", "of": f.of(n.Schema)}
	default:
		return map[string]any{"k": "unknown", "dump": dump.Sdump(s)}
	}
}

func (f *fingerprinter) all(branches []validator.Schema) []string {
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		out = append(out, f.of(b))
	}
	return out
}

func sum(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte(dump.Sdump(v))
	}
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
