package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// mergeV2BodyParams rewrites Swagger 2.0 operations that declare more than one
// body parameter, which openapi2conv rejects. The body parameters are folded
// into a single object body with one property per original parameter, keeping
// each parameter's schema and required flag.
//
// It returns the original bytes with changed=false when nothing was rewritten
// or the document cannot be parsed.
func mergeV2BodyParams(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, _ := doc["paths"].(map[string]any)
	changed := false
	for _, item := range paths {
		ops, _ := item.(map[string]any)
		for method, raw := range ops {
			switch strings.ToLower(method) {
			case "get", "put", "post", "delete", "options", "head", "patch":
			default:
				continue
			}
			op, _ := raw.(map[string]any)
			if op == nil {
				continue
			}
			if merged, ok := mergeBodies(op); ok {
				op["parameters"] = merged
				changed = true
			}
		}
	}
	if !changed {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func mergeBodies(op map[string]any) ([]any, bool) {
	params, _ := op["parameters"].([]any)
	var bodies []map[string]any
	rest := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm != nil && strings.EqualFold(stringField(pm, "in"), "body") {
			bodies = append(bodies, pm)
			continue
		}
		rest = append(rest, p)
	}
	if len(bodies) < 2 {
		return nil, false
	}

	props := make(map[string]any, len(bodies))
	var required []any
	for _, b := range bodies {
		name := stringField(b, "name")
		if name == "" {
			name = "field"
		}
		schema, _ := b["schema"].(map[string]any)
		if schema == nil {
			schema = map[string]any{}
		}
		props[name] = schema
		if req, _ := b["required"].(bool); req {
			required = append(required, name)
		}
	}
	body := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		body["required"] = required
	}
	merged := map[string]any{
		"in":       "body",
		"name":     "body",
		"required": len(required) > 0,
		"schema":   body,
	}
	return append([]any{merged}, rest...), true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
