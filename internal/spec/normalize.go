package spec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const componentPrefix = "#/components/schemas/"

// BuildOption configures which routes Resolve keeps.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.includeTags == nil {
			c.includeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.excludeTags == nil {
			c.excludeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		if len(methods) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[HttpMethod]struct{}, len(methods))
		}
		for _, m := range methods {
			c.methods[HttpMethod(strings.ToUpper(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose path matches at least one of the
// provided regular expressions.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				// an invalid pattern matches nothing
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// Resolve walks doc and returns the normalized schema graph plus one Route per
// kept operation. Every component schema is resolved, referenced or not.
// Routes are ordered by path, then by method in the order of Methods.
func Resolve(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &resolver{doc: doc, graph: NewGraph(), stack: map[string]bool{}}
	out := &Document{Graph: r.graph}
	if doc.Info != nil {
		out.Title = safeStr(doc.Info.Title)
		out.Version = safeStr(doc.Info.Version)
	}

	if doc.Components != nil {
		names := make([]string, 0, len(doc.Components.Schemas))
		for name := range doc.Components.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref := &openapi3.SchemaRef{Ref: componentPrefix + escape(name)}
			if _, err := r.target(ref, "#/components/schemas"); err != nil {
				return nil, err
			}
		}
	}

	if doc.Paths == nil {
		return out, nil
	}
	items := doc.Paths.Map()
	pathKeys := make([]string, 0, len(items))
	for p := range items {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	seen := map[string]string{}
	for _, p := range pathKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := items[p]
		if item == nil {
			continue
		}
		ops := []struct {
			m HttpMethod
			o *openapi3.Operation
		}{
			{GET, item.Get},
			{POST, item.Post},
			{PUT, item.Put},
			{PATCH, item.Patch},
			{DELETE, item.Delete},
			{HEAD, item.Head},
			{OPTIONS, item.Options},
			{TRACE, item.Trace},
		}
		for _, pair := range ops {
			if pair.o == nil {
				continue
			}
			key := string(pair.m) + " " + routeShape(p)
			if existing, dup := seen[key]; dup {
				return nil, &DuplicateRouteError{Method: pair.m, Path: p, Existing: existing}
			}
			seen[key] = p

			if !cfg.allows(p, pair.m, pair.o.Tags) {
				continue
			}
			route, err := r.route(p, pair.m, item, pair.o)
			if err != nil {
				return nil, err
			}
			out.Routes = append(out.Routes, *route)
		}
	}
	return out, nil
}

func (c *buildConfig) allows(path string, m HttpMethod, tags []string) bool {
	if len(c.methods) > 0 {
		if _, ok := c.methods[m]; !ok {
			return false
		}
	}
	if len(c.pathRes) > 0 {
		matched := false
		for _, re := range c.pathRes {
			if re.MatchString(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return allowByTags(tags, c)
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[strings.TrimSpace(t)]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := cfg.excludeTags[strings.TrimSpace(t)]; blocked {
			return false
		}
	}
	return true
}

var paramSegment = regexp.MustCompile(`\{[^}]*\}`)

// routeShape erases parameter names so /u/{id} and /u/{uid} compare equal.
func routeShape(path string) string {
	return paramSegment.ReplaceAllString(path, "{}")
}

type resolver struct {
	doc   *openapi3.T
	graph *Graph
	stack map[string]bool // targets on the current resolution stack
}

type located struct {
	param *openapi3.Parameter
	ptr   string
}

func (r *resolver) route(p string, m HttpMethod, item *openapi3.PathItem, op *openapi3.Operation) (*Route, error) {
	opPtr := "#/paths/" + escape(p) + "/" + strings.ToLower(string(m))
	route := &Route{
		Path:        p,
		Method:      m,
		OperationID: safeStr(op.OperationID),
	}
	for _, t := range op.Tags {
		if t = strings.TrimSpace(t); t != "" {
			route.Tags = append(route.Tags, t)
		}
	}

	// Path-level parameters first, overridden by operation-level ones.
	merged := map[string]located{}
	for i, pref := range item.Parameters {
		if pref == nil || pref.Value == nil {
			continue
		}
		merged[paramKey(pref.Value.In, pref.Value.Name)] = located{pref.Value, "#/paths/" + escape(p) + "/parameters/" + strconv.Itoa(i)}
	}
	for i, pref := range op.Parameters {
		if pref == nil || pref.Value == nil {
			continue
		}
		merged[paramKey(pref.Value.In, pref.Value.Name)] = located{pref.Value, opPtr + "/parameters/" + strconv.Itoa(i)}
	}
	groups := map[string]*SchemaNode{}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lp := merged[k]
		in := strings.ToLower(safeStr(lp.param.In))
		name := safeStr(lp.param.Name)
		switch in {
		case openapi3.ParameterInPath, openapi3.ParameterInQuery:
		case openapi3.ParameterInHeader:
			name = strings.ToLower(name)
			// described by other OpenAPI fields, not by parameters
			if name == "accept" || name == "content-type" || name == "authorization" {
				continue
			}
		default:
			continue
		}
		node, err := r.parameter(lp.param, lp.ptr)
		if err != nil {
			return nil, err
		}
		group := groups[in]
		if group == nil {
			group = &SchemaNode{Kind: KindObject, Pointer: opPtr + "/parameters", AdditionalAllowed: true}
			groups[in] = group
		}
		group.Properties = append(group.Properties, Property{
			Name:     name,
			Schema:   node,
			Required: lp.param.Required || in == openapi3.ParameterInPath,
		})
	}
	for _, g := range groups {
		sortProperties(g.Properties)
	}
	route.Params = groups[openapi3.ParameterInPath]
	route.Query = groups[openapi3.ParameterInQuery]
	route.Headers = groups[openapi3.ParameterInHeader]

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		rb := op.RequestBody.Value
		if mime, mt := pickMedia(rb.Content); mt != nil {
			node, err := r.ref(mt.Schema, opPtr+"/requestBody/content/"+escape(mime)+"/schema")
			if err != nil {
				return nil, err
			}
			route.Body = node
			route.BodyRequired = rb.Required
			route.BodyExample = mediaExample(mt)
		}
	}

	if op.Responses != nil {
		byStatus := op.Responses.Map()
		statuses := make([]string, 0, len(byStatus))
		for code := range byStatus {
			statuses = append(statuses, code)
		}
		sort.Strings(statuses)
		for _, code := range statuses {
			rref := byStatus[code]
			if rref == nil || rref.Value == nil {
				continue
			}
			resp := Response{Status: code}
			if rref.Value.Description != nil {
				resp.Description = safeStr(*rref.Value.Description)
			}
			ptr := opPtr + "/responses/" + escape(code)
			mime, mt := pickMedia(rref.Value.Content)
			if mt == nil {
				resp.Schema = &SchemaNode{Kind: KindAny, Pointer: ptr}
			} else {
				node, err := r.ref(mt.Schema, ptr+"/content/"+escape(mime)+"/schema")
				if err != nil {
					return nil, err
				}
				resp.Schema = node
				resp.Example = mediaExample(mt)
			}
			route.Responses = append(route.Responses, resp)
		}
	}
	return route, nil
}

func (r *resolver) parameter(p *openapi3.Parameter, ptr string) (*SchemaNode, error) {
	if p.Schema != nil {
		return r.ref(p.Schema, ptr+"/schema")
	}
	if mime, mt := pickMedia(p.Content); mt != nil {
		return r.ref(mt.Schema, ptr+"/content/"+escape(mime)+"/schema")
	}
	return &SchemaNode{Kind: KindAny, Pointer: ptr}, nil
}

// ref resolves one schema position. A nil ref is the empty schema.
func (r *resolver) ref(sr *openapi3.SchemaRef, ptr string) (*SchemaNode, error) {
	if sr == nil {
		return &SchemaNode{Kind: KindAny, Pointer: ptr}, nil
	}
	if sr.Ref != "" {
		id, err := r.target(sr, ptr)
		if err != nil {
			return nil, err
		}
		return &SchemaNode{Kind: KindReference, Target: id, Pointer: ptr}, nil
	}
	if sr.Value == nil {
		return nil, &UnresolvedReferenceError{Pointer: "", Referrer: ptr}
	}
	return r.schema(sr.Value, ptr)
}

// target resolves a $ref eagerly on first visit. Revisiting a target that is
// still on the resolution stack marks it cyclic instead of descending again.
func (r *resolver) target(sr *openapi3.SchemaRef, referrer string) (string, error) {
	id := sr.Ref
	if t := r.graph.Target(id); t != nil {
		if r.stack[id] {
			t.Cyclic = true
		}
		return id, nil
	}

	var src *openapi3.SchemaRef
	component := false
	if name, ok := componentName(id); ok {
		component = true
		if r.doc.Components != nil {
			src = r.doc.Components.Schemas[name]
		}
	} else if sr.Value != nil {
		// external or deep pointer already dereferenced by the loader
		src = &openapi3.SchemaRef{Value: sr.Value}
	}
	if src == nil {
		return "", &UnresolvedReferenceError{Pointer: id, Referrer: referrer}
	}

	t := &Target{ID: id, Name: lastSegment(id), Component: component}
	r.graph.Add(t)
	r.stack[id] = true
	node, err := r.ref(src, id)
	delete(r.stack, id)
	if err != nil {
		return "", err
	}
	t.Node = node
	return id, nil
}

func (r *resolver) schema(s *openapi3.Schema, ptr string) (*SchemaNode, error) {
	if s.Not != nil {
		return nil, &UnsupportedSchemaError{Keyword: "not", Pointer: ptr}
	}
	if kw := unmodeledKeyword(s.Extensions); kw != "" {
		return nil, &UnsupportedSchemaError{Keyword: kw, Pointer: ptr}
	}

	nullable := s.Nullable
	var types []string
	if s.Type != nil {
		for _, t := range *s.Type {
			if t == "null" {
				nullable = true
				continue
			}
			types = append(types, t)
		}
	}
	onlyNull := s.Type != nil && len(*s.Type) > 0 && len(types) == 0

	var parts []*SchemaNode
	switch {
	case len(s.Enum) > 0:
		parts = append(parts, enumNode(s.Enum, ptr))
	case onlyNull:
		parts = append(parts, &SchemaNode{Kind: KindNull, Pointer: ptr})
	case len(types) > 1:
		u := &SchemaNode{Kind: KindAnyOf, Pointer: ptr}
		for _, t := range types {
			n, err := r.typed(s, t, ptr)
			if err != nil {
				return nil, err
			}
			u.Branches = append(u.Branches, n)
		}
		parts = append(parts, u)
	case len(types) == 1:
		n, err := r.typed(s, types[0], ptr)
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	default:
		if implied := impliedType(s); implied != "" {
			n, err := r.typed(s, implied, ptr)
			if err != nil {
				return nil, err
			}
			parts = append(parts, n)
		}
	}

	for i, b := range s.AllOf {
		n, err := r.ref(b, ptr+"/allOf/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	if len(s.AnyOf) > 0 {
		n, err := r.union(KindAnyOf, s.AnyOf, ptr)
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	if len(s.OneOf) > 0 {
		n, err := r.union(KindOneOf, s.OneOf, ptr)
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}

	var node *SchemaNode
	switch len(parts) {
	case 0:
		node = &SchemaNode{Kind: KindAny, Pointer: ptr}
	case 1:
		node = parts[0]
	default:
		node = &SchemaNode{Kind: KindAllOf, Pointer: ptr, Branches: parts}
	}
	node.Nullable = node.Nullable || nullable
	node.Example = s.Example
	return node, nil
}

func (r *resolver) union(kind Kind, refs openapi3.SchemaRefs, ptr string) (*SchemaNode, error) {
	n := &SchemaNode{Kind: kind, Pointer: ptr + "/" + string(kind)}
	for i, b := range refs {
		child, err := r.ref(b, n.Pointer+"/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		n.Branches = append(n.Branches, child)
	}
	return n, nil
}

func (r *resolver) typed(s *openapi3.Schema, typ, ptr string) (*SchemaNode, error) {
	switch typ {
	case openapi3.TypeString:
		return &SchemaNode{
			Kind:      KindString,
			Pointer:   ptr,
			Format:    safeStr(s.Format),
			Pattern:   s.Pattern,
			MinLength: minCount(s.MinLength),
			MaxLength: maxCount(s.MaxLength),
		}, nil
	case openapi3.TypeNumber, openapi3.TypeInteger:
		return &SchemaNode{
			Kind:             Kind(typ),
			Pointer:          ptr,
			Format:           safeStr(s.Format),
			Minimum:          s.Min,
			Maximum:          s.Max,
			ExclusiveMinimum: s.ExclusiveMin && s.Min != nil,
			ExclusiveMaximum: s.ExclusiveMax && s.Max != nil,
			MultipleOf:       s.MultipleOf,
		}, nil
	case openapi3.TypeBoolean:
		return &SchemaNode{Kind: KindBoolean, Pointer: ptr}, nil
	case openapi3.TypeArray:
		n := &SchemaNode{
			Kind:        KindArray,
			Pointer:     ptr,
			MinItems:    minCount(s.MinItems),
			MaxItems:    maxCount(s.MaxItems),
			UniqueItems: s.UniqueItems,
		}
		if s.Items != nil {
			items, err := r.ref(s.Items, ptr+"/items")
			if err != nil {
				return nil, err
			}
			n.Items = items
		}
		return n, nil
	case openapi3.TypeObject:
		return r.object(s, ptr)
	default:
		return nil, &UnsupportedSchemaError{Keyword: "type: " + typ, Pointer: ptr}
	}
}

func (r *resolver) object(s *openapi3.Schema, ptr string) (*SchemaNode, error) {
	n := &SchemaNode{
		Kind:              KindObject,
		Pointer:           ptr,
		AdditionalAllowed: true,
		MinProperties:     minCount(s.MinProps),
		MaxProperties:     maxCount(s.MaxProps),
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child, err := r.ref(s.Properties[name], ptr+"/properties/"+escape(name))
		if err != nil {
			return nil, err
		}
		n.Properties = append(n.Properties, Property{Name: name, Schema: child, Required: required[name]})
		delete(required, name)
	}
	// required keys without a declared schema accept any value
	for name := range required {
		n.Properties = append(n.Properties, Property{
			Name:     name,
			Schema:   &SchemaNode{Kind: KindAny, Pointer: ptr + "/required"},
			Required: true,
		})
	}
	sortProperties(n.Properties)

	ap := s.AdditionalProperties
	if ap.Has != nil && !*ap.Has {
		n.AdditionalAllowed = false
	}
	if ap.Schema != nil {
		child, err := r.ref(ap.Schema, ptr+"/additionalProperties")
		if err != nil {
			return nil, err
		}
		n.Additional = child
	}
	return n, nil
}

// annotationKeywords never constrain a value, so they may sit in Extensions.
var annotationKeywords = map[string]bool{
	"$anchor":          true,
	"$comment":         true,
	"$id":              true,
	"$schema":          true,
	"contentEncoding":  true,
	"contentMediaType": true,
	"examples":         true,
}

// unmodeledKeyword returns the first (sorted) key kin-openapi kept in
// Extensions that is neither an x- extension nor an annotation. Such keys
// (const, patternProperties, if/then/else, ...) carry constraints the
// translator cannot express.
func unmodeledKeyword(ext map[string]any) string {
	keys := make([]string, 0, len(ext))
	for k := range ext {
		if strings.HasPrefix(strings.ToLower(k), "x-") || annotationKeywords[k] {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return keys[0]
}

func impliedType(s *openapi3.Schema) string {
	switch {
	case len(s.Properties) > 0, len(s.Required) > 0,
		s.AdditionalProperties.Has != nil, s.AdditionalProperties.Schema != nil,
		s.MinProps > 0, s.MaxProps != nil:
		return openapi3.TypeObject
	case s.Items != nil:
		return openapi3.TypeArray
	default:
		return ""
	}
}

func enumNode(values []any, ptr string) *SchemaNode {
	if len(values) == 1 {
		return &SchemaNode{Kind: KindLiteral, Pointer: ptr, Value: values[0]}
	}
	return &SchemaNode{Kind: KindEnum, Pointer: ptr, Values: append([]any(nil), values...)}
}

// pickMedia prefers application/json, then any other JSON media type, then the
// first media type in sorted order.
func pickMedia(content openapi3.Content) (string, *openapi3.MediaType) {
	if len(content) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := ""
	rank := 3
	for _, k := range keys {
		if content[k] == nil {
			continue
		}
		base := strings.ToLower(strings.TrimSpace(strings.SplitN(k, ";", 2)[0]))
		var r int
		switch {
		case base == "application/json":
			r = 0
		case strings.HasSuffix(base, "+json"), strings.Contains(base, "json"):
			r = 1
		default:
			r = 2
		}
		if r < rank {
			best, rank = k, r
		}
	}
	if best == "" {
		return "", nil
	}
	return best, content[best]
}

func mediaExample(mt *openapi3.MediaType) any {
	if mt.Example != nil {
		return mt.Example
	}
	if len(mt.Examples) == 0 {
		return nil
	}
	names := make([]string, 0, len(mt.Examples))
	for name := range mt.Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	if ref := mt.Examples[names[0]]; ref != nil && ref.Value != nil {
		return ref.Value.Value
	}
	return nil
}

func componentName(id string) (string, bool) {
	if !strings.HasPrefix(id, componentPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(id, componentPrefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return unescape(rest), true
}

func lastSegment(id string) string {
	if i := strings.LastIndexAny(id, "/#"); i >= 0 {
		id = id[i+1:]
	}
	return unescape(id)
}

func sortProperties(props []Property) {
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
}

func minCount(n uint64) *int {
	if n == 0 {
		return nil
	}
	v := int(n)
	return &v
}

func maxCount(n *uint64) *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

func escape(s string) string   { return pointerEscaper.Replace(s) }
func unescape(s string) string { return pointerUnescaper.Replace(s) }

func paramKey(in, name string) string { return strings.ToLower(in) + ":" + name }

func safeStr(s string) string { return strings.TrimSpace(s) }
