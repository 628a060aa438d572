// Package naming decides which validator trees become named declarations,
// names them, and collapses structurally identical shapes into one declaration.
package naming

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stoewer/go-strcase"

	"github.com/mark3labs/oas2validator/internal/spec"
	"github.com/mark3labs/oas2validator/internal/translate"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

// Origin tells where a declaration came from.
type Origin string

const (
	OriginComponent Origin = "component"
	OriginRoute     Origin = "route"
	OriginHoisted   Origin = "hoisted"
)

// Dep is an edge to another declaration in the arena. Guarded edges pass
// through an object property, an array item or an additional-properties
// value.
type Dep struct {
	Index   int
	Guarded bool
}

// Declaration is a named, emittable validator.
type Declaration struct {
	Name    string
	Schema  validator.Schema
	Deps    []Dep
	Cyclic  bool
	Origin  Origin
	Pointer string
}

// Binding ties one route slot to a declaration. Key is a request kind
// (params, query, headers, body) or a response status.
type Binding struct {
	Path   string
	Method spec.HttpMethod
	Key    string
	Decl   int
}

// Set is the arena of declarations produced for one document.
type Set struct {
	Declarations []*Declaration
	Requests     []Binding
	Responses    []Binding
	// RequestName and ResponseName are the identifiers reserved for the lookup tables.
	RequestName  string
	ResponseName string

	byName map[string]int
}

// Index returns the arena index of the declaration called name.
func (s *Set) Index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Options configures naming.
type Options struct {
	// Prefix is prepended to every generated identifier.
	Prefix string
}

type builder struct {
	doc     *spec.Document
	tr      *translate.Translator
	prefix  string
	reg     *Registry
	fp      *fingerprinter
	trees   map[string]validator.Schema
	targets map[string]int // target id → declaration index
	set     *Set
}

// Build translates every component and route schema of doc and returns the
// declaration arena with route bindings. Dependencies are filled in and every
// reference is named and bound, so the declarations validate in memory.
func Build(doc *spec.Document, tr *translate.Translator, opts Options) (*Set, error) {
	b := &builder{
		doc:     doc,
		tr:      tr,
		prefix:  opts.Prefix,
		trees:   map[string]validator.Schema{},
		targets: map[string]int{},
		set: &Set{
			RequestName:  opts.Prefix + "Request",
			ResponseName: opts.Prefix + "Response",
			byName:       map[string]int{},
		},
	}
	b.reg = NewRegistry(b.set.RequestName, b.set.ResponseName)

	for _, id := range doc.Graph.IDs() {
		s, err := tr.Translate(doc.Graph.Target(id).Node, false)
		if err != nil {
			return nil, err
		}
		b.trees[id] = s
	}
	b.fp = newFingerprinter(b.trees)

	if err := b.components(); err != nil {
		return nil, err
	}
	if err := b.routes(); err != nil {
		return nil, err
	}
	b.hoist()
	if err := b.link(); err != nil {
		return nil, err
	}
	return b.set, nil
}

func (b *builder) add(d *Declaration) int {
	idx := len(b.set.Declarations)
	b.set.Declarations = append(b.set.Declarations, d)
	b.set.byName[d.Name] = idx
	return idx
}

// components declares every resolved target. Components come first in name
// order, then other targets in id order. Targets that are a bare reference
// bind to the declaration at the end of their reference chain.
func (b *builder) components() error {
	ids := b.doc.Graph.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		ti, tj := b.doc.Graph.Target(ids[i]), b.doc.Graph.Target(ids[j])
		if ti.Component != tj.Component {
			return ti.Component
		}
		if ti.Component {
			return ti.Name < tj.Name
		}
		return ti.ID < tj.ID
	})

	var aliases []string
	for _, id := range ids {
		if _, alias := b.trees[id].(*validator.Ref); alias {
			aliases = append(aliases, id)
			continue
		}
		t := b.doc.Graph.Target(id)
		name := b.reg.Claim(b.prefix + nonEmpty(Ident(t.Name), "Anonymous") + "Schema")
		b.targets[id] = b.add(&Declaration{Name: name, Schema: b.trees[id], Origin: OriginComponent, Pointer: id})
		b.reg.Register(b.fp.of(b.trees[id]), name)
	}

	for _, id := range aliases {
		chain := []string{id}
		seen := map[string]bool{id: true}
		cur := id
		for {
			next := b.trees[cur].(*validator.Ref).Target
			if idx, ok := b.targets[next]; ok {
				b.targets[id] = idx
				break
			}
			if _, ok := b.trees[next]; !ok {
				return &spec.UnresolvedReferenceError{Pointer: next, Referrer: cur}
			}
			if seen[next] {
				names := make([]string, 0, len(chain))
				for _, c := range chain {
					names = append(names, b.prefix+Ident(b.doc.Graph.Target(c).Name)+"Schema")
				}
				return &spec.UnbreakableCycleError{Names: names}
			}
			if _, ok := b.trees[next].(*validator.Ref); !ok {
				// a non-component target is always declared above
				return fmt.Errorf("reference %s has no declaration", next)
			}
			seen[next] = true
			chain = append(chain, next)
			cur = next
		}
	}
	return nil
}

func (b *builder) routes() error {
	for _, r := range b.doc.Routes {
		segments := routeSegments(r.Path)
		slots := []struct {
			key    string
			node   *spec.SchemaNode
			coerce bool
			suffix string
		}{
			{validator.KindParams, r.Params, true, "Params"},
			{validator.KindQuery, r.Query, true, "Query"},
			{validator.KindHeaders, r.Headers, true, "Headers"},
			{validator.KindBody, r.Body, false, "Body"},
		}
		for _, slot := range slots {
			if slot.node == nil {
				continue
			}
			idx, err := b.route(r, segments, slot.suffix, slot.node, slot.coerce)
			if err != nil {
				return err
			}
			b.set.Requests = append(b.set.Requests, Binding{Path: r.Path, Method: r.Method, Key: slot.key, Decl: idx})
		}
		for _, resp := range r.Responses {
			idx, err := b.route(r, segments, responseSuffix(resp.Status), resp.Schema, false)
			if err != nil {
				return err
			}
			b.set.Responses = append(b.set.Responses, Binding{Path: r.Path, Method: r.Method, Key: resp.Status, Decl: idx})
		}
	}
	return nil
}

func (b *builder) route(r spec.Route, segments, suffix string, node *spec.SchemaNode, coerce bool) (int, error) {
	s, err := b.tr.Translate(node, coerce)
	if err != nil {
		return 0, err
	}
	if ref, ok := s.(*validator.Ref); ok {
		idx, ok := b.targets[ref.Target]
		if !ok {
			return 0, &spec.UnresolvedReferenceError{Pointer: ref.Target, Referrer: node.Pointer}
		}
		return idx, nil
	}
	fp := b.fp.of(s)
	if name, ok := b.reg.Lookup(fp); ok {
		return b.set.byName[name], nil
	}
	base := b.prefix + segments + suffix + "Schema"
	method := b.prefix + strcase.UpperCamelCase(strings.ToLower(string(r.Method))) + segments + suffix + "Schema"
	name := b.reg.Claim(base, method)
	b.reg.Register(fp, name)
	return b.add(&Declaration{Name: name, Schema: s, Origin: OriginRoute, Pointer: node.Pointer}), nil
}

// routeSegments builds the path part of a route declaration name: literal
// segments in UpperCamelCase, parameters dropped, "Root" for the bare root.
func routeSegments(p string) string {
	var out strings.Builder
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		out.WriteString(Segment(seg))
	}
	if out.Len() == 0 {
		return "Root"
	}
	return out.String()
}

func responseSuffix(status string) string {
	if strings.EqualFold(status, "default") {
		return "DefaultResponse"
	}
	status = strings.ToUpper(status)
	if status != "" && status[0] >= '4' && status[0] <= '9' {
		return status + "ErrorResponse"
	}
	return status + "Response"
}

// hoist turns nested objects into declarations when their shape occurs more
// than once or already has a declaration, and replaces them with references.
func (b *builder) hoist() {
	counts := map[string]int{}
	for _, d := range b.set.Declarations {
		walkNested(d.Schema, "", func(s validator.Schema, _ string) (validator.Schema, bool) {
			if _, ok := s.(*validator.Object); ok {
				counts[b.fp.of(s)]++
			}
			return nil, true
		})
	}

	for i := 0; i < len(b.set.Declarations); i++ {
		owner := b.set.Declarations[i]
		stem := strings.TrimSuffix(owner.Name, "Schema")
		walkNested(owner.Schema, "", func(s validator.Schema, at string) (validator.Schema, bool) {
			if _, ok := s.(*validator.Object); !ok {
				return nil, true
			}
			fp := b.fp.of(s)
			if name, ok := b.reg.Lookup(fp); ok {
				return &validator.Ref{Name: name}, false
			}
			if counts[fp] < 2 {
				return nil, true
			}
			name := b.reg.Claim(stem + at + "Schema")
			b.reg.Register(fp, name)
			b.add(&Declaration{Name: name, Schema: s, Origin: OriginHoisted, Pointer: owner.Pointer})
			return &validator.Ref{Name: name}, false
		})
	}
}

// visit is called for every nested schema below a declaration root. A non-nil
// replacement is swapped in; descend controls whether the walk continues below.
type visit func(s validator.Schema, at string) (replacement validator.Schema, descend bool)

func walkNested(root validator.Schema, at string, fn visit) {
	replace := func(child validator.Schema, at string) validator.Schema {
		if child == nil {
			return nil
		}
		if _, ok := child.(*validator.Ref); ok {
			return child
		}
		repl, descend := fn(child, at)
		if repl != nil {
			return repl
		}
		if descend {
			walkNested(child, at, fn)
		}
		return child
	}
	switch n := root.(type) {
	case *validator.Array:
		n.Items = replace(n.Items, at+"Item")
	case *validator.Object:
		for i := range n.Properties {
			n.Properties[i].Schema = replace(n.Properties[i].Schema, at+nonEmpty(Ident(n.Properties[i].Name), "Field"+strconv.Itoa(i)))
		}
		n.Additional = replace(n.Additional, at+"Value")
	case *validator.Union:
		for i := range n.Branches {
			n.Branches[i] = replace(n.Branches[i], at+"Variant"+strconv.Itoa(i+1))
		}
	case *validator.Intersection:
		for i := range n.Branches {
			n.Branches[i] = replace(n.Branches[i], at+"Part"+strconv.Itoa(i+1))
		}
	case *validator.Nullable:
		n.Schema = replace(n.Schema, at)
	}
}

// link names every reference, records dependencies and binds references to
// their declarations.
func (b *builder) link() error {
	decls := b.set.Declarations
	for _, d := range decls {
		deps := map[int]bool{} // index → guarded on every edge
		var err error
		walkRefs(d.Schema, false, func(r *validator.Ref, guarded bool) {
			if err != nil {
				return
			}
			var idx int
			if r.Target != "" {
				i, ok := b.targets[r.Target]
				if !ok {
					err = &spec.UnresolvedReferenceError{Pointer: r.Target, Referrer: d.Pointer}
					return
				}
				idx = i
				r.Name = decls[idx].Name
			} else {
				i, ok := b.set.byName[r.Name]
				if !ok {
					err = fmt.Errorf("reference to undeclared %s", r.Name)
					return
				}
				idx = i
			}
			target := decls[idx]
			r.Bind(func() validator.Schema { return target.Schema })
			if g, seen := deps[idx]; seen {
				deps[idx] = g && guarded
			} else {
				deps[idx] = guarded
			}
		})
		if err != nil {
			return err
		}
		d.Deps = d.Deps[:0]
		for idx, guarded := range deps {
			d.Deps = append(d.Deps, Dep{Index: idx, Guarded: guarded})
		}
		sort.Slice(d.Deps, func(i, j int) bool { return d.Deps[i].Index < d.Deps[j].Index })
	}
	return nil
}

// walkRefs calls fn for every reference in s, reporting whether the path to it
// passed through a property, item or additional-properties position.
func walkRefs(s validator.Schema, guarded bool, fn func(*validator.Ref, bool)) {
	switch n := s.(type) {
	case *validator.Ref:
		fn(n, guarded)
	case *validator.Array:
		if n.Items != nil {
			walkRefs(n.Items, true, fn)
		}
	case *validator.Object:
		for _, p := range n.Properties {
			if p.Schema != nil {
				walkRefs(p.Schema, true, fn)
			}
		}
		if n.Additional != nil {
			walkRefs(n.Additional, true, fn)
		}
	case *validator.Union:
		for _, br := range n.Branches {
			walkRefs(br, guarded, fn)
		}
	case *validator.Intersection:
		for _, br := range n.Branches {
			walkRefs(br, guarded, fn)
		}
	case *validator.Nullable:
		walkRefs(n.Schema, guarded, fn)
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
