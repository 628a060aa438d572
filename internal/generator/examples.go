package generator

import (
	"fmt"
	"strings"

	"github.com/mark3labs/oas2validator/internal/naming"
	"github.com/mark3labs/oas2validator/internal/spec"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

// Example is an `example` value taken from the document together with the
// declaration that validates it.
type Example struct {
	// Pointer locates the example's schema or media type in the document.
	Pointer     string
	Declaration string
	Value       any
}

// ExampleMismatch is a document example its generated validator rejects.
type ExampleMismatch struct {
	Example
	Err error
}

func (m ExampleMismatch) Error() string {
	return fmt.Sprintf("example at %s rejected by %s: %v", m.Pointer, m.Declaration, m.Err)
}

// Examples lists the document's examples that have a declaration: request
// bodies and responses of every kept route, then component schemas.
func (r *Result) Examples() []Example {
	var out []Example
	for _, b := range r.set.Requests {
		if b.Key != validator.KindBody {
			continue
		}
		route := r.route(b.Path, string(b.Method))
		if route == nil || route.BodyExample == nil || route.Body == nil {
			continue
		}
		out = append(out, Example{Pointer: route.Body.Pointer, Declaration: r.set.Declarations[b.Decl].Name, Value: route.BodyExample})
	}
	for _, b := range r.set.Responses {
		route := r.route(b.Path, string(b.Method))
		if route == nil {
			continue
		}
		for _, resp := range route.Responses {
			if resp.Status != b.Key || resp.Example == nil || resp.Schema == nil {
				continue
			}
			out = append(out, Example{Pointer: resp.Schema.Pointer, Declaration: r.set.Declarations[b.Decl].Name, Value: resp.Example})
		}
	}
	for _, d := range r.set.Declarations {
		if d.Origin != naming.OriginComponent {
			continue
		}
		t := r.doc.Graph.Target(d.Pointer)
		if t == nil || t.Node == nil || t.Node.Example == nil {
			continue
		}
		out = append(out, Example{Pointer: d.Pointer, Declaration: d.Name, Value: t.Node.Example})
	}
	return out
}

// CheckExamples validates every example against its declaration and returns
// the ones that fail.
func (r *Result) CheckExamples() []ExampleMismatch {
	var out []ExampleMismatch
	for _, ex := range r.Examples() {
		s, ok := r.Validator(ex.Declaration)
		if !ok {
			continue
		}
		if err := s.Validate(ex.Value); err != nil {
			out = append(out, ExampleMismatch{Example: ex, Err: err})
		}
	}
	return out
}

func (r *Result) route(path, method string) *spec.Route {
	for i := range r.doc.Routes {
		rt := &r.doc.Routes[i]
		if rt.Path == path && strings.EqualFold(string(rt.Method), method) {
			return rt
		}
	}
	return nil
}
