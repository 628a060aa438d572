// Package generator wires the resolver, translator, naming, ordering and
// rendering stages into a single run over one OpenAPI document.
package generator

import (
	"context"
	"fmt"
	"go/token"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/oas2validator/internal/emitter"
	"github.com/mark3labs/oas2validator/internal/emitter/goemitter"
	"github.com/mark3labs/oas2validator/internal/emitter/zodemitter"
	"github.com/mark3labs/oas2validator/internal/naming"
	"github.com/mark3labs/oas2validator/internal/order"
	"github.com/mark3labs/oas2validator/internal/routes"
	"github.com/mark3labs/oas2validator/internal/spec"
	"github.com/mark3labs/oas2validator/internal/translate"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

// Target selects the output language.
type Target string

const (
	TargetGo  Target = "go"
	TargetZod Target = "zod"
)

// Targets lists the supported targets.
var Targets = []Target{TargetGo, TargetZod}

// ParseTarget accepts a target name case-insensitively; empty means Go.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TargetGo, nil
	case TargetGo, TargetZod:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported target %q (allowed: go, zod)", s)
	}
}

// Options configures one generation run.
type Options struct {
	// IncludeRoutes emits the Request and Response lookup tables.
	IncludeRoutes bool
	// NamePrefix is prepended to every generated identifier, tables included.
	NamePrefix string
	Target     Target
	// Package is the Go package name of the generated file.
	Package string

	IncludeTags  []string
	ExcludeTags  []string
	Methods      []spec.HttpMethod
	PathPatterns []string

	// Logger receives stage summaries at debug level. Nil discards them.
	Logger *log.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{IncludeRoutes: true, Target: TargetGo, Package: "validators"}
}

// Result is the outcome of a run.
type Result struct {
	// Source is the rendered module.
	Source []byte
	// Declarations lists the declaration names in emission order.
	Declarations []string
	// Tables is built even when the module omits it.
	Tables   *routes.Table
	Manifest *routes.Manifest

	doc *spec.Document
	set *naming.Set
}

// Generate turns doc into validator source. The same document and options
// always produce byte-identical output.
func Generate(ctx context.Context, doc *openapi3.T, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	target, err := ParseTarget(string(opts.Target))
	if err != nil {
		return nil, err
	}
	if opts.NamePrefix != "" && !token.IsIdentifier(opts.NamePrefix) {
		return nil, fmt.Errorf("name prefix %q is not a valid identifier", opts.NamePrefix)
	}

	resolved, err := spec.Resolve(ctx, doc,
		spec.WithIncludeTags(opts.IncludeTags),
		spec.WithExcludeTags(opts.ExcludeTags),
		spec.WithMethods(opts.Methods),
		spec.WithPathPatterns(opts.PathPatterns),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved document", "routes", len(resolved.Routes), "targets", len(resolved.Graph.IDs()))

	set, err := naming.Build(resolved, translate.New(resolved.Graph), naming.Options{Prefix: opts.NamePrefix})
	if err != nil {
		return nil, err
	}
	logger.Debug("named declarations", "declarations", len(set.Declarations),
		"requests", len(set.Requests), "responses", len(set.Responses))

	emitted, err := order.Sort(set.Declarations)
	if err != nil {
		return nil, err
	}
	tables := routes.Build(resolved, set)

	m := &emitter.Module{
		Title:        resolved.Title,
		Version:      resolved.Version,
		RequestName:  set.RequestName,
		ResponseName: set.ResponseName,
	}
	names := make([]string, 0, len(emitted))
	cyclic := 0
	for _, idx := range emitted {
		d := set.Declarations[idx]
		m.Declarations = append(m.Declarations, emitter.Declaration{Name: d.Name, Schema: d.Schema, Cyclic: d.Cyclic})
		names = append(names, d.Name)
		if d.Cyclic {
			cyclic++
		}
	}
	if opts.IncludeRoutes {
		m.Tables = tables
	}
	logger.Debug("ordered declarations", "emitted", len(names), "cyclic", cyclic)

	var src []byte
	switch target {
	case TargetZod:
		src, err = zodemitter.Render(m)
	default:
		src, err = goemitter.Render(m, goemitter.Options{Package: opts.Package})
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("rendered module", "target", target, "bytes", len(src))

	return &Result{
		Source:       src,
		Declarations: names,
		Tables:       tables,
		Manifest:     routes.NewManifest(resolved, set, emitted, tables),
		doc:          resolved,
		set:          set,
	}, nil
}

// Validator returns the in-memory validator of the declaration called name.
// It accepts exactly what the rendered declaration accepts.
func (r *Result) Validator(name string) (validator.Schema, bool) {
	i, ok := r.set.Index(name)
	if !ok {
		return nil, false
	}
	return r.set.Declarations[i].Schema, true
}

// Request returns the request lookup table backed by in-memory validators.
func (r *Result) Request() validator.RequestTable {
	return validator.RequestTable(r.resolve(r.Tables.Request))
}

// Response returns the response lookup table backed by in-memory validators.
func (r *Result) Response() validator.ResponseTable {
	return validator.ResponseTable(r.resolve(r.Tables.Response))
}

func (r *Result) resolve(entries routes.Entries) map[string]map[string]map[string]validator.Schema {
	out := make(map[string]map[string]map[string]validator.Schema, len(entries))
	for path, byMethod := range entries {
		out[path] = make(map[string]map[string]validator.Schema, len(byMethod))
		for method, byKey := range byMethod {
			slot := make(map[string]validator.Schema, len(byKey))
			for key, name := range byKey {
				if s, ok := r.Validator(name); ok {
					slot[key] = s
				}
			}
			out[path][method] = slot
		}
	}
	return out
}
