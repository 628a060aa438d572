// Package routes builds the Request and Response lookup tables and the route
// manifest from a declaration set.
package routes

import (
	"encoding/json"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/mark3labs/oas2validator/internal/naming"
	"github.com/mark3labs/oas2validator/internal/spec"
)

// Entries maps path → method → kind or status → declaration name.
type Entries map[string]map[string]map[string]string

// Table holds both lookup structures.
type Table struct {
	Request  Entries `json:"request"`
	Response Entries `json:"response"`
}

// Build groups the bindings of set by route. Every route of doc gets a method
// entry in both tables, even when it declares no parameters.
func Build(doc *spec.Document, set *naming.Set) *Table {
	t := &Table{Request: Entries{}, Response: Entries{}}
	for _, r := range doc.Routes {
		t.Request.slot(r.Path, string(r.Method))
		t.Response.slot(r.Path, string(r.Method))
	}
	for _, b := range set.Requests {
		t.Request.slot(b.Path, string(b.Method))[b.Key] = set.Declarations[b.Decl].Name
	}
	for _, b := range set.Responses {
		t.Response.slot(b.Path, string(b.Method))[b.Key] = set.Declarations[b.Decl].Name
	}
	return t
}

func (e Entries) slot(path, method string) map[string]string {
	byMethod := e[path]
	if byMethod == nil {
		byMethod = map[string]map[string]string{}
		e[path] = byMethod
	}
	m := byMethod[method]
	if m == nil {
		m = map[string]string{}
		byMethod[method] = m
	}
	return m
}

// Paths returns the table's paths in sorted order.
func (e Entries) Paths() []string {
	return sortedKeys(e)
}

// Methods returns the methods of path in sorted order.
func (e Entries) Methods(path string) []string {
	return sortedKeys(e[path])
}

// Keys returns the kinds or statuses of a route in sorted order.
func (e Entries) Keys(path, method string) []string {
	return sortedKeys(e[path][method])
}

// Names returns every declaration name the table refers to, sorted and unique.
func (t *Table) Names() []string {
	seen := map[string]struct{}{}
	for _, e := range []Entries{t.Request, t.Response} {
		for _, byMethod := range e {
			for _, byKey := range byMethod {
				for _, name := range byKey {
					seen[name] = struct{}{}
				}
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Manifest describes the generated module for tooling: every declaration in
// emission order and every route with its table entries.
type Manifest struct {
	Title        string                `json:"title,omitempty"`
	Version      string                `json:"version,omitempty"`
	RequestName  string                `json:"requestTable,omitempty"`
	ResponseName string                `json:"responseTable,omitempty"`
	Declarations []ManifestDeclaration `json:"declarations"`
	Routes       []ManifestRoute       `json:"routes"`
}

type ManifestDeclaration struct {
	Name      string   `json:"name"`
	Origin    string   `json:"origin"`
	Pointer   string   `json:"pointer,omitempty"`
	Cyclic    bool     `json:"cyclic,omitempty"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

type ManifestRoute struct {
	Path         string            `json:"path"`
	Method       string            `json:"method"`
	OperationID  string            `json:"operationId,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	BodyRequired bool              `json:"bodyRequired,omitempty"`
	Request      map[string]string `json:"request,omitempty"`
	Response     map[string]string `json:"response,omitempty"`
}

// NewManifest assembles the manifest. emitted is the declaration order
// produced by the orderer.
func NewManifest(doc *spec.Document, set *naming.Set, emitted []int, table *Table) *Manifest {
	m := &Manifest{
		Title:        doc.Title,
		Version:      doc.Version,
		RequestName:  set.RequestName,
		ResponseName: set.ResponseName,
	}
	for _, idx := range emitted {
		d := set.Declarations[idx]
		md := ManifestDeclaration{Name: d.Name, Origin: string(d.Origin), Pointer: d.Pointer, Cyclic: d.Cyclic}
		for _, dep := range d.Deps {
			md.DependsOn = append(md.DependsOn, set.Declarations[dep.Index].Name)
		}
		m.Declarations = append(m.Declarations, md)
	}
	for _, r := range doc.Routes {
		mr := ManifestRoute{
			Path:         r.Path,
			Method:       string(r.Method),
			OperationID:  r.OperationID,
			Tags:         r.Tags,
			BodyRequired: r.BodyRequired,
		}
		if req := table.Request[r.Path][string(r.Method)]; len(req) > 0 {
			mr.Request = req
		}
		if resp := table.Response[r.Path][string(r.Method)]; len(resp) > 0 {
			mr.Response = resp
		}
		m.Routes = append(m.Routes, mr)
	}
	return m
}

// JSON renders the manifest as indented JSON.
func (m *Manifest) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// YAML renders the manifest as YAML using the JSON field names.
func (m *Manifest) YAML() ([]byte, error) {
	return yaml.Marshal(m)
}
