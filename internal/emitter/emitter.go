// Package emitter holds what the target renderers share: the module they
// render and the file writer for their output.
package emitter

import (
	"github.com/mark3labs/oas2validator/internal/routes"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

// Declaration is one named validator in emission order.
type Declaration struct {
	Name   string
	Schema validator.Schema
	Cyclic bool
}

// Module is everything a renderer needs to produce one source file.
type Module struct {
	Title   string
	Version string
	// Declarations are already in dependency order.
	Declarations []Declaration
	// Tables is nil when the lookup tables are not emitted.
	Tables       *routes.Table
	RequestName  string
	ResponseName string

	cyclic map[string]bool
}

// IsCyclic reports whether the declaration called name takes part in a
// reference cycle and must be referenced lazily.
func (m *Module) IsCyclic(name string) bool {
	if m.cyclic == nil {
		m.cyclic = make(map[string]bool, len(m.Declarations))
		for _, d := range m.Declarations {
			if d.Cyclic {
				m.cyclic[d.Name] = true
			}
		}
	}
	return m.cyclic[name]
}
