package spec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGeneration is the sentinel behind every generation failure. Loader
// problems are reported as *SpecError and do not match it.
var ErrGeneration = errors.New("generation failed")

// UnresolvedReferenceError reports a $ref whose target is absent from the document.
type UnresolvedReferenceError struct {
	Pointer  string // the $ref value
	Referrer string // JSON pointer of the schema holding the $ref
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q at %s", e.Pointer, e.Referrer)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrGeneration }

// UnsupportedSchemaError reports a schema construct with no translation rule.
type UnsupportedSchemaError struct {
	Keyword string
	Pointer string
}

func (e *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("unsupported schema keyword %q at %s", e.Keyword, e.Pointer)
}

func (e *UnsupportedSchemaError) Unwrap() error { return ErrGeneration }

// UnbreakableCycleError lists declarations that reference each other without
// passing through an object property, array item or additional property, so
// validating them would never terminate.
type UnbreakableCycleError struct {
	Names []string
}

func (e *UnbreakableCycleError) Error() string {
	return fmt.Sprintf("unbreakable reference cycle between %s", strings.Join(e.Names, ", "))
}

func (e *UnbreakableCycleError) Unwrap() error { return ErrGeneration }

// DuplicateRouteError reports two paths that differ only in parameter names
// and declare the same method.
type DuplicateRouteError struct {
	Method   HttpMethod
	Path     string
	Existing string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route %s %s (conflicts with %s)", e.Method, e.Path, e.Existing)
}

func (e *DuplicateRouteError) Unwrap() error { return ErrGeneration }
